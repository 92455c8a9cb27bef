package rtpmpeg

import (
	"bytes"
	"image"
	"io"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// resample420 downsamples a 4:4:4 or 4:2:2 image's chroma planes to 4:2:0,
// since the encoder boundary only accepts YUV420P. Luma is untouched; each
// 4:2:0 chroma sample is copied from the source chroma sample at the
// top-left pixel of its 2x2 block, with no averaging of neighbours.
func resample420(src *image.YCbCr) *image.YCbCr {
	dst := image.NewYCbCr(src.Rect, image.YCbCrSubsampleRatio420)
	copy(dst.Y, src.Y)

	w, h := src.Rect.Dx(), src.Rect.Dy()
	cw, ch := (w+1)/2, (h+1)/2
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			si := src.COffset(src.Rect.Min.X+cx*2, src.Rect.Min.Y+cy*2)
			di := dst.COffset(dst.Rect.Min.X+cx*2, dst.Rect.Min.Y+cy*2)
			dst.Cb[di] = src.Cb[si]
			dst.Cr[di] = src.Cr[si]
		}
	}
	return dst
}
