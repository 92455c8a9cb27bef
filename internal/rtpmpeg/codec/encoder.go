// Package codec defines the boundary between this program's own code and
// the MPEG-2 video bitstream itself. Exactly like the turbojpeg binding
// treats JPEG compression as an opaque library call, this package treats
// MPEG-2 encoding as a black box behind one interface: what's on either
// side of it (JPEG decode, MPEG-TS muxing, RTP packetization) is where the
// actual engineering of this program lives.
package codec

import "image"

// Encoder turns one decoded, 4:2:0-subsampled frame into one MPEG-2
// elementary-stream access unit.
type Encoder interface {
	// Encode returns the access unit for img. pts is the frame's
	// presentation timestamp in 90kHz units.
	Encode(img *image.YCbCr, pts uint64) ([]byte, error)
	// Width and Height this encoder was configured for.
	Dimensions() (width, height int)
}

// Config parameters used to build the sequence header of a newly opened
// stream. Bitrate and time base follow the convention fixed at the top of
// this pipeline: bitrate = width*height*4, time_base = 1/fps.
type Config struct {
	Width   int
	Height  int
	FPS     float64
	Bitrate int
}

// NewConfig derives the encoder bitrate from frame dimensions, matching
// the fixed width*height*4 convention this pipeline always uses.
func NewConfig(width, height int, fps float64) Config {
	return Config{
		Width:   width,
		Height:  height,
		FPS:     fps,
		Bitrate: width * height * 4,
	}
}
