package codec

import (
	"encoding/binary"
	"image"
)

// sequenceHeaderCode and pictureStartCode are the MPEG-2 video bitstream
// start codes (ISO/IEC 13818-2 §6.2.2, §6.2.3).
const (
	sequenceHeaderCode = 0x000001B3
	pictureStartCode   = 0x00000100
)

// PassthroughEncoder is the reference Encoder: it emits the MPEG-2 sequence
// header and picture start codes, each followed by plain big-endian fields
// (width, height and bitrate; then the PTS) rather than the standard header
// field layout, and carries the raw YUV420P planes as the picture data
// rather than running a real DCT/motion-compensation pipeline. This is the declared stand-in for a
// real MPEG-2 codec context (e.g. a cgo binding to libavcodec, built the
// same way the JPEG compression path binds libturbojpeg); swapping it out
// does not require any change to the muxer or the RTP layer, since both
// only ever see opaque access-unit bytes.
type PassthroughEncoder struct {
	cfg Config
}

// NewPassthroughEncoder builds a PassthroughEncoder for the given config.
func NewPassthroughEncoder(cfg Config) *PassthroughEncoder {
	return &PassthroughEncoder{cfg: cfg}
}

func (e *PassthroughEncoder) Dimensions() (int, int) { return e.cfg.Width, e.cfg.Height }

func (e *PassthroughEncoder) Encode(img *image.YCbCr, pts uint64) ([]byte, error) {
	var au []byte
	au = append(au, startCodeBytes(sequenceHeaderCode)...)
	au = append(au, sequenceHeaderPayload(e.cfg)...)
	au = append(au, startCodeBytes(pictureStartCode)...)
	au = append(au, picturePayload(pts)...)
	au = append(au, img.Y...)
	au = append(au, img.Cb...)
	au = append(au, img.Cr...)
	return au, nil
}

func startCodeBytes(code uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, code)
	return b
}

// sequenceHeaderPayload packs width, height and bitrate into the fields the
// real MPEG-2 sequence header carries; precision beyond what downstream
// muxing needs is not attempted since no real decoder consumes this
// bitstream.
func sequenceHeaderPayload(cfg Config) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint16(b[0:2], uint16(cfg.Width))
	binary.BigEndian.PutUint16(b[2:4], uint16(cfg.Height))
	binary.BigEndian.PutUint32(b[4:8], uint32(cfg.Bitrate))
	return b
}

func picturePayload(pts uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, pts)
	return b
}
