package source

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync/atomic"
	"time"
)

const (
	fakeWidth  = 640
	fakeHeight = 480
	fakeFPS    = 1.0
)

var fakeColors = []color.RGBA{
	{R: 0xff, G: 0x00, B: 0x00, A: 0xff}, // red
	{R: 0x00, G: 0xff, B: 0x00, A: 0xff}, // green
	{R: 0x00, G: 0x00, B: 0xff, A: 0xff}, // blue
}

// FakeSource is a deterministic Source implementation for tests and local
// development: it never touches the network, cycling through a fixed
// three-colour sequence at a steady 1 frame per second.
type FakeSource struct {
	connected int32
	counter   uint64
	sleep     time.Duration
	frames    [][]byte
	maxSize   int
}

// NewFakeSource pre-renders the three solid-colour JPEGs it will cycle
// through, so NextFrame never pays encode cost on the hot path. maxSize is
// the size of the largest of the three, matching the source's reported
// max_frame_size.
func NewFakeSource() (*FakeSource, error) {
	frames := make([][]byte, len(fakeColors))
	maxSize := 0
	for i, c := range fakeColors {
		buf, err := encodeSolid(c)
		if err != nil {
			return nil, err
		}
		frames[i] = buf
		if len(buf) > maxSize {
			maxSize = len(buf)
		}
	}
	return &FakeSource{
		sleep:   time.Duration(float64(time.Second) / fakeFPS),
		frames:  frames,
		maxSize: maxSize,
	}, nil
}

func encodeSolid(c color.RGBA) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, fakeWidth, fakeHeight))
	for y := 0; y < fakeHeight; y++ {
		for x := 0; x < fakeWidth; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *FakeSource) Connect(ctx context.Context) error {
	atomic.StoreInt32(&f.connected, 1)
	return nil
}

func (f *FakeSource) Disconnect() {
	atomic.StoreInt32(&f.connected, 0)
}

// NextFrame returns the i-mod-3'th pre-rendered frame, advancing the
// internal counter, and paces itself to one call per nominal frame period.
func (f *FakeSource) NextFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(f.sleep):
	}
	i := atomic.AddUint64(&f.counter, 1) - 1
	frame := f.frames[i%uint64(len(f.frames))]
	out := make([]byte, len(frame))
	copy(out, frame)
	return out, nil
}

func (f *FakeSource) FrameRate() float64 { return fakeFPS }

func (f *FakeSource) Dimensions() (int, int) { return fakeWidth, fakeHeight }

func (f *FakeSource) MaxFrameSize() int { return f.maxSize }
