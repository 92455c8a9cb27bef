// Package source implements the Frame Source component: it owns the
// connection to a single upstream camera and yields JPEG frames one at a
// time, blocking the caller until the next one is ready.
package source

import "context"

// DefaultMaxFrameSize is the per-sample size bound LiveSource uses when the
// tunnel reports a max_frame_size of zero.
const DefaultMaxFrameSize = 200 * 1024

type sourceError string

func (e sourceError) Error() string { return string(e) }

const (
	// ErrAuth is returned by Connect when the device rejects the access code.
	ErrAuth = sourceError("authentication rejected by device")
	// ErrUnreachable is returned by Connect when the device cannot be reached
	// over the network at all.
	ErrUnreachable = sourceError("device unreachable")
	// ErrUnexpectedStream is returned when the tunnel reports a stream count
	// or codec other than the single MJPEG stream this package expects.
	ErrUnexpectedStream = sourceError("unexpected stream layout")
	// ErrProtocol is returned on any other tunnel-protocol level failure.
	ErrProtocol = sourceError("tunnel protocol error")
	// ErrEndOfStream is returned by NextFrame once the upstream has closed
	// the stream and will not yield further frames.
	ErrEndOfStream = sourceError("end of stream")
)

// Source is the contract a frame source implements, whether it talks to a
// real printer over the vendor tunnel or generates synthetic frames.
type Source interface {
	// Connect establishes the upstream session. Calling Connect on an
	// already-connected source is a no-op.
	Connect(ctx context.Context) error
	// Disconnect tears the upstream session down. Calling Disconnect on an
	// already-disconnected source is a no-op.
	Disconnect()
	// NextFrame blocks until the next JPEG frame is available, ctx is
	// cancelled, or the stream ends.
	NextFrame(ctx context.Context) ([]byte, error)
	// FrameRate is the nominal frames-per-second the source publishes at.
	FrameRate() float64
	// Width and Height are the nominal frame dimensions; a source that
	// cannot know this ahead of the first frame returns 0, 0. The RTP
	// egress sizes its encoder from the decoded frame, not from this.
	Dimensions() (width, height int)
	// MaxFrameSize bounds the size of any single frame this source can
	// produce. The broker's drop threshold is set separately, when the
	// Slot is constructed.
	MaxFrameSize() int
}
