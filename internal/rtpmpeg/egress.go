// Package rtpmpeg implements the alternative egress transport: each
// latched JPEG frame is decoded, re-encoded as MPEG-2, muxed into MPEG-TS,
// and packetized as RTP/MP2T onto a UDP socket.
package rtpmpeg

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
	"go.uber.org/zap"

	"bambucam/internal/frame"
	"bambucam/internal/metrics"
	"bambucam/internal/ring"
	"bambucam/internal/rtpmpeg/codec"
	"bambucam/internal/rtpmpeg/mpegts"
)

// rtpPayloadMP2T is the static RTP payload type for MPEG2-TS, RFC 3551 §6.
const rtpPayloadMP2T = 33

// tsPacketsPerRTP follows RFC 2250 §2: 7 TS packets (1316 bytes) per RTP
// payload keeps the datagram under typical path MTUs. The last datagram of
// each access unit carries whatever is left, which may be fewer.
const tsPacketsPerRTP = 7

// pseudoViewerID is the constant identity this egress registers with the
// Lifecycle Controller while running. RTP is a connectionless push
// transport: there is no handshake to count real subscribers, so this
// package always reports exactly one viewer while active rather than
// leaving viewer accounting silently wrong.
const pseudoViewerID = "rtp-egress"

// Egress drives the decode/encode/mux/packetize pipeline and sends the
// result to a fixed UDP destination.
type Egress struct {
	logger *zap.Logger
	slot   *frame.Slot
	reg    lifecycleRegistry
	dest   *net.UDPAddr

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type lifecycleRegistry interface {
	Join(ctx context.Context, viewerID string) error
	Leave(viewerID string)
}

// New returns an Egress that reads from slot and sends RTP/MP2T packets to
// dest ("host:port").
func New(logger *zap.Logger, slot *frame.Slot, reg lifecycleRegistry, dest string) (*Egress, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve rtp destination: %w", err)
	}
	return &Egress{logger: logger, slot: slot, reg: reg, dest: addr}, nil
}

// Start connects the UDP socket and begins pulling frames in a background
// goroutine. Returns once the pipeline is running.
func (e *Egress) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return nil
	}

	if err := e.reg.Join(ctx, pseudoViewerID); err != nil {
		return fmt.Errorf("join lifecycle controller: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, e.dest)
	if err != nil {
		e.reg.Leave(pseudoViewerID)
		return fmt.Errorf("dial rtp destination: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(runCtx, conn)
	return nil
}

// Stop cancels the pipeline and blocks until it has fully exited, fixing
// the "runs forever" failure mode of a push loop with no exit condition.
func (e *Egress) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	e.reg.Leave(pseudoViewerID)
}

func (e *Egress) run(ctx context.Context, conn *net.UDPConn) {
	defer close(e.done)
	defer conn.Close()

	var (
		enc     codec.Encoder
		mux     = mpegts.NewMuxer()
		queue   = ring.New[[]byte](256)
		seq     uint16
		ssrc    = uint32(time.Now().UnixNano())
		lastGen uint64
	)

	for {
		f, err := e.slot.WaitForNew(ctx, lastGen)
		if err != nil {
			return
		}
		lastGen = f.Generation

		img, err := jpeg.Decode(bytesReader(f.Bytes))
		if err != nil {
			e.logger.Warn("failed to decode frame for rtp egress", zap.Error(err))
			continue
		}
		yuv, ok := toYUV420P(img)
		if !ok {
			e.logger.Warn("frame is not representable as YUV420P, skipping")
			continue
		}

		if enc == nil {
			cfg := codec.NewConfig(yuv.Rect.Dx(), yuv.Rect.Dy(), 1)
			enc = codec.NewPassthroughEncoder(cfg)
		}

		pts := pts90kHz(f.Generation)
		au, err := enc.Encode(yuv, pts)
		if err != nil {
			e.logger.Warn("mpeg-2 encode failed", zap.Error(err))
			continue
		}

		for _, tsPacket := range mux.WriteAccessUnit(au, pts) {
			if _, evicted := queue.Push(tsPacket); evicted {
				metrics.RTPPacketsEvicted.Inc()
			}
		}

		for queue.Len() > 0 {
			payload := make([]byte, 0, tsPacketsPerRTP*188)
			for i := 0; i < tsPacketsPerRTP; i++ {
				pkt, ok := queue.Pop()
				if !ok {
					break
				}
				payload = append(payload, pkt...)
			}
			pkt := &rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					PayloadType:    rtpPayloadMP2T,
					SequenceNumber: seq,
					Timestamp:      uint32(pts),
					SSRC:           ssrc,
				},
				Payload: payload,
			}
			seq++
			raw, err := pkt.Marshal()
			if err != nil {
				e.logger.Warn("rtp marshal failed", zap.Error(err))
				continue
			}
			if _, err := conn.Write(raw); err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Warn("rtp send failed", zap.Error(err))
				continue
			}
			metrics.RTPPacketsSent.Inc()
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// pts90kHz scales a frame's broker generation to the 90kHz RTP clock,
// treating generations as a monotonic frame index the way the spec's
// broker already guarantees.
func pts90kHz(generation uint64) uint64 {
	const rtpClockHz = 90000
	return generation * rtpClockHz
}

func toYUV420P(img image.Image) (*image.YCbCr, bool) {
	yuv, ok := img.(*image.YCbCr)
	if !ok {
		return nil, false
	}
	if yuv.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		return yuv, true
	}
	return resample420(yuv), true
}
