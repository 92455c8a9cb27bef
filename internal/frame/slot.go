// Package frame implements the Latest-Frame Slot: the single point of
// handoff between the frame source and every egress transport.
package frame

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"bambucam/internal/metrics"
)

// Frame is one still image pulled from the upstream camera.
type Frame struct {
	Bytes      []byte
	Generation uint64
}

// Slot holds the most recently published frame and a generation counter.
// Publish replaces the slot's contents under the slot mutex and broadcasts;
// it waits only for that mutex, which a reader holds for the length of one
// copy, never for a reader to consume a frame.
type Slot struct {
	mu         sync.Mutex
	cond       *sync.Cond
	bytes      []byte
	generation uint64
	logger     *zap.Logger
	maxSize    int
}

// NewSlot returns an empty slot. maxSize bounds the size of any frame
// accepted by Publish; oversize frames are dropped and logged, the slot
// keeps whatever it last held.
func NewSlot(logger *zap.Logger, maxSize int) *Slot {
	s := &Slot{logger: logger, maxSize: maxSize}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Publish installs a new frame, bumping the generation counter, and wakes
// every goroutine blocked in WaitForNew. The caller's slice is copied, the
// caller may reuse it immediately after this returns.
func (s *Slot) Publish(data []byte) {
	if s.maxSize > 0 && len(data) > s.maxSize {
		s.logger.Warn("dropping oversize frame",
			zap.Int("size", len(data)),
			zap.Int("max_size", s.maxSize))
		metrics.FramesDropped.Inc()
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.bytes = buf
	s.generation++
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Snapshot returns a private copy of the currently latched frame together
// with its generation. Safe to call from any number of goroutines
// concurrently; the returned bytes are never mutated by a later Publish.
func (s *Slot) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(s.bytes))
	copy(buf, s.bytes)
	return Frame{Bytes: buf, Generation: s.generation}
}

// WaitForNew blocks until a frame newer than afterGeneration is published,
// or ctx is cancelled. On cancellation it returns a zero Frame and the
// context's error.
func (s *Slot) WaitForNew(ctx context.Context, afterGeneration uint64) (Frame, error) {
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			// Take the lock so the broadcast cannot land between the
			// waiter's ctx check and its cond.Wait.
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-stopped:
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.generation <= afterGeneration {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		default:
		}
		s.cond.Wait()
	}
	buf := make([]byte, len(s.bytes))
	copy(buf, s.bytes)
	return Frame{Bytes: buf, Generation: s.generation}, nil
}

// Generation returns the current generation without copying the frame.
func (s *Slot) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Reset clears the slot and restarts the generation counter at zero. The
// lifecycle controller calls this on every 0->1 viewer transition, right
// after a new Source session connects and before the producer starts, so
// that generation is strictly
// increasing for the lifetime of one FS connection but starts fresh on
// each reconnect rather than carrying over from the previous session.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytes = nil
	s.generation = 0
}
