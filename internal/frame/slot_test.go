package frame

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSlotPublishSnapshot(t *testing.T) {
	s := NewSlot(zap.NewNop(), 0)
	s.Publish([]byte("hello"))
	f := s.Snapshot()
	if string(f.Bytes) != "hello" {
		t.Fatalf("expected hello, got %q", f.Bytes)
	}
	if f.Generation != 1 {
		t.Fatalf("expected generation 1, got %d", f.Generation)
	}
}

func TestSlotOversizeDropped(t *testing.T) {
	s := NewSlot(zap.NewNop(), 4)
	s.Publish([]byte("toolong"))
	f := s.Snapshot()
	if f.Generation != 0 || len(f.Bytes) != 0 {
		t.Fatalf("expected oversize frame to be dropped, got %+v", f)
	}
}

func TestSlotWaitForNew(t *testing.T) {
	s := NewSlot(zap.NewNop(), 0)
	ctx := context.Background()

	done := make(chan Frame, 1)
	go func() {
		f, err := s.WaitForNew(ctx, 0)
		if err != nil {
			t.Error(err)
			return
		}
		done <- f
	}()

	time.Sleep(10 * time.Millisecond)
	s.Publish([]byte("frame-1"))

	select {
	case f := <-done:
		if string(f.Bytes) != "frame-1" || f.Generation != 1 {
			t.Fatalf("unexpected frame %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for new frame")
	}
}

func TestSlotWaitForNewCancelled(t *testing.T) {
	s := NewSlot(zap.NewNop(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.WaitForNew(ctx, 0)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestSlotReset(t *testing.T) {
	s := NewSlot(zap.NewNop(), 0)
	s.Publish([]byte("frame-a"))
	s.Publish([]byte("frame-b"))
	if g := s.Generation(); g != 2 {
		t.Fatalf("expected generation 2 before reset, got %d", g)
	}
	s.Reset()
	f := s.Snapshot()
	if f.Generation != 0 || len(f.Bytes) != 0 {
		t.Fatalf("expected empty zero-generation slot after reset, got %+v", f)
	}
	s.Publish([]byte("frame-c"))
	if g := s.Generation(); g != 1 {
		t.Fatalf("expected generation 1 after first publish post-reset, got %d", g)
	}
}

func TestSlotMonotonicGenerations(t *testing.T) {
	s := NewSlot(zap.NewNop(), 0)
	for i := 0; i < 5; i++ {
		s.Publish([]byte{byte(i)})
	}
	if g := s.Generation(); g != 5 {
		t.Fatalf("expected generation 5, got %d", g)
	}
}
