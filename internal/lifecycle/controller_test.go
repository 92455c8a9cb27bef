package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"bambucam/internal/frame"
)

type countingSource struct {
	connects    int32
	disconnects int32
	frames      int32
}

func (c *countingSource) Connect(ctx context.Context) error {
	atomic.AddInt32(&c.connects, 1)
	return nil
}

func (c *countingSource) Disconnect() {
	atomic.AddInt32(&c.disconnects, 1)
}

func (c *countingSource) NextFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
	}
	atomic.AddInt32(&c.frames, 1)
	return []byte("frame"), nil
}

func (c *countingSource) FrameRate() float64     { return 100 }
func (c *countingSource) Dimensions() (int, int) { return 64, 48 }
func (c *countingSource) MaxFrameSize() int      { return 1 << 20 }

func TestControllerConnectsOnFirstJoinOnly(t *testing.T) {
	src := &countingSource{}
	slot := frame.NewSlot(zap.NewNop(), 0)
	ctl := New(zap.NewNop(), src, slot)
	ctx := context.Background()

	if err := ctl.Join(ctx, "a"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := ctl.Join(ctx, "b"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got := atomic.LoadInt32(&src.connects); got != 1 {
		t.Fatalf("expected exactly 1 connect, got %d", got)
	}

	ctl.Leave("a")
	if got := atomic.LoadInt32(&src.disconnects); got != 0 {
		t.Fatalf("expected no disconnect with one viewer remaining, got %d", got)
	}

	ctl.Leave("b")
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&src.disconnects); got != 1 {
		t.Fatalf("expected exactly 1 disconnect, got %d", got)
	}
}

func TestControllerPublishesFrames(t *testing.T) {
	src := &countingSource{}
	slot := frame.NewSlot(zap.NewNop(), 0)
	ctl := New(zap.NewNop(), src, slot)
	ctx := context.Background()

	if err := ctl.Join(ctx, "a"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	defer ctl.Leave("a")

	_, err := slot.WaitForNew(ctx, 0)
	if err != nil {
		t.Fatalf("WaitForNew: %v", err)
	}
}

func TestControllerResetsGenerationOnReconnect(t *testing.T) {
	src := &countingSource{}
	slot := frame.NewSlot(zap.NewNop(), 0)
	ctl := New(zap.NewNop(), src, slot)
	ctx := context.Background()

	if err := ctl.Join(ctx, "a"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := slot.WaitForNew(ctx, 0); err != nil {
		t.Fatalf("WaitForNew: %v", err)
	}
	if g := slot.Generation(); g == 0 {
		t.Fatalf("expected generation to have advanced past 0, got %d", g)
	}

	ctl.Leave("a")
	time.Sleep(20 * time.Millisecond)

	if err := ctl.Join(ctx, "b"); err != nil {
		t.Fatalf("Join (reconnect): %v", err)
	}
	defer ctl.Leave("b")

	if g := slot.Generation(); g > 3 {
		t.Fatalf("expected generation to have reset across reconnect, got %d", g)
	}
}

func TestControllerShutdownRejectsJoin(t *testing.T) {
	src := &countingSource{}
	slot := frame.NewSlot(zap.NewNop(), 0)
	ctl := New(zap.NewNop(), src, slot)
	ctl.Shutdown()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from Join after Shutdown")
		}
	}()
	ctl.Join(context.Background(), "a")
}
