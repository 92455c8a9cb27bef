package source

import (
	"context"
	"testing"
)

func TestFakeSourceCyclesDeterministically(t *testing.T) {
	f, err := NewFakeSource()
	if err != nil {
		t.Fatalf("NewFakeSource: %v", err)
	}
	f.sleep = 0 // don't pace the test
	ctx := context.Background()

	var frames [][]byte
	for i := 0; i < 6; i++ {
		b, err := f.NextFrame(ctx)
		if err != nil {
			t.Fatalf("NextFrame: %v", err)
		}
		frames = append(frames, b)
	}
	for i := 0; i < 3; i++ {
		if string(frames[i]) != string(frames[i+3]) {
			t.Fatalf("expected frame %d to repeat at %d", i, i+3)
		}
	}
	if string(frames[0]) == string(frames[1]) {
		t.Fatalf("expected successive frames to differ")
	}
}

func TestFakeSourceConnectDisconnectIdempotent(t *testing.T) {
	f, err := NewFakeSource()
	if err != nil {
		t.Fatalf("NewFakeSource: %v", err)
	}
	ctx := context.Background()
	if err := f.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := f.Connect(ctx); err != nil {
		t.Fatalf("Connect (again): %v", err)
	}
	f.Disconnect()
	f.Disconnect()
}

func TestFakeSourceDimensions(t *testing.T) {
	f, err := NewFakeSource()
	if err != nil {
		t.Fatalf("NewFakeSource: %v", err)
	}
	w, h := f.Dimensions()
	if w != 640 || h != 480 {
		t.Fatalf("unexpected dimensions %dx%d", w, h)
	}
}
