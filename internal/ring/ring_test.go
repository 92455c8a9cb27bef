package ring

import "testing"

func TestRingPushPop(t *testing.T) {
	f := New[int](3)
	if f.Len() != 0 {
		t.Fatalf("expected empty fifo, got len %d", f.Len())
	}
	f.Push(1)
	f.Push(2)
	f.Push(3)
	if f.Len() != 3 {
		t.Fatalf("expected len 3, got %d", f.Len())
	}
	if _, evicted := f.Push(4); !evicted {
		t.Fatalf("expected eviction when pushing into a full ring")
	}
	item, ok := f.Pop()
	if !ok || item != 2 {
		t.Fatalf("expected 2, got %d ok=%v", item, ok)
	}
}

func TestRingEmptyPop(t *testing.T) {
	f := New[[]byte](2)
	if _, ok := f.Pop(); ok {
		t.Fatalf("expected pop on empty fifo to fail")
	}
}
