package mpegts

import "testing"

func TestMuxerEmitsPATAndPMTOnce(t *testing.T) {
	m := NewMuxer()
	packets := m.WriteAccessUnit([]byte("first-access-unit"), 0)
	if len(packets) < 3 {
		t.Fatalf("expected PAT + PMT + at least one PES packet, got %d", len(packets))
	}
	if packets[0][0] != syncByte || packets[1][0] != syncByte {
		t.Fatalf("expected sync byte 0x47 on PAT/PMT packets")
	}

	packets2 := m.WriteAccessUnit([]byte("second-access-unit"), 3000)
	for _, p := range packets2 {
		if p[0] != syncByte {
			t.Fatalf("expected sync byte 0x47 on every packet")
		}
	}
}

func TestMuxerPacketsAreFixedSize(t *testing.T) {
	m := NewMuxer()
	packets := m.WriteAccessUnit(make([]byte, 1000), 90000)
	for i, p := range packets {
		if len(p) != packetSize {
			t.Fatalf("packet %d has size %d, want %d", i, len(p), packetSize)
		}
	}
}

func TestMuxerContinuityCounterIncrements(t *testing.T) {
	m := NewMuxer()
	m.WriteAccessUnit(make([]byte, 2000), 0)
	firstCC := m.videoCC
	m.WriteAccessUnit(make([]byte, 2000), 3000)
	if m.videoCC == firstCC {
		t.Fatalf("expected video PID continuity counter to advance")
	}
}
