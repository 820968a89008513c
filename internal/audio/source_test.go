package audio

import (
	"math"
	"testing"
)

func TestSourceAppendAndSlice(t *testing.T) {
	s := NewSource(16000)

	if got := s.TotalSamples(); got != 0 {
		t.Fatalf("TotalSamples() = %d, want 0", got)
	}

	chunk := make([]float32, 1600)
	for i := range chunk {
		chunk[i] = 0.5
	}
	s.Append(chunk)
	s.Append(chunk)

	if got := s.TotalSamples(); got != 3200 {
		t.Errorf("TotalSamples() = %d, want 3200", got)
	}
	if got := s.DurationSeconds(); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("DurationSeconds() = %v, want 0.2", got)
	}

	out := s.Slice(1600, 3200)
	if len(out) != 1600 {
		t.Fatalf("Slice() returned %d samples, want 1600", len(out))
	}

	// The slice is a copy: mutating it must not touch the buffer.
	out[0] = -1
	again := s.Slice(1600, 1601)
	if again[0] != 0.5 {
		t.Errorf("buffer mutated through slice copy: got %v", again[0])
	}
}

func TestSourceSliceClamping(t *testing.T) {
	s := NewSource(16000)
	s.Append(make([]float32, 100))

	tests := []struct {
		name     string
		from, to int
		wantLen  int
	}{
		{name: "negative from", from: -5, to: 50, wantLen: 50},
		{name: "past end", from: 50, to: 500, wantLen: 50},
		{name: "inverted", from: 80, to: 20, wantLen: 0},
		{name: "empty", from: 100, to: 100, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(s.Slice(tt.from, tt.to)); got != tt.wantLen {
				t.Errorf("Slice(%d, %d) len = %d, want %d", tt.from, tt.to, got, tt.wantLen)
			}
		})
	}
}

func TestSourceEnergyTrace(t *testing.T) {
	s := NewSource(16000)

	// One full 0.1s frame of a known amplitude, then a partial frame
	// that must not appear in the trace yet.
	loud := make([]float32, 1600)
	for i := range loud {
		loud[i] = 0.5
	}
	s.Append(loud)
	s.Append(make([]float32, 800))

	trace := s.EnergyTrace()
	if len(trace) != 1 {
		t.Fatalf("EnergyTrace() len = %d, want 1", len(trace))
	}
	if math.Abs(float64(trace[0])-0.5) > 1e-6 {
		t.Errorf("frame RMS = %v, want 0.5", trace[0])
	}

	// Completing the partial frame with silence adds a second entry.
	s.Append(make([]float32, 800))
	trace = s.EnergyTrace()
	if len(trace) != 2 {
		t.Fatalf("EnergyTrace() len = %d, want 2", len(trace))
	}
	if trace[1] != 0 {
		t.Errorf("silent frame RMS = %v, want 0", trace[1])
	}
}

func TestSourceTraceBounded(t *testing.T) {
	s := NewSource(16000)

	// 20 seconds of audio is 200 frames; the trace keeps the trailing
	// window only.
	for i := 0; i < 200; i++ {
		frame := make([]float32, 1600)
		v := float32(i) / 200
		for j := range frame {
			frame[j] = v
		}
		s.Append(frame)
	}

	trace := s.EnergyTrace()
	if len(trace) != traceFrames {
		t.Fatalf("EnergyTrace() len = %d, want %d", len(trace), traceFrames)
	}
	// Oldest retained frame is number 100; newest is 199.
	if math.Abs(float64(trace[0])-0.5) > 1e-3 {
		t.Errorf("oldest retained frame = %v, want ~0.5", trace[0])
	}
	last := trace[len(trace)-1]
	if math.Abs(float64(last)-199.0/200) > 1e-3 {
		t.Errorf("newest frame = %v, want ~0.995", last)
	}
}

func TestSourceReset(t *testing.T) {
	s := NewSource(16000)
	s.Append(make([]float32, 4800))
	s.Reset()

	if got := s.TotalSamples(); got != 0 {
		t.Errorf("TotalSamples() after Reset = %d, want 0", got)
	}
	if got := len(s.EnergyTrace()); got != 0 {
		t.Errorf("EnergyTrace() after Reset has %d entries, want 0", got)
	}
}

func TestEnergyRingSnapshotOrder(t *testing.T) {
	r := newEnergyRing(3)
	r.Push(1)
	r.Push(2)
	if got := r.Snapshot(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("partial Snapshot() = %v, want [1 2]", got)
	}

	r.Push(3)
	r.Push(4) // evicts 1
	got := r.Snapshot()
	want := []float32{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot() = %v, want %v", got, want)
		}
	}
}
