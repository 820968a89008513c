package audio

import (
	"math"
	"sync"
)

// EnergyFrameSeconds is the width of one energy-trace frame.
const EnergyFrameSeconds = 0.1

// traceFrames bounds the energy trace to the trailing ~10 seconds.
const traceFrames = 100

// Source accumulates one recording session's samples and keeps a
// trailing per-frame RMS energy trace for the voice gate. The sample
// buffer is append-only for the life of a session; readers get copies,
// so an in-flight inference call never sees audio move under it.
type Source struct {
	mu        sync.RWMutex
	rate      int
	frameSize int
	samples   []float32
	framed    int // samples already folded into the energy trace
	trace     *energyRing
}

// NewSource creates a source for the given sample rate.
func NewSource(rate int) *Source {
	return &Source{
		rate:      rate,
		frameSize: int(float64(rate) * EnergyFrameSeconds),
		trace:     newEnergyRing(traceFrames),
	}
}

// SampleRate returns the source's sample rate in Hz.
func (s *Source) SampleRate() int { return s.rate }

// Append adds captured samples and folds completed frames into the
// energy trace.
func (s *Source) Append(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, samples...)
	for len(s.samples)-s.framed >= s.frameSize {
		s.trace.Push(rms(s.samples[s.framed : s.framed+s.frameSize]))
		s.framed += s.frameSize
	}
}

// TotalSamples returns the cumulative sample count for the session.
func (s *Source) TotalSamples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// DurationSeconds returns the session length in seconds.
func (s *Source) DurationSeconds() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(len(s.samples)) / float64(s.rate)
}

// EnergyTrace returns the trailing per-frame RMS values, oldest first.
func (s *Source) EnergyTrace() []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trace.Snapshot()
}

// Slice returns a copy of samples[from:to], clamping both bounds to
// the buffer. An empty or inverted range returns nil.
func (s *Source) Slice(from, to int) []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from < 0 {
		from = 0
	}
	if to > len(s.samples) {
		to = len(s.samples)
	}
	if from >= to {
		return nil
	}
	out := make([]float32, to-from)
	copy(out, s.samples[from:to])
	return out
}

// Reset discards all samples and the energy trace, preparing the
// source for a new session.
func (s *Source) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
	s.framed = 0
	s.trace.Reset()
}

// rms computes root-mean-square energy of one frame.
func rms(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum / float64(len(frame))))
}
