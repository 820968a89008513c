package stream

import "github.com/soren/sotto/internal/audio"

// Decision is the gate's verdict for one poll cycle.
type Decision int

const (
	// DecisionWait means not enough new audio has accumulated.
	DecisionWait Decision = iota

	// DecisionSkipSilence means enough audio arrived but none of it
	// contains voice; inference is skipped for this cycle.
	DecisionSkipSilence

	// DecisionRun admits the buffer into an inference cycle.
	DecisionRun
)

// GateInput is one cycle's view of the audio source.
type GateInput struct {
	TotalSamples  int
	LastProcessed int
	SampleRate    int

	// EnergyTrace holds trailing per-frame RMS values, oldest first,
	// one frame per audio.EnergyFrameSeconds.
	EnergyTrace []float32
}

// GateResult carries the decision and the sample position the caller
// should record as processed.
type GateResult struct {
	Decision      Decision
	NextProcessed int
}

// VoiceGate decides whether enough new, voiced audio has arrived to be
// worth an inference call. Running the model on silence wastes compute
// and feeds the agreement logic near-empty hypotheses.
type VoiceGate struct {
	minNewSeconds float64
	vadEnabled    bool
	silenceOffset float64
	windowSeconds float64
}

// baselineFrames is the width of the quietest-interval search used as
// the relative noise floor, in energy frames (~0.3s).
const baselineFrames = 3

// NewVoiceGate builds a gate. minNewSeconds is the buffer-growth
// threshold; silenceOffset is the energy a frame must rise above the
// noise floor to count as voice; windowSeconds is the trailing span
// searched for that floor.
func NewVoiceGate(minNewSeconds float64, vadEnabled bool, silenceOffset, windowSeconds float64) *VoiceGate {
	if windowSeconds <= 0 {
		windowSeconds = 2.0
	}
	return &VoiceGate{
		minNewSeconds: minNewSeconds,
		vadEnabled:    vadEnabled,
		silenceOffset: silenceOffset,
		windowSeconds: windowSeconds,
	}
}

// Check evaluates one poll cycle.
func (g *VoiceGate) Check(in GateInput) GateResult {
	newSamples := in.TotalSamples - in.LastProcessed
	newSeconds := float64(newSamples) / float64(in.SampleRate)
	if newSeconds <= g.minNewSeconds {
		return GateResult{Decision: DecisionWait, NextProcessed: in.LastProcessed}
	}

	if g.vadEnabled && !g.voiceInNewWindow(in, newSamples) {
		// Advance only far enough that the same silent audio is not
		// re-examined forever, keeping the trailing VAD window intact
		// so speech starting at the boundary is still caught.
		windowSamples := int(g.windowSeconds * float64(in.SampleRate))
		next := in.TotalSamples - windowSamples
		if next < in.LastProcessed {
			next = in.LastProcessed
		}
		return GateResult{Decision: DecisionSkipSilence, NextProcessed: next}
	}

	return GateResult{Decision: DecisionRun, NextProcessed: in.TotalSamples}
}

// voiceInNewWindow reports whether any frame covering the new audio
// rises above the relative silence threshold. The threshold is the
// quietest baselineFrames-wide interval within the trailing window,
// plus the configured offset, so a noisy room raises its own floor.
func (g *VoiceGate) voiceInNewWindow(in GateInput, newSamples int) bool {
	trace := in.EnergyTrace
	if len(trace) == 0 {
		// No energy data yet; do not hold back inference.
		return true
	}

	windowFrames := int(g.windowSeconds / audio.EnergyFrameSeconds)
	if windowFrames < 1 {
		windowFrames = 1
	}
	if len(trace) > windowFrames {
		trace = trace[len(trace)-windowFrames:]
	}

	baseline := quietestInterval(trace)

	frameSamples := int(audio.EnergyFrameSeconds * float64(in.SampleRate))
	newFrames := (newSamples + frameSamples - 1) / frameSamples
	if newFrames < 1 {
		newFrames = 1
	}
	if newFrames > len(trace) {
		newFrames = len(trace)
	}

	threshold := baseline + float32(g.silenceOffset)
	for _, f := range trace[len(trace)-newFrames:] {
		if f > threshold {
			return true
		}
	}
	return false
}

// quietestInterval returns the minimum mean over every run of
// baselineFrames consecutive values, or the mean of everything when
// the trace is shorter than one run.
func quietestInterval(trace []float32) float32 {
	if len(trace) <= baselineFrames {
		var sum float32
		for _, v := range trace {
			sum += v
		}
		return sum / float32(len(trace))
	}

	quietest := float32(0)
	for i := 0; i+baselineFrames <= len(trace); i++ {
		var sum float32
		for _, v := range trace[i : i+baselineFrames] {
			sum += v
		}
		mean := sum / baselineFrames
		if i == 0 || mean < quietest {
			quietest = mean
		}
	}
	return quietest
}
