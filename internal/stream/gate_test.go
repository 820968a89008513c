package stream

import (
	"testing"

	"github.com/soren/sotto/internal/audio"
)

const gateRate = 16000

func flatTrace(n int, energy float32) []float32 {
	trace := make([]float32, n)
	for i := range trace {
		trace[i] = energy
	}
	return trace
}

func TestGateWaitsBelowThreshold(t *testing.T) {
	g := NewVoiceGate(1.0, false, 0.022, 2.0)

	tests := []struct {
		name          string
		total         int
		lastProcessed int
		want          Decision
	}{
		{"no audio", 0, 0, DecisionWait},
		{"half the threshold", gateRate / 2, 0, DecisionWait},
		{"exactly the threshold", gateRate, 0, DecisionWait},
		{"just past the threshold", gateRate + 160, 0, DecisionRun},
		{"growth since last cycle", 5 * gateRate, 5*gateRate - 100, DecisionWait},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := g.Check(GateInput{
				TotalSamples:  tc.total,
				LastProcessed: tc.lastProcessed,
				SampleRate:    gateRate,
			})
			if res.Decision != tc.want {
				t.Fatalf("decision = %v, want %v", res.Decision, tc.want)
			}
			if tc.want == DecisionWait && res.NextProcessed != tc.lastProcessed {
				t.Errorf("NextProcessed = %d, want unchanged %d", res.NextProcessed, tc.lastProcessed)
			}
		})
	}
}

func TestGateRunConsumesWholeBuffer(t *testing.T) {
	g := NewVoiceGate(1.0, false, 0.022, 2.0)

	res := g.Check(GateInput{TotalSamples: 3 * gateRate, LastProcessed: 0, SampleRate: gateRate})
	if res.Decision != DecisionRun {
		t.Fatalf("decision = %v, want run", res.Decision)
	}
	if res.NextProcessed != 3*gateRate {
		t.Errorf("NextProcessed = %d, want %d", res.NextProcessed, 3*gateRate)
	}
}

func TestGateSkipsSilence(t *testing.T) {
	g := NewVoiceGate(1.0, true, 0.022, 2.0)

	res := g.Check(GateInput{
		TotalSamples:  5 * gateRate,
		LastProcessed: 0,
		SampleRate:    gateRate,
		EnergyTrace:   flatTrace(50, 0.004),
	})
	if res.Decision != DecisionSkipSilence {
		t.Fatalf("decision = %v, want skip", res.Decision)
	}
	// The skip leaves one VAD window unconsumed so speech starting at
	// the boundary is still seen next cycle.
	if want := 3 * gateRate; res.NextProcessed != want {
		t.Errorf("NextProcessed = %d, want %d", res.NextProcessed, want)
	}
}

func TestGateSkipNeverRewinds(t *testing.T) {
	g := NewVoiceGate(1.0, true, 0.022, 2.0)

	res := g.Check(GateInput{
		TotalSamples:  3 * gateRate / 2,
		LastProcessed: 0,
		SampleRate:    gateRate,
		EnergyTrace:   flatTrace(15, 0.004),
	})
	if res.Decision != DecisionSkipSilence {
		t.Fatalf("decision = %v, want skip", res.Decision)
	}
	if res.NextProcessed != 0 {
		t.Errorf("NextProcessed = %d, want clamp at 0 while the buffer is shorter than the window", res.NextProcessed)
	}
}

func TestGateRunsWithoutEnergyData(t *testing.T) {
	g := NewVoiceGate(1.0, true, 0.022, 2.0)

	res := g.Check(GateInput{TotalSamples: 2 * gateRate, LastProcessed: 0, SampleRate: gateRate})
	if res.Decision != DecisionRun {
		t.Fatalf("decision = %v, want run when no trace exists yet", res.Decision)
	}
}

func TestGateNoiseFloorIsRelative(t *testing.T) {
	g := NewVoiceGate(1.0, true, 0.022, 2.0)

	t.Run("steady room noise is silence", func(t *testing.T) {
		// Absolute energy well above a quiet room, but nothing rises
		// over the floor.
		res := g.Check(GateInput{
			TotalSamples:  2 * gateRate,
			LastProcessed: 0,
			SampleRate:    gateRate,
			EnergyTrace:   flatTrace(20, 0.03),
		})
		if res.Decision != DecisionSkipSilence {
			t.Fatalf("decision = %v, want skip", res.Decision)
		}
	})

	t.Run("voice over room noise runs", func(t *testing.T) {
		trace := flatTrace(20, 0.03)
		for i := 12; i < 18; i++ {
			trace[i] = 0.06
		}
		res := g.Check(GateInput{
			TotalSamples:  2 * gateRate,
			LastProcessed: 0,
			SampleRate:    gateRate,
			EnergyTrace:   trace,
		})
		if res.Decision != DecisionRun {
			t.Fatalf("decision = %v, want run", res.Decision)
		}
	})
}

// TestGateTwentySecondScenario polls a synthetic 20-second capture with
// speech in 4-10s and 13-18s the way the engine loop would, and checks
// the decisions line up with the speech: no inference during leading or
// mid silence, prompt admission once voice arrives.
func TestGateTwentySecondScenario(t *testing.T) {
	voiced := func(sec float64) bool {
		return (sec >= 4 && sec < 10) || (sec >= 13 && sec < 18)
	}
	// Speech energy is amplitude-modulated like real syllables; a flat
	// tone would raise its own noise floor and read as silence.
	energyAt := func(frame int) float32 {
		if !voiced(float64(frame) * audio.EnergyFrameSeconds) {
			return 0.004
		}
		if frame%2 == 0 {
			return 0.1
		}
		return 0.02
	}

	g := NewVoiceGate(1.0, true, 0.022, 2.0)

	type step struct {
		at float64
		d  Decision
	}
	var steps []step
	lastProcessed := 0

	for now := 0.5; now <= 20.0+1e-9; now += 0.5 {
		frames := int(now / audio.EnergyFrameSeconds)
		trace := make([]float32, frames)
		for i := range trace {
			trace[i] = energyAt(i)
		}
		if len(trace) > 100 {
			trace = trace[len(trace)-100:]
		}

		res := g.Check(GateInput{
			TotalSamples:  int(now * gateRate),
			LastProcessed: lastProcessed,
			SampleRate:    gateRate,
			EnergyTrace:   trace,
		})
		if res.NextProcessed < lastProcessed {
			t.Fatalf("t=%.1fs: NextProcessed rewound %d -> %d", now, lastProcessed, res.NextProcessed)
		}
		steps = append(steps, step{at: now, d: res.Decision})
		lastProcessed = res.NextProcessed
	}

	firstRun := -1.0
	for _, s := range steps {
		if s.d == DecisionRun {
			firstRun = s.at
			break
		}
	}
	if firstRun < 4 || firstRun > 5 {
		t.Fatalf("first run at %.1fs, want shortly after voice onset at 4s", firstRun)
	}

	resumed := -1.0
	for _, s := range steps {
		switch {
		case s.at <= 4 && s.d == DecisionRun:
			t.Errorf("run at %.1fs inside leading silence", s.at)
		case s.at > 11.5 && s.at <= 13 && s.d == DecisionRun:
			t.Errorf("run at %.1fs inside mid silence", s.at)
		case s.at > 13 && s.at <= 14.5 && s.d == DecisionRun && resumed < 0:
			resumed = s.at
		}
	}
	if resumed < 0 {
		t.Error("no run shortly after voice resumes at 13s")
	}
}
