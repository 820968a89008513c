package stt

import (
	"context"
	"sync"
)

// StubStep is one scripted Transcribe outcome.
type StubStep struct {
	Result *Result
	Err    error
}

// StubTranscriber replays scripted results in order, one per call.
// It backs tests and the -backend stub CLI mode. Calls past the end of
// the script return an empty result, as a model would for silence.
type StubTranscriber struct {
	mu    sync.Mutex
	steps []StubStep
	calls []DecodeOptions
	words bool
}

// NewStubTranscriber returns a stub that reports word-timestamp support
// per words and replays steps in order.
func NewStubTranscriber(words bool, steps ...StubStep) *StubTranscriber {
	return &StubTranscriber{steps: steps, words: words}
}

// Name implements Transcriber.
func (s *StubTranscriber) Name() string { return "stub" }

// WordTimestamps implements Transcriber.
func (s *StubTranscriber) WordTimestamps() bool { return s.words }

// Close implements Transcriber.
func (s *StubTranscriber) Close() error { return nil }

// Transcribe pops the next scripted step. The options of every call are
// recorded and retrievable via Calls.
func (s *StubTranscriber) Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.calls = append(s.calls, opts)
	var step StubStep
	if len(s.steps) > 0 {
		step = s.steps[0]
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}
	if step.Result == nil {
		return &Result{Duration: float64(len(samples)) / SampleRate}, nil
	}

	if onProgress != nil {
		for _, seg := range step.Result.Segments {
			if onProgress(Progress{Text: seg.Text}) {
				break
			}
		}
	}

	res := *step.Result
	return &res, nil
}

// Calls returns the decode options of every call made so far.
func (s *StubTranscriber) Calls() []DecodeOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DecodeOptions, len(s.calls))
	copy(out, s.calls)
	return out
}
