package stt

import (
	"context"
	"sync"
)

// Serialize wraps t so that concurrent Transcribe calls take turns.
// Model contexts are not safe for concurrent decodes, and the streaming
// server shares one loaded model across connections.
func Serialize(t Transcriber) Transcriber {
	if _, ok := t.(*serialized); ok {
		return t
	}
	return &serialized{t: t}
}

type serialized struct {
	mu sync.Mutex
	t  Transcriber
}

func (s *serialized) Name() string { return s.t.Name() }

func (s *serialized) WordTimestamps() bool { return s.t.WordTimestamps() }

func (s *serialized) Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.t.Transcribe(ctx, samples, opts, onProgress)
}

func (s *serialized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.Close()
}
