//go:build !whispercpp

package stt

import "context"

// WhisperAvailable reports whether the whisper.cpp backend is compiled in.
func WhisperAvailable() bool { return false }

// WhisperTranscriber is a stub that satisfies the Transcriber interface
// when the binary is built without the whispercpp tag.
type WhisperTranscriber struct{}

// NewWhisperTranscriber returns an error when the backend is not built.
func NewWhisperTranscriber(path string) (*WhisperTranscriber, error) {
	return nil, Errorf(KindModelUnavailable, "whisper.load", "binary built without whispercpp support")
}

func (w *WhisperTranscriber) Name() string { return "whispercpp" }

func (w *WhisperTranscriber) WordTimestamps() bool { return false }

func (w *WhisperTranscriber) Close() error { return nil }

func (w *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error) {
	return nil, Errorf(KindModelUnavailable, "whisper.transcribe", "binary built without whispercpp support")
}
