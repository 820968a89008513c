package stream

import (
	"context"
	"testing"

	"github.com/soren/sotto/internal/stt"
)

func TestTranscribeClip(t *testing.T) {
	backend := stt.NewStubTranscriber(false,
		stt.StubStep{Result: &stt.Result{Segments: []stt.Segment{
			seg(0, 1, "one"), seg(1, 2, "[BLANK_AUDIO]"), seg(2, 3, "three"),
		}}},
	)

	snap, err := TranscribeClip(context.Background(), backend, make([]float32, 3*stt.SampleRate), DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// A clip finalizes immediately: everything confirmed, annotations
	// cleaned out of the text.
	if want := "one three"; snap.Text != want {
		t.Errorf("text %q, want %q", snap.Text, want)
	}
	if snap.ConfirmedText != snap.Text {
		t.Errorf("confirmed %q differs from text %q on a finalized clip", snap.ConfirmedText, snap.Text)
	}
	if len(snap.ConfirmedSegments) != 3 {
		t.Errorf("confirmed %d segments, want 3", len(snap.ConfirmedSegments))
	}
}

func TestTranscribeClipEager(t *testing.T) {
	backend := stt.NewStubTranscriber(true,
		stt.StubStep{Result: &stt.Result{Words: words("hello", "there")}},
	)
	cfg := DefaultConfig()
	cfg.Mode = ModeEager

	snap, err := TranscribeClip(context.Background(), backend, make([]float32, 2*stt.SampleRate), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := "hello there"; snap.Text != want {
		t.Errorf("text %q, want %q", snap.Text, want)
	}
	if len(snap.ConfirmedWords) != 2 {
		t.Errorf("confirmed %d words, want 2", len(snap.ConfirmedWords))
	}
}

func TestTranscribeClipError(t *testing.T) {
	backend := stt.NewStubTranscriber(false,
		stt.StubStep{Err: stt.Errorf(stt.KindModelUnavailable, "load", "no model")},
	)

	_, err := TranscribeClip(context.Background(), backend, make([]float32, stt.SampleRate), DefaultConfig(), nil)
	if err == nil {
		t.Fatal("want error from failing backend")
	}
	if kind := stt.KindOf(err); kind != stt.KindModelUnavailable {
		t.Errorf("error kind = %v, want model unavailable", kind)
	}
}
