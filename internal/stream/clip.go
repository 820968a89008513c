package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soren/sotto/internal/stt"
)

// TranscribeClip decodes a complete clip in one pass and returns the
// finalized snapshot. It reuses the streaming reconciliation so clip
// results get the same cleanup and segment handling as live sessions.
func TranscribeClip(ctx context.Context, backend stt.Transcriber, samples []float32, cfg Config, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == ModeEager && !backend.WordTimestamps() {
		cfg.Mode = ModeStandard
	}

	opts := cfg.Decode
	opts.Timestamps = true
	opts.WordTimestamps = cfg.Mode == ModeEager

	es := NewEarlyStop(cfg.TokenWindow, cfg.CompressionRatioThreshold, cfg.LogProbThreshold)
	result, err := backend.Transcribe(ctx, samples, opts, func(p stt.Progress) bool {
		return es.Observe(p.Tokens)
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe clip: %w", err)
	}

	st := newState()
	if cfg.Mode == ModeEager {
		NewEager(cfg.TokenConfirmations).Apply(st, result.Words)
	} else {
		NewReconciler(cfg.ConfirmationDepth).Apply(st, result.Segments)
	}
	st.finalize()

	assembler := NewAssembler(cfg.LineBreaks)
	snap := Snapshot{
		ConfirmedSegments: append([]stt.Segment(nil), st.confirmedSegments...),
		ConfirmedWords:    append([]stt.WordTiming(nil), st.confirmedWords...),
		LastAgreedSeconds: st.lastAgreedSeconds,
	}
	if cfg.Mode == ModeEager {
		snap.Text = assembler.Display("", assembler.WordsText(snap.ConfirmedWords, nil))
	} else {
		snap.Text = assembler.Display("", assembler.SegmentsText(snap.ConfirmedSegments, nil))
	}
	snap.ConfirmedText = snap.Text

	logger.Debug("clip transcribed",
		"backend", backend.Name(),
		"samples", len(samples),
		"segments", len(snap.ConfirmedSegments),
		"text_len", len(snap.Text))
	return &snap, nil
}
