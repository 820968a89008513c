package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soren/sotto/internal/audio"
	"github.com/soren/sotto/internal/config"
	"github.com/soren/sotto/internal/output"
	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

// ReplayOptions control a recorded-file run.
type ReplayOptions struct {
	Path       string
	Speed      float64 // 1 is real time, 0 or negative replays as fast as possible
	Format     string  // console, json, text
	OutputFile string
}

// RunReplay streams a WAV file through the engine as if it were live
// input. The run ends when the file is exhausted and the engine has
// caught up, or when ctx is cancelled.
func RunReplay(ctx context.Context, cfg *config.Config, opts ReplayOptions, backend stt.Transcriber, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := audio.NewFileSource(opts.Path, stt.SampleRate, opts.Speed)
	if err != nil {
		return err
	}

	source := audio.NewSource(stt.SampleRate)
	streamCfg := cfg.StreamConfig()
	engine, err := stream.New(streamCfg, source, backend, logger)
	if err != nil {
		return err
	}

	renderLive := opts.Format == "" || opts.Format == "console"

	var w io.Writer = os.Stdout
	if opts.OutputFile != "" {
		f, err := os.Create(opts.OutputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	var formatter output.Formatter
	if !renderLive || opts.OutputFile != "" {
		format := opts.Format
		if renderLive {
			format = "text"
		}
		formatter, err = output.NewFormatter(format, w)
		if err != nil {
			return err
		}
		defer formatter.Close()
	}

	console := output.NewConsole(os.Stdout)
	if formatter != nil && opts.OutputFile == "" {
		console = output.NewConsole(os.Stderr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		return err
	}
	if err := file.Start(ctx); err != nil {
		return err
	}
	defer file.Stop()

	console.Info(fmt.Sprintf("Replaying %s (%.1fs of audio)", opts.Path, file.DurationSeconds()))
	started := time.Now()

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		for {
			select {
			case <-ctx.Done():
				return
			case sample, ok := <-file.Samples():
				if !ok {
					return
				}
				source.Append(sample.Samples)
			}
		}
	}()

	finish := func() error {
		if err := engine.Stop(); err != nil {
			logger.Warn("stop engine", "error", err)
		}
		final := engine.Snapshot()
		if formatter != nil {
			if final.Text != "" {
				if err := formatter.WriteUpdate(output.RecordFromSnapshot(engine.SessionID(), final, true)); err != nil {
					logger.Warn("write transcript", "error", err)
				}
			}
			formatter.Flush()
		}
		if renderLive && final.Text != "" {
			console.Finalize(final.Text)
		}
		console.Info(fmt.Sprintf("Replayed %.1fs of audio in %.1fs", file.DurationSeconds(), time.Since(started).Seconds()))
		return nil
	}

	// Silence skipping can leave processing short of the source total,
	// so a stall of a couple seconds also counts as caught up.
	const stallWindow = 2 * time.Second
	feeding := true
	lastProcessed := 0
	lastChange := time.Now()

	ticker := time.NewTicker(streamCfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return finish()

		case <-feedDone:
			feeding = false
			feedDone = nil

		case ev := <-engine.Events():
			// Any event counts as progress; the stall clock measures
			// true quiet, not a slow decode.
			lastChange = time.Now()
			switch ev.Type {
			case stream.EventPartial:
				if renderLive {
					console.RenderPartial(ev.Partial)
				}
			case stream.EventTranscript:
				if renderLive {
					console.RenderSnapshot(ev.Snapshot)
				}
				if formatter != nil && engine.Status() != stream.StatusIdle {
					if err := formatter.WriteUpdate(output.RecordFromSnapshot(engine.SessionID(), ev.Snapshot, false)); err != nil {
						logger.Warn("write transcript", "error", err)
					}
				}
			case stream.EventError:
				console.Error(ev.Err.Error())
				if formatter != nil {
					_ = formatter.WriteEvent("error", ev.Err.Error())
				}
				return finish()
			}

		case <-ticker.C:
			if feeding {
				continue
			}
			processed := engine.ProcessedSamples()
			if processed != lastProcessed {
				lastProcessed = processed
				lastChange = time.Now()
			}
			if processed >= source.TotalSamples() || time.Since(lastChange) > stallWindow {
				return finish()
			}
		}
	}
}
