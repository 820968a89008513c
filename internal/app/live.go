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
	"github.com/soren/sotto/internal/input"
	"github.com/soren/sotto/internal/output"
	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

// LiveOptions control one live microphone run.
type LiveOptions struct {
	Device     string // capture device id or name substring
	Hotkey     string // push-to-talk combo, e.g. "ctrl+shift+space"; empty starts immediately
	HotkeyHold bool   // hold-to-talk instead of toggle
	Format     string // console, json, text
	OutputFile string
}

// RunLive captures the microphone and streams it through the engine
// until ctx is cancelled. With a hotkey configured the engine sits idle
// until the key activates it, and each activation is its own session.
func RunLive(ctx context.Context, cfg *config.Config, opts LiveOptions, backend stt.Transcriber, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	device, err := audio.FindDevice(opts.Device)
	if err != nil {
		return fmt.Errorf("select capture device: %w", err)
	}

	captureCfg := audio.DefaultCaptureConfig()
	captureCfg.DeviceID = device.ID
	capturer, err := audio.NewCapturer(captureCfg)
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}

	source := audio.NewSource(stt.SampleRate)
	engine, err := stream.New(cfg.StreamConfig(), source, backend, logger)
	if err != nil {
		return err
	}

	// Console mode renders the transcript in place. Other formats write
	// records to the output writer and keep status chatter on stderr.
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

	if err := capturer.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	defer capturer.Stop()

	ptt := opts.Hotkey != ""

	// Feed captured audio into the source. Outside an active session
	// frames are dropped so idle time does not grow the buffer.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sample, ok := <-capturer.Samples():
				if !ok {
					return
				}
				if ptt && engine.Status() == stream.StatusIdle {
					continue
				}
				source.Append(sample.Samples)
			case err, ok := <-capturer.Errors():
				if !ok {
					return
				}
				logger.Warn("capture error", "error", err)
			}
		}
	}()

	stateCh := make(chan bool, 8)
	var sessionStart time.Time
	if ptt {
		mode := input.ModeToggle
		action := "toggle"
		if opts.HotkeyHold {
			mode = input.ModeHold
			action = "hold"
		}
		listener := input.NewListener(mode, func(active bool) {
			stateCh <- active
		})
		if err := listener.Start(ctx, opts.Hotkey); err != nil {
			return fmt.Errorf("register hotkey %s: %w", opts.Hotkey, err)
		}
		defer listener.Stop()
		console.Info(fmt.Sprintf("Listening on %s. %s %s to talk, Ctrl+C to quit.", device.Name, action, opts.Hotkey))
	} else {
		if err := engine.Start(ctx); err != nil {
			return err
		}
		sessionStart = time.Now()
		console.Info(fmt.Sprintf("Listening on %s. Ctrl+C to stop.", device.Name))
	}

	writeFinal := func(snap *stream.Snapshot) {
		if formatter == nil || snap.Text == "" {
			return
		}
		if err := formatter.WriteUpdate(output.RecordFromSnapshot(engine.SessionID(), snap, true)); err != nil {
			logger.Warn("write transcript", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			running := engine.Status() != stream.StatusIdle
			if err := engine.Stop(); err != nil {
				logger.Warn("stop engine", "error", err)
			}
			// An idle engine here means the last session already wrote
			// its final record on the deactivation path.
			if running {
				final := engine.Snapshot()
				writeFinal(final)
				if renderLive && final.Text != "" {
					console.Finalize(final.Text)
				}
			}
			if formatter != nil {
				formatter.Flush()
			}
			if running && !sessionStart.IsZero() {
				console.Info(fmt.Sprintf("transcription stopped after %s", time.Since(sessionStart).Round(time.Second)))
			} else {
				console.Info("transcription stopped")
			}
			return nil

		case active := <-stateCh:
			if active {
				// A previous session may have ended in an error; Stop
				// clears it either way.
				_ = engine.Stop()
				if err := engine.Reset(cfg.Stream.PreserveText); err != nil {
					logger.Warn("reset engine", "error", err)
					continue
				}
				source.Reset()
				if err := engine.Start(ctx); err != nil {
					console.Error(err.Error())
					continue
				}
				sessionStart = time.Now()
				console.Status("listening")
			} else {
				if err := engine.Stop(); err != nil {
					logger.Warn("stop engine", "error", err)
					continue
				}
				final := engine.Snapshot()
				writeFinal(final)
				if renderLive && final.Text != "" {
					console.Finalize(final.Text)
				}
				console.Status(fmt.Sprintf("stopped after %s", time.Since(sessionStart).Round(time.Second)))
			}

		case ev := <-engine.Events():
			switch ev.Type {
			case stream.EventStatus:
				if renderLive && ev.Status == stream.StatusWaitingForSpeech {
					console.Status(fmt.Sprintf("waiting for speech (%s)", time.Since(sessionStart).Round(time.Second)))
				}
			case stream.EventPartial:
				if renderLive {
					console.RenderPartial(ev.Partial)
				}
			case stream.EventTranscript:
				if renderLive {
					console.RenderSnapshot(ev.Snapshot)
				}
				// Idle means this is the flush from a Stop, which the
				// stop path already wrote as a final record.
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
			}
		}
	}
}
