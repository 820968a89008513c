package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soren/sotto/internal/stt"
)

// Mode selects the reconciliation strategy.
type Mode string

const (
	// ModeStandard confirms whole segments once they sit deep enough
	// behind the decode tail.
	ModeStandard Mode = "standard"

	// ModeEager confirms word-by-word from cross-cycle agreement, for
	// lower display latency. Requires word timestamps.
	ModeEager Mode = "eager"
)

// Config carries every tunable of the reconciliation loop.
type Config struct {
	Mode Mode

	// MinNewAudioSeconds gates inference on buffer growth.
	MinNewAudioSeconds float64

	// PollInterval is the sleep between gate checks.
	PollInterval time.Duration

	// VADEnabled withholds inference while the new audio is silent.
	VADEnabled bool

	// SilenceThreshold is the energy rise over the noise floor that
	// counts as voice.
	SilenceThreshold float64

	// EnergyWindowSeconds is the trailing span searched for the floor.
	EnergyWindowSeconds float64

	// ConfirmationDepth is how many trailing segments stay unconfirmed
	// in standard mode.
	ConfirmationDepth int

	// TokenConfirmations is the eager-mode trailing safety window.
	TokenConfirmations int

	// CompressionRatioThreshold trips the repetition early-stop.
	CompressionRatioThreshold float64

	// LogProbThreshold trips the confidence early-stop.
	LogProbThreshold float64

	// TokenWindow is how many trailing tokens the early-stop
	// heuristics examine. Zero disables both.
	TokenWindow int

	// LineBreaks inserts newlines after sentence ends in display text.
	LineBreaks bool

	// Decode seeds the options passed to the backend each cycle.
	Decode stt.DecodeOptions
}

// DefaultConfig returns the tuning the CLI ships with.
func DefaultConfig() Config {
	return Config{
		Mode:                      ModeStandard,
		MinNewAudioSeconds:        1.0,
		PollInterval:              100 * time.Millisecond,
		VADEnabled:                true,
		SilenceThreshold:          0.022,
		EnergyWindowSeconds:       2.0,
		ConfirmationDepth:         2,
		TokenConfirmations:        2,
		CompressionRatioThreshold: 3.0,
		LogProbThreshold:          -1.5,
		TokenWindow:               30,
		Decode:                    stt.DefaultDecodeOptions(),
	}
}

// Status describes what the engine is doing.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusWaitingForSpeech Status = "waiting_for_speech"
	StatusTranscribing     Status = "transcribing"
	StatusError            Status = "error"
)

// EventType tags engine events.
type EventType string

const (
	// EventStatus reports a status transition.
	EventStatus EventType = "status"

	// EventPartial carries decoder text from inside one inference
	// call, merged across decode windows.
	EventPartial EventType = "partial"

	// EventTranscript carries a fresh snapshot after a cycle.
	EventTranscript EventType = "transcript"

	// EventError carries a classified failure; the session loop stops
	// after emitting it.
	EventError EventType = "error"
)

// Event is one observable engine update.
type Event struct {
	Type     EventType
	Status   Status
	Partial  string
	Snapshot *Snapshot
	Err      error
	Kind     stt.Kind
}

// SampleSource is the engine's read-only view of session audio. Slice
// must return copies; an in-flight decode holds its clip while the
// buffer keeps growing.
type SampleSource interface {
	TotalSamples() int
	SampleRate() int
	EnergyTrace() []float32
	Slice(from, to int) []float32
}

// Engine drives the poll, gate, infer, reconcile loop for one
// recording session at a time. All state mutation happens on the
// session goroutine; readers get copies through Snapshot.
type Engine struct {
	cfg     Config
	source  SampleSource
	backend stt.Transcriber
	log     *slog.Logger

	gate       *VoiceGate
	reconciler *Reconciler
	eager      *Eager
	assembler  *Assembler

	events chan Event

	mu        sync.Mutex
	st        *state
	status    Status
	running   bool
	finalized bool
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// New wires an engine from its collaborators. In eager mode a backend
// without word timestamps downgrades to standard, since agreement has
// no words to compare.
func New(cfg Config, source SampleSource, backend stt.Transcriber, logger *slog.Logger) (*Engine, error) {
	if source == nil || backend == nil {
		return nil, errors.New("stream: source and backend are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStandard
	}
	if cfg.Mode == ModeEager && !backend.WordTimestamps() {
		logger.Warn("backend reports no word timestamps, falling back to standard mode",
			"backend", backend.Name())
		cfg.Mode = ModeStandard
	}

	return &Engine{
		cfg:        cfg,
		source:     source,
		backend:    backend,
		log:        logger.With("component", "stream.engine"),
		gate:       NewVoiceGate(cfg.MinNewAudioSeconds, cfg.VADEnabled, cfg.SilenceThreshold, cfg.EnergyWindowSeconds),
		reconciler: NewReconciler(cfg.ConfirmationDepth),
		eager:      NewEager(cfg.TokenConfirmations),
		assembler:  NewAssembler(cfg.LineBreaks),
		events:     make(chan Event, 16),
		st:         newState(),
		status:     StatusIdle,
	}, nil
}

// Mode returns the mode the engine actually runs in, after any
// capability downgrade.
func (e *Engine) Mode() Mode { return e.cfg.Mode }

// Events returns the engine's event stream. Slow consumers lose events
// rather than stalling the session loop.
func (e *Engine) Events() <-chan Event { return e.events }

// Start begins a session loop. It returns immediately; progress is
// observable through Events, Snapshot and Text. A finalized session
// that was never Reset starts over with a clean state.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.New("stream: session already running")
	}
	if e.finalized {
		e.st = e.st.reset(false, "")
		e.finalized = false
	}

	sctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true
	e.sessionID = uuid.NewString()
	e.log.Info("session started",
		"session", e.sessionID,
		"mode", string(e.cfg.Mode),
		"backend", e.backend.Name())

	go e.run(sctx, e.done)
	return nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		e.mu.Lock()
		lastProcessed := e.st.lastBufferSamples
		e.mu.Unlock()

		res := e.gate.Check(GateInput{
			TotalSamples:  e.source.TotalSamples(),
			LastProcessed: lastProcessed,
			SampleRate:    e.source.SampleRate(),
			EnergyTrace:   e.source.EnergyTrace(),
		})

		switch res.Decision {
		case DecisionWait, DecisionSkipSilence:
			e.mu.Lock()
			e.st.lastBufferSamples = res.NextProcessed
			noText := e.displayLocked() == ""
			e.mu.Unlock()

			if res.Decision == DecisionSkipSilence || noText {
				e.setStatus(StatusWaitingForSpeech)
			}
			select {
			case <-time.After(e.cfg.PollInterval):
			case <-ctx.Done():
				return
			}

		case DecisionRun:
			e.setStatus(StatusTranscribing)

			if err := e.cycle(ctx, res.NextProcessed); err != nil {
				if ctx.Err() != nil {
					return
				}
				kind := stt.KindOf(err)
				e.log.Error("inference cycle failed",
					"session", e.sessionID,
					"kind", kind.String(),
					"error", err)
				e.setStatus(StatusError)
				e.emit(Event{Type: EventError, Err: err, Kind: kind})
				return
			}

			// Mark the clip processed only once its result is folded
			// in; ProcessedSamples must never run ahead of the state.
			e.mu.Lock()
			e.st.lastBufferSamples = res.NextProcessed
			e.mu.Unlock()
			e.emit(Event{Type: EventTranscript, Snapshot: e.Snapshot()})
		}
	}
}

// cycle runs one inference over the unresolved tail of the buffer and
// folds the result into the state. On error the transcript state is
// left exactly as it was.
func (e *Engine) cycle(ctx context.Context, total int) error {
	e.mu.Lock()
	clipStart := e.st.lastAgreedSeconds
	e.mu.Unlock()

	rate := e.source.SampleRate()
	from := int(clipStart * float64(rate))
	if from > total {
		from = total
	}
	samples := e.source.Slice(from, total)

	opts := e.cfg.Decode
	opts.Timestamps = true
	opts.WordTimestamps = e.cfg.Mode == ModeEager
	opts.ClipStartSeconds = float64(from) / float64(rate)

	es := NewEarlyStop(e.cfg.TokenWindow, e.cfg.CompressionRatioThreshold, e.cfg.LogProbThreshold)
	partials := make(map[int]string)
	window := 0
	onProgress := func(p stt.Progress) bool {
		if p.Text != "" {
			partials[window] = p.Text
			window++
			e.emit(Event{Type: EventPartial, Partial: mergePartials(partials)})
		}
		return es.Observe(p.Tokens)
	}

	started := time.Now()
	result, err := e.backend.Transcribe(ctx, samples, opts, onProgress)
	if err != nil {
		return fmt.Errorf("transcribe clip at %.2fs: %w", opts.ClipStartSeconds, err)
	}

	e.mu.Lock()
	if e.cfg.Mode == ModeEager {
		e.eager.Apply(e.st, result.Words)
	} else {
		e.reconciler.Apply(e.st, result.Segments)
	}
	e.mu.Unlock()

	e.log.Debug("cycle applied",
		"session", e.sessionID,
		"clip_start", opts.ClipStartSeconds,
		"clip_seconds", float64(len(samples))/float64(rate),
		"segments", len(result.Segments),
		"words", len(result.Words),
		"took", time.Since(started))
	return nil
}

// Stop cancels any in-flight wait or inference, finalizes the state
// exactly once, and leaves the engine idle. Safe to call repeatedly.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.cancel == nil {
		e.mu.Unlock()
		return nil
	}
	cancel, done, running := e.cancel, e.done, e.running
	e.mu.Unlock()

	cancel()
	if running {
		<-done
	}

	didFinalize := false
	e.mu.Lock()
	e.running = false
	if !e.finalized {
		e.st.finalize()
		e.finalized = true
		didFinalize = true
	}
	e.status = StatusIdle
	snap := e.snapshotLocked()
	sid := e.sessionID
	e.mu.Unlock()

	if didFinalize {
		e.log.Info("session stopped",
			"session", sid,
			"confirmed_segments", len(snap.ConfirmedSegments),
			"confirmed_words", len(snap.ConfirmedWords))
		e.emit(Event{Type: EventTranscript, Snapshot: &snap})
		e.emit(Event{Type: EventStatus, Status: StatusIdle})
	}
	return nil
}

// Reset prepares the engine for a new session; it fails while one is
// running. With preserveText the finalized display text carries into
// the next session as an immutable prefix, and everything else starts
// from zero.
func (e *Engine) Reset(preserveText bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.New("stream: cannot reset a running session")
	}
	carry := ""
	if preserveText {
		carry = e.displayLocked()
	}
	e.st = e.st.reset(preserveText, carry)
	e.finalized = false
	e.status = StatusIdle
	return nil
}

// Snapshot returns a copy of the current transcription state.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.snapshotLocked()
	return &snap
}

// Text returns the current cleaned display text.
func (e *Engine) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayLocked()
}

// Status returns what the engine is currently doing.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SessionID returns the id of the current or most recent session.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// ProcessedSamples reports how far into the source the engine has
// consumed. It advances past a decoded clip only after that cycle's
// result is folded into the state. Silence skipping can leave it short
// of the source total by up to the energy window.
func (e *Engine) ProcessedSamples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.lastBufferSamples
}

func (e *Engine) snapshotLocked() Snapshot {
	st := e.st
	snap := Snapshot{
		ConfirmedSegments:   append([]stt.Segment(nil), st.confirmedSegments...),
		UnconfirmedSegments: append([]stt.Segment(nil), st.unconfirmedSegments...),
		ConfirmedWords:      append([]stt.WordTiming(nil), st.confirmedWords...),
		HypothesisWords:     filterWords(st.hypothesisWords, st.lastAgreedSeconds),
		LastAgreedSeconds:   st.lastAgreedSeconds,
	}

	var confirmed, full string
	if e.cfg.Mode == ModeEager {
		confirmed = e.assembler.WordsText(snap.ConfirmedWords, nil)
		full = e.assembler.WordsText(snap.ConfirmedWords, snap.HypothesisWords)
	} else {
		confirmed = e.assembler.SegmentsText(snap.ConfirmedSegments, nil)
		full = e.assembler.SegmentsText(snap.ConfirmedSegments, snap.UnconfirmedSegments)
	}
	snap.ConfirmedText = e.assembler.Display(st.carryText, confirmed)
	snap.Text = e.assembler.Display(st.carryText, full)
	return snap
}

func (e *Engine) displayLocked() string {
	return e.snapshotLocked().Text
}

func (e *Engine) setStatus(s Status) {
	e.mu.Lock()
	changed := e.status != s
	e.status = s
	e.mu.Unlock()

	if changed {
		e.emit(Event{Type: EventStatus, Status: s})
	}
}

// emit never blocks; slow consumers drop events.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
	}
}

// mergePartials joins per-window partial text by ascending window
// index, so partial display never depends on arrival bookkeeping.
func mergePartials(partials map[int]string) string {
	keys := make([]int, 0, len(partials))
	for k := range partials {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if t := strings.TrimSpace(partials[k]); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
