//go:build whispercpp

package stt

import (
	"context"
	"io"
	"math"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperAvailable reports whether the whisper.cpp backend is compiled in.
func WhisperAvailable() bool { return true }

// WhisperTranscriber runs whisper.cpp through its Go bindings. The model
// is loaded once; each Transcribe call decodes on a fresh context.
type WhisperTranscriber struct {
	mu    sync.Mutex
	model whisper.Model
	path  string
}

// NewWhisperTranscriber loads a ggml model file from path.
func NewWhisperTranscriber(path string) (*WhisperTranscriber, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, Errorf(KindModelUnavailable, "whisper.load", "load model %q: %v", path, err)
	}
	return &WhisperTranscriber{model: model, path: path}, nil
}

// Name implements Transcriber.
func (w *WhisperTranscriber) Name() string { return "whispercpp" }

// WordTimestamps implements Transcriber. Whisper reports per-token
// timings, which are merged into words.
func (w *WhisperTranscriber) WordTimestamps() bool { return true }

// Close releases the loaded model.
func (w *WhisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}

// Transcribe implements Transcriber.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return nil, Errorf(KindModelUnavailable, "whisper.transcribe", "model closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// whisper_full refuses clips shorter than a second; pad with
	// trailing silence rather than erroring on a short tail.
	if len(samples) < minWhisperClip {
		padded := make([]float32, minWhisperClip)
		copy(padded, samples)
		samples = padded
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, Errorf(KindInference, "whisper.transcribe", "create context: %v", err)
	}

	if opts.Language != "" && opts.Language != "auto" {
		if err := wctx.SetLanguage(opts.Language); err != nil {
			return nil, Errorf(KindInference, "whisper.transcribe", "set language %q: %v", opts.Language, err)
		}
	}
	wctx.SetTranslate(opts.Task == TaskTranslate)
	wctx.SetTokenTimestamps(opts.WordTimestamps)
	wctx.SetTemperature(float32(opts.Temperature))
	if opts.TemperatureFallbacks > 0 {
		// whisper expresses fallback as a temperature increment toward
		// 1.0, not a retry count.
		inc := (1.0 - opts.Temperature) / float64(opts.TemperatureFallbacks)
		wctx.SetTemperatureFallback(float32(inc))
	} else {
		wctx.SetTemperatureFallback(0)
	}
	if opts.Concurrency > 0 {
		wctx.SetThreads(uint(opts.Concurrency))
	}

	stopped := false
	encoderBegin := func() bool {
		if ctx.Err() != nil {
			return false
		}
		return !stopped
	}
	var segmentCB whisper.SegmentCallback
	if onProgress != nil {
		segmentCB = func(seg whisper.Segment) {
			p := Progress{Text: seg.Text}
			for _, tok := range seg.Tokens {
				if isSpecialToken(tok.Text) {
					continue
				}
				p.Tokens = append(p.Tokens, Token{
					ID:      tok.Id,
					Text:    tok.Text,
					LogProb: logProb(tok.P),
				})
			}
			if onProgress(p) {
				stopped = true
			}
		}
	}

	if err := wctx.Process(samples, encoderBegin, segmentCB, nil); err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case stopped:
			// Early stop aborts the remaining windows; whatever was
			// decoded before the stop is still collected below.
		default:
			return nil, Errorf(KindInference, "whisper.transcribe", "process: %v", err)
		}
	}

	res := &Result{
		Language: wctx.Language(),
		Duration: float64(len(samples)) / SampleRate,
	}
	var texts []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Errorf(KindInference, "whisper.transcribe", "next segment: %v", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		res.Segments = append(res.Segments, Segment{
			Start: seg.Start.Seconds() + opts.ClipStartSeconds,
			End:   seg.End.Seconds() + opts.ClipStartSeconds,
			Text:  text,
		})
		if opts.WordTimestamps {
			res.Words = append(res.Words, wordsFromTokens(seg.Tokens, opts.ClipStartSeconds)...)
		}
		texts = append(texts, text)
	}
	res.Text = strings.Join(texts, " ")
	return res, nil
}

// minWhisperClip is one second of audio plus a small margin.
const minWhisperClip = SampleRate + SampleRate/10

// isSpecialToken reports whether a token is a control marker rather
// than transcript text, e.g. "[_BEG_]" or "<|en|>".
func isSpecialToken(text string) bool {
	return strings.HasPrefix(text, "[_") || strings.HasPrefix(text, "<|")
}

// logProb converts a whisper token probability to a log probability,
// clamped so silence tokens do not produce -Inf.
func logProb(p float32) float64 {
	if p <= 0 {
		return -10
	}
	return math.Log(float64(p))
}

// wordsFromTokens merges whisper's subword tokens into words. A token
// starting with a space opens a new word; punctuation and continuation
// pieces attach to the current one.
func wordsFromTokens(tokens []whisper.Token, clipStart float64) []WordTiming {
	var words []WordTiming
	for _, tok := range tokens {
		if isSpecialToken(tok.Text) {
			continue
		}
		opens := strings.HasPrefix(tok.Text, " ") || len(words) == 0
		if opens {
			words = append(words, WordTiming{
				Word:   strings.TrimLeft(tok.Text, " "),
				Start:  tok.Start.Seconds() + clipStart,
				End:    tok.End.Seconds() + clipStart,
				Tokens: []int{tok.Id},
			})
			continue
		}
		last := &words[len(words)-1]
		last.Word += tok.Text
		last.End = tok.End.Seconds() + clipStart
		last.Tokens = append(last.Tokens, tok.Id)
	}
	return words
}
