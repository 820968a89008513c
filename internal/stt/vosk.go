package stt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

// VoskTranscriber adapts the Vosk streaming recognizer to the one-shot
// Transcriber boundary: the clip is fed in chunks and segments are
// assembled from Vosk's per-utterance results.
type VoskTranscriber struct {
	mu    sync.Mutex
	model *vosk.VoskModel
}

// voskResult is the JSON shape Vosk returns for complete utterances.
type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Conf  float64 `json:"conf"`
		End   float64 `json:"end"`
		Start float64 `json:"start"`
		Word  string  `json:"word"`
	} `json:"result,omitempty"`
	Partial string `json:"partial,omitempty"`
}

// voskChunk is how many samples are fed per AcceptWaveform call.
const voskChunk = SampleRate / 2

// NewVoskTranscriber loads a Vosk model directory from path.
func NewVoskTranscriber(path string) (*VoskTranscriber, error) {
	vosk.SetLogLevel(-1)

	model, err := vosk.NewModel(path)
	if err != nil {
		return nil, Errorf(KindModelUnavailable, "vosk.load", "load model %q: %v", path, err)
	}
	if model == nil {
		return nil, Errorf(KindModelUnavailable, "vosk.load", "load model %q: model returned nil", path)
	}
	return &VoskTranscriber{model: model}, nil
}

// Name implements Transcriber.
func (v *VoskTranscriber) Name() string { return "vosk" }

// WordTimestamps implements Transcriber. Vosk reports per-word timings
// on every complete utterance.
func (v *VoskTranscriber) WordTimestamps() bool { return true }

// Close releases the loaded model.
func (v *VoskTranscriber) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.model != nil {
		v.model.Free()
		v.model = nil
	}
	return nil
}

// Transcribe implements Transcriber. Each call runs on a fresh
// recognizer so clips never share decoder state.
func (v *VoskTranscriber) Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.model == nil {
		return nil, Errorf(KindModelUnavailable, "vosk.transcribe", "model closed")
	}

	rec, err := vosk.NewRecognizer(v.model, float64(SampleRate))
	if err != nil {
		return nil, Errorf(KindInference, "vosk.transcribe", "create recognizer: %v", err)
	}
	defer rec.Free()
	rec.SetWords(1)

	res := &Result{Duration: float64(len(samples)) / SampleRate}

	stopped := false
	for off := 0; off < len(samples) && !stopped; off += voskChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := off + voskChunk
		if end > len(samples) {
			end = len(samples)
		}
		state := rec.AcceptWaveform(pcm16Bytes(samples[off:end]))

		if state > 0 {
			// Utterance boundary: a complete result is available.
			var vr voskResult
			if err := json.Unmarshal([]byte(rec.Result()), &vr); err != nil {
				return nil, Errorf(KindInference, "vosk.transcribe", "parse result: %v", err)
			}
			appendVoskResult(res, vr, opts)
			continue
		}
		if onProgress != nil {
			var vr voskResult
			if err := json.Unmarshal([]byte(rec.PartialResult()), &vr); err != nil {
				return nil, Errorf(KindInference, "vosk.transcribe", "parse partial result: %v", err)
			}
			if vr.Partial != "" && onProgress(Progress{Text: vr.Partial}) {
				stopped = true
			}
		}
	}

	var vr voskResult
	if err := json.Unmarshal([]byte(rec.FinalResult()), &vr); err != nil {
		return nil, Errorf(KindInference, "vosk.transcribe", "parse final result: %v", err)
	}
	appendVoskResult(res, vr, opts)

	var texts []string
	for _, seg := range res.Segments {
		texts = append(texts, seg.Text)
	}
	res.Text = strings.Join(texts, " ")
	return res, nil
}

// appendVoskResult converts one complete Vosk utterance into a segment
// plus word timings, offset into session time.
func appendVoskResult(res *Result, vr voskResult, opts DecodeOptions) {
	text := strings.TrimSpace(vr.Text)
	if text == "" {
		return
	}

	seg := Segment{Text: text, Start: opts.ClipStartSeconds, End: opts.ClipStartSeconds}
	for i, w := range vr.Result {
		start := w.Start + opts.ClipStartSeconds
		end := w.End + opts.ClipStartSeconds
		if i == 0 {
			seg.Start = start
		}
		seg.End = end
		if opts.WordTimestamps {
			res.Words = append(res.Words, WordTiming{Word: w.Word, Start: start, End: end})
		}
	}
	res.Segments = append(res.Segments, seg)
}

// pcm16Bytes converts float32 samples to the 16-bit little-endian PCM
// Vosk consumes.
func pcm16Bytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
