package stt

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/soren/sotto/internal/audio"
)

// OpenAITranscriber sends clips to the hosted transcription API. The
// API returns plain text with no timings, so results carry a single
// untimed segment and no word timestamps.
type OpenAITranscriber struct {
	client openai.Client
	model  openai.AudioModel
}

// NewOpenAITranscriber builds a hosted backend. An empty model selects
// whisper-1; an empty baseURL uses the public endpoint.
func NewOpenAITranscriber(apiKey, baseURL, model string) *OpenAITranscriber {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	m := openai.AudioModelWhisper1
	if model != "" {
		m = openai.AudioModel(model)
	}
	return &OpenAITranscriber{client: openai.NewClient(opts...), model: m}
}

// Name implements Transcriber.
func (o *OpenAITranscriber) Name() string { return "openai" }

// WordTimestamps implements Transcriber.
func (o *OpenAITranscriber) WordTimestamps() bool { return false }

// Close implements Transcriber.
func (o *OpenAITranscriber) Close() error { return nil }

// Transcribe implements Transcriber. The clip is WAV-encoded and
// uploaded whole; there is no partial progress to report.
func (o *OpenAITranscriber) Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error) {
	if len(samples) == 0 {
		return &Result{}, nil
	}

	var buf bytes.Buffer
	if err := audio.WriteWAV(&buf, samples, SampleRate); err != nil {
		return nil, Errorf(KindInvalidAudio, "openai.transcribe", "encode wav: %v", err)
	}

	params := openai.AudioTranscriptionNewParams{
		Model: o.model,
		File:  openai.File(&buf, "clip.wav", "audio/wav"),
	}
	if opts.Language != "" && opts.Language != "auto" {
		params.Language = openai.String(opts.Language)
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	tr, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	dur := float64(len(samples)) / SampleRate
	res := &Result{
		Text:     strings.TrimSpace(tr.Text),
		Duration: dur,
	}
	if res.Text != "" {
		res.Segments = []Segment{{
			Start: opts.ClipStartSeconds,
			End:   opts.ClipStartSeconds + dur,
			Text:  res.Text,
		}}
	}
	return res, nil
}

// classifyAPIError maps HTTP failure modes onto the error taxonomy.
func classifyAPIError(err error) error {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return Wrap(KindInference, "openai.transcribe", err)
	}
	switch apierr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusPaymentRequired, http.StatusTooManyRequests:
		return Wrap(KindEntitlementDenied, "openai.transcribe", err)
	case http.StatusRequestEntityTooLarge:
		return Wrap(KindInputTooLarge, "openai.transcribe", err)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return Wrap(KindInvalidAudio, "openai.transcribe", err)
	default:
		return Wrap(KindInference, "openai.transcribe", err)
	}
}
