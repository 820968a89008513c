package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/soren/sotto/internal/audio"
	"github.com/soren/sotto/internal/models"
	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

type TranscribeClipArgs struct {
	Audio      string `json:"audio" jsonschema:"Base64-encoded audio clip"`
	Format     string `json:"format,omitempty" jsonschema:"Clip encoding: wav or pcm16 (raw little-endian 16 kHz mono). Sniffed from the payload when omitted"`
	Language   string `json:"language,omitempty" jsonschema:"Decode language code such as en or de (default: auto-detect)"`
	Task       string `json:"task,omitempty" jsonschema:"transcribe or translate (default: transcribe)"`
	Mode       string `json:"mode,omitempty" jsonschema:"Reconciliation mode: standard or eager"`
	LineBreaks *bool  `json:"line_breaks,omitempty" jsonschema:"Insert a newline after each sentence"`
}

type ListModelsArgs struct {
	Backend string `json:"backend,omitempty" jsonschema:"Filter by backend: whisper or vosk"`
}

type StatusArgs struct{}

func (s *Server) handleTranscribeClip(ctx context.Context, req *sdk.CallToolRequest, args TranscribeClipArgs) (*sdk.CallToolResult, any, error) {
	raw, err := base64.StdEncoding.DecodeString(args.Audio)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("empty audio payload")
	}

	samples, err := decodeClip(raw, args.Format)
	if err != nil {
		return nil, nil, err
	}

	cfg := s.streamCfg
	switch args.Mode {
	case "":
	case string(stream.ModeStandard), string(stream.ModeEager):
		cfg.Mode = stream.Mode(args.Mode)
	default:
		return nil, nil, fmt.Errorf("unknown mode %q, want standard or eager", args.Mode)
	}
	switch args.Task {
	case "":
	case string(stt.TaskTranscribe), string(stt.TaskTranslate):
		cfg.Decode.Task = stt.Task(args.Task)
	default:
		return nil, nil, fmt.Errorf("unknown task %q, want transcribe or translate", args.Task)
	}
	if args.Language != "" {
		cfg.Decode.Language = args.Language
	}
	if args.LineBreaks != nil {
		cfg.LineBreaks = *args.LineBreaks
	}

	snap, err := stream.TranscribeClip(ctx, s.backend, samples, cfg, s.log)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("clip transcribed",
		"samples", len(samples),
		"segments", len(snap.ConfirmedSegments),
		"chars", len(snap.Text))

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: snap.Text},
		},
	}, nil, nil
}

// decodeClip turns the raw payload into 16 kHz mono samples. WAV input
// may arrive at any rate and is resampled.
func decodeClip(raw []byte, format string) ([]float32, error) {
	if format == "" {
		if len(raw) >= 4 && bytes.HasPrefix(raw, []byte("RIFF")) {
			format = "wav"
		} else {
			format = "pcm16"
		}
	}

	switch format {
	case "wav":
		samples, rate, err := audio.ReadWAV(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode wav clip: %w", err)
		}
		if rate != stt.SampleRate {
			samples, err = audio.Resample(samples, rate, stt.SampleRate)
			if err != nil {
				return nil, fmt.Errorf("resample clip from %d Hz: %w", rate, err)
			}
		}
		return samples, nil
	case "pcm16":
		return audio.DecodePCM16(raw), nil
	default:
		return nil, fmt.Errorf("unknown format %q, want wav or pcm16", format)
	}
}

func (s *Server) handleListModels(ctx context.Context, req *sdk.CallToolRequest, args ListModelsArgs) (*sdk.CallToolResult, any, error) {
	catalog := models.AvailableModels
	if args.Backend != "" {
		catalog = models.ModelsForBackend(args.Backend)
		if len(catalog) == 0 {
			return nil, nil, fmt.Errorf("unknown backend %q, want whisper or vosk", args.Backend)
		}
	}

	defaultModel, _ := models.GetDefaultModel()

	var b strings.Builder
	fmt.Fprintf(&b, "Known models (%d):\n", len(catalog))
	for _, m := range catalog {
		downloaded, err := models.IsModelDownloaded(m.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("check model %s: %w", m.Name, err)
		}
		marker := " "
		if downloaded {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s (%s, %s)", marker, m.Name, m.Backend, m.Size)
		if m.Name == defaultModel {
			b.WriteString(" [default]")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nModels marked * are downloaded.")

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: b.String()},
		},
	}, nil, nil
}

func (s *Server) handleStatus(ctx context.Context, req *sdk.CallToolRequest, args StatusArgs) (*sdk.CallToolResult, any, error) {
	modelsDir, err := models.GetModelsDir()
	if err != nil {
		modelsDir = "(unavailable)"
	}
	defaultModel, err := models.GetDefaultModel()
	if err != nil {
		defaultModel = "(none)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "backend: %s\n", s.backend.Name())
	fmt.Fprintf(&b, "sample rate: %d Hz\n", stt.SampleRate)
	fmt.Fprintf(&b, "mode: %s\n", s.streamCfg.Mode)
	fmt.Fprintf(&b, "confirmation depth: %d\n", s.streamCfg.ConfirmationDepth)
	fmt.Fprintf(&b, "default model: %s\n", defaultModel)
	fmt.Fprintf(&b, "models dir: %s", modelsDir)

	return &sdk.CallToolResult{
		Content: []sdk.Content{
			&sdk.TextContent{Text: b.String()},
		},
	}, nil, nil
}
