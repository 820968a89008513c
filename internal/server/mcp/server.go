// Package mcp exposes transcription over the Model Context Protocol so
// agent tooling can hand sotto an audio clip and get text back without
// holding a streaming session open.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

type Config struct {
	Name    string
	Version string
}

// Server wraps one shared transcription backend behind MCP tools. The
// backend is serialized here, so concurrent tool calls queue instead of
// trampling a single model context.
type Server struct {
	cfg       Config
	backend   stt.Transcriber
	streamCfg stream.Config
	log       *slog.Logger
	srv       *sdk.Server
}

func New(cfg Config, backend stt.Transcriber, streamCfg stream.Config, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("mcp server requires a backend")
	}
	if cfg.Name == "" {
		cfg.Name = "sotto"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		backend:   stt.Serialize(backend),
		streamCfg: streamCfg,
		log:       logger.With("component", "mcp.server"),
	}

	s.srv = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	sdk.AddTool(s.srv, &sdk.Tool{
		Name:        "transcribe_clip",
		Description: "Transcribe a finished audio clip (base64 WAV or raw 16 kHz mono 16-bit PCM) and return the cleaned transcript",
	}, s.handleTranscribeClip)

	sdk.AddTool(s.srv, &sdk.Tool{
		Name:        "list_models",
		Description: "List known speech models and whether each is downloaded",
	}, s.handleListModels)

	sdk.AddTool(s.srv, &sdk.Tool{
		Name:        "status",
		Description: "Report the active backend and transcription defaults",
	}, s.handleStatus)
}

// Run serves MCP over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server listening on stdio", "backend", s.backend.Name())
	return s.srv.Run(ctx, &sdk.StdioTransport{})
}
