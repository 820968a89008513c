package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/soren/sotto/internal/config"
	"github.com/soren/sotto/internal/models"
	"github.com/soren/sotto/internal/stt"
)

// NewBackend builds the transcription backend named by cfg.Model.Backend.
// Local backends resolve their model file through the models directory
// unless cfg.Model.Path points at one directly.
func NewBackend(cfg *config.Config, logger *slog.Logger) (stt.Transcriber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Model.Backend {
	case "whisper":
		path, err := resolveModelPath("whisper", cfg.Model.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("loading whisper model", "path", path)
		return stt.NewWhisperTranscriber(path)

	case "vosk":
		path, err := resolveModelPath("vosk", cfg.Model.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("loading vosk model", "path", path)
		return stt.NewVoskTranscriber(path)

	case "openai":
		key := cfg.OpenAI.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai backend needs an API key: set openai.api_key in the config or OPENAI_API_KEY in the environment")
		}
		return stt.NewOpenAITranscriber(key, cfg.OpenAI.BaseURL, cfg.OpenAI.Model), nil

	case "stub":
		// Dry-run backend: exercises the whole pipeline without a
		// model, returning empty results.
		return stt.NewStubTranscriber(false), nil

	default:
		return nil, fmt.Errorf("unknown backend %q (valid: whisper, vosk, openai, stub)", cfg.Model.Backend)
	}
}

// resolveModelPath finds a downloaded model for the backend. An
// explicit catalog name or file path wins; otherwise the configured
// default is used when it matches the backend, falling back to any
// downloaded model that does.
func resolveModelPath(backend, explicit string) (string, error) {
	if explicit != "" {
		if m := models.FindModel(explicit); m != nil {
			if m.Backend != backend {
				return "", fmt.Errorf("model %s is a %s model, not %s", explicit, m.Backend, backend)
			}
			return models.GetModelPath(explicit)
		}
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("model path %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if name, err := models.GetDefaultModel(); err == nil {
		if m := models.FindModel(name); m != nil && m.Backend == backend {
			if path, err := models.GetModelPath(name); err == nil {
				return path, nil
			}
		}
	}

	for _, m := range models.ModelsForBackend(backend) {
		downloaded, err := models.IsModelDownloaded(m.Name)
		if err != nil || !downloaded {
			continue
		}
		path, err := models.GetModelPath(m.Name)
		if err != nil {
			continue
		}
		return path, nil
	}

	suggestion := models.DefaultModelName
	if backend != "whisper" {
		if ms := models.ModelsForBackend(backend); len(ms) > 0 {
			suggestion = ms[0].Name
		}
	}
	return "", fmt.Errorf("no %s model downloaded; run 'sotto models pull %s' first", backend, suggestion)
}
