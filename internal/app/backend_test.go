package app

import (
	"strings"
	"testing"

	"github.com/soren/sotto/internal/config"
)

func TestNewBackendUnknown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Backend = "dragon"

	_, err := NewBackend(cfg, testLogger())
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("error = %v, want unknown backend", err)
	}
}

func TestNewBackendOpenAINeedsKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.DefaultConfig()
	cfg.Model.Backend = "openai"

	_, err := NewBackend(cfg, testLogger())
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Errorf("error = %v, want missing API key", err)
	}
}

func TestNewBackendOpenAI(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Backend = "openai"
	cfg.OpenAI.APIKey = "sk-test"

	backend, err := NewBackend(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer backend.Close()
	if backend.Name() != "openai" {
		t.Errorf("backend name = %q, want openai", backend.Name())
	}
}

func TestNewBackendMissingModel(t *testing.T) {
	t.Setenv("SOTTO_MODELS_DIR", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Model.Backend = "vosk"

	_, err := NewBackend(cfg, testLogger())
	if err == nil || !strings.Contains(err.Error(), "models pull") {
		t.Errorf("error = %v, want pull hint", err)
	}
}

func TestNewBackendExplicitPathMustExist(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Backend = "whisper"
	cfg.Model.Path = "/nonexistent/model.bin"

	_, err := NewBackend(cfg, testLogger())
	if err == nil {
		t.Fatal("NewBackend accepted a missing model path")
	}
}

func TestNewBackendRejectsWrongBackendModel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model.Backend = "whisper"
	cfg.Model.Path = "vosk-model-small-en-us-0.15"

	_, err := NewBackend(cfg, testLogger())
	if err == nil || !strings.Contains(err.Error(), "not whisper") {
		t.Errorf("error = %v, want backend mismatch", err)
	}
}
