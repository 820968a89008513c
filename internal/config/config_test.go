package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Backend != "whisper" {
		t.Errorf("default backend = %q, want whisper", cfg.Model.Backend)
	}
	if cfg.Stream.Mode != "standard" {
		t.Errorf("default mode = %q, want standard", cfg.Stream.Mode)
	}
	if cfg.Stream.ConfirmationDepth != 2 {
		t.Errorf("default confirmation depth = %d, want 2", cfg.Stream.ConfirmationDepth)
	}
	if !cfg.VAD.Enabled {
		t.Error("VAD disabled by default")
	}
	if cfg.VAD.SilenceThreshold != 0.022 {
		t.Errorf("default silence threshold = %v, want 0.022", cfg.VAD.SilenceThreshold)
	}
	if cfg.EarlyStop.CompressionRatio != 3.0 {
		t.Errorf("default compression ratio = %v, want 3.0", cfg.EarlyStop.CompressionRatio)
	}
	if cfg.Audio.SampleRate != stt.SampleRate {
		t.Errorf("default sample rate = %d, want %d", cfg.Audio.SampleRate, stt.SampleRate)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
model:
  backend: vosk
  path: /models/vosk-small
  language: en
stream:
  mode: eager
  min_new_audio_seconds: 0.5
  token_confirmations: 3
vad:
  enabled: false
early_stop:
  token_window: 0
output:
  format: json
  line_breaks: true
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Model.Backend != "vosk" {
		t.Errorf("backend = %q, want vosk", cfg.Model.Backend)
	}
	if cfg.Stream.Mode != "eager" {
		t.Errorf("mode = %q, want eager", cfg.Stream.Mode)
	}
	if cfg.Stream.MinNewAudioSeconds != 0.5 {
		t.Errorf("min new audio = %v, want 0.5", cfg.Stream.MinNewAudioSeconds)
	}
	if cfg.VAD.Enabled {
		t.Error("vad.enabled not overridden to false")
	}
	if cfg.EarlyStop.TokenWindow != 0 {
		t.Errorf("token window = %d, want 0", cfg.EarlyStop.TokenWindow)
	}

	// Untouched sections keep their defaults.
	if cfg.Stream.ConfirmationDepth != 2 {
		t.Errorf("confirmation depth = %d, want default 2", cfg.Stream.ConfirmationDepth)
	}
	if cfg.Server.Port != 8099 {
		t.Errorf("server port = %d, want default 8099", cfg.Server.Port)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want parse error")
	}
}

func TestLoadWithFallbackMissingFiles(t *testing.T) {
	// Point HOME somewhere empty so no ~/.sottorc is found.
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadWithFallback("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Backend != DefaultConfig().Model.Backend {
		t.Error("fallback without files should return defaults")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Model.Backend = "openai"
	cfg.Output.Format = "json"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model.Backend != "openai" {
		t.Errorf("backend = %q after round trip, want openai", loaded.Model.Backend)
	}
	if loaded.Output.Format != "json" {
		t.Errorf("format = %q after round trip, want json", loaded.Output.Format)
	}
}

func TestStreamConfigMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stream.Mode = "eager"
	cfg.Stream.PollIntervalMs = 50
	cfg.Model.Task = "translate"
	cfg.Model.Language = "de"
	cfg.Decode.Threads = 4

	sc := cfg.StreamConfig()
	if sc.Mode != stream.ModeEager {
		t.Errorf("mode = %q, want eager", sc.Mode)
	}
	if sc.PollInterval != 50*time.Millisecond {
		t.Errorf("poll interval = %v, want 50ms", sc.PollInterval)
	}
	if sc.Decode.Task != stt.TaskTranslate {
		t.Errorf("task = %v, want translate", sc.Decode.Task)
	}
	if sc.Decode.Language != "de" {
		t.Errorf("language = %q, want de", sc.Decode.Language)
	}
	if sc.Decode.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", sc.Decode.Concurrency)
	}
}
