package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

// Config is the application configuration, read from YAML.
type Config struct {
	// Model selects and parameterizes the transcription backend.
	Model struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		Language string `yaml:"language"`
		Task     string `yaml:"task"`
	} `yaml:"model"`

	// Stream tunes the reconciliation loop.
	Stream struct {
		Mode               string  `yaml:"mode"`
		MinNewAudioSeconds float64 `yaml:"min_new_audio_seconds"`
		PollIntervalMs     int     `yaml:"poll_interval_ms"`
		ConfirmationDepth  int     `yaml:"confirmation_depth"`
		TokenConfirmations int     `yaml:"token_confirmations"`
		PreserveText       bool    `yaml:"preserve_text"`
	} `yaml:"stream"`

	// VAD tunes the voice gate.
	VAD struct {
		Enabled             bool    `yaml:"enabled"`
		SilenceThreshold    float64 `yaml:"silence_threshold"`
		EnergyWindowSeconds float64 `yaml:"energy_window_seconds"`
	} `yaml:"vad"`

	// EarlyStop tunes the in-decode abort heuristics. Zero disables.
	EarlyStop struct {
		CompressionRatio float64 `yaml:"compression_ratio"`
		LogProb          float64 `yaml:"log_prob"`
		TokenWindow      int     `yaml:"token_window"`
	} `yaml:"early_stop"`

	// Decode holds backend decoding parameters.
	Decode struct {
		Temperature          float64 `yaml:"temperature"`
		TemperatureFallbacks int     `yaml:"temperature_fallbacks"`
		Threads              int     `yaml:"threads"`
	} `yaml:"decode"`

	// Output settings
	Output struct {
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		LineBreaks bool   `yaml:"line_breaks"`
	} `yaml:"output"`

	// Audio settings
	Audio struct {
		Device     string `yaml:"device"`
		SampleRate int    `yaml:"sample_rate"`
	} `yaml:"audio"`

	// Server settings for the websocket streaming server.
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	// OpenAI settings for the cloud backend. An empty key falls back
	// to OPENAI_API_KEY.
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Model.Backend = "whisper"
	cfg.Model.Language = "auto"
	cfg.Model.Task = "transcribe"

	cfg.Stream.Mode = "standard"
	cfg.Stream.MinNewAudioSeconds = 1.0
	cfg.Stream.PollIntervalMs = 100
	cfg.Stream.ConfirmationDepth = 2
	cfg.Stream.TokenConfirmations = 2
	cfg.Stream.PreserveText = false

	cfg.VAD.Enabled = true
	cfg.VAD.SilenceThreshold = 0.022
	cfg.VAD.EnergyWindowSeconds = 2.0

	cfg.EarlyStop.CompressionRatio = 3.0
	cfg.EarlyStop.LogProb = -1.5
	cfg.EarlyStop.TokenWindow = 30

	cfg.Decode.Temperature = 0.0
	cfg.Decode.TemperatureFallbacks = 5
	cfg.Decode.Threads = 0

	cfg.Output.Format = "text"
	cfg.Output.File = ""
	cfg.Output.LineBreaks = false

	cfg.Audio.Device = ""
	cfg.Audio.SampleRate = stt.SampleRate

	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8099

	cfg.OpenAI.Model = "whisper-1"

	return cfg
}

// Load loads configuration from file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple
// locations. Priority: explicit path > ~/.sottorc > /etc/sotto/config.yaml.
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".sottorc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/sotto/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	// No config file found, return defaults.
	return DefaultConfig(), nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// StreamConfig maps the file schema onto the engine's configuration.
func (c *Config) StreamConfig() stream.Config {
	sc := stream.Config{
		Mode:                      stream.Mode(c.Stream.Mode),
		MinNewAudioSeconds:        c.Stream.MinNewAudioSeconds,
		PollInterval:              time.Duration(c.Stream.PollIntervalMs) * time.Millisecond,
		VADEnabled:                c.VAD.Enabled,
		SilenceThreshold:          c.VAD.SilenceThreshold,
		EnergyWindowSeconds:       c.VAD.EnergyWindowSeconds,
		ConfirmationDepth:         c.Stream.ConfirmationDepth,
		TokenConfirmations:        c.Stream.TokenConfirmations,
		CompressionRatioThreshold: c.EarlyStop.CompressionRatio,
		LogProbThreshold:          c.EarlyStop.LogProb,
		TokenWindow:               c.EarlyStop.TokenWindow,
		LineBreaks:                c.Output.LineBreaks,
		Decode:                    c.DecodeOptions(),
	}
	return sc
}

// DecodeOptions maps the model and decode sections onto backend
// decoding options.
func (c *Config) DecodeOptions() stt.DecodeOptions {
	opts := stt.DefaultDecodeOptions()
	if c.Model.Task == "translate" {
		opts.Task = stt.TaskTranslate
	}
	if c.Model.Language != "" {
		opts.Language = c.Model.Language
	}
	opts.Temperature = c.Decode.Temperature
	opts.TemperatureFallbacks = c.Decode.TemperatureFallbacks
	opts.Concurrency = c.Decode.Threads
	return opts
}
