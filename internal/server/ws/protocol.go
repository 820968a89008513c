package ws

import (
	"encoding/json"
	"fmt"

	"github.com/soren/sotto/internal/stream"
	"github.com/soren/sotto/internal/stt"
)

// The wire protocol mixes frame types: control and result messages are
// JSON text frames, audio is binary frames of little-endian 16-bit PCM
// at 16 kHz mono. Binary frames are only meaningful between start and
// stop.

// Client message types.
const (
	ClientStart = "start"
	ClientStop  = "stop"
	ClientReset = "reset"
)

// Server message types.
const (
	ServerReady      = "ready"
	ServerStatus     = "status"
	ServerPartial    = "partial"
	ServerTranscript = "transcript"
	ServerError      = "error"
)

// ClientMessage is a control frame from the client.
type ClientMessage struct {
	Type string `json:"type"`

	// Config optionally overrides session tuning on start.
	Config *SessionConfig `json:"config,omitempty"`

	// PreserveText applies to reset.
	PreserveText bool `json:"preserve_text,omitempty"`
}

// SessionConfig is the subset of engine tuning a client may override
// per session. Absent fields keep the server defaults.
type SessionConfig struct {
	Mode               string   `json:"mode,omitempty"`
	Language           string   `json:"language,omitempty"`
	Task               string   `json:"task,omitempty"`
	MinNewAudioSeconds *float64 `json:"min_new_audio_seconds,omitempty"`
	ConfirmationDepth  *int     `json:"confirmation_depth,omitempty"`
	TokenConfirmations *int     `json:"token_confirmations,omitempty"`
	VADEnabled         *bool    `json:"vad_enabled,omitempty"`
	LineBreaks         *bool    `json:"line_breaks,omitempty"`
}

// apply folds the overrides into a base engine configuration.
func (sc *SessionConfig) apply(cfg stream.Config) stream.Config {
	if sc == nil {
		return cfg
	}
	if sc.Mode != "" {
		cfg.Mode = stream.Mode(sc.Mode)
	}
	if sc.Language != "" {
		cfg.Decode.Language = sc.Language
	}
	if sc.Task == "translate" {
		cfg.Decode.Task = stt.TaskTranslate
	}
	if sc.MinNewAudioSeconds != nil {
		cfg.MinNewAudioSeconds = *sc.MinNewAudioSeconds
	}
	if sc.ConfirmationDepth != nil {
		cfg.ConfirmationDepth = *sc.ConfirmationDepth
	}
	if sc.TokenConfirmations != nil {
		cfg.TokenConfirmations = *sc.TokenConfirmations
	}
	if sc.VADEnabled != nil {
		cfg.VADEnabled = *sc.VADEnabled
	}
	if sc.LineBreaks != nil {
		cfg.LineBreaks = *sc.LineBreaks
	}
	return cfg
}

// ServerMessage is a result or status frame to the client.
type ServerMessage struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`

	// Status for type "status".
	Status string `json:"status,omitempty"`

	// Text for type "partial".
	Text string `json:"text,omitempty"`

	// Snapshot and Final for type "transcript".
	Snapshot *stream.Snapshot `json:"snapshot,omitempty"`
	Final    bool             `json:"final,omitempty"`

	// Kind and Message for type "error".
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

func parseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("malformed control frame: %w", err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("control frame missing type")
	}
	return msg, nil
}
