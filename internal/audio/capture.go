package audio

import (
	"context"
	"time"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	// 16000 is what the recognition backends consume
	SampleRate uint32

	// Channels is the number of audio channels
	// 1 = mono (recommended for STT), 2 = stereo
	Channels uint32

	// BufferFrames is the number of frames per buffer
	// Smaller = lower latency, higher CPU usage
	BufferFrames uint32

	// SampleBufferSize is the size of the channel buffer for audio samples
	// Larger = more tolerance for slow downstream processing
	SampleBufferSize int

	// DeviceID is the audio device identifier
	// Empty string = use default device
	DeviceID string
}

// DefaultCaptureConfig returns the capture configuration used by the
// streaming engine
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:       16000, // What the recognition backends expect
		Channels:         1,     // Mono
		BufferFrames:     1600,  // 100ms at 16kHz, one engine poll interval
		SampleBufferSize: 50,    // ~5 seconds of tolerance
		DeviceID:         "",    // Default device
	}
}

// AudioSample represents a chunk of captured audio
type AudioSample struct {
	Samples   []float32 // Mono float32 PCM in [-1, 1]
	Timestamp time.Time // When the chunk was captured
	Frames    uint32    // Number of audio frames in this chunk
}

// Capturer is the interface for audio capture implementations
type Capturer interface {
	// Start begins audio capture
	Start(ctx context.Context) error

	// Stop stops audio capture
	Stop() error

	// Samples returns a channel that receives audio chunks
	Samples() <-chan AudioSample

	// Errors returns a channel that receives capture errors
	Errors() <-chan error

	// IsRunning returns true if capture is currently active
	IsRunning() bool
}

// NewCapturer creates a new audio capturer with the given configuration
func NewCapturer(config CaptureConfig) (Capturer, error) {
	return NewMalgoCapturer(config)
}
