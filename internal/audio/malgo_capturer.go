package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoCapturer implements the Capturer interface using malgo
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	samples      chan AudioSample
	errors       chan error
	running      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
}

// NewMalgoCapturer creates a new malgo-based audio capturer
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	if config.SampleBufferSize <= 0 {
		config.SampleBufferSize = 50
	}
	return &MalgoCapturer{
		config:   config,
		samples:  make(chan AudioSample, config.SampleBufferSize),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins audio capture
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	m.running = true
	m.mu.Unlock()

	// Initialize malgo context
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoContext = malgoCtx

	// Configure device: request float32 frames so no conversion is
	// needed downstream, miniaudio converts from the hardware format
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	// Data callback - called when audio data is available
	var dataCallback malgo.DeviceCallbacks
	dataCallback.Data = func(pOutputSample, pInputSamples []byte, framecount uint32) {
		// Decode and copy inside the callback to avoid data races on
		// the miniaudio-owned buffer
		sample := AudioSample{
			Samples:   decodeF32(pInputSamples),
			Timestamp: time.Now(),
			Frames:    framecount,
		}

		// Non-blocking send to samples channel
		select {
		case m.samples <- sample:
		default:
			select {
			case m.errors <- fmt.Errorf("sample buffer overflow, dropping frames"):
			default:
			}
		}
	}

	// Initialize device
	device, err := malgo.InitDevice(m.malgoContext.Context, deviceConfig, dataCallback)
	if err != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to initialize device: %w", err)
	}
	m.device = device

	// Start the device
	err = device.Start()
	if err != nil {
		device.Uninit()
		m.malgoContext.Uninit()
		m.malgoContext.Free()
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to start device: %w", err)
	}

	// Context monitoring goroutine. It may end up calling Stop itself,
	// so Stop must never wait on it.
	go func() {
		select {
		case <-ctx.Done():
			m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// Stop stops audio capture
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	// Signal stop
	close(m.stopChan)

	// Stop the device
	if m.device != nil {
		err := m.device.Stop()
		if err != nil {
			return fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
	}

	// Uninitialize malgo context
	if m.malgoContext != nil {
		m.malgoContext.Uninit()
		m.malgoContext.Free()
	}

	// No callbacks fire after device.Stop returns, so the channels can
	// close safely
	close(m.samples)
	close(m.errors)

	return nil
}

// Samples returns a channel that receives audio chunks
func (m *MalgoCapturer) Samples() <-chan AudioSample {
	return m.samples
}

// Errors returns a channel that receives capture errors
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// decodeF32 converts little-endian float32 PCM bytes to samples
func decodeF32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
