package audio

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileSource replays a WAV file through the Capturer interface, so
// recordings run through the same pipeline as live capture. The samples
// channel is closed when the file is exhausted.
type FileSource struct {
	clip  []float32
	rate  int
	speed float64

	samples   chan AudioSample
	errors    chan error
	running   bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewFileSource loads path, converting to mono targetRate. speed scales
// the replay pace: 1 is real time, 0 or negative replays as fast as the
// consumer drains.
func NewFileSource(path string, targetRate int, speed float64) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	clip, rate, err := ReadWAV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if rate != targetRate {
		clip, err = Resample(clip, rate, targetRate)
		if err != nil {
			return nil, fmt.Errorf("resample %s: %w", path, err)
		}
	}

	return &FileSource{
		clip:     clip,
		rate:     targetRate,
		speed:    speed,
		samples:  make(chan AudioSample, 50),
		errors:   make(chan error, 1),
		stopChan: make(chan struct{}),
	}, nil
}

// DurationSeconds returns the replay length after conversion.
func (f *FileSource) DurationSeconds() float64 {
	return float64(len(f.clip)) / float64(f.rate)
}

// Start begins pushing chunks onto the samples channel.
func (f *FileSource) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("file source is already running")
	}
	f.running = true
	f.mu.Unlock()

	chunk := f.rate / 10 // 100ms
	var pace time.Duration
	if f.speed > 0 {
		pace = time.Duration(float64(100*time.Millisecond) / f.speed)
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer f.closeOnce.Do(func() { close(f.samples) })

		for off := 0; off < len(f.clip); off += chunk {
			end := off + chunk
			if end > len(f.clip) {
				end = len(f.clip)
			}

			data := make([]float32, end-off)
			copy(data, f.clip[off:end])
			sample := AudioSample{
				Samples:   data,
				Timestamp: time.Now(),
				Frames:    uint32(end - off),
			}

			select {
			case f.samples <- sample:
			case <-ctx.Done():
				return
			case <-f.stopChan:
				return
			}

			if pace > 0 {
				select {
				case <-time.After(pace):
				case <-ctx.Done():
					return
				case <-f.stopChan:
					return
				}
			}
		}
	}()

	return nil
}

// Stop halts the replay.
func (f *FileSource) Stop() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	f.mu.Unlock()

	close(f.stopChan)
	f.wg.Wait()
	return nil
}

// Samples returns the replay chunk channel. It is closed at EOF.
func (f *FileSource) Samples() <-chan AudioSample {
	return f.samples
}

// Errors returns the error channel. File replay reports no runtime
// errors; decoding problems surface from NewFileSource.
func (f *FileSource) Errors() <-chan error {
	return f.errors
}

// IsRunning returns true while the replay goroutine is active.
func (f *FileSource) IsRunning() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.running
}
