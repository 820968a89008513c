package stt

import "context"

// SampleRate is the sample rate every backend consumes, in Hz.
// Capture and file sources resample to this before handing audio over.
const SampleRate = 16000

// Task selects what the model does with the audio.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Segment is a contiguous span of recognized speech.
// Start and End are in seconds, absolute to the recording session.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// WordTiming is a single recognized word with timing information.
// Only backends that report word-level timestamps produce these.
type WordTiming struct {
	Word   string  `json:"word"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Tokens []int   `json:"tokens,omitempty"`
}

// Result is the outcome of one transcription call.
type Result struct {
	// Text is the full recognized text of the clip.
	Text string

	// Segments are the recognized spans, sorted by start time.
	Segments []Segment

	// Words are word-level timings, present only when the backend
	// supports them and DecodeOptions.WordTimestamps was set.
	Words []WordTiming

	// Language is the language the model decoded in.
	Language string

	// Duration is the length of the transcribed clip in seconds.
	Duration float64
}

// DecodeOptions control a single transcription call.
type DecodeOptions struct {
	// Task is transcribe or translate-to-English.
	Task Task

	// Language forces a decode language; empty or "auto" lets the
	// model detect it.
	Language string

	// Temperature is the initial sampling temperature.
	Temperature float64

	// TemperatureFallbacks is how many increasing-temperature retries
	// the model may attempt when decoding fails quality checks.
	TemperatureFallbacks int

	// Timestamps requests segment-level timestamps.
	Timestamps bool

	// WordTimestamps requests word-level timestamps where supported.
	WordTimestamps bool

	// ClipStartSeconds is the session-absolute time of samples[0].
	// Backends add it to every timestamp they return, so results are
	// in session time no matter where the clip was cut.
	ClipStartSeconds float64

	// Concurrency hints how many worker threads the backend may use.
	// Zero leaves the backend default in place.
	Concurrency int
}

// Token is a single decoded token with its model probability.
type Token struct {
	ID      int
	Text    string
	LogProb float64
}

// Progress is a partial view of an in-flight transcription, delivered
// as the model emits newly decoded segments.
type Progress struct {
	// Text is the text of the most recently decoded segment.
	Text string

	// Tokens are the tokens of that segment, in decode order.
	Tokens []Token
}

// ProgressFunc receives Progress updates during a transcription call.
// Returning true asks the model to finish early; an early finish is
// normal termination, not an error.
type ProgressFunc func(Progress) (stop bool)

// Transcriber is the model boundary. One call decodes one clip of
// mono float32 PCM at SampleRate.
type Transcriber interface {
	// Name identifies the backend, e.g. "whispercpp" or "vosk".
	Name() string

	// Transcribe decodes samples and returns the recognized text with
	// segment and, where supported, word timings. onProgress may be
	// nil. Errors are classified; see KindOf.
	Transcribe(ctx context.Context, samples []float32, opts DecodeOptions, onProgress ProgressFunc) (*Result, error)

	// WordTimestamps reports whether the backend can produce
	// WordTiming entries. Low-latency streaming requires this.
	WordTimestamps() bool

	// Close releases model resources.
	Close() error
}

// DefaultDecodeOptions returns the decode options used when the caller
// does not override them.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{
		Task:                 TaskTranscribe,
		Language:             "auto",
		Temperature:          0,
		TemperatureFallbacks: 5,
		Timestamps:           true,
	}
}
