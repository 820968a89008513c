package stream

import (
	"bytes"
	"compress/flate"
	"strings"

	"github.com/soren/sotto/internal/stt"
)

// EarlyStop watches the trailing decoded tokens of an in-flight
// inference call and signals when to cut it short: runaway repetition
// shows up as a high compression ratio, collapsed confidence as a low
// average log-probability. A trip is normal termination, not an error.
//
// The default thresholds are looser than textbook values on purpose;
// aggressive settings truncate legitimate speech.
type EarlyStop struct {
	window         int
	ratioThreshold float64
	logThreshold   float64

	texts    []string
	logProbs []float64
}

// NewEarlyStop builds a detector over a trailing window of tokens.
// window <= 0 disables it entirely; a zero ratio or log-probability
// threshold disables that heuristic alone.
func NewEarlyStop(window int, ratioThreshold, logThreshold float64) *EarlyStop {
	return &EarlyStop{
		window:         window,
		ratioThreshold: ratioThreshold,
		logThreshold:   logThreshold,
	}
}

// Observe feeds newly decoded tokens and reports whether decoding
// should stop. Nothing is evaluated until the window has filled, so
// short utterances are never cut.
func (e *EarlyStop) Observe(tokens []stt.Token) bool {
	if e.window <= 0 {
		return false
	}

	for _, tok := range tokens {
		e.texts = append(e.texts, tok.Text)
		e.logProbs = append(e.logProbs, tok.LogProb)
	}
	if len(e.texts) > e.window {
		e.texts = e.texts[len(e.texts)-e.window:]
		e.logProbs = e.logProbs[len(e.logProbs)-e.window:]
	}
	if len(e.texts) < e.window {
		return false
	}

	if e.ratioThreshold > 0 && compressionRatio(strings.Join(e.texts, "")) > e.ratioThreshold {
		return true
	}
	if e.logThreshold != 0 && meanOf(e.logProbs) < e.logThreshold {
		return true
	}
	return false
}

// compressionRatio is raw size over deflate-compressed size. Repeated
// text compresses extremely well, so loops push the ratio up fast.
func compressionRatio(s string) float64 {
	if s == "" {
		return 0
	}

	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return 0
	}
	if _, err := zw.Write([]byte(s)); err != nil {
		return 0
	}
	if err := zw.Close(); err != nil {
		return 0
	}
	if buf.Len() == 0 {
		return 0
	}
	return float64(len(s)) / float64(buf.Len())
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
