package stream

import "github.com/soren/sotto/internal/stt"

// state is the mutable reconciliation state for one recording session.
// It is owned by the engine's poll loop; everything else sees copies
// taken through Snapshot.
type state struct {
	confirmedSegments   []stt.Segment
	unconfirmedSegments []stt.Segment

	confirmedWords  []stt.WordTiming
	hypothesisWords []stt.WordTiming

	// lastAgreedSeconds is the time below which audio is fully
	// resolved and never re-decoded. Monotonically non-decreasing
	// within a session.
	lastAgreedSeconds float64

	// lastBufferSamples is the high-water mark of processed samples,
	// used to measure newly arrived audio.
	lastBufferSamples int

	// carryText is finalized text preserved from earlier sessions by
	// Reset(preserveText). It prefixes the assembled display text and
	// is never revised.
	carryText string
}

func newState() *state {
	return &state{}
}

// finalize promotes everything provisional to confirmed. Called exactly
// once per session, when recording stops or is cancelled.
func (st *state) finalize() {
	st.confirmedSegments = append(st.confirmedSegments, st.unconfirmedSegments...)
	st.unconfirmedSegments = nil

	remnant := filterWords(st.hypothesisWords, st.lastAgreedSeconds)
	st.confirmedWords = append(st.confirmedWords, remnant...)
	st.hypothesisWords = nil
}

// reset returns a fresh state for the next session. With preserveText,
// the finalized display text carries over as an immutable prefix; all
// segments, words and counters start from zero either way, because the
// next session has its own timebase.
func (st *state) reset(preserveText bool, assembled string) *state {
	ns := newState()
	if preserveText {
		ns.carryText = assembled
	}
	return ns
}

// Snapshot is a read-only copy of the transcription state, safe to
// hand to presentation code.
type Snapshot struct {
	// Text is the cleaned display text: confirmed material first,
	// provisional material after it.
	Text string `json:"text"`

	// ConfirmedText is the cleaned immutable part alone.
	ConfirmedText string `json:"confirmed_text"`

	ConfirmedSegments   []stt.Segment `json:"confirmed_segments,omitempty"`
	UnconfirmedSegments []stt.Segment `json:"unconfirmed_segments,omitempty"`

	ConfirmedWords  []stt.WordTiming `json:"confirmed_words,omitempty"`
	HypothesisWords []stt.WordTiming `json:"hypothesis_words,omitempty"`

	LastAgreedSeconds float64 `json:"last_agreed_seconds"`
}

// filterWords keeps words starting at or after cutoff.
func filterWords(words []stt.WordTiming, cutoff float64) []stt.WordTiming {
	var out []stt.WordTiming
	for _, w := range words {
		if w.Start >= cutoff {
			out = append(out, w)
		}
	}
	return out
}
