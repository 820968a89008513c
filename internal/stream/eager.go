package stream

import "github.com/soren/sotto/internal/stt"

// Eager is the low-latency word-agreement strategy. Instead of waiting
// for segment depth, it promotes words once two consecutive hypotheses
// agree on them, keeping a trailing safety window unconfirmed because
// the model may still revise words at the edge of what it has heard.
type Eager struct {
	tokenConfirmations int
}

// NewEager builds the strategy. tokenConfirmations is the number of
// trailing agreed words held back from promotion each cycle.
func NewEager(tokenConfirmations int) *Eager {
	if tokenConfirmations < 1 {
		tokenConfirmations = 1
	}
	return &Eager{tokenConfirmations: tokenConfirmations}
}

// Apply folds one cycle's word hypothesis into st. words come from a
// decode clipped at st.lastAgreedSeconds; anything the backend emitted
// before that line is discarded. An empty hypothesis is a valid no-op.
func (e *Eager) Apply(st *state, words []stt.WordTiming) {
	hyp := filterWords(words, st.lastAgreedSeconds)
	prev := filterWords(st.hypothesisWords, st.lastAgreedSeconds)

	prefix := commonPrefix(prev, hyp)
	if len(prefix) >= e.tokenConfirmations {
		cut := len(prefix) - e.tokenConfirmations
		st.confirmedWords = append(st.confirmedWords, prefix[:cut]...)
		// The first retained word marks the new agreed line; the
		// retained window stays at or after it, so the next clip
		// still covers those words.
		st.lastAgreedSeconds = prefix[cut].Start
	}

	st.hypothesisWords = hyp
}

// commonPrefix returns the longest initial run of words whose text
// matches element-wise. Timing differences do not break a match.
func commonPrefix(a, b []stt.WordTiming) []stt.WordTiming {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i].Word == b[i].Word {
		i++
	}
	return b[:i]
}
