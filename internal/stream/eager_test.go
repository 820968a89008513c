package stream

import (
	"testing"

	"github.com/soren/sotto/internal/stt"
)

func word(text string, start, end float64) stt.WordTiming {
	return stt.WordTiming{Word: text, Start: start, End: end}
}

func words(texts ...string) []stt.WordTiming {
	out := make([]stt.WordTiming, len(texts))
	for i, text := range texts {
		out[i] = word(text, float64(i), float64(i)+1)
	}
	return out
}

func wordTexts(ws []stt.WordTiming) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Word
	}
	return out
}

func wantWords(t *testing.T, got []stt.WordTiming, want ...string) {
	t.Helper()
	texts := wordTexts(got)
	if len(texts) != len(want) {
		t.Fatalf("got words %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("got words %v, want %v", texts, want)
		}
	}
}

func TestEagerFirstCycleOnlyStoresHypothesis(t *testing.T) {
	e := NewEager(2)
	st := newState()

	e.Apply(st, words("the", "quick", "fox"))

	if len(st.confirmedWords) != 0 {
		t.Fatalf("confirmed %v on first cycle", wordTexts(st.confirmedWords))
	}
	wantWords(t, st.hypothesisWords, "the", "quick", "fox")
}

func TestEagerPromotesAgreedPrefix(t *testing.T) {
	e := NewEager(2)
	st := newState()

	e.Apply(st, words("the", "quick", "fox"))
	e.Apply(st, words("the", "quick", "fox", "jumps"))

	// Three words agree; the trailing two are held back.
	wantWords(t, st.confirmedWords, "the")
	if st.lastAgreedSeconds != 1 {
		t.Errorf("lastAgreedSeconds = %v, want start of first held word", st.lastAgreedSeconds)
	}
	wantWords(t, st.hypothesisWords, "the", "quick", "fox", "jumps")
}

func TestEagerDisagreementPromotesNothing(t *testing.T) {
	e := NewEager(2)
	st := newState()

	e.Apply(st, words("the", "quick", "fox"))
	e.Apply(st, words("the", "sick", "fox"))

	// Only one word agrees, below the safety window.
	if len(st.confirmedWords) != 0 {
		t.Fatalf("confirmed %v from a one-word prefix", wordTexts(st.confirmedWords))
	}
	if st.lastAgreedSeconds != 0 {
		t.Errorf("lastAgreedSeconds = %v, want 0", st.lastAgreedSeconds)
	}
}

func TestEagerExactWindowAdvancesWithoutPromotion(t *testing.T) {
	e := NewEager(2)
	st := newState()

	e.Apply(st, words("hello", "world", "again"))
	e.Apply(st, words("hello", "world", "there"))

	// The agreed prefix is exactly window-sized: no words promote, but
	// the agreed line moves to the first held word.
	if len(st.confirmedWords) != 0 {
		t.Fatalf("confirmed %v, want none", wordTexts(st.confirmedWords))
	}
	if st.lastAgreedSeconds != 0 {
		t.Errorf("lastAgreedSeconds = %v, want start of first agreed word", st.lastAgreedSeconds)
	}
}

func TestEagerTimingShiftDoesNotBreakAgreement(t *testing.T) {
	e := NewEager(1)
	st := newState()

	e.Apply(st, []stt.WordTiming{
		word("hello", 0.00, 0.40),
		word("world", 0.40, 0.90),
	})
	e.Apply(st, []stt.WordTiming{
		word("hello", 0.02, 0.38),
		word("world", 0.41, 0.88),
	})

	// Agreement compares text only; jittered timings still match.
	wantWords(t, st.confirmedWords, "hello")
	if st.lastAgreedSeconds != 0.41 {
		t.Errorf("lastAgreedSeconds = %v, want 0.41 from the newest hypothesis", st.lastAgreedSeconds)
	}
}

func TestEagerEmptyHypothesisIsNoOp(t *testing.T) {
	e := NewEager(2)
	st := newState()

	e.Apply(st, words("keep", "these", "words", "safe"))
	e.Apply(st, words("keep", "these", "words", "safe"))
	confirmed := append([]stt.WordTiming(nil), st.confirmedWords...)
	agreed := st.lastAgreedSeconds

	e.Apply(st, nil)

	wantWords(t, st.confirmedWords, wordTexts(confirmed)...)
	if st.lastAgreedSeconds != agreed {
		t.Errorf("lastAgreedSeconds = %v, want unchanged %v", st.lastAgreedSeconds, agreed)
	}
	if len(st.hypothesisWords) != 0 {
		t.Errorf("hypothesis = %v, want empty", wordTexts(st.hypothesisWords))
	}
}

func TestEagerFiltersWordsBeforeAgreedLine(t *testing.T) {
	e := NewEager(1)
	st := newState()
	st.lastAgreedSeconds = 2

	// The backend may re-emit words from before the clip line; they
	// must not re-enter the hypothesis.
	e.Apply(st, []stt.WordTiming{
		word("stale", 0.5, 1.0),
		word("fresh", 2.0, 2.5),
		word("words", 2.5, 3.0),
	})

	wantWords(t, st.hypothesisWords, "fresh", "words")
}

func TestEagerLastAgreedMonotonic(t *testing.T) {
	e := NewEager(2)
	st := newState()

	cycles := [][]stt.WordTiming{
		words("a", "b", "c"),
		words("a", "b", "c", "d"),
		words("a", "b", "c", "d", "e"),
		words("a", "b", "x"),
	}

	prev := 0.0
	for i, ws := range cycles {
		e.Apply(st, ws)
		if st.lastAgreedSeconds < prev {
			t.Fatalf("cycle %d: lastAgreedSeconds went backwards: %v -> %v", i, prev, st.lastAgreedSeconds)
		}
		prev = st.lastAgreedSeconds
	}
}

func TestEagerFinalizeKeepsRemnantOnce(t *testing.T) {
	e := NewEager(2)
	st := newState()

	e.Apply(st, words("the", "quick", "fox"))
	e.Apply(st, words("the", "quick", "fox", "jumps"))
	st.finalize()

	// "the" was promoted during the session; the remaining hypothesis
	// past the agreed line flushes exactly once.
	wantWords(t, st.confirmedWords, "the", "quick", "fox", "jumps")
	if len(st.hypothesisWords) != 0 {
		t.Errorf("hypothesis not flushed: %v", wordTexts(st.hypothesisWords))
	}
}
