package stream

import (
	"sort"

	"github.com/soren/sotto/internal/stt"
)

// Reconciler is the standard-mode confirmation state machine. Segments
// near the end of a decode window are the ones the next window is most
// likely to revise, so only segments further than depth from the tail
// are promoted to confirmed.
type Reconciler struct {
	depth int
}

// NewReconciler builds a reconciler with the given confirmation depth.
// Depth trades latency against correctness: lower confirms sooner,
// higher leaves more room for the model to change its mind.
func NewReconciler(depth int) *Reconciler {
	if depth < 0 {
		depth = 0
	}
	return &Reconciler{depth: depth}
}

// Apply folds one successful cycle's segments into st. Segments are
// sorted by start before partitioning; the trailing depth segments
// replace the unconfirmed set wholesale.
func (r *Reconciler) Apply(st *state, segments []stt.Segment) {
	segs := append([]stt.Segment(nil), segments...)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	if len(segs) <= r.depth {
		st.unconfirmedSegments = segs
		return
	}

	cut := len(segs) - r.depth
	toConfirm := segs[:cut]
	remaining := segs[cut:]

	// A confirmation candidate ending at or before the agreed line is
	// a re-emission of audio that was already resolved; dropping it
	// keeps confirmed text append-only.
	if last := toConfirm[len(toConfirm)-1]; last.End > st.lastAgreedSeconds {
		st.lastAgreedSeconds = last.End
		for _, seg := range toConfirm {
			if !containsSegment(st.confirmedSegments, seg) {
				st.confirmedSegments = append(st.confirmedSegments, seg)
			}
		}
	}
	st.unconfirmedSegments = remaining
}

// containsSegment reports whether an identical (start, end, text)
// segment is already present. Overlapping decode windows re-emit the
// same span; near-duplicates with shifted boundaries are kept as-is.
func containsSegment(segments []stt.Segment, seg stt.Segment) bool {
	for _, s := range segments {
		if s.Start == seg.Start && s.End == seg.End && s.Text == seg.Text {
			return true
		}
	}
	return false
}
