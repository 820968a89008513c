package audio

// energyRing is a fixed-capacity ring of per-frame energy values.
// The oldest frames are overwritten once capacity is reached, so the
// ring always holds the trailing window of the recording.
type energyRing struct {
	values   []float32
	writePos int
	full     bool
}

func newEnergyRing(capacity int) *energyRing {
	return &energyRing{values: make([]float32, capacity)}
}

// Push appends one frame value, evicting the oldest when full.
func (r *energyRing) Push(v float32) {
	r.values[r.writePos] = v
	r.writePos = (r.writePos + 1) % len(r.values)
	if r.writePos == 0 {
		r.full = true
	}
}

// Len returns the number of stored values.
func (r *energyRing) Len() int {
	if r.full {
		return len(r.values)
	}
	return r.writePos
}

// Snapshot returns the stored values, oldest first.
func (r *energyRing) Snapshot() []float32 {
	if !r.full {
		out := make([]float32, r.writePos)
		copy(out, r.values[:r.writePos])
		return out
	}
	out := make([]float32, 0, len(r.values))
	out = append(out, r.values[r.writePos:]...)
	out = append(out, r.values[:r.writePos]...)
	return out
}

// Reset clears the ring.
func (r *energyRing) Reset() {
	r.writePos = 0
	r.full = false
}
