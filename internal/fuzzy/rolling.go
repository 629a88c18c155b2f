package fuzzy

const rollingWindow = 7

// RollingHash is the Adler-32 style checksum over the last rollingWindow
// bytes used to decide where trigger points fall.
type RollingHash struct {
	window [rollingWindow]byte
	h1     uint32
	h2     uint32
	h3     uint32
	n      int
}

// Roll feeds c into the window, evicting the oldest byte, and returns the new sum.
func (r *RollingHash) Roll(c byte) uint32 {
	r.h2 -= r.h1
	r.h2 += rollingWindow * uint32(c)

	r.h1 += uint32(c)
	r.h1 -= uint32(r.window[r.n])

	r.window[r.n] = c
	r.n++
	if r.n == rollingWindow {
		r.n = 0
	}

	r.h3 <<= 5
	r.h3 ^= uint32(c)

	return r.Sum()
}

// Sum returns the current checksum without consuming input.
func (r *RollingHash) Sum() uint32 {
	return r.h1 + r.h2 + r.h3
}

// Reset clears the window and accumulators.
func (r *RollingHash) Reset() {
	*r = RollingHash{}
}
