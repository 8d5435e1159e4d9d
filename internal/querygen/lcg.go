package querygen

import (
	"math"
	"math/rand"
)

// lcgWalk produces a non-repeating pseudorandom permutation of [0, span)
// without materializing it, one Next() call at a time.
type lcgWalk struct {
	value      int
	offset     int
	multiplier int
	modulus    int
	span       int
	emitted    int
}

func newLCGWalk(span int) *lcgWalk {
	if span <= 0 {
		span = 1
	}
	w := &lcgWalk{span: span}
	w.reset()
	return w
}

// reset reseeds the walk with a fresh random offset/multiplier, starting
// a new non-repeating pass over [0, span).
func (w *lcgWalk) reset() {
	w.value = rand.Intn(w.span)
	w.offset = (rand.Intn(w.span)+w.span)*2 + 1
	w.multiplier = 4*(w.span/4) + 1
	w.modulus = int(math.Pow(2, math.Ceil(math.Log2(float64(w.span)))))
	w.emitted = 0
}

// next returns the next value in the permutation. wrapped reports
// whether this call emitted the last value of the current pass, in
// which case a fresh pass has already been seeded for the next call.
func (w *lcgWalk) next() (int, bool) {
	for w.value >= w.span {
		w.value = (w.value*w.multiplier + w.offset) % w.modulus
	}
	v := w.value
	w.value = (w.value*w.multiplier + w.offset) % w.modulus
	w.emitted++
	if w.emitted >= w.span {
		w.reset()
		return v, true
	}
	return v, false
}
