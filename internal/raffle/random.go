package raffle

import "math"

// WeakRandom mixes the slot counter with the unix time through a wrapping
// multiply. Anyone able to choose when the draw lands, or to read the clock
// ahead of it, can steer the result; it must not guard a pot whose
// manipulation is worth the effort.
func WeakRandom(slot uint64, unixTime int64) uint32 {
	return uint32((slot * uint64(unixTime)) % math.MaxUint32)
}
