// Package dice provides the randomness abstraction used for critical strikes,
// spawn angles and random opponent selection.
package dice

import "math"

// Source is the randomness provider for the arena.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// chanceResolution is the number of discrete steps Chance divides [0, 1] into.
const chanceResolution = 10000

// Chance reports whether an event with probability p happens.
//
// Postcondition: p <= 0 always returns false; p >= 1 always returns true.
func Chance(src Source, p float64) bool {
	switch {
	case !(p > 0):
		return false
	case p >= 1:
		return true
	}
	return src.Intn(chanceResolution) < int(math.Round(p*chanceResolution))
}

// angleResolution is the number of discrete headings Angle chooses from.
const angleResolution = 3600

// Angle returns a random heading in [0, 2π).
func Angle(src Source) float64 {
	return float64(src.Intn(angleResolution)) / angleResolution * 2 * math.Pi
}

// Pick returns a uniformly chosen element of items.
//
// Precondition: len(items) > 0.
func Pick[T any](src Source, items []T) T {
	if len(items) == 0 {
		panic("dice: Pick called with no items")
	}
	return items[src.Intn(len(items))]
}
