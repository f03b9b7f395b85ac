package model

import "math"

// Undefined returns the marker for a value that has no number yet,
// e.g. a moving average before its window has filled.
func Undefined() float64 { return math.NaN() }

// IsDefined reports whether v carries a number.
func IsDefined(v float64) bool { return !math.IsNaN(v) }

// Ordering is the result of a three-valued comparison.
type Ordering int8

const (
	Less      Ordering = -1
	Equal     Ordering = 0
	Greater   Ordering = 1
	Unordered Ordering = 2 // at least one side is undefined
)

// Compare orders a against b. Any undefined operand yields Unordered,
// so it is neither Greater nor Less.
func Compare(a, b float64) Ordering {
	if !IsDefined(a) || !IsDefined(b) {
		return Unordered
	}
	switch {
	case a > b:
		return Greater
	case a < b:
		return Less
	}
	return Equal
}
