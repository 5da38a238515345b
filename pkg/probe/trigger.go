package probe

import (
	"math"
	"strconv"
)

// Operands of the overflowing multiplication. They live in variables so
// that the product cannot be folded at compile time.
var (
	overflowLHS = 1e308
	overflowRHS = 1e308
)

var sink float64

// multiplyOverflow computes overflowLHS*overflowRHS. With the overflow
// trap enabled the multiplication raises SIGFPE.
//
//go:noinline
func multiplyOverflow() float64 {
	sink = overflowLHS * overflowRHS
	return sink
}

// formatG formats f the way C's "%g" does.
func formatG(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}
