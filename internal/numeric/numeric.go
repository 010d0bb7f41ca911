// Package numeric validates numeric literals found in metric records.
package numeric

import (
	"math"
	"strconv"
)

// IsNumeric reports whether s is a finite floating-point literal.
func IsNumeric(s string) bool {
	_, ok := Parse(s)
	return ok
}

// Parse returns the value of s when IsNumeric(s) holds.
func Parse(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
