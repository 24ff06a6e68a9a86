package rankstat

import (
	"math"
	"strconv"
)

func formatFixed(x float64, decimals int) string {
	return strconv.FormatFloat(Round(x, decimals), 'f', decimals, 64)
}

// Snap rounds x to the given number of significant digits. Values that differ
// only by floating-point noise snap to the same number and compare equal.
func Snap(x float64, digits int) float64 {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'g', digits, 64), 64)
	if err != nil {
		return x
	}
	return v
}
