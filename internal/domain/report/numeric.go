package report

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads a free-text measurement such as "85,5 kg" or "72%".
// Everything except digits, comma and dot is dropped and a comma is read
// as the decimal point. ok is false when no number remains.
func ParseNumber(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteByte('.')
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
