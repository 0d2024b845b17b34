package util

import (
	"strconv"
	"strings"
)

// ParseNum parses a market-data number that may arrive as "1,234.5",
// "$1.5B", "300M" or "12%". Returns (v, true) if any form worked.
func ParseNum(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	clean := strings.TrimSpace(s)
	clean = strings.NewReplacer(",", "", "$", "", "%", "", "+", "").Replace(clean)
	if clean == "" {
		return 0, false
	}

	suffixes := map[byte]float64{'K': 1e3, 'M': 1e6, 'B': 1e9, 'T': 1e12}
	upper := strings.ToUpper(clean)
	if mul, ok := suffixes[upper[len(upper)-1]]; ok {
		if v, err := strconv.ParseFloat(upper[:len(upper)-1], 64); err == nil {
			return v * mul, true
		}
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseNumPtr is ParseNum returning a pointer, nil on failure.
func ParseNumPtr(s string) *float64 {
	if v, ok := ParseNum(s); ok {
		return &v
	}
	return nil
}

// ParsePct parses a percentage string like "3.5%" or "-1.2".
func ParsePct(s string) (float64, bool) {
	return ParseNum(s)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
