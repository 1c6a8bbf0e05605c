package point

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var floatPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// parseLeadingFloat parses the longest numeric prefix of s after trimming
// whitespace. "40.7abc" is 40.7; "abc" and "" are NaN.
func parseLeadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	switch {
	case strings.HasPrefix(s, "Infinity"), strings.HasPrefix(s, "+Infinity"):
		return math.Inf(1)
	case strings.HasPrefix(s, "-Infinity"):
		return math.Inf(-1)
	}
	m := floatPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// out of range exponents still parse to ±Inf with ErrRange
		if errors.Is(err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}

// firstNonEmpty returns the first alias with a non-empty value.
func firstNonEmpty(r Row, aliases ...string) string {
	for _, a := range aliases {
		if v, ok := r[a]; ok && v != "" {
			return v
		}
	}
	return ""
}
