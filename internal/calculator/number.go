package calculator

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const infinity = "Infinity"

// parseLeadingFloat reads the longest numeric prefix of s. Trailing garbage
// is ignored, so "12.5+" yields 12.5 and "1.2.3" yields 1.2. A string with no
// numeric prefix yields NaN.
func parseLeadingFloat(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}

	if strings.HasPrefix(s[i:], infinity) {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	// Only take the exponent when at least one digit follows it.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}

	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			// ParseFloat already returns ±Inf or 0 for out of range input.
			return v
		}
		return math.NaN()
	}
	return v
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// formatNumber renders f the way the calculator display shows numbers:
// shortest round-trip digits, exponent notation outside [1e-6, 1e21).
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return infinity
	case math.IsInf(f, -1):
		return "-" + infinity
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads exponents to two digits ("1e-07"); the display does not.
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + exp
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
