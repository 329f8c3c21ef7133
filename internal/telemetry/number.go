package telemetry

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// numericPrefix matches the longest leading decimal literal of a string.
var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseFloat reads the leading number of s, ignoring leading whitespace and
// anything after the number ("42.5 %" reads as 42.5). It reports false when s
// does not start with a number.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, isJSSpace)
	m := numericPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	// Out-of-range literals still yield ±Inf or 0, which is what we want.
	f, _ := strconv.ParseFloat(m, 64)
	return f, true
}

// isJSSpace reports the whitespace and line terminators skipped before a
// number. Unlike unicode.IsSpace it excludes U+0085 and includes U+FEFF.
func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00A0', '\uFEFF', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func numberValue(n json.Number) float64 {
	f, _ := strconv.ParseFloat(string(n), 64)
	return f
}

// FormatFixed1 renders v with exactly one decimal place. Halfway cases round
// away from zero based on the exact binary value, so 0.25 gives "0.3" while
// 0.35 (stored as 0.34999...) gives "0.3".
func FormatFixed1(v float64) string {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return FormatNumber(v)
	case math.Abs(v) >= 1e21:
		return FormatNumber(v)
	}

	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	x := new(big.Float).SetPrec(256).SetFloat64(v)
	x.Mul(x, big.NewFloat(10))
	x.Add(x, big.NewFloat(0.5))
	n, _ := x.Int(nil)

	digits := n.String()
	if len(digits) < 2 {
		digits = "0" + digits
	}
	return sign + digits[:len(digits)-1] + "." + digits[len(digits)-1:]
}

// FormatNumber renders v in its shortest round-trip form, switching to
// exponent notation outside [1e-6, 1e21).
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
