// Package scoring holds the pure input rules of the leaderboard: how raw
// names and scores are coerced, normalized and validated, and how a requested
// leaderboard size is clamped.
package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Input rule constants.
const (
	MaxNameLength       = 24
	DefaultLimit        = 10
	MaxLimit            = 50
	minLimit            = 1
	scoreCeiling        = 1 << 63 // first float64 that no longer fits an int64
	exponentFormatBound = 1e21    // numbers at or above this render in exponent form
)

// NormalizeName coerces raw to text, trims surrounding whitespace and keeps at
// most MaxNameLength characters. An empty result means the name is missing.
func NormalizeName(raw any) string {
	s := strings.TrimFunc(coerceText(raw), isSpace)
	if r := []rune(s); len(r) > MaxNameLength {
		// The cut may expose inner whitespace; trimming again keeps the
		// function idempotent.
		s = strings.TrimRightFunc(string(r[:MaxNameLength]), isSpace)
	}
	return s
}

// coerceText mirrors loose string coercion of a decoded JSON value. Falsy
// values (null, false, 0, "") become empty; containers are not names.
func coerceText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return ""
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return formatNumber(f)
	case float64:
		return formatNumber(v)
	case int:
		return formatNumber(float64(v))
	case int64:
		return formatNumber(float64(v))
	default:
		return ""
	}
}

func formatNumber(f float64) string {
	if f == 0 || math.IsNaN(f) {
		return ""
	}
	if math.Abs(f) >= exponentFormatBound {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// CoerceScore turns a raw submitted score into the integer that is stored.
// Missing, null, false and blank values count as 0; numeric strings are
// parsed; fractions are floored. Anything non-finite, negative or beyond the
// int64 range fails with ErrScoreInvalid.
func CoerceScore(raw any) (int64, error) {
	f, ok := coerceNumber(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, ErrScoreInvalid
	}
	f = math.Floor(f)
	if f >= scoreCeiling {
		return 0, ErrScoreInvalid
	}
	return int64(f), nil
}

func coerceNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case json.Number:
		return parseNumber(v.String())
	case string:
		return parseNumber(v)
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// decimalLiteral is the decimal form a numeric string may take once trimmed.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseNumber reads a numeric string the way loosely typed clients send it:
// surrounding whitespace is ignored, a blank string is 0, signed "Infinity"
// is infinite, and unsigned 0x/0o/0b prefixes select a radix. Anything else
// must be a plain decimal literal. Underflow parses to 0 and overflow to an
// infinity.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimFunc(s, isSpace)
	switch s {
	case "":
		return 0, true
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if base := radixPrefix(s); base != 0 {
		return parseRadix(s[2:], base)
	}
	if !decimalLiteral.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func radixPrefix(s string) int {
	if len(s) < 2 || s[0] != '0' {
		return 0
	}
	switch s[1] {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}
	return 0
}

// parseRadix reads unsigned digits in base; values past float64 become +Inf.
func parseRadix(digits string, base int) (float64, bool) {
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, false
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return 0, false
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f, true
}

// ParseLimit reads the raw ?limit= value. Missing or unparsable input
// yields 0, which ClampLimit maps to the default.
func ParseLimit(raw string) int {
	f, ok := parseNumber(raw)
	if !ok || math.IsNaN(f) {
		return 0
	}
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Floor(f))
}

// ClampLimit maps a requested leaderboard size onto [1, maxLimit]. Zero picks
// defaultLimit. Out-of-range requests are clamped, never rejected.
func ClampLimit(n, defaultLimit, maxLimit int) int {
	if maxLimit < minLimit {
		maxLimit = MaxLimit
	}
	if defaultLimit < minLimit || defaultLimit > maxLimit {
		defaultLimit = min(DefaultLimit, maxLimit)
	}
	switch {
	case n == 0:
		return defaultLimit
	case n < minLimit:
		return minLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}
