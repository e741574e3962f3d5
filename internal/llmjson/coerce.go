package llmjson

import (
	"math"
	"strconv"
	"strings"
)

// defaultConfidence is used when a confidence value cannot be parsed.
const defaultConfidence = 0.7

// Bool coerces any JSON value to a bool. Numbers are truthy when non-zero;
// strings are truthy for "true", "yes", "y" and "1" (case-insensitive,
// trimmed). Everything else is false.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	default:
		return false
	}
}

// IntInRange coerces v to an integer clamped to [lo, hi]. Values are parsed
// as floats and rounded to the nearest integer; anything non-numeric or
// non-finite defaults to lo.
func IntInRange(v any, lo, hi int) int {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return lo
	}
	n := int(math.Round(f))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Confidence coerces v to a confidence in [0, 1]. Values in (1, 100] are
// treated as percentages and divided by 100; out-of-range values are
// clamped. Unparseable input defaults to 0.7.
func Confidence(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultConfidence
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Str returns v as a string, or "" when it is not one.
func Str(v any) string {
	s, _ := v.(string)
	return s
}

// StrSlice coerces v to a list of strings, skipping non-string elements.
// Missing or non-array input yields an empty slice, never nil panics.
func StrSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, el := range arr {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Items resolves the envelope shapes a collection result may arrive in:
// a bare array, an object keyed "items", or an object keyed by one of the
// caller's stage-specific synonyms. Keys are checked in the order given,
// after "items". No match yields an empty list.
func Items(v any, keys ...string) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return []any{}
	}
	for _, key := range append([]string{"items"}, keys...) {
		if arr, ok := obj[key].([]any); ok {
			return arr
		}
	}
	return []any{}
}

// RequiredString returns the named field of obj as a string, or a
// *ValidationError when the field is missing, empty or not a string.
// Required string fields carry the semantic content of a response, so
// unlike numeric fields they are never defaulted.
func RequiredString(obj map[string]any, field string) (string, error) {
	v, ok := obj[field]
	if !ok {
		return "", &ValidationError{Field: field, Reason: "is missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: field, Reason: "is not a string"}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: field, Reason: "is empty"}
	}
	return s, nil
}

// Object returns v as a JSON object, or a *ValidationError naming the
// enclosing context when it is not one.
func Object(v any, context string) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ValidationError{Field: context, Reason: "is not a JSON object"}
	}
	return obj, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
