package llmjson

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Extract pulls a JSON value out of arbitrary model text. Strategies are
// tried in order, first success wins:
//
//  1. parse the whole string directly
//  2. strip a surrounding markdown code fence (optionally tagged "json")
//     and parse again
//  3. scan for the first balanced {...} object, ignoring braces inside
//     string literals, and parse that substring
//
// Returns *ExtractionError when none succeed.
func Extract(text string) (any, error) {
	if v, err := parse(text); err == nil {
		return v, nil
	}

	stripped := stripFence(text)
	if v, err := parse(stripped); err == nil {
		return v, nil
	}

	if candidate, ok := firstObject(stripped); ok {
		v, err := parse(candidate)
		if err == nil {
			return v, nil
		}
		// A balanced candidate that still fails to parse is not worth
		// further scanning; report and give up.
		zap.L().Error("llmjson: balanced candidate failed to parse",
			zap.String("candidate", snippet(candidate)),
		)
		return nil, &ExtractionError{Snippet: snippet(text)}
	}

	zap.L().Error("llmjson: no JSON found in content",
		zap.String("content", snippet(text)),
	)
	return nil, &ExtractionError{Snippet: snippet(text)}
}

func parse(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// stripFence removes a leading ``` or ```json marker and the matching
// trailing fence, if present.
func stripFence(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	} else {
		return text
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// firstObject returns the first balanced top-level JSON object in text.
// The walk tracks string literals and escape sequences so braces inside
// string values do not affect the depth counter.
func firstObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case ch == '\\':
				esc = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
