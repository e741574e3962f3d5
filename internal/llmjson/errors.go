// Package llmjson recovers and normalizes JSON from chat-completion model
// output. Models routinely wrap JSON in prose or markdown fences and drift
// on field types, so extraction is layered and coercions are total.
package llmjson

import "fmt"

// snippetLen bounds how much of the offending text is carried in errors.
const snippetLen = 500

// ExtractionError reports that no recoverable JSON value was found in the
// model text. Snippet holds a truncated copy of the original text for
// diagnosing prompt/response drift.
type ExtractionError struct {
	Snippet string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("llmjson: no JSON value found in content: %q", e.Snippet)
}

// ValidationError reports a required field that is missing or has the wrong
// type after normalization.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("llmjson: field %q %s", e.Field, e.Reason)
}

func snippet(s string) string {
	if len(s) > snippetLen {
		return s[:snippetLen]
	}
	return s
}
