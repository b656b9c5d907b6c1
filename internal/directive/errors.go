// File: internal/directive/errors.go
package directive

import "fmt"

// ParseError reports that no recognized call form could be extracted from a
// model response. It retains the complete raw text so callers can log the
// offending directive verbatim; losing the raw text on failure makes these
// bugs impossible to diagnose after the fact.
type ParseError struct {
	Raw    string // The original, unmodified response text.
	Reason string // Why every recognizer rejected it.
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 120 {
		raw = raw[:120] + "..."
	}
	return fmt.Sprintf("parse directive: %s: %q", e.Reason, raw)
}

func newParseError(raw, format string, args ...any) *ParseError {
	return &ParseError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
}
