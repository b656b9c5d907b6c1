// File: internal/directive/parser.go
package directive

import (
	"regexp"
	"strconv"
	"strings"
)

// Parse turns one model response into a structured Action.
//
// The primary path treats the response as a call expression with literal-only
// arguments and never evaluates anything else; that restriction is a safety
// boundary, not a convenience. When the literal grammar rejects the text a
// chain of shape-specific fallbacks salvages what it can, because models
// routinely emit directives with unescaped quotes or raw newlines and a
// single malformed response must not kill the session. Only when every
// fallback is exhausted does Parse return a *ParseError carrying the
// original text.
func Parse(text string) (Action, error) {
	trimmed := strings.TrimSpace(text)
	// Control characters would otherwise terminate a quoted literal early;
	// the string lexer decodes them back so multi-line payloads round-trip.
	escaped := controlEscaper.Replace(trimmed)

	switch {
	case strings.HasPrefix(trimmed, `do(action="Type"`) ||
		strings.HasPrefix(trimmed, `do(action="Type_Name"`):
		call, err := parseLiteralCall(escaped)
		if err == nil {
			return doFromCall(call), nil
		}
		return typeTextFallback(trimmed)

	case strings.HasPrefix(trimmed, "do"):
		call, err := parseLiteralCall(escaped)
		if err == nil {
			return doFromCall(call), nil
		}
		return genericDoFallback(trimmed)

	case strings.HasPrefix(trimmed, "finish"):
		return parseFinish(trimmed, escaped)

	default:
		return Action{}, newParseError(text, "expected do(...) or finish(...)")
	}
}

var controlEscaper = strings.NewReplacer("\n", `\n`, "\r", `\r`, "\t", `\t`)

// doFromCall assembles a do action from a successfully parsed call. The
// action name travels as an ordinary keyword argument on the wire; a missing
// name yields an action the dispatcher will reject as unknown.
func doFromCall(call literalCall) Action {
	name, _ := call.kwargs["action"].(string)
	delete(call.kwargs, "action")
	return Do(Name(name), call.kwargs)
}

// typeTextFallback recovers the text payload of a Type/Type_Name directive
// whose literal parse failed, typically because the payload itself contains
// unescaped quotes. Everything between `text="` (or `text='`) and two
// characters before the end of the response (the assumed trailing quote and
// parenthesis) is taken byte-for-byte.
//
// Known fragility inherited from the wire protocol: a payload whose final
// characters are themselves a quote or parenthesis is truncated by the
// fixed two-character strip.
func typeTextFallback(trimmed string) (Action, error) {
	for _, marker := range []string{`text="`, `text='`} {
		idx := strings.Index(trimmed, marker)
		if idx < 0 {
			continue
		}
		start := idx + len(marker)
		end := len(trimmed) - 2
		if end < start {
			return Action{}, newParseError(trimmed, "Type directive too short after %q", marker)
		}
		return Do(ActionType, map[string]any{"text": trimmed[start:end]}), nil
	}
	return Action{}, newParseError(trimmed, "Type directive has no recoverable text argument")
}

var (
	reActionName = regexp.MustCompile(`action\s*=\s*["']([^"']+)["']`)
	reMessage    = regexp.MustCompile(`(?s)message\s*=\s*["'](.+)["']?\s*\)?$`)
	reElement    = regexp.MustCompile(`element\s*=\s*\[([^\]]+)\]`)
	reApp        = regexp.MustCompile(`app\s*=\s*["']([^"']+)["']`)
	reDuration   = regexp.MustCompile(`duration\s*=\s*["']([^"']+)["']`)
)

// genericDoFallback opportunistically extracts whatever parameters pattern
// matching can find and assembles a partial action from them. The action
// name is the one non-negotiable piece; without it there is nothing to
// dispatch.
func genericDoFallback(trimmed string) (Action, error) {
	nameMatch := reActionName.FindStringSubmatch(trimmed)
	if nameMatch == nil {
		return Action{}, newParseError(trimmed, "could not extract action name")
	}
	params := map[string]any{}

	if m := reMessage.FindStringSubmatch(trimmed); m != nil {
		msg := m[1]
		// The greedy match runs to the end of the response; peel off the
		// trailing quote and closing parenthesis it swallowed.
		switch {
		case strings.HasSuffix(msg, `")`) || strings.HasSuffix(msg, `')`):
			msg = msg[:len(msg)-2]
		case strings.HasSuffix(msg, `"`) || strings.HasSuffix(msg, `'`):
			msg = msg[:len(msg)-1]
		}
		params["message"] = msg
	}

	if m := reElement.FindStringSubmatch(trimmed); m != nil {
		parts := strings.Split(m[1], ",")
		element := make([]int, 0, len(parts))
		for _, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Action{}, newParseError(trimmed, "element list is not integral: %v", err)
			}
			element = append(element, n)
		}
		params["element"] = element
	}

	if m := reApp.FindStringSubmatch(trimmed); m != nil {
		params["app"] = m[1]
	}
	if m := reDuration.FindStringSubmatch(trimmed); m != nil {
		params["duration"] = m[1]
	}

	return Do(Name(nameMatch[1]), params), nil
}

// parseFinish handles the finish(...) form. The message may arrive as a
// keyword argument, a positional string, or not at all; a finish with no
// recoverable message still finishes, with a default.
func parseFinish(trimmed, escaped string) (Action, error) {
	call, err := parseLiteralCall(escaped)
	if err == nil {
		if msg, ok := call.kwargs["message"].(string); ok {
			return Finish(msg), nil
		}
		for _, arg := range call.positional {
			if msg, ok := arg.(string); ok {
				return Finish(msg), nil
			}
		}
	}

	for _, quote := range []byte{'"', '\''} {
		marker := "message=" + string(quote)
		idx := strings.Index(trimmed, marker)
		if idx < 0 {
			continue
		}
		start := idx + len(marker)
		end := strings.LastIndexByte(trimmed, quote)
		if end > start {
			return Finish(trimmed[start:end]), nil
		}
	}

	if err != nil {
		// Malformed call with no quoted message: treat the raw argument
		// text as the message rather than dropping the response.
		msg := strings.ReplaceAll(trimmed, "finish(", "")
		msg = strings.TrimRight(msg, ")")
		return Finish(msg), nil
	}
	return Finish("Task completed"), nil
}
