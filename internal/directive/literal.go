// File: internal/directive/literal.go
package directive

import (
	"fmt"
	"strconv"
	"strings"
)

// literalCall is the result of parsing the fixed call-argument shape
// `ident '(' [arg {',' arg}] ')'` where every argument value is a literal:
// a quoted string, an integer, or a list of integers. Identifiers, nested
// calls, arithmetic, or any other expression are rejected outright so that
// model output is never evaluated.
type literalCall struct {
	name       string
	kwargs     map[string]any
	positional []any
}

type literalParser struct {
	src string
	pos int
}

// parseLiteralCall parses src as a single literal-only call expression.
// Trailing content after the closing parenthesis is an error.
func parseLiteralCall(src string) (literalCall, error) {
	p := &literalParser{src: src}
	call := literalCall{kwargs: map[string]any{}}

	p.skipSpace()
	name, err := p.ident()
	if err != nil {
		return call, err
	}
	call.name = name

	if err := p.expect('('); err != nil {
		return call, err
	}

	p.skipSpace()
	for !p.peekIs(')') {
		key, value, err := p.arg()
		if err != nil {
			return call, err
		}
		if key != "" {
			call.kwargs[key] = value
		} else {
			call.positional = append(call.positional, value)
		}

		p.skipSpace()
		if p.peekIs(',') {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if err := p.expect(')'); err != nil {
		return call, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return call, fmt.Errorf("trailing content at offset %d", p.pos)
	}
	return call, nil
}

// arg parses either `ident = literal` or a bare positional literal.
func (p *literalParser) arg() (string, any, error) {
	if isIdentStart(p.peek()) {
		save := p.pos
		key, err := p.ident()
		if err == nil {
			p.skipSpace()
			if p.peekIs('=') {
				p.pos++
				p.skipSpace()
				value, err := p.literal()
				return key, value, err
			}
		}
		// A bare identifier is not a literal; reject rather than guess.
		p.pos = save
		return "", nil, fmt.Errorf("non-literal argument at offset %d", p.pos)
	}
	value, err := p.literal()
	return "", value, err
}

func (p *literalParser) literal() (any, error) {
	switch c := p.peek(); {
	case c == '"' || c == '\'':
		return p.stringLit()
	case c == '-' || isDigit(c):
		return p.intLit()
	case c == '[':
		return p.listLit()
	default:
		return nil, fmt.Errorf("expected literal at offset %d", p.pos)
	}
}

// stringLit reads a quoted string, decoding the escape sequences the
// pre-parse pass introduced so payload bytes round-trip exactly.
func (p *literalParser) stringLit() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			if p.pos+1 >= len(p.src) {
				return "", fmt.Errorf("dangling escape at offset %d", p.pos)
			}
			switch esc := p.src[p.pos+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				// Unknown escape: keep both bytes untouched.
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			p.pos += 2
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string starting with %q", string(quote))
}

func (p *literalParser) intLit() (int, error) {
	start := p.pos
	if p.peekIs('-') {
		p.pos++
	}
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		return 0, fmt.Errorf("non-integer number at offset %d", start)
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, fmt.Errorf("bad integer at offset %d: %w", start, err)
	}
	return n, nil
}

func (p *literalParser) listLit() ([]int, error) {
	p.pos++ // consume '['
	list := []int{}
	p.skipSpace()
	for !p.peekIs(']') {
		c := p.peek()
		if c != '-' && !isDigit(c) {
			return nil, fmt.Errorf("list elements must be integers (offset %d)", p.pos)
		}
		n, err := p.intLit()
		if err != nil {
			return nil, err
		}
		list = append(list, n)
		p.skipSpace()
		if p.peekIs(',') {
			p.pos++
			p.skipSpace()
			continue
		}
		break
	}
	if err := p.expect(']'); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *literalParser) ident() (string, error) {
	start := p.pos
	if !isIdentStart(p.peek()) {
		return "", fmt.Errorf("expected identifier at offset %d", p.pos)
	}
	p.pos++
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], nil
}

func (p *literalParser) expect(c byte) error {
	if !p.peekIs(c) {
		return fmt.Errorf("expected %q at offset %d", string(c), p.pos)
	}
	p.pos++
	return nil
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) peekIs(c byte) bool { return p.peek() == c }

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
