package values

import "fmt"

// Parse reconstructs a Value from its canonical textual encoding. It is
// the inverse of Value.WriteCanonical for every concrete type this
// package defines.
func Parse(data []byte) (Value, error) {
	p := &parser{data: data}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.data) {
		return nil, fmt.Errorf("unexpected trailing data at offset %d", p.pos)
	}
	return v, nil
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.data) && (p.data[p.pos] == ' ' || p.data[p.pos] == '\n' || p.data[p.pos] == '\t' || p.data[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.data) {
		return 0, false
	}
	return p.data[p.pos], true
}

func (p *parser) parseValue() (Value, error) {
	b, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch {
	case b == '[':
		return p.parseCatalog()
	case b == '#':
		return p.parseDelimited(isTagChar, ParseTagAdapter)
	case b == 'v':
		return p.parseVersionToken()
	case b == '<':
		return p.parseBracketed('<', '>', func(s string) (Value, error) { return ParseMoment(s) })
	case b == '\'':
		return p.parseQuotedLike('\'', func(s string) (Value, error) { return ParseBinary(s) })
	case b == '"':
		return p.parseQuotedLike('"', func(s string) (Value, error) { return ParseQuote(s) })
	case b == '/':
		return p.parseDelimited(isNameChar, func(s string) (Value, error) { return ParseName(s) })
	case b == 'n':
		return p.parseNone()
	default:
		return nil, fmt.Errorf("unrecognized value starting with %q at offset %d", b, p.pos)
	}
}

func (p *parser) parseNone() (Value, error) {
	const lit = "none"
	if p.pos+len(lit) > len(p.data) || string(p.data[p.pos:p.pos+len(lit)]) != lit {
		return nil, fmt.Errorf("expected 'none' at offset %d", p.pos)
	}
	p.pos += len(lit)
	return NONE, nil
}

func isTagChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func isNameChar(b byte) bool {
	return isTagChar(b) || b == '/' || b == '_' || b == '-' || b == '.'
}

func isVersionChar(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.'
}

// parseDelimited consumes a leading marker byte already confirmed by
// peek, then a run of chars satisfying pred, and hands the full token
// (including the marker) to parse.
func (p *parser) parseDelimited(pred func(byte) bool, parse func(string) (Value, error)) (Value, error) {
	start := p.pos
	p.pos++ // marker byte
	for p.pos < len(p.data) && pred(p.data[p.pos]) {
		p.pos++
	}
	return parse(string(p.data[start:p.pos]))
}

func (p *parser) parseVersionToken() (Value, error) {
	start := p.pos
	p.pos++ // 'v'
	for p.pos < len(p.data) && isVersionChar(p.data[p.pos]) {
		p.pos++
	}
	return ParseVersion(string(p.data[start:p.pos]))
}

func (p *parser) parseBracketed(open, close byte, parse func(string) (Value, error)) (Value, error) {
	start := p.pos
	if p.data[p.pos] != open {
		return nil, fmt.Errorf("expected %q at offset %d", open, p.pos)
	}
	p.pos++
	for p.pos < len(p.data) && p.data[p.pos] != close {
		p.pos++
	}
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unterminated value starting at offset %d", start)
	}
	p.pos++ // consume close
	return parse(string(p.data[start:p.pos]))
}

func (p *parser) parseQuotedLike(quote byte, parse func(string) (Value, error)) (Value, error) {
	return p.parseBracketed(quote, quote, parse)
}

// ParseTagAdapter adapts ParseTag to the Value-returning signature the
// generic delimited-token parser expects.
func ParseTagAdapter(s string) (Value, error) {
	return ParseTag(s)
}

func (p *parser) parseKey() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= len(p.data) {
		return "", fmt.Errorf("unterminated key starting at offset %d", start)
	}
	key := string(p.data[start:p.pos])
	p.pos++ // consume ':'
	return key, nil
}

func (p *parser) parseCatalog() (Value, error) {
	if b, _ := p.peek(); b != '[' {
		return nil, fmt.Errorf("expected '[' at offset %d", p.pos)
	}
	p.pos++
	cat := NewCatalog()
	if b, ok := p.peek(); ok && b == ']' {
		p.pos++
	} else {
		for {
			key, err := p.parseKey()
			if err != nil {
				return nil, err
			}
			val, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			cat.Set(key, val)
			b, ok := p.peek()
			if !ok {
				return nil, fmt.Errorf("unterminated catalog at offset %d", p.pos)
			}
			if b == ',' {
				p.pos++
				continue
			}
			if b == ']' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
		}
	}

	if b, ok := p.peek(); ok && b == '(' {
		p.pos++
		params := NewCatalog()
		if b, ok := p.peek(); ok && b == ')' {
			p.pos++
		} else {
			for {
				key, err := p.parseKey()
				if err != nil {
					return nil, err
				}
				val, err := p.parseValue()
				if err != nil {
					return nil, err
				}
				params.Set(key, val)
				b, ok := p.peek()
				if !ok {
					return nil, fmt.Errorf("unterminated parameter list at offset %d", p.pos)
				}
				if b == ',' {
					p.pos++
					continue
				}
				if b == ')' {
					p.pos++
					break
				}
				return nil, fmt.Errorf("expected ',' or ')' at offset %d", p.pos)
			}
		}
		cat.params = params
	}

	return cat, nil
}
