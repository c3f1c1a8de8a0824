// Package jsonparam finds the injectable scalars in a JSON request body and
// records the exact byte span each one was read from, so a scanner can
// overwrite that span with a payload and leave every other byte intact.
//
// The parser is hand written: a decoder that builds a value tree would drop
// the offsets. It walks the body once, left to right, with a single rune of
// pushback, and is lenient in the same places real-world clients are sloppy:
//
//	{}          no params, no error
//	[1,2]       @items[0], @items[1]
//	"abc"       @items (bare top-level string)
//	{"a":1} x   trailing text after the closing brace is ignored
//	[1,]        trailing comma in an array is accepted
//
// A body that opens an object with '{' must close it; hitting the end of
// input there is an error. Booleans are consumed but never reported.
package jsonparam

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/waftester/jsonparams/pkg/jsonutil"
)

type state int

const (
	stateInit state = iota
	stateExpectStart
	stateExpectField
	stateExpectValue
	stateAfterValue
)

// Extract returns the params of body in document order. When scanNulls is
// set, explicit null literals are reported as empty Null params.
//
// Any deviation from the grammar aborts the parse and returns a
// *SyntaxError; no partial result is returned with it.
func Extract(body string, scanNulls bool) ([]Param, error) {
	if strings.TrimLeft(body, " \t\r\n") == "" {
		return []Param{}, nil
	}
	p := &parser{
		body:      body,
		cur:       newCursor(body),
		scanNulls: scanNulls,
		params:    make([]Param, 0, 8),
	}
	if err := p.parseObject(stateInit, ""); err != nil {
		return nil, err
	}
	return p.params, nil
}

type parser struct {
	body      string
	cur       *cursor
	scanNulls bool
	params    []Param
}

func (p *parser) fail(kind Kind, offset int, format string, args ...any) error {
	return &SyntaxError{Kind: kind, Msg: fmt.Sprintf(format, args...), Offset: offset}
}

// parseObject runs the object state machine. prefix is the path of the
// enclosing value, empty at the top level.
func (p *parser) parseObject(st state, prefix string) error {
	var (
		opened bool
		field  string
		named  bool
	)
	for {
		switch st {
		case stateInit:
			r := p.cur.skipWhitespaceAndRead()
			p.cur.unread()
			if r == '{' {
				st = stateExpectStart
			} else {
				st = stateExpectValue
			}

		case stateExpectStart:
			switch r := p.cur.skipWhitespaceAndRead(); r {
			case '{':
				opened = true
				if p.cur.skipWhitespaceAndRead() == '}' {
					return nil
				}
				p.cur.unread()
				st = stateExpectField
			case '[':
				p.cur.unread()
				st = stateExpectValue
			default:
				return p.fail(KindUnexpectedStart, p.cur.mark(), "expected '{' or '[' but found %s", describe(r))
			}

		case stateExpectField:
			r := p.cur.skipWhitespaceAndRead()
			if r == eof {
				return p.fail(KindUnterminated, p.cur.mark(), "EOF reached while expecting a field name")
			}
			if r != '"' {
				return p.fail(KindInvalidFieldName, p.cur.mark(), "expected '\"' to start a field name but found %s", describe(r))
			}
			begin := p.cur.pos()
			if err := p.readEscapedString(); err != nil {
				return err
			}
			field = p.body[begin : p.cur.pos()-1]
			named = true
			if r := p.cur.skipWhitespaceAndRead(); r != ':' {
				return p.fail(KindMissingSeparator, p.cur.mark(), "expected ':' after field %q but found %s", field, describe(r))
			}
			st = stateExpectValue

		case stateExpectValue:
			name := prefix
			switch {
			case named:
				name = qualify(prefix, field)
			case prefix == "":
				name = ItemsName
			}
			if err := p.parseValue(name); err != nil {
				return err
			}
			st = stateAfterValue

		case stateAfterValue:
			switch r := p.cur.skipWhitespaceAndRead(); r {
			case eof:
				if opened {
					return p.fail(KindUnterminated, p.cur.mark(), "EOF reached before closing '}'")
				}
				return nil
			case '}':
				return nil
			case ',':
				st = stateExpectField
			default:
				return p.fail(KindUnexpectedTerminator, p.cur.mark(), "object not ended with '}' but found %s", describe(r))
			}
		}
	}
}

func (p *parser) parseValue(name string) error {
	r := p.cur.skipWhitespaceAndRead()
	switch {
	case r == '"':
		begin := p.cur.pos()
		if err := p.readEscapedString(); err != nil {
			return err
		}
		end := p.cur.pos() - 1
		raw := p.body[begin:end]
		p.emit(Param{Name: name, Value: unescape(raw), Begin: begin, End: end})

	case r == '-' || isDigit(r):
		p.cur.unread()
		begin := p.cur.pos()
		for {
			c := p.cur.read()
			if c == eof {
				return p.fail(KindUnterminated, p.cur.mark(), "reached EOF while reading number for field %q", name)
			}
			if !isNumberRune(c) {
				p.cur.unread()
				break
			}
		}
		end := p.cur.pos()
		p.emit(Param{Name: name, Value: p.body[begin:end], Begin: begin, End: end, Numeric: true})

	case r == '{':
		p.cur.unread()
		return p.parseObject(stateExpectStart, name)

	case r == '[':
		return p.parseArray(name)

	case r == ']':
		// empty array
		p.cur.unread()

	case r == '}':
		return p.fail(KindUnexpectedTerminator, p.cur.mark(), "unexpected '}' where a value was expected for field %q", name)

	case r == 't' || r == 'T':
		return p.parseToken("true")

	case r == 'f' || r == 'F':
		return p.parseToken("false")

	case r == 'n' || r == 'N':
		begin := p.cur.mark()
		if err := p.parseToken("null"); err != nil {
			return err
		}
		if p.scanNulls {
			p.emit(Param{Name: name, Null: true, Begin: begin, End: begin + len("null"), Numeric: true})
		}

	case r == eof:
		return p.fail(KindUnterminated, p.cur.mark(), "EOF reached while expecting a value for field %q", name)

	default:
		return p.fail(KindUnknownValue, p.cur.mark(), "unknown value type %s for field %q", describe(r), name)
	}
	return nil
}

// parseArray reads the elements after an opening '['.
func (p *parser) parseArray(name string) error {
	for i := 0; ; i++ {
		if err := p.parseValue(indexName(name, i)); err != nil {
			return err
		}
		switch r := p.cur.skipWhitespaceAndRead(); r {
		case ']':
			return nil
		case ',':
		case eof:
			return p.fail(KindUnterminated, p.cur.mark(), "EOF reached before closing ']' of %q", name)
		default:
			return p.fail(KindUnexpectedTerminator, p.cur.mark(), "array %q not ended with ']' but found %s", name, describe(r))
		}
	}
}

// parseToken matches the rest of a keyword whose first rune was just read.
func (p *parser) parseToken(token string) error {
	for i := 1; i < len(token); i++ {
		r := p.cur.read()
		if r == eof {
			return p.fail(KindUnterminated, p.cur.mark(), "EOF reached while reading token %q", token)
		}
		if unicode.ToLower(r) != rune(token[i]) {
			return p.fail(KindInvalidToken, p.cur.mark(), "expected token %q but found %s", token, describe(r))
		}
	}
	return nil
}

// readEscapedString consumes up to and including the closing quote of a
// string whose opening quote was just read.
func (p *parser) readEscapedString() error {
	begin := p.cur.mark()
	for {
		switch p.cur.read() {
		case eof:
			return p.fail(KindUnterminated, p.cur.mark(), "EOF reached in string starting at offset %d", begin)
		case '\\':
			if p.cur.read() == eof {
				return p.fail(KindUnterminated, p.cur.mark(), "EOF reached in escape sequence of string starting at offset %d", begin)
			}
		case '"':
			return nil
		}
	}
}

func (p *parser) emit(param Param) {
	p.params = append(p.params, param)
}

// unescape decodes a raw string token. Tokens the JSON decoder rejects
// (bad escapes, raw control characters) are decoded one escape at a time
// by unescapeLenient.
func unescape(raw string) string {
	if !strings.ContainsRune(raw, '\\') {
		return raw
	}
	if v, err := jsonutil.Unquote(raw); err == nil {
		return v
	}
	return unescapeLenient(raw)
}

// unescapeLenient resolves each backslash escape on its own. Unknown
// escapes such as \' or \q yield the escaped character, and a \u not
// followed by four hex digits yields a plain 'u'. Everything else is
// copied through.
func unescapeLenient(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			r, n := unicodeEscape(raw[i+1:])
			if n == 0 {
				b.WriteByte('u')
				continue
			}
			b.WriteRune(r)
			i += n
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

// unicodeEscape reads the XXXX of a \uXXXX escape, joining a following
// low surrogate escape when s starts with a high surrogate. n is the
// number of bytes consumed, 0 when s does not start with four hex digits.
func unicodeEscape(s string) (r rune, n int) {
	r, ok := hex4(s)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(r) && len(s) >= 10 && s[4] == '\\' && s[5] == 'u' {
		if lo, ok := hex4(s[6:]); ok {
			if joined := utf16.DecodeRune(r, lo); joined != utf8.RuneError {
				return joined, 10
			}
		}
	}
	return r, 4
}

func hex4(s string) (rune, bool) {
	if len(s) < 4 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNumberRune(r rune) bool {
	switch r {
	case '.', 'e', 'E', '+', '-':
		return true
	}
	return isDigit(r)
}
