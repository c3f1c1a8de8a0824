package jsonparam

import "unicode/utf8"

// eof is returned by cursor.read once the input is exhausted.
const eof rune = -1

// cursor is a single-pass reader over an immutable body with one rune of
// pushback. Offsets are byte offsets into buf.
type cursor struct {
	buf  string
	off  int
	last int // width of the last rune read; 0 after EOF or unread
}

func newCursor(buf string) *cursor {
	return &cursor{buf: buf}
}

// read returns the next rune, or eof without advancing.
func (c *cursor) read() rune {
	if c.off >= len(c.buf) {
		c.last = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(c.buf[c.off:])
	c.off += w
	c.last = w
	return r
}

// unread pushes back the rune returned by the previous read. A second
// unread, or an unread after eof, does nothing.
func (c *cursor) unread() {
	c.off -= c.last
	c.last = 0
}

// skipWhitespaceAndRead reads past spaces, tabs, CR and LF and returns the
// first other rune.
func (c *cursor) skipWhitespaceAndRead() rune {
	for {
		switch r := c.read(); r {
		case ' ', '\t', '\r', '\n':
		default:
			return r
		}
	}
}

// pos is the offset of the next byte to be read.
func (c *cursor) pos() int {
	return c.off
}

// mark is the offset of the rune returned by the last read, or len(buf)
// when that read hit eof.
func (c *cursor) mark() int {
	return c.off - c.last
}
