package wgsl

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"wgslcompose/internal/diag"
)

type cursor struct {
	src string
	off int
}

func (c *cursor) eof() bool { return c.off >= len(c.src) }

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

func (c *cursor) peekAt(n int) byte {
	if c.off+n >= len(c.src) {
		return 0
	}
	return c.src[c.off+n]
}

// Tokenize splits src into significant tokens. Line comments and nested
// block comments are skipped; an unterminated block comment is an error.
func Tokenize(src string) ([]Token, error) {
	if _, err := safecast.Conv[uint32](len(src)); err != nil {
		return nil, fmt.Errorf("source too large: %w", err)
	}
	c := cursor{src: src}
	toks := make([]Token, 0, len(src)/4)
	for {
		if err := c.skipTrivia(); err != nil {
			return nil, err
		}
		if c.eof() {
			return toks, nil
		}
		start := c.off
		ch := c.peek()
		var kind Kind
		switch {
		case isIdentStart(&c):
			kind = Ident
			c.scanIdent()
		case isDigit(ch) || (ch == '.' && isDigit(c.peekAt(1))):
			kind = Number
			c.scanNumber()
		default:
			kind = Punct
			c.scanPunct()
		}
		toks = append(toks, Token{
			Kind:  kind,
			Text:  src[start:c.off],
			Start: uint32(start),
			End:   uint32(c.off),
		})
	}
}

func (c *cursor) skipTrivia() error {
	for !c.eof() {
		ch := c.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f':
			c.off++
		case ch == '/' && c.peekAt(1) == '/':
			for !c.eof() && c.peek() != '\n' {
				c.off++
			}
		case ch == '/' && c.peekAt(1) == '*':
			start := c.off
			c.off += 2
			depth := 1
			for depth > 0 {
				if c.eof() {
					return &Error{
						Code: diag.WgslUnclosedComment,
						Span: spanOf(start, start+2),
						Msg:  "unterminated block comment",
					}
				}
				switch {
				case c.peek() == '/' && c.peekAt(1) == '*':
					depth++
					c.off += 2
				case c.peek() == '*' && c.peekAt(1) == '/':
					depth--
					c.off += 2
				default:
					c.off++
				}
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(c *cursor) bool {
	ch := c.peek()
	if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
		return true
	}
	if ch < utf8.RuneSelf {
		return false
	}
	r, _ := utf8.DecodeRuneInString(c.src[c.off:])
	return unicode.IsLetter(r)
}

func (c *cursor) scanIdent() {
	for !c.eof() {
		ch := c.peek()
		if ch == '_' || isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			c.off++
			continue
		}
		if ch < utf8.RuneSelf {
			return
		}
		r, size := utf8.DecodeRuneInString(c.src[c.off:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			return
		}
		c.off += size
	}
}

// scanNumber консервативно съедает литерал: 0x1p-3, 1e+5, 1.5f, 3u.
func (c *cursor) scanNumber() {
	start := c.off
	hex := c.peek() == '0' && (c.peekAt(1) == 'x' || c.peekAt(1) == 'X')
	for !c.eof() {
		ch := c.peek()
		switch {
		case isDigit(ch) || ch == '.' || ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
			c.off++
		case (ch == '+' || ch == '-') && c.off > start && isExponent(c.src[c.off-1], hex):
			c.off++
		default:
			return
		}
	}
}

func (c *cursor) scanPunct() {
	ch := c.peek()
	next := c.peekAt(1)
	switch {
	case ch == ':' && next == ':':
		c.off += 2
	case ch == '-' && next == '>':
		c.off += 2
	default:
		_, size := utf8.DecodeRuneInString(c.src[c.off:])
		c.off += size
	}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isExponent(ch byte, hex bool) bool {
	if hex {
		return ch == 'p' || ch == 'P'
	}
	return ch == 'e' || ch == 'E'
}
