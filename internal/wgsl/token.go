// Package wgsl is a small, lexical view of WGSL source: enough to find
// top-level declarations, the identifiers they reference, and struct
// members. It is not a validating parser.
package wgsl

import (
	"fmt"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/source"
)

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	Ident
	Number
	Punct
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "ident"
	case Number:
		return "number"
	case Punct:
		return "punct"
	default:
		return "unknown"
	}
}

// Token is a significant token; comments and whitespace are dropped.
type Token struct {
	Kind  Kind
	Text  string
	Start uint32
	End   uint32
}

func (t Token) Is(text string) bool {
	return t.Kind == Punct && t.Text == text
}

func (t Token) Span() source.Span {
	return source.Span{Start: t.Start, End: t.End}
}

// Error reports a lexical or structural problem with a span into the scanned text.
type Error struct {
	Code diag.Code
	Span source.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Start, e.Span.End, e.Msg)
}

func spanOf(start, end int) source.Span {
	return source.Span{Start: uint32(start), End: uint32(end)}
}
