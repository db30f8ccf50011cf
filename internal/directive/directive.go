// Package directive parses the line-oriented preprocessor directives of a
// shader module: `#import` in its alias and selective forms, and
// `#define_import_path`.
package directive

import (
	"fmt"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/source"
)

// Kind distinguishes the two import forms.
type Kind uint8

const (
	// KindAlias is `#import "path" as alias`: the whole module under one name.
	KindAlias Kind = iota + 1
	// KindSelective is `#import path::{A, B}`: named symbols, unqualified.
	KindSelective
)

func (k Kind) String() string {
	switch k {
	case KindAlias:
		return "alias"
	case KindSelective:
		return "selective"
	default:
		return "unknown"
	}
}

// Symbol is one name requested by a selective import.
type Symbol struct {
	Name string
	Span source.Span
}

// Import is a single parsed `#import` line.
type Import struct {
	Kind     Kind
	Path     string // ссылка на модуль как написано, без кавычек
	Alias    string // только для KindAlias
	Symbols  []Symbol
	Line     uint32      // 1-based
	Span     source.Span // вся строка директивы (без '\n')
	PathSpan source.Span
}

// File is a module split into its directives and its remaining body.
type File struct {
	Imports    []Import
	DefinePath string
	Body       string
	segments   []segment
}

// segment maps a run of Body bytes back to the original content.
type segment struct {
	body uint32
	src  uint32
	n    uint32
}

// Origin maps an offset in Body back to an offset in the original content.
func (f *File) Origin(bodyOff uint32) uint32 {
	for i := len(f.segments) - 1; i >= 0; i-- {
		seg := f.segments[i]
		if bodyOff >= seg.body {
			return seg.src + (bodyOff - seg.body)
		}
	}
	return bodyOff
}

// HasDirectives reports whether any directive line was removed from Body.
func (f *File) HasDirectives() bool {
	return len(f.Imports) > 0 || f.DefinePath != ""
}

// Error describes a malformed directive line.
type Error struct {
	Code diag.Code
	Span source.Span
	Line uint32
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}
