package compose

import (
	"errors"
	"fmt"
	"strings"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/source"
)

// Sentinels for errors.Is. Every *Error matches exactly one of them or, for
// malformed WGSL, none.
var (
	ErrModuleNotFound = errors.New("module not found")
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrCyclicImport   = errors.New("cyclic import")
	ErrNameCollision  = errors.New("name collision")
	ErrBadDirective   = errors.New("bad directive")
)

// Error is a resolution failure. Span points into File, the module whose
// text triggered the failure.
type Error struct {
	Code   diag.Code
	Module string   // модуль, в котором обнаружена проблема
	Target string   // импортируемый модуль, если есть
	Symbol string   // имя символа, если есть
	Chain  []string // цепочка импортов от entry до Module (для циклов включает повтор)
	Span   source.Span
	File   *source.File
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Module != "" {
		sb.WriteString(e.Module)
		if e.File != nil && !e.Span.Empty() {
			start := e.File.Position(e.Span.Start)
			fmt.Fprintf(&sb, ":%d:%d", start.Line, start.Col)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	sentinel := sentinelFor(e.Code)
	return sentinel != nil && sentinel == target
}

// Diagnostic converts e for rendering by diagfmt.
func (e *Error) Diagnostic() diag.Diagnostic {
	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	d := diag.NewError(e.Code, e.primary(), msg)
	if len(e.Chain) > 1 {
		d = d.WithNote(source.Span{}, "import chain: "+strings.Join(e.Chain, " -> "))
	}
	return d
}

func (e *Error) primary() source.Span {
	if e.File == nil {
		return e.Span
	}
	return e.Span.In(e.File.ID)
}

func sentinelFor(code diag.Code) error {
	switch code {
	case diag.ResModuleNotFound:
		return ErrModuleNotFound
	case diag.ResSymbolNotFound:
		return ErrSymbolNotFound
	case diag.ResCyclicImport:
		return ErrCyclicImport
	case diag.ResNameCollision, diag.WgslDuplicateDecl:
		return ErrNameCollision
	case diag.DirMalformedImport, diag.DirExpectAlias, diag.DirExpectSymbols, diag.DirBadImportPath:
		return ErrBadDirective
	default:
		return nil
	}
}
