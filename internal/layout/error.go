package layout

import (
	"fmt"
	"strings"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursive indicates a struct that contains itself.
	LayoutErrRecursive LayoutErrorKind = iota + 1
	LayoutErrUnknownType
	LayoutErrBadLength
	LayoutErrRuntimeArrayPosition
	LayoutErrRuntimeArrayInUniform
	LayoutErrBadAttribute
	LayoutErrSyntax
)

// LayoutError represents an error during layout calculation.
type LayoutError struct {
	Kind   LayoutErrorKind
	Type   string   // тип или структура, где обнаружена ошибка
	Member string   // имя поля, если применимо
	Cycle  []string // for LayoutErrRecursive
	Detail string
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.Type
	if e.Member != "" {
		where += "." + e.Member
	}
	switch e.Kind {
	case LayoutErrRecursive:
		return fmt.Sprintf("recursive struct has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrUnknownType:
		return fmt.Sprintf("%s: unknown type %s", where, e.Detail)
	case LayoutErrBadLength:
		return fmt.Sprintf("%s: invalid array length %s", where, e.Detail)
	case LayoutErrRuntimeArrayPosition:
		return fmt.Sprintf("%s: runtime-sized array must be the last member", where)
	case LayoutErrRuntimeArrayInUniform:
		return fmt.Sprintf("%s: runtime-sized array is not allowed in the uniform address space", where)
	case LayoutErrBadAttribute:
		return fmt.Sprintf("%s: %s", where, e.Detail)
	case LayoutErrSyntax:
		return fmt.Sprintf("%s: cannot parse type: %s", where, e.Detail)
	default:
		return fmt.Sprintf("layout error kind=%d (%s)", e.Kind, where)
	}
}
