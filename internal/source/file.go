// Package source keeps the module texts seen during one composition and
// maps byte offsets back to lines for diagnostics.
package source

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// FileID identifies a module text within a FileSet.
type FileID uint32

// File is one module text after BOM and CRLF normalization.
type File struct {
	ID      FileID
	Path    string // id модуля (или имя файла), как его запросили у загрузчика
	Content []byte
	LineIdx []uint32 // смещения всех '\n'
	Hash    [32]byte
}

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}

// Position returns the line and column of byte offset off.
func (f *File) Position(off uint32) LineCol {
	// первая строка, чей '\n' не раньше off
	i := sort.Search(len(f.LineIdx), func(i int) bool { return f.LineIdx[i] >= off })
	if i == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}
	return LineCol{Line: toU32(i + 1), Col: off - f.LineIdx[i-1]}
}

// Line returns line n (1-based) without its newline, or "" past the end.
func (f *File) Line(n uint32) string {
	if n == 0 {
		return ""
	}
	lines := len(f.LineIdx)
	idx := int(n) - 1
	if idx > lines {
		return ""
	}
	start := 0
	if idx > 0 {
		start = int(f.LineIdx[idx-1]) + 1
	}
	end := len(f.Content)
	if idx < lines {
		end = int(f.LineIdx[idx])
	}
	if start > end || start > len(f.Content) {
		return ""
	}
	return string(f.Content[start:end])
}

func toU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source offset overflow: %w", err))
	}
	return v
}
