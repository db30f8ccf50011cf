package source

import "fmt"

// Span is a byte range [Start, End) in one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// In rebinds a span computed on bare text to a concrete file.
func (s Span) In(file FileID) Span {
	s.File = file
	return s
}
