package source

import (
	"bytes"
	"crypto/sha256"
)

// FileSet owns the module texts of one composition. A module loaded
// twice gets two ids.
type FileSet struct {
	files []File
}

func NewFileSet() *FileSet {
	return &FileSet{}
}

// Len reports how many texts were added.
func (s *FileSet) Len() int {
	return len(s.files)
}

// Add normalizes content, indexes its lines and hashes it.
func (s *FileSet) Add(path string, content []byte) FileID {
	content = Normalize(content)
	id := FileID(toU32(len(s.files)))
	s.files = append(s.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: lineIndex(content),
		Hash:    sha256.Sum256(content),
	})
	return id
}

// Get returns the file with id, or nil when the id is unknown.
func (s *FileSet) Get(id FileID) *File {
	if int(id) >= len(s.files) {
		return nil
	}
	return &s.files[id]
}

var (
	bom  = []byte{0xEF, 0xBB, 0xBF}
	crlf = []byte("\r\n")
)

// Normalize strips a UTF-8 BOM and turns CRLF into LF. Lone CR stays.
func Normalize(content []byte) []byte {
	content = bytes.TrimPrefix(content, bom)
	if bytes.Contains(content, crlf) {
		content = bytes.ReplaceAll(content, crlf, []byte("\n"))
	}
	return content
}

func lineIndex(content []byte) []uint32 {
	var out []uint32
	for i, b := range content {
		if b == '\n' {
			out = append(out, toU32(i))
		}
	}
	return out
}
