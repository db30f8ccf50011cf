package diagfmt

import (
	"errors"
	"path"
	"strings"

	"wgslcompose/internal/compose"
	"wgslcompose/internal/diag"
	"wgslcompose/internal/project"
	"wgslcompose/internal/source"
)

// Files finds the file a span points into. *source.FileSet implements it.
type Files interface {
	Get(id source.FileID) *source.File
}

type singleFile struct {
	file *source.File
}

func (s singleFile) Get(id source.FileID) *source.File {
	if s.file == nil || s.file.ID != id {
		return nil
	}
	return s.file
}

// FromError turns err into a one-element bag. A *compose.Error keeps its
// code, span and import chain; any other error becomes an UnknownCode
// diagnostic without a location.
func FromError(err error) (*diag.Bag, Files) {
	bag := diag.NewBag(1)
	if err == nil {
		return bag, singleFile{}
	}
	var ce *compose.Error
	if errors.As(err, &ce) {
		bag.Add(ce.Diagnostic())
		return bag, singleFile{file: ce.File}
	}
	bag.Add(diag.NewError(diag.UnknownCode, source.Span{}, err.Error()))
	return bag, singleFile{}
}

func lookup(files Files, span source.Span) *source.File {
	if files == nil {
		return nil
	}
	return files.Get(span.File)
}

func formatPath(f *source.File, mode PathMode) string {
	switch mode {
	case PathModeFile:
		if strings.HasSuffix(f.Path, project.ShaderExt) {
			return f.Path
		}
		return f.Path + project.ShaderExt
	case PathModeBasename:
		return path.Base(f.Path)
	default:
		return f.Path
	}
}
