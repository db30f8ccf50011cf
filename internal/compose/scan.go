package compose

import (
	"context"
	"errors"
	"sort"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/directive"
	"wgslcompose/internal/loader"
	"wgslcompose/internal/project"
	"wgslcompose/internal/source"
)

// ScanResult is the directive-level view of everything reachable from a
// set of entries. Missing modules are listed, not reported as errors; the
// project graph reports them together with cycles.
type ScanResult struct {
	Metas   []project.ModuleMeta // отсортированы по Path
	Missing []string
	Files   *source.FileSet
}

// Scan walks the import directives reachable from entryIDs without
// scanning WGSL bodies. Malformed directives and loader failures other
// than not-found stop the walk.
func Scan(ctx context.Context, l loader.Loader, entryIDs ...string) (*ScanResult, error) {
	res := &ScanResult{Files: source.NewFileSet()}
	seen := make(map[string]struct{})
	missing := make(map[string]struct{})

	queue := make([]string, 0, len(entryIDs))
	for _, id := range entryIDs {
		norm, err := project.NormalizeModulePath(id)
		if err != nil {
			return nil, &Error{Code: diag.DirBadImportPath, Module: id, Msg: "invalid entry id", Err: err}
		}
		queue = append(queue, norm)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		text, err := l.Load(id)
		if err != nil {
			if errors.Is(err, loader.ErrNotFound) {
				missing[id] = struct{}{}
				continue
			}
			return nil, &Error{Code: diag.ResModuleNotFound, Module: id, Msg: "cannot load module", Err: err}
		}
		fileID := res.Files.Add(id, []byte(text))
		file := res.Files.Get(fileID)
		dir, err := directive.Parse(string(file.Content))
		if err != nil {
			return nil, directiveError(id, []string{id}, file, err)
		}

		meta := project.ModuleMeta{
			Path:        id,
			DefinePath:  dir.DefinePath,
			Span:        source.Span{File: fileID},
			ContentHash: project.Digest(file.Hash),
		}
		for _, imp := range dir.Imports {
			target, err := project.ResolveImportPath(id, imp.Path)
			if err != nil {
				return nil, &Error{Code: diag.DirBadImportPath, Module: id, Span: imp.PathSpan, File: file, Msg: "invalid import path " + imp.Path, Err: err}
			}
			meta.Imports = append(meta.Imports, project.ImportMeta{Path: target, Span: imp.Span.In(fileID)})
			queue = append(queue, target)
		}
		res.Metas = append(res.Metas, meta)
	}

	sort.Slice(res.Metas, func(i, j int) bool { return res.Metas[i].Path < res.Metas[j].Path })
	for id := range missing {
		res.Missing = append(res.Missing, id)
	}
	sort.Strings(res.Missing)
	return res, nil
}
