package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"wgslcompose/internal/directive"
	"wgslcompose/internal/project"
)

// FS searches one or more io/fs roots in order. For an id "a/b" it tries
// "a/b.wgsl" then "a/b" in every root, then the define-path index, then
// the overrides.
type FS struct {
	roots []fs.FS

	mu        sync.RWMutex
	overrides map[string]string // id -> путь на диске
	index     map[string]indexed
	indexed   bool
}

type indexed struct {
	root int
	name string
}

// NewFS creates a loader over roots.
func NewFS(roots ...fs.FS) *FS {
	return &FS{roots: roots, overrides: make(map[string]string)}
}

// Dir is NewFS over os.DirFS for each directory.
func Dir(dirs ...string) *FS {
	roots := make([]fs.FS, 0, len(dirs))
	for _, d := range dirs {
		roots = append(roots, os.DirFS(d))
	}
	return NewFS(roots...)
}

// Override maps a module id to a concrete file on disk, ahead of the roots.
func (l *FS) Override(id, file string) error {
	norm, err := project.NormalizeModulePath(id)
	if err != nil {
		return fmt.Errorf("override %q: %w", id, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[norm] = filepath.Clean(file)
	return nil
}

func (l *FS) Load(id string) (string, error) {
	l.mu.RLock()
	file, ok := l.overrides[id]
	l.mu.RUnlock()
	if ok {
		data, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %q (override %s)", ErrNotFound, id, file)
			}
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}

	for _, name := range candidates(id) {
		for _, root := range l.roots {
			data, err := fs.ReadFile(root, name)
			if err == nil {
				return string(data), nil
			}
			if errors.Is(err, fs.ErrNotExist) || isDir(root, name) {
				continue
			}
			return "", fmt.Errorf("read %s: %w", name, err)
		}
	}

	if err := l.ensureIndex(); err != nil {
		return "", err
	}
	l.mu.RLock()
	hit, ok := l.index[id]
	l.mu.RUnlock()
	if ok {
		data, err := fs.ReadFile(l.roots[hit.root], hit.name)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", hit.name, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Files lists every .wgsl file in the roots as root-relative slash paths.
func (l *FS) Files() ([]string, error) {
	var out []string
	seen := make(map[string]struct{})
	for _, root := range l.roots {
		err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || path.Ext(p) != project.ShaderExt {
				return nil
			}
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ensureIndex collects `#define_import_path` names once.
func (l *FS) ensureIndex() error {
	l.mu.RLock()
	done := l.indexed
	l.mu.RUnlock()
	if done {
		return nil
	}

	index := make(map[string]indexed)
	for i, root := range l.roots {
		err := fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || path.Ext(p) != project.ShaderExt {
				return nil
			}
			data, err := fs.ReadFile(root, p)
			if err != nil {
				return err
			}
			f, err := directive.Parse(string(data))
			if err != nil || f.DefinePath == "" {
				return nil //nolint:nilerr // битые модули всплывут при загрузке
			}
			id, err := project.NormalizeModulePath(f.DefinePath)
			if err != nil {
				return nil //nolint:nilerr
			}
			if _, dup := index[id]; !dup {
				index[id] = indexed{root: i, name: p}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("index shader roots: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.indexed {
		l.index = index
		l.indexed = true
	}
	return nil
}

func isDir(root fs.FS, name string) bool {
	info, err := fs.Stat(root, name)
	return err == nil && info.IsDir()
}

func candidates(id string) []string {
	if id == "" || strings.HasPrefix(id, "/") {
		return nil
	}
	if strings.HasSuffix(id, project.ShaderExt) {
		return []string{id}
	}
	return []string{id + project.ShaderExt, id}
}
