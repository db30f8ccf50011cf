package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"wgslcompose/internal/buildpipeline"
	"wgslcompose/internal/loader"
	"wgslcompose/internal/project"
)

// sourceSetup describes where imports of a command-line entry come from.
type sourceSetup struct {
	loader   *loader.FS
	roots    []string
	manifest *project.Manifest // nil без манифеста
}

// setupLoader picks the import roots for entryPath: explicit -I roots,
// else the enclosing project manifest, else the entry's own directory.
// modules are "id=path" overrides from --module.
func setupLoader(entryPath string, includes, modules []string) (*sourceSetup, error) {
	absEntry, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", entryPath, err)
	}
	setup := &sourceSetup{}
	switch {
	case len(includes) > 0:
		for _, inc := range includes {
			abs, err := filepath.Abs(inc)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve include %q: %w", inc, err)
			}
			setup.roots = append(setup.roots, abs)
		}
		setup.loader = loader.Dir(setup.roots...)
	default:
		manifestPath, ok, err := project.FindManifest(filepath.Dir(absEntry))
		if err != nil {
			return nil, err
		}
		if ok {
			m, err := project.LoadManifest(manifestPath)
			if err != nil {
				return nil, err
			}
			l, err := buildpipeline.ProjectLoader(m)
			if err != nil {
				return nil, err
			}
			setup.manifest = m
			setup.roots = m.RootDirs()
			setup.loader = l
		} else {
			setup.roots = []string{filepath.Dir(absEntry)}
			setup.loader = loader.Dir(setup.roots...)
		}
	}

	for _, arg := range modules {
		id, path, ok := strings.Cut(arg, "=")
		if !ok || id == "" || path == "" {
			return nil, fmt.Errorf("invalid --module %q (expected id=path)", arg)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
		}
		if err := setup.loader.Override(id, abs); err != nil {
			return nil, err
		}
	}
	return setup, nil
}

// entryID returns the module id of an entry file: its path relative to
// the first root containing it, else its base name.
func entryID(roots []string, entryPath string) (string, error) {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return "", err
	}
	for _, root := range roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(filepath.ToSlash(rel), "../") {
			continue
		}
		return project.NormalizeModulePath(filepath.ToSlash(rel))
	}
	return project.NormalizeModulePath(filepath.Base(abs))
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
