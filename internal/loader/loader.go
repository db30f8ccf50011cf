// Package loader turns module identifiers into shader source text.
package loader

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound reports that no source exists for a module identifier.
var ErrNotFound = errors.New("module not found")

// Loader fetches the text of a module by its normalized identifier.
// Implementations must be safe for concurrent use when shared between
// parallel builds.
type Loader interface {
	Load(id string) (string, error)
}

// Func adapts a plain function to Loader.
type Func func(id string) (string, error)

func (f Func) Load(id string) (string, error) {
	return f(id)
}

// Map is an in-memory module tree keyed by module id. Keys may carry the
// ".wgsl" extension.
type Map map[string]string

func (m Map) Load(id string) (string, error) {
	if src, ok := m[id]; ok {
		return src, nil
	}
	if src, ok := m[id+".wgsl"]; ok {
		return src, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, id)
}

// IDs returns map keys in sorted order.
func (m Map) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Chain tries each loader in order and returns the first hit. Errors other
// than ErrNotFound stop the search.
type Chain []Loader

func (c Chain) Load(id string) (string, error) {
	for _, l := range c {
		src, err := l.Load(id)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, id)
}
