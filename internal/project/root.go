package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ManifestNames lists accepted manifest file names; within one directory
// the first existing name wins.
var ManifestNames = []string{"wgslcompose.toml", "wgslcompose.yaml", "wgslcompose.yml"}

// FindManifest looks for a manifest in startDir and then in each parent.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		path, ok, err := manifestIn(dir)
		if err != nil || ok {
			return path, ok, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

func manifestIn(dir string) (string, bool, error) {
	for _, name := range ManifestNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	return "", false, nil
}
