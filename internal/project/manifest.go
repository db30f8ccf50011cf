package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Manifest is the parsed wgslcompose.toml / wgslcompose.yaml.
type Manifest struct {
	Path    string            `toml:"-" yaml:"-"` // абсолютный путь к файлу
	Root    string            `toml:"-" yaml:"-"` // каталог манифеста
	Compose ComposeConfig     `toml:"compose" yaml:"compose"`
	Modules map[string]string `toml:"modules" yaml:"modules"`
	Entries []Entry           `toml:"entry" yaml:"entry"`
}

type ComposeConfig struct {
	Roots  []string `toml:"roots" yaml:"roots"`
	OutDir string   `toml:"out_dir" yaml:"out_dir"`
	Jobs   int      `toml:"jobs" yaml:"jobs"`
}

// Entry is one shader to compose. Out is relative to OutDir and defaults to
// the entry's base name.
type Entry struct {
	Path string `toml:"path" yaml:"path"`
	Out  string `toml:"out" yaml:"out"`
}

var errManifest = errors.New("invalid manifest")

// LoadManifest reads and validates a manifest, picking the decoder by extension.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("%s: %w", abs, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", abs, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported manifest format", abs)
	}
	m.Path = abs
	m.Root = filepath.Dir(abs)
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Entries) == 0 {
		return fmt.Errorf("%w: at least one [[entry]] is required", errManifest)
	}
	if m.Compose.Jobs < 0 {
		return fmt.Errorf("%w: compose.jobs must be >= 0", errManifest)
	}
	if len(m.Compose.Roots) == 0 {
		m.Compose.Roots = []string{"."}
	}
	for _, root := range m.Compose.Roots {
		if err := checkInside(root); err != nil {
			return fmt.Errorf("%w: compose.roots: %v", errManifest, err)
		}
	}
	if m.Compose.OutDir == "" {
		m.Compose.OutDir = "build"
	}
	if err := checkInside(m.Compose.OutDir); err != nil {
		return fmt.Errorf("%w: compose.out_dir: %v", errManifest, err)
	}

	outs := make(map[string]string, len(m.Entries))
	for i := range m.Entries {
		e := &m.Entries[i]
		if e.Path == "" {
			return fmt.Errorf("%w: entry #%d has no path", errManifest, i+1)
		}
		if err := checkInside(e.Path); err != nil {
			return fmt.Errorf("%w: entry %q: %v", errManifest, e.Path, err)
		}
		if e.Out == "" {
			e.Out = filepath.Base(e.Path)
		}
		if err := checkInside(e.Out); err != nil {
			return fmt.Errorf("%w: entry %q out: %v", errManifest, e.Path, err)
		}
		if prev, dup := outs[e.Out]; dup {
			return fmt.Errorf("%w: entries %q and %q write the same output %q", errManifest, prev, e.Path, e.Out)
		}
		outs[e.Out] = e.Path
	}

	for alias, target := range m.Modules {
		for _, seg := range strings.Split(strings.ReplaceAll(alias, "::", "/"), "/") {
			if !IsValidModuleIdent(seg) {
				return fmt.Errorf("%w: module alias %q is not a valid identifier path", errManifest, alias)
			}
		}
		if err := checkInside(target); err != nil {
			return fmt.Errorf("%w: module %q: %v", errManifest, alias, err)
		}
	}
	return nil
}

// checkInside rejects absolute paths and paths escaping the project root.
func checkInside(p string) error {
	if p == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%q must be relative to the project root", p)
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%q escapes the project root", p)
	}
	return nil
}

// Abs resolves a manifest-relative path.
func (m *Manifest) Abs(rel string) string {
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// RootDirs returns absolute shader roots in manifest order.
func (m *Manifest) RootDirs() []string {
	out := make([]string, 0, len(m.Compose.Roots))
	for _, r := range m.Compose.Roots {
		out = append(out, m.Abs(r))
	}
	return out
}

// ModuleAliases returns [modules] with normalized ids, sorted by id.
func (m *Manifest) ModuleAliases() ([]ModuleAlias, error) {
	out := make([]ModuleAlias, 0, len(m.Modules))
	for alias, target := range m.Modules {
		id, err := NormalizeModulePath(alias)
		if err != nil {
			return nil, fmt.Errorf("module alias %q: %w", alias, err)
		}
		out = append(out, ModuleAlias{ID: id, File: m.Abs(target)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type ModuleAlias struct {
	ID   string
	File string
}

// EntryID returns the module id of an entry: its path relative to the
// first root that contains it, or to the project root.
func (m *Manifest) EntryID(e Entry) (string, error) {
	abs := m.Abs(e.Path)
	for _, root := range m.RootDirs() {
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(filepath.ToSlash(rel), "../") {
			continue
		}
		return NormalizeModulePath(filepath.ToSlash(rel))
	}
	return NormalizeModulePath(filepath.ToSlash(e.Path))
}
