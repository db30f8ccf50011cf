package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeModulePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"reachme", "reachme", false},
		{"lib/math.wgsl", "lib/math", false},
		{"bevy_pbr::lighting", "bevy_pbr/lighting", false},
		{`lib\math`, "lib/math", false},
		{"/abs/x", "abs/x", false},
		{"café", "café", false},
		{"", "", true},
		{"a//b", "", true},
		{"a/../b", "", true},
		{".wgsl", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeModulePath(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("NormalizeModulePath(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeModulePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveImportPath(t *testing.T) {
	tests := []struct {
		from, ref string
		want      string
		wantErr   bool
	}{
		{"main", "lib/math", "lib/math", false},
		{"shaders/main", "./lib/math.wgsl", "shaders/lib/math", false},
		{"shaders/lib/math", "../common", "shaders/common", false},
		{"shaders/main", "types::shapes", "types/shapes", false},
		{"main", "../up", "", true},
		{"a/b", "./", "", true},
		{"main", "  ", "", true},
	}
	for _, tt := range tests {
		got, err := ResolveImportPath(tt.from, tt.ref)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ResolveImportPath(%q, %q) err = %v", tt.from, tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("ResolveImportPath(%q, %q) = %q, want %q", tt.from, tt.ref, got, tt.want)
		}
	}
}

func TestCombineIsOrderSensitive(t *testing.T) {
	a, b := HashString("a"), HashString("b")
	if Combine(a, b) == Combine(b, a) {
		t.Fatal("Combine must depend on order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatal("Combine must be stable")
	}
	if !(Digest{}).IsZero() || a.IsZero() {
		t.Fatal("IsZero")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifestTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wgslcompose.toml")
	writeFile(t, path, `
[compose]
roots = ["shaders"]
out_dir = "out"
jobs = 2

[modules]
reachme = "vendor/reachme.wgsl"

[[entry]]
path = "shaders/fullscreen.wgsl"

[[entry]]
path = "shaders/post/blur.wgsl"
out = "blur.composed.wgsl"
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Compose.Jobs != 2 || m.Compose.OutDir != "out" {
		t.Errorf("compose = %+v", m.Compose)
	}
	if len(m.Entries) != 2 || m.Entries[0].Out != "fullscreen.wgsl" || m.Entries[1].Out != "blur.composed.wgsl" {
		t.Errorf("entries = %+v", m.Entries)
	}
	id, err := m.EntryID(m.Entries[1])
	if err != nil || id != "post/blur" {
		t.Errorf("EntryID = %q, %v", id, err)
	}
	aliases, err := m.ModuleAliases()
	if err != nil || len(aliases) != 1 || aliases[0].ID != "reachme" || aliases[0].File != filepath.Join(dir, "vendor", "reachme.wgsl") {
		t.Errorf("aliases = %+v, %v", aliases, err)
	}
}

func TestLoadManifestYAMLDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wgslcompose.yaml")
	writeFile(t, path, `
entry:
  - path: main.wgsl
modules:
  "bevy::util": lib/util.wgsl
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Compose.Roots) != 1 || m.Compose.Roots[0] != "." || m.Compose.OutDir != "build" {
		t.Errorf("defaults not applied: %+v", m.Compose)
	}
	aliases, err := m.ModuleAliases()
	if err != nil || aliases[0].ID != "bevy/util" {
		t.Errorf("aliases = %+v, %v", aliases, err)
	}
	id, err := m.EntryID(m.Entries[0])
	if err != nil || id != "main" {
		t.Errorf("EntryID = %q, %v", id, err)
	}
}

func TestLoadManifestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no entries", "[compose]\nroots = [\"s\"]\n"},
		{"escaping entry", "[[entry]]\npath = \"../x.wgsl\"\n"},
		{"absolute out dir", "[compose]\nout_dir = \"/tmp/x\"\n[[entry]]\npath = \"a.wgsl\"\n"},
		{"duplicate output", "[[entry]]\npath = \"a/x.wgsl\"\n[[entry]]\npath = \"b/x.wgsl\"\n"},
		{"bad alias", "[modules]\n\"9lives\" = \"x.wgsl\"\n[[entry]]\npath = \"a.wgsl\"\n"},
		{"negative jobs", "[compose]\njobs = -1\n[[entry]]\npath = \"a.wgsl\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "wgslcompose.toml")
			writeFile(t, path, tt.body)
			_, err := LoadManifest(path)
			if !errors.Is(err, errManifest) {
				t.Fatalf("expected manifest validation error, got %v", err)
			}
		})
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "wgslcompose.yaml"), "entry:\n  - path: a.wgsl\n")
	nested := filepath.Join(dir, "shaders", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest = %q, %v, %v", got, ok, err)
	}
	if filepath.Base(got) != "wgslcompose.yaml" {
		t.Errorf("found %q", got)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	gotRoot, _ := filepath.EvalSymlinks(filepath.Dir(got))
	if gotRoot != resolved {
		t.Errorf("manifest dir = %q, want %q", filepath.Dir(got), dir)
	}

	// каталог с именем манифеста не считается манифестом
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(other, "wgslcompose.toml"), 0o755); err != nil {
		t.Fatal(err)
	}
	if p, ok, err := FindManifest(other); err != nil || (ok && filepath.Dir(p) == other) {
		t.Fatalf("directory taken for manifest: %q, %v, %v", p, ok, err)
	}
}
