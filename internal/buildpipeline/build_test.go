package buildpipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wgslcompose/internal/cache"
	"wgslcompose/internal/compose"
	"wgslcompose/internal/project"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

const testManifest = `[compose]
roots = ["shaders"]
out_dir = "out"

[modules]
reachme = "vendor/reachme.wgsl"

[[entry]]
path = "shaders/main.wgsl"

[[entry]]
path = "shaders/other.wgsl"
out = "nested/other.wgsl"
`

func setupProject(t *testing.T) *project.Manifest {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "wgslcompose.toml"), testManifest)
	writeFile(t, filepath.Join(root, "vendor", "reachme.wgsl"), "fn helper() -> f32 { return 1.0; }\n")
	writeFile(t, filepath.Join(root, "shaders", "lib", "math.wgsl"), "fn twice(x: f32) -> f32 { return x * 2.0; }\n")
	writeFile(t, filepath.Join(root, "shaders", "main.wgsl"),
		"#import \"reachme\" as r\nfn main() -> f32 { return r::helper(); }\n")
	writeFile(t, filepath.Join(root, "shaders", "other.wgsl"),
		"#import lib::math::{twice}\nfn other() -> f32 { return twice(1.0); }\n")
	m, err := project.LoadManifest(filepath.Join(root, "wgslcompose.toml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	return m
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(data)
}

func TestBuildWritesEveryEntry(t *testing.T) {
	m := setupProject(t)
	sink := &RecordingSink{}
	res, err := Build(context.Background(), &BuildRequest{Manifest: m, Jobs: 2, Progress: sink})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}

	mainOut := readOutput(t, filepath.Join(m.Root, "out", "main.wgsl"))
	if !strings.Contains(mainOut, compose.Mangle("helper", "reachme")+"()") {
		t.Fatalf("main output misses mangled helper:\n%s", mainOut)
	}
	if strings.Contains(mainOut, "#import") {
		t.Fatalf("directive left in output:\n%s", mainOut)
	}
	otherOut := readOutput(t, filepath.Join(m.Root, "out", "nested", "other.wgsl"))
	if !strings.Contains(otherOut, compose.Mangle("twice", "lib/math")) {
		t.Fatalf("other output misses mangled twice:\n%s", otherOut)
	}

	if res.Entries[0].ID != "main" || res.Entries[1].ID != "other" {
		t.Fatalf("unexpected entry ids: %q %q", res.Entries[0].ID, res.Entries[1].ID)
	}
	done := 0
	for _, ev := range sink.Events() {
		if ev.Stage == StageWrite && ev.Status == StatusDone {
			done++
		}
	}
	if done != 2 {
		t.Fatalf("expected 2 write/done events, got %d", done)
	}
	if !res.Timings.Has(StageResolve) {
		t.Fatalf("resolve timing not recorded")
	}
}

func TestBuildFailedEntryDoesNotStopOthers(t *testing.T) {
	m := setupProject(t)
	writeFile(t, filepath.Join(m.Root, "shaders", "main.wgsl"), "#import \"missing\" as m\nfn main() {}\n")

	res, err := Build(context.Background(), &BuildRequest{Manifest: m})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, compose.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
	failed := res.Failed()
	if len(failed) != 1 || failed[0].Entry.Path != "shaders/main.wgsl" {
		t.Fatalf("unexpected failed entries: %+v", failed)
	}
	if _, statErr := os.Stat(filepath.Join(m.Root, "out", "main.wgsl")); !os.IsNotExist(statErr) {
		t.Fatalf("failed entry must not write output, stat err = %v", statErr)
	}
	readOutput(t, filepath.Join(m.Root, "out", "nested", "other.wgsl"))
}

func TestBuildCacheHitAndInvalidation(t *testing.T) {
	m := setupProject(t)
	c, err := cache.OpenDir(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	req := &BuildRequest{Manifest: m, Cache: c}

	first, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	for _, e := range first.Entries {
		if e.Cached {
			t.Fatalf("cold build served %s from cache", e.ID)
		}
	}

	second, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	for _, e := range second.Entries {
		if !e.Cached {
			t.Fatalf("warm build re-resolved %s", e.ID)
		}
	}

	// изменение модуля инвалидирует только зависящий entry
	writeFile(t, filepath.Join(m.Root, "vendor", "reachme.wgsl"), "fn helper() -> f32 { return 2.0; }\n")
	third, err := Build(context.Background(), req)
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	if third.Entries[0].Cached {
		t.Fatalf("main must be recomposed after reachme changed")
	}
	if !third.Entries[1].Cached {
		t.Fatalf("other must still be cached")
	}
	if out := readOutput(t, third.Entries[0].OutputPath); !strings.Contains(out, "2.0") {
		t.Fatalf("stale output:\n%s", out)
	}
}

func TestBuildNilRequest(t *testing.T) {
	if _, err := Build(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
}

func TestTimingsMerge(t *testing.T) {
	var a, b Timings
	a.Set(StageLoad, 2)
	b.Set(StageLoad, 3)
	b.Set(StageWrite, 5)
	a.Merge(b)
	if got := a.Duration(StageLoad); got != 5 {
		t.Fatalf("load = %v, want 5", got)
	}
	if got := a.Sum(Stages...); got != 10 {
		t.Fatalf("sum = %v, want 10", got)
	}
}
