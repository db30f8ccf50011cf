package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"wgslcompose/internal/project"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := OpenDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key("/p/wgslcompose.toml", "main", "main.wgsl")
	in := &Payload{
		Entry:     "main",
		EntryHash: project.HashString("entry"),
		Modules:   []string{"lib/a", "lib/b"},
		Hashes:    []project.Digest{project.HashString("a"), project.HashString("b")},
		Output:    "fn main_fn() {}\n",
	}
	if err := c.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Output != in.Output || got.Entry != "main" || len(got.Modules) != 2 || got.Hashes[1] != in.Hashes[1] {
		t.Errorf("payload mismatch: %+v", got)
	}

	if _, ok, _ := c.Get(Key("/p/wgslcompose.toml", "other", "o.wgsl")); ok {
		t.Error("unexpected hit for another key")
	}
}

func TestSchemaMismatchIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	key := Key("m", "e", "o")
	data, err := msgpack.Marshal(&Payload{Schema: SchemaVersion + 1, Output: "old"})
	if err != nil {
		t.Fatal(err)
	}
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key); ok || err != nil {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestDropAll(t *testing.T) {
	c, err := OpenDir(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := Key("m", "e", "o")
	if err := c.Put(key, &Payload{Output: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Fatal("entry survived DropAll")
	}
	if err := c.Put(key, &Payload{Output: "y"}); err != nil {
		t.Fatalf("cache unusable after DropAll: %v", err)
	}
}

func TestNilCache(t *testing.T) {
	var c *Disk
	if err := c.Put(project.Digest{}, &Payload{}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(project.Digest{}); ok || err != nil {
		t.Fatal("nil cache must miss")
	}
}
