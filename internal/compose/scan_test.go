package compose

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"wgslcompose/internal/loader"
)

func TestScanCollectsGraph(t *testing.T) {
	mods := loader.Map{
		"main":  "#import \"lib/a\" as a\n#import lib::b::{B}\nfn main_fn() {}\n",
		"lib/a": "#import \"./b\" as b\n#import \"missing\" as m\n",
		"lib/b": "#define_import_path lib::b\nconst B: f32 = 1.0;\n",
	}
	res, err := Scan(context.Background(), mods, "main.wgsl")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var paths []string
	for _, m := range res.Metas {
		paths = append(paths, m.Path)
	}
	if want := []string{"lib/a", "lib/b", "main"}; !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	if want := []string{"missing"}; !reflect.DeepEqual(res.Missing, want) {
		t.Errorf("missing = %v, want %v", res.Missing, want)
	}

	var imports []string
	for _, imp := range res.Metas[2].Imports {
		imports = append(imports, imp.Path)
	}
	if want := []string{"lib/a", "lib/b"}; !reflect.DeepEqual(imports, want) {
		t.Errorf("main imports = %v, want %v", imports, want)
	}
	if res.Metas[1].DefinePath != "lib::b" {
		t.Errorf("define path = %q", res.Metas[1].DefinePath)
	}
}

func TestScanBadDirective(t *testing.T) {
	mods := loader.Map{"main": "#import \"x\" as\n"}
	if _, err := Scan(context.Background(), mods, "main"); !errors.Is(err, ErrBadDirective) {
		t.Fatalf("expected ErrBadDirective, got %v", err)
	}
}
