package directive

import (
	"errors"
	"testing"

	"wgslcompose/internal/diag"
)

func TestParseAliasAndSelective(t *testing.T) {
	src := "#import \"reachme.wgsl\" as reachme\n" +
		"#import types::{Scalars, VectorsU32,} // trailing comment\n" +
		"\n" +
		"@fragment\n" +
		"fn main() -> @location(0) vec4<f32> { return vec4<f32>(reachme::ONE); }\n"

	f, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Imports) != 2 {
		t.Fatalf("imports = %d, want 2", len(f.Imports))
	}

	a := f.Imports[0]
	if a.Kind != KindAlias || a.Path != "reachme.wgsl" || a.Alias != "reachme" || a.Line != 1 {
		t.Fatalf("unexpected alias import: %+v", a)
	}
	if got := src[a.PathSpan.Start:a.PathSpan.End]; got != "\"reachme.wgsl\"" {
		t.Fatalf("path span covers %q", got)
	}

	s := f.Imports[1]
	if s.Kind != KindSelective || s.Path != "types" || s.Line != 2 {
		t.Fatalf("unexpected selective import: %+v", s)
	}
	if len(s.Symbols) != 2 || s.Symbols[0].Name != "Scalars" || s.Symbols[1].Name != "VectorsU32" {
		t.Fatalf("symbols = %+v", s.Symbols)
	}
	if got := src[s.Symbols[1].Span.Start:s.Symbols[1].Span.End]; got != "VectorsU32" {
		t.Fatalf("symbol span covers %q", got)
	}

	wantBody := "\n@fragment\nfn main() -> @location(0) vec4<f32> { return vec4<f32>(reachme::ONE); }\n"
	if f.Body != wantBody {
		t.Fatalf("body = %q, want %q", f.Body, wantBody)
	}
	// первый байт тела соответствует пустой строке 3
	if got := f.Origin(0); src[got] != '\n' || got != uint32(len(src)-len(wantBody)) {
		t.Fatalf("Origin(0) = %d", got)
	}
}

func TestParseNoDirectivesKeepsText(t *testing.T) {
	src := "struct S { a: f32 }\n// #import inside comment is not a directive line? it is not at line start\n"
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.HasDirectives() || f.Body != src {
		t.Fatalf("expected untouched body, got %q", f.Body)
	}
	if f.Origin(5) != 5 {
		t.Fatalf("Origin(5) = %d", f.Origin(5))
	}
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		line  string
		kind  Kind
		path  string
		alias string
		syms  int
	}{
		{`#import "shared/consts" as c`, KindAlias, "shared/consts", "c", 0},
		{`  #import bevy_pbr::mesh_types as mt`, KindAlias, "bevy_pbr::mesh_types", "mt", 0},
		{`#import bevy_pbr::mesh_types`, KindAlias, "bevy_pbr::mesh_types", "mesh_types", 0},
		{`#import "lib/util.wgsl"`, KindAlias, "lib/util.wgsl", "util", 0},
		{`#import "types.wgsl"::{A}`, KindSelective, "types.wgsl", "", 1},
		{`#import types::{}`, KindSelective, "types", "", 0},
		{`#import a::b::{X, Y, X}`, KindSelective, "a::b", "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(f.Imports) != 1 {
				t.Fatalf("imports = %d", len(f.Imports))
			}
			imp := f.Imports[0]
			if imp.Kind != tt.kind || imp.Path != tt.path || imp.Alias != tt.alias || len(imp.Symbols) != tt.syms {
				t.Fatalf("got %+v", imp)
			}
			if f.Body != "" {
				t.Fatalf("body = %q, want empty", f.Body)
			}
		})
	}
}

func TestParseDefineImportPath(t *testing.T) {
	f, err := Parse("#define_import_path my::types\nconst X = 1;\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.DefinePath != "my::types" || f.Body != "const X = 1;\n" {
		t.Fatalf("unexpected file %+v", f)
	}
	if _, err := Parse("#define_import_path a\n#define_import_path b\n"); err == nil {
		t.Fatal("expected duplicate define error")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		code diag.Code
	}{
		{"#import", diag.DirMalformedImport},
		{"#import \"unterminated as x", diag.DirMalformedImport},
		{"#import \"a\" as", diag.DirExpectAlias},
		{"#import \"a\" as 1bad", diag.DirExpectAlias},
		{"#import \"a\" with x", diag.DirMalformedImport},
		{"#import a::{B C}", diag.DirExpectSymbols},
		{"#import a::{B", diag.DirExpectSymbols},
		{"#import \"\" as x", diag.DirBadImportPath},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse("const A = 1;\n" + tt.src + "\n")
			var derr *Error
			if !errors.As(err, &derr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if derr.Code != tt.code {
				t.Fatalf("code = %v, want %v (%s)", derr.Code, tt.code, derr.Msg)
			}
			if derr.Line != 2 {
				t.Fatalf("line = %d, want 2", derr.Line)
			}
		})
	}
}

func TestIsIdent(t *testing.T) {
	for _, ok := range []string{"a", "Foo_1", "_x", "Δ"} {
		if !IsIdent(ok) {
			t.Errorf("IsIdent(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "_", "__x", "1a", "a-b", "a b"} {
		if IsIdent(bad) {
			t.Errorf("IsIdent(%q) = true", bad)
		}
	}
}
