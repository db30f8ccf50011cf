package wgsl

import (
	"errors"
	"slices"
	"testing"

	"wgslcompose/internal/diag"
)

const fullscreen = `
// fullscreen triangle
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@group(0) @binding(0) var color_texture: texture_2d<f32>;
@group(0) @binding(1) var color_sampler: sampler;
@group(0) @binding(2) var<uniform> tint: Tint;

/* block /* nested */ comment */
struct Tint { color: vec4<f32> }

const SCALE: f32 = 1e-3;
alias Color = vec4<f32>;
enable f16;
const_assert SCALE < 1.0;

@fragment
fn fs_main(in: VertexOutput) -> @location(0) Color {
    return textureSample(color_texture, color_sampler, in.uv) * tint.color;
}
`

func TestScanDeclarations(t *testing.T) {
	m, err := Scan(fullscreen)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	type want struct {
		kind DeclKind
		name string
	}
	wants := []want{
		{DeclStruct, "VertexOutput"},
		{DeclVar, "color_texture"},
		{DeclVar, "color_sampler"},
		{DeclVar, "tint"},
		{DeclStruct, "Tint"},
		{DeclConst, "SCALE"},
		{DeclAlias, "Color"},
		{DeclDirective, ""},
		{DeclConstAssert, ""},
		{DeclFn, "fs_main"},
	}
	if len(m.Decls) != len(wants) {
		t.Fatalf("decls = %d, want %d", len(m.Decls), len(wants))
	}
	for i, w := range wants {
		if m.Decls[i].Kind != w.kind || m.Decls[i].Name != w.name {
			t.Errorf("decl[%d] = %v %q, want %v %q", i, m.Decls[i].Kind, m.Decls[i].Name, w.kind, w.name)
		}
	}

	d, ok := m.Lookup("color_texture")
	if !ok {
		t.Fatal("color_texture not found")
	}
	if got := m.Text(d); got != "@group(0) @binding(0) var color_texture: texture_2d<f32>;" {
		t.Errorf("var text = %q", got)
	}
	vo, _ := m.Lookup("VertexOutput")
	if got := m.Text(vo); got[len(got)-2:] != "};" {
		t.Errorf("struct text should include trailing ';': %q", got)
	}

	fn, _ := m.Lookup("fs_main")
	for _, ref := range []string{"VertexOutput", "Color", "color_texture", "color_sampler", "tint", "textureSample"} {
		if !slices.Contains(fn.Refs, ref) {
			t.Errorf("fs_main refs %v missing %q", fn.Refs, ref)
		}
	}
	for _, notRef := range []string{"fs_main", "uv", "color", "fragment", "location"} {
		if slices.Contains(fn.Refs, notRef) {
			t.Errorf("fs_main refs %v must not contain %q", fn.Refs, notRef)
		}
	}

	if got := m.Names(); len(got) != 8 {
		t.Errorf("Names() = %v", got)
	}
}

func TestTokenizeQualifiedAndNumbers(t *testing.T) {
	toks, err := Tokenize("a::B -> 0x1p-3 1e+5 x-1 0x1e+5")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	var texts []string
	for _, tok := range toks {
		texts = append(texts, tok.Text)
	}
	want := []string{"a", "::", "B", "->", "0x1p-3", "1e+5", "x", "-", "1", "0x1e", "+", "5"}
	if !slices.Equal(texts, want) {
		t.Fatalf("tokens = %q, want %q", texts, want)
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"unterminated comment", "/* open", diag.WgslUnclosedComment},
		{"duplicate", "const A = 1;\nconst A = 2;", diag.WgslDuplicateDecl},
		{"stray token", "let x = 1;", diag.WgslUnexpectedToken},
		{"unclosed struct", "struct S { a: f32", diag.WgslUnclosedDelimiter},
		{"mismatched", "fn f() { ) }", diag.WgslUnclosedDelimiter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scan(tt.src)
			var werr *Error
			if !errors.As(err, &werr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if werr.Code != tt.code {
				t.Fatalf("code = %v, want %v (%s)", werr.Code, tt.code, werr.Msg)
			}
		})
	}
}

func TestParseStruct(t *testing.T) {
	m, err := Scan(`struct Light {
    @align(16) position: vec3<f32>,
    @size(8) intensity: f32,
    @location(1) tags: array<vec2<u32>, 4>,
    data: array<f32>
}`)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	d, _ := m.Lookup("Light")
	members, err := m.ParseStruct(d)
	if err != nil {
		t.Fatalf("ParseStruct: %v", err)
	}
	want := []Member{
		{Name: "position", Type: "vec3<f32>", Align: 16},
		{Name: "intensity", Type: "f32", Size: 8},
		{Name: "tags", Type: "array<vec2<u32>, 4>"},
		{Name: "data", Type: "array<f32>"},
	}
	if len(members) != len(want) {
		t.Fatalf("members = %+v", members)
	}
	for i, w := range want {
		got := members[i]
		if got.Name != w.Name || got.Type != w.Type || got.Align != w.Align || got.Size != w.Size {
			t.Errorf("member[%d] = %+v, want %+v", i, got, w)
		}
	}

	fn, _ := Scan("fn f() {}")
	d2, _ := fn.Lookup("f")
	if _, err := fn.ParseStruct(d2); err == nil {
		t.Error("expected error for non-struct")
	}
}
