package layout_test

import (
	"errors"
	"testing"

	"wgslcompose/internal/compose"
	"wgslcompose/internal/layout"
)

func TestBuiltinLayouts(t *testing.T) {
	e := layout.New(layout.Storage)
	tests := []struct {
		typ         string
		size, align int
	}{
		{"f32", 4, 4},
		{"f16", 2, 2},
		{"atomic<u32>", 4, 4},
		{"vec2<f32>", 8, 8},
		{"vec3<f32>", 12, 16},
		{"vec4<i32>", 16, 16},
		{"vec2h", 4, 4},
		{"vec3h", 6, 8},
		{"vec4h", 8, 8},
		{"vec3u", 12, 16},
		{"mat2x2f", 16, 8},
		{"mat3x2<f32>", 24, 8},
		{"mat2x3f", 32, 16},
		{"mat3x3<f32>", 48, 16},
		{"mat4x4f", 64, 16},
		{"mat4x2h", 16, 4},
		{"mat3x3h", 24, 8},
		{"array<vec3<f32>, 4>", 64, 16},
		{"array<f32, 4u>", 16, 4},
	}
	for _, tt := range tests {
		l, err := e.LayoutOf(tt.typ)
		if err != nil {
			t.Errorf("%s: %v", tt.typ, err)
			continue
		}
		if l.Size != tt.size || l.Align != tt.align {
			t.Errorf("%s: got (size %d, align %d), want (size %d, align %d)", tt.typ, l.Size, l.Align, tt.size, tt.align)
		}
	}
}

func TestUniformArrayStride(t *testing.T) {
	storage := layout.New(layout.Storage)
	uniform := layout.New(layout.Uniform)
	s, err := storage.LayoutOf("array<f32, 4>")
	if err != nil {
		t.Fatal(err)
	}
	u, err := uniform.LayoutOf("array<f32, 4>")
	if err != nil {
		t.Fatal(err)
	}
	if s.Stride != 4 || s.Size != 16 {
		t.Fatalf("storage: stride %d size %d", s.Stride, s.Size)
	}
	if u.Stride != 16 || u.Size != 64 || u.Align != 16 {
		t.Fatalf("uniform: stride %d size %d align %d", u.Stride, u.Size, u.Align)
	}
}

type memberWant struct {
	name                   string
	offset, size, padding int
}

func checkStruct(t *testing.T, sl *layout.StructLayout, size, align int, members []memberWant) {
	t.Helper()
	if sl.Size != size || sl.Align != align {
		t.Fatalf("%s: got (size %d, align %d), want (size %d, align %d)", sl.Name, sl.Size, sl.Align, size, align)
	}
	if len(sl.Members) != len(members) {
		t.Fatalf("%s: %d members, want %d", sl.Name, len(sl.Members), len(members))
	}
	for i, want := range members {
		got := sl.Members[i]
		if got.Name != want.name || got.Offset != want.offset || got.Size != want.size || got.Padding != want.padding {
			t.Errorf("%s.%s: got offset %d size %d padding %d, want %+v", sl.Name, got.Name, got.Offset, got.Size, got.Padding, want)
		}
	}
}

func TestStructOffsetsAndPadding(t *testing.T) {
	src := `
const N: u32 = 3u;
alias Color = vec4<f32>;

struct A {
    a: f32,
    b: vec3<f32>,
    c: f32,
}

struct B {
    m: mat3x3<f32>,
    v: vec2f,
    h: vec3h,
}

struct P {
    @align(16) a: f32,
    @size(8) b: u32,
}

struct Lights {
    count: u32,
    color: Color,
    points: array<vec2f, N>,
}

struct Buffer {
    len: u32,
    data: array<vec4f>,
}
`
	e, err := layout.FromSource(src, layout.Storage)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	structs, err := e.Structs()
	if err != nil {
		t.Fatalf("Structs: %v", err)
	}
	if len(structs) != 5 {
		t.Fatalf("expected 5 structs, got %d", len(structs))
	}

	checkStruct(t, structs[0], 32, 16, []memberWant{{"a", 0, 4, 0}, {"b", 16, 12, 12}, {"c", 28, 4, 0}})
	checkStruct(t, structs[1], 64, 16, []memberWant{{"m", 0, 48, 0}, {"v", 48, 8, 0}, {"h", 56, 6, 0}})
	if structs[1].TailPadding != 2 {
		t.Errorf("B tail padding = %d, want 2", structs[1].TailPadding)
	}
	checkStruct(t, structs[2], 16, 16, []memberWant{{"a", 0, 4, 0}, {"b", 4, 8, 0}})
	checkStruct(t, structs[3], 64, 16, []memberWant{{"count", 0, 4, 0}, {"color", 16, 16, 12}, {"points", 32, 24, 0}})
	checkStruct(t, structs[4], 16, 16, []memberWant{{"len", 0, 4, 0}, {"data", 16, 0, 12}})
	if !structs[4].Runtime {
		t.Errorf("Buffer must be runtime-sized")
	}

	if off, err := e.FieldOffset("A", 2); err != nil || off != 28 {
		t.Fatalf("FieldOffset(A, 2) = %d, %v", off, err)
	}
}

func TestUniformNestedStruct(t *testing.T) {
	src := `
struct Inner { x: f32 }
struct Outer { i: Inner, y: f32 }
`
	storage, err := layout.FromSource(src, layout.Storage)
	if err != nil {
		t.Fatal(err)
	}
	sl, err := storage.Struct("Outer")
	if err != nil {
		t.Fatal(err)
	}
	checkStruct(t, sl, 8, 4, []memberWant{{"i", 0, 4, 0}, {"y", 4, 4, 0}})

	uniform, err := layout.FromSource(src, layout.Uniform)
	if err != nil {
		t.Fatal(err)
	}
	sl, err = uniform.Struct("Outer")
	if err != nil {
		t.Fatal(err)
	}
	checkStruct(t, sl, 32, 16, []memberWant{{"i", 0, 4, 0}, {"y", 16, 4, 0}})
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		space layout.AddressSpace
		typ   string
		kind  layout.LayoutErrorKind
	}{
		{"runtime array not last", "struct S { a: array<f32>, b: u32 }", layout.Storage, "S", layout.LayoutErrRuntimeArrayPosition},
		{"runtime array in uniform", "struct S { a: u32, b: array<f32> }", layout.Uniform, "S", layout.LayoutErrRuntimeArrayInUniform},
		{"recursive", "struct S { a: u32, next: array<S, 2> }", layout.Storage, "S", layout.LayoutErrRecursive},
		{"unknown type", "struct S { a: Missing }", layout.Storage, "S", layout.LayoutErrUnknownType},
		{"bool", "struct S { a: bool }", layout.Storage, "S", layout.LayoutErrUnknownType},
		{"bad align", "struct S { @align(3) a: f32 }", layout.Storage, "S", layout.LayoutErrBadAttribute},
		{"size too small", "struct S { @size(2) a: f32 }", layout.Storage, "S", layout.LayoutErrBadAttribute},
		{"unknown length", "struct S { a: array<f32, M> }", layout.Storage, "S", layout.LayoutErrBadLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := layout.FromSource(tt.src, tt.space)
			if err != nil {
				t.Fatalf("FromSource: %v", err)
			}
			_, err = e.Struct(tt.typ)
			var lerr *layout.LayoutError
			if !errors.As(err, &lerr) {
				t.Fatalf("expected *LayoutError, got %v", err)
			}
			if lerr.Kind != tt.kind {
				t.Fatalf("kind = %d, want %d (%v)", lerr.Kind, tt.kind, lerr)
			}
		})
	}
}

func TestRecursiveCycleNames(t *testing.T) {
	e, err := layout.FromSource("struct A { b: array<B, 1> }\nstruct B { a: array<A, 1> }\n", layout.Storage)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Struct("A")
	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != layout.LayoutErrRecursive {
		t.Fatalf("expected recursive error, got %v", err)
	}
	if got := lerr.Error(); got != "recursive struct has infinite size (cycle: A -> B -> A)" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDemangledDisplay(t *testing.T) {
	light := compose.Mangle("Light", "lights")
	src := "struct " + light + " { color: vec4f }\nstruct Scene { main: " + light + " }\n"
	e, err := layout.FromSource(src, layout.Storage)
	if err != nil {
		t.Fatal(err)
	}
	structs, err := e.Structs()
	if err != nil {
		t.Fatal(err)
	}
	if structs[0].Display != "lights::Light" {
		t.Fatalf("display = %q", structs[0].Display)
	}
	if structs[1].Members[0].Type != "lights::Light" {
		t.Fatalf("member type = %q", structs[1].Members[0].Type)
	}
}

func TestParseAddressSpace(t *testing.T) {
	if s, err := layout.ParseAddressSpace("uniform"); err != nil || s != layout.Uniform {
		t.Fatalf("uniform: %v %v", s, err)
	}
	if _, err := layout.ParseAddressSpace("private"); err == nil {
		t.Fatalf("expected error for private")
	}
}
