package source

import (
	"bytes"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"plain", []byte("fn a() {}\n"), []byte("fn a() {}\n")},
		{"bom", []byte("\xEF\xBB\xBFconst A = 1;"), []byte("const A = 1;")},
		{"crlf", []byte("a\r\nb\r\n"), []byte("a\nb\n")},
		{"lone cr kept", []byte("a\rb"), []byte("a\rb")},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileSetAddKeepsVersions(t *testing.T) {
	fs := NewFileSet()
	id1 := fs.Add("shaders/a", []byte("const A = 1;"))
	id2 := fs.Add("shaders/a", []byte("const A = 2;"))
	if id1 == id2 {
		t.Fatalf("expected distinct ids, got %d twice", id1)
	}
	if fs.Get(id1).Hash == fs.Get(id2).Hash {
		t.Error("different contents must hash differently")
	}
	if fs.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fs.Len())
	}
	if fs.Get(FileID(99)) != nil {
		t.Error("Get on unknown id must return nil")
	}
}

func TestFileLines(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.Add("reachme", []byte("\xEF\xBB\xBFconst ONE = 1;\r\nstruct S { a: f32 }\r\nfn f() {}")))
	tests := []struct {
		n    uint32
		want string
	}{
		{0, ""},
		{1, "const ONE = 1;"},
		{2, "struct S { a: f32 }"},
		{3, "fn f() {}"},
		{4, ""},
	}
	for _, tt := range tests {
		if got := f.Line(tt.n); got != tt.want {
			t.Errorf("Line(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFilePosition(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.Add("entry", []byte("#import \"x\" as x\nfn main() {}\n")))
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{Line: 1, Col: 1}},
		{16, LineCol{Line: 1, Col: 17}}, // сам '\n'
		{17, LineCol{Line: 2, Col: 1}},
		{19, LineCol{Line: 2, Col: 3}},
		{30, LineCol{Line: 3, Col: 1}},
	}
	for _, tt := range tests {
		if got := f.Position(tt.off); got != tt.want {
			t.Errorf("Position(%d) = %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestSpan(t *testing.T) {
	sp := Span{Start: 13, End: 17}.In(4)
	if sp != (Span{File: 4, Start: 13, End: 17}) {
		t.Fatalf("In() = %v", sp)
	}
	if sp.Len() != 4 || sp.Empty() {
		t.Fatalf("unexpected len/empty for %v", sp)
	}
	if sp.String() != "4:13-17" {
		t.Fatalf("String() = %q", sp.String())
	}
}
