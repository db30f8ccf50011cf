// Package layout computes WGSL host-shareable memory layout: alignment,
// size, member offsets and padding of the structs in a composed shader.
package layout

import (
	"fmt"

	"wgslcompose/internal/compose"
	"wgslcompose/internal/wgsl"
)

// TypeLayout is the host-shareable layout of a type in one address space.
type TypeLayout struct {
	Size  int // для runtime-sized массивов 0
	Align int

	// Array-only:
	Stride  int
	Runtime bool // runtime-sized array, or a struct ending in one

	// Struct-only:
	FieldOffsets []int
	FieldAligns  []int
}

// MemberLayout places one struct member.
type MemberLayout struct {
	Name    string
	Type    string
	Offset  int
	Size    int
	Align   int
	Padding int // bytes inserted before the member
}

// StructLayout is the computed layout of a struct declaration.
type StructLayout struct {
	Name        string
	Display     string // Name with qualified names demangled to module::name
	Size        int
	Align       int
	Runtime     bool
	Members     []MemberLayout
	TailPadding int
}

func (s *StructLayout) typeLayout() TypeLayout {
	l := TypeLayout{Size: s.Size, Align: s.Align, Runtime: s.Runtime}
	l.FieldOffsets = make([]int, len(s.Members))
	l.FieldAligns = make([]int, len(s.Members))
	for i, m := range s.Members {
		l.FieldOffsets[i] = m.Offset
		l.FieldAligns[i] = m.Align
	}
	return l
}

type structDef struct {
	name    string
	members []wgsl.Member
}

// LayoutEngine computes layouts for the structs, aliases and integer
// constants of the modules added to it.
type LayoutEngine struct {
	Space AddressSpace

	structs map[string]*structDef
	aliases map[string]typeExpr
	consts  map[string]int
	order   []string // структуры в порядке объявления

	cache *cache
}

// New creates an empty LayoutEngine for the address space.
func New(space AddressSpace) *LayoutEngine {
	return &LayoutEngine{
		Space:   space,
		structs: make(map[string]*structDef),
		aliases: make(map[string]typeExpr),
		consts:  make(map[string]int),
		cache:   newCache(),
	}
}

// FromSource scans src and returns an engine over its declarations.
func FromSource(src string, space AddressSpace) (*LayoutEngine, error) {
	m, err := wgsl.Scan(src)
	if err != nil {
		return nil, err
	}
	e := New(space)
	if err := e.AddModule(m); err != nil {
		return nil, err
	}
	return e, nil
}

// AddModule registers the structs, aliases and `const` integer literals of m.
func (e *LayoutEngine) AddModule(m *wgsl.Module) error {
	e.cache.reset()
	for i := range m.Decls {
		d := &m.Decls[i]
		if d.Name == "" {
			continue
		}
		switch d.Kind {
		case wgsl.DeclStruct:
			members, err := m.ParseStruct(d)
			if err != nil {
				return fmt.Errorf("struct %s: %w", d.Name, err)
			}
			if _, dup := e.structs[d.Name]; dup {
				return fmt.Errorf("struct %s is declared twice", d.Name)
			}
			e.structs[d.Name] = &structDef{name: d.Name, members: members}
			e.order = append(e.order, d.Name)
		case wgsl.DeclAlias:
			text, ok := initializerText(m, d)
			if !ok {
				return fmt.Errorf("alias %s: missing type", d.Name)
			}
			t, err := parseTypeText(text)
			if err != nil {
				return fmt.Errorf("alias %s: %w", d.Name, err)
			}
			e.aliases[d.Name] = t
		case wgsl.DeclConst:
			text, ok := initializerText(m, d)
			if !ok {
				continue
			}
			if n, ok := intLiteral(text); ok {
				e.consts[d.Name] = n
			}
		}
	}
	return nil
}

// initializerText returns the source between the top-level '=' and the
// closing ';' of an alias or const declaration.
func initializerText(m *wgsl.Module, d *wgsl.Decl) (string, bool) {
	toks := m.Tokens
	last := d.Last
	if toks[last].Is(";") {
		last--
	}
	for i := d.NameTok + 1; i <= last; i++ {
		if toks[i].Is("=") {
			if i == last {
				return "", false
			}
			return m.Src[toks[i+1].Start:toks[last].End], true
		}
	}
	return "", false
}

type layoutState struct {
	stack []string
	index map[string]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[string]int, 8)}
}

// LayoutOf computes and caches the layout of a type written in WGSL syntax,
// e.g. "array<vec3<f32>, 4>".
func (e *LayoutEngine) LayoutOf(typeText string) (TypeLayout, error) {
	t, err := parseTypeText(typeText)
	if err != nil {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrSyntax, Type: typeText, Detail: err.Error()}
	}
	l, lerr := e.layoutOf(t, newLayoutState())
	if lerr != nil {
		return l, lerr
	}
	return l, nil
}

func (e *LayoutEngine) layoutOf(t typeExpr, state *layoutState) (TypeLayout, *LayoutError) {
	key := t.String()
	if cached, ok := e.cache.get(key); ok {
		return cached.Layout, cached.Err
	}
	l, err := e.computeLayout(t, state)
	if err == nil || err.Kind != LayoutErrRecursive {
		e.cache.put(key, &cacheEntry{Layout: l, Err: err})
	}
	return l, err
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(typeText string) (int, error) {
	l, err := e.LayoutOf(typeText)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(typeText string) (int, error) {
	l, err := e.LayoutOf(typeText)
	return l.Align, err
}

// Struct returns the layout of the named struct.
func (e *LayoutEngine) Struct(name string) (*StructLayout, error) {
	if _, ok := e.structs[name]; !ok {
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Type: name, Detail: name}
	}
	sl, err := e.structLayout(name, newLayoutState())
	if err != nil {
		return nil, err
	}
	return sl, nil
}

// Structs returns every struct in declaration order. It stops at the
// first struct whose layout cannot be computed.
func (e *LayoutEngine) Structs() ([]*StructLayout, error) {
	out := make([]*StructLayout, 0, len(e.order))
	for _, name := range e.order {
		sl, err := e.Struct(name)
		if err != nil {
			return out, err
		}
		out = append(out, sl)
	}
	return out, nil
}

func (e *LayoutEngine) structLayout(name string, state *layoutState) (*StructLayout, *LayoutError) {
	key := "struct " + name
	if cached, ok := e.cache.get(key); ok {
		return cached.Struct, cached.Err
	}
	if idx, ok := state.index[name]; ok {
		cycle := append(append([]string(nil), state.stack[idx:]...), name)
		for i := range cycle {
			cycle[i] = compose.DemangleText(cycle[i])
		}
		return nil, &LayoutError{Kind: LayoutErrRecursive, Type: name, Cycle: cycle}
	}

	state.index[name] = len(state.stack)
	state.stack = append(state.stack, name)
	sl, err := e.computeStruct(e.structs[name], state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, name)

	if err == nil || err.Kind != LayoutErrRecursive {
		e.cache.put(key, &cacheEntry{Struct: sl, Err: err})
	}
	return sl, err
}

func (e *LayoutEngine) computeStruct(def *structDef, state *layoutState) (*StructLayout, *LayoutError) {
	sl := &StructLayout{Name: def.name, Display: compose.DemangleText(def.name), Align: 1}
	if len(def.members) == 0 {
		return nil, &LayoutError{Kind: LayoutErrBadAttribute, Type: sl.Display, Detail: "struct has no members"}
	}
	memberErr := func(kind LayoutErrorKind, mem wgsl.Member, detail string) *LayoutError {
		return &LayoutError{Kind: kind, Type: sl.Display, Member: mem.Name, Detail: detail}
	}

	offset := 0
	for i, mem := range def.members {
		t, perr := parseTypeText(mem.Type)
		if perr != nil {
			return nil, memberErr(LayoutErrSyntax, mem, perr.Error())
		}
		l, err := e.layoutOf(t, state)
		if err != nil {
			if err.Kind != LayoutErrRecursive && err.Member == "" {
				err = memberErr(err.Kind, mem, err.Detail)
			}
			return nil, err
		}
		if l.Runtime && (i != len(def.members)-1 || l.FieldOffsets != nil) {
			return nil, memberErr(LayoutErrRuntimeArrayPosition, mem, "")
		}

		align, size, span := l.Align, l.Size, l.Size
		if e.Space == Uniform && l.FieldOffsets != nil {
			align = roundUp(align, 16)
			span = roundUp(size, 16)
		}
		if mem.Align > 0 {
			if !isPow2(mem.Align) {
				return nil, memberErr(LayoutErrBadAttribute, mem, fmt.Sprintf("@align(%d) is not a power of two", mem.Align))
			}
			align = mem.Align
		}
		if mem.Size > 0 {
			if l.Runtime {
				return nil, memberErr(LayoutErrBadAttribute, mem, "@size is not allowed on a runtime-sized array")
			}
			if mem.Size < l.Size {
				return nil, memberErr(LayoutErrBadAttribute, mem, fmt.Sprintf("@size(%d) is smaller than the type size %d", mem.Size, l.Size))
			}
			size, span = mem.Size, max(mem.Size, span)
		}

		at := roundUp(offset, align)
		sl.Members = append(sl.Members, MemberLayout{
			Name:    mem.Name,
			Type:    compose.DemangleText(mem.Type),
			Offset:  at,
			Size:    size,
			Align:   align,
			Padding: at - offset,
		})
		offset = at + span
		sl.Align = max(sl.Align, align)
		sl.Runtime = sl.Runtime || l.Runtime
	}
	sl.Size = roundUp(offset, sl.Align)
	sl.TailPadding = sl.Size - offset
	return sl, nil
}

// FieldOffset returns the byte offset of a struct member.
func (e *LayoutEngine) FieldOffset(structName string, fieldIdx int) (int, error) {
	sl, err := e.Struct(structName)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(sl.Members) {
		return 0, nil
	}
	return sl.Members[fieldIdx].Offset, nil
}
