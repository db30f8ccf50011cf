package wgsl

import (
	"fmt"

	"wgslcompose/internal/diag"
)

// DeclKind classifies a top-level declaration.
type DeclKind uint8

const (
	DeclStruct DeclKind = iota + 1
	DeclFn
	DeclConst
	DeclOverride
	DeclVar
	DeclAlias
	DeclConstAssert
	DeclDirective // enable / requires / diagnostic
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclFn:
		return "fn"
	case DeclConst:
		return "const"
	case DeclOverride:
		return "override"
	case DeclVar:
		return "var"
	case DeclAlias:
		return "alias"
	case DeclConstAssert:
		return "const_assert"
	case DeclDirective:
		return "directive"
	default:
		return "unknown"
	}
}

// Decl is one top-level declaration. First and Last index the module's
// token slice (inclusive) and include leading attributes.
type Decl struct {
	Kind    DeclKind
	Name    string // пусто для const_assert и глобальных директив
	NameTok int
	First   int
	Last    int
	Start   uint32
	End     uint32
	Refs    []string
}

// Module is the scanned form of one WGSL text.
type Module struct {
	Src    string
	Tokens []Token
	Decls  []Decl
	byName map[string]int
}

// Lookup returns the named declaration.
func (m *Module) Lookup(name string) (*Decl, bool) {
	i, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	return &m.Decls[i], true
}

// Index returns the position of the named declaration in Decls.
func (m *Module) Index(name string) (int, bool) {
	i, ok := m.byName[name]
	return i, ok
}

// Text returns the source text of d.
func (m *Module) Text(d *Decl) string {
	return m.Src[d.Start:d.End]
}

// Names returns declared names in source order.
func (m *Module) Names() []string {
	out := make([]string, 0, len(m.byName))
	for i := range m.Decls {
		if m.Decls[i].Name != "" {
			out = append(out, m.Decls[i].Name)
		}
	}
	return out
}

var declKeywords = map[string]DeclKind{
	"struct":       DeclStruct,
	"fn":           DeclFn,
	"const":        DeclConst,
	"override":     DeclOverride,
	"var":          DeclVar,
	"alias":        DeclAlias,
	"const_assert": DeclConstAssert,
	"enable":       DeclDirective,
	"requires":     DeclDirective,
	"diagnostic":   DeclDirective,
}

// Scan tokenizes src and splits it into top-level declarations.
func Scan(src string) (*Module, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	m := &Module{Src: src, Tokens: toks, byName: make(map[string]int)}
	p := scanner{toks: toks}
	for !p.done() {
		if p.at().Is(";") {
			p.pos++
			continue
		}
		d, err := p.decl()
		if err != nil {
			return nil, err
		}
		d.Start = toks[d.First].Start
		d.End = toks[d.Last].End
		d.Refs = collectRefs(toks, d)
		if d.Name != "" {
			if prev, dup := m.byName[d.Name]; dup {
				return nil, &Error{
					Code: diag.WgslDuplicateDecl,
					Span: toks[d.NameTok].Span(),
					Msg:  fmt.Sprintf("%q is already declared at offset %d", d.Name, m.Decls[prev].Start),
				}
			}
			m.byName[d.Name] = len(m.Decls)
		}
		m.Decls = append(m.Decls, d)
	}
	return m, nil
}

type scanner struct {
	toks []Token
	pos  int
}

func (p *scanner) done() bool { return p.pos >= len(p.toks) }

func (p *scanner) at() Token {
	if p.done() {
		return Token{Kind: EOF}
	}
	return p.toks[p.pos]
}

func (p *scanner) unexpected(want string) error {
	tok := p.at()
	if tok.Kind == EOF {
		sp := spanOf(0, 0)
		if len(p.toks) > 0 {
			sp = p.toks[len(p.toks)-1].Span()
		}
		return &Error{Code: diag.WgslUnclosedDelimiter, Span: sp, Msg: fmt.Sprintf("unexpected end of input, expected %s", want)}
	}
	return &Error{Code: diag.WgslUnexpectedToken, Span: tok.Span(), Msg: fmt.Sprintf("unexpected %q, expected %s", tok.Text, want)}
}

func (p *scanner) decl() (Decl, error) {
	d := Decl{First: p.pos, NameTok: -1}
	for p.at().Is("@") {
		if err := p.attribute(); err != nil {
			return d, err
		}
	}
	kw := p.at()
	kind, ok := declKeywords[kw.Text]
	if kw.Kind != Ident || !ok {
		return d, p.unexpected("a declaration")
	}
	d.Kind = kind
	p.pos++

	switch kind {
	case DeclDirective:
		if kw.Text == "diagnostic" && p.at().Is("(") {
			if err := p.skipGroup(); err != nil {
				return d, err
			}
		}
		return p.finishAt(d, ";")
	case DeclConstAssert:
		return p.finishAt(d, ";")
	case DeclVar:
		if p.at().Is("<") {
			if err := p.skipTemplate(); err != nil {
				return d, err
			}
		}
	}

	if p.at().Kind != Ident {
		return d, p.unexpected("a name")
	}
	d.Name = p.at().Text
	d.NameTok = p.pos
	p.pos++

	switch kind {
	case DeclStruct:
		if !p.at().Is("{") {
			return d, p.unexpected("'{'")
		}
		if err := p.skipGroup(); err != nil {
			return d, err
		}
		d.Last = p.pos - 1
		if p.at().Is(";") {
			d.Last = p.pos
			p.pos++
		}
		return d, nil
	case DeclFn:
		for !p.done() && !p.at().Is("{") {
			if p.at().Is("(") || p.at().Is("[") {
				if err := p.skipGroup(); err != nil {
					return d, err
				}
				continue
			}
			p.pos++
		}
		if p.done() {
			return d, p.unexpected("function body")
		}
		if err := p.skipGroup(); err != nil {
			return d, err
		}
		d.Last = p.pos - 1
		return d, nil
	default:
		return p.finishAt(d, ";")
	}
}

// finishAt advances to the terminator at nesting depth zero.
func (p *scanner) finishAt(d Decl, term string) (Decl, error) {
	for !p.done() {
		tok := p.at()
		switch {
		case tok.Is(term):
			d.Last = p.pos
			p.pos++
			return d, nil
		case tok.Is("(") || tok.Is("[") || tok.Is("{"):
			if err := p.skipGroup(); err != nil {
				return d, err
			}
		case tok.Is(")") || tok.Is("]") || tok.Is("}"):
			return d, p.unexpected(fmt.Sprintf("%q", term))
		default:
			p.pos++
		}
	}
	return d, p.unexpected(fmt.Sprintf("%q", term))
}

func (p *scanner) attribute() error {
	p.pos++ // '@'
	if p.at().Kind != Ident {
		return p.unexpected("attribute name")
	}
	p.pos++
	if p.at().Is("(") {
		return p.skipGroup()
	}
	return nil
}

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

// skipGroup consumes a balanced (), [] or {} group starting at the current token.
func (p *scanner) skipGroup() error {
	stack := make([]string, 0, 4)
	for !p.done() {
		tok := p.at()
		if tok.Kind == Punct {
			if c, ok := closers[tok.Text]; ok {
				stack = append(stack, c)
			} else if tok.Text == ")" || tok.Text == "]" || tok.Text == "}" {
				if len(stack) == 0 || stack[len(stack)-1] != tok.Text {
					return &Error{Code: diag.WgslUnclosedDelimiter, Span: tok.Span(), Msg: fmt.Sprintf("mismatched %q", tok.Text)}
				}
				stack = stack[:len(stack)-1]
			}
		}
		p.pos++
		if len(stack) == 0 {
			return nil
		}
	}
	return p.unexpected(fmt.Sprintf("%q", stack[len(stack)-1]))
}

// skipTemplate consumes `<...>` after `var`, where no comparison can occur.
func (p *scanner) skipTemplate() error {
	depth := 0
	for !p.done() {
		tok := p.at()
		p.pos++
		switch {
		case tok.Is("<"):
			depth++
		case tok.Is(">"):
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return p.unexpected("'>'")
}

// collectRefs returns identifiers used by d other than its own name,
// member accesses (`x.name`), field/parameter labels (`name:`) and the
// right-hand side of qualified references (`alias::name`).
func collectRefs(toks []Token, d Decl) []string {
	seen := make(map[string]struct{})
	var refs []string
	for i := d.First; i <= d.Last; i++ {
		tok := toks[i]
		if tok.Kind != Ident || i == d.NameTok {
			continue
		}
		if i > d.First && (toks[i-1].Is(".") || toks[i-1].Is("::") || toks[i-1].Is("@")) {
			continue
		}
		if i+1 <= d.Last && toks[i+1].Is(":") {
			continue
		}
		if _, ok := declKeywords[tok.Text]; ok {
			continue
		}
		if _, ok := seen[tok.Text]; ok {
			continue
		}
		seen[tok.Text] = struct{}{}
		refs = append(refs, tok.Text)
	}
	return refs
}
