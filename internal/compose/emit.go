package compose

import (
	"slices"
	"strings"

	"wgslcompose/internal/project"
	"wgslcompose/internal/trace"
	"wgslcompose/internal/wgsl"
)

type declRef struct {
	m   *module
	idx int
}

// markReachable decides which declarations are emitted. The entry's
// whole-module imports pull in every declaration of the target and its
// selective imports pull in the requested ones. Below the entry only what
// an emitted declaration refers to is emitted, so a module whose
// declarations are all unused contributes nothing, its imports included.
func (st *state) markReachable(entry *module) {
	var work []declRef
	enqueue := func(m *module, name string) {
		if idx, ok := m.scan.Index(name); ok {
			if !m.emit[idx] {
				m.emit[idx] = true
				work = append(work, declRef{m, idx})
			}
		}
	}
	enqueueAll := func(m *module) {
		for idx := range m.scan.Decls {
			if !m.emit[idx] {
				m.emit[idx] = true
				work = append(work, declRef{m, idx})
			}
		}
	}

	for _, e := range entry.edges {
		if e.symbols == nil {
			enqueueAll(e.target)
			continue
		}
		for _, name := range e.symbols {
			enqueue(e.target, name)
		}
	}
	for idx := range entry.scan.Decls {
		work = append(work, declRef{entry, idx})
	}

	for len(work) > 0 {
		ref := work[len(work)-1]
		work = work[:len(work)-1]
		m := ref.m
		d := &m.scan.Decls[ref.idx]

		toks := m.scan.Tokens
		for i := d.First; i+2 <= d.Last; i++ {
			if toks[i].Kind != wgsl.Ident || !toks[i+1].Is("::") || toks[i+2].Kind != wgsl.Ident {
				continue
			}
			if target, ok := m.aliases[toks[i].Text]; ok {
				enqueue(target, toks[i+2].Text)
			}
		}
		for _, name := range d.Refs {
			if target, ok := m.imported[name]; ok {
				enqueue(target, name)
			} else if !m.entry {
				enqueue(m, name)
			}
		}
	}
}

func (st *state) withEntry(entry *module) []*module {
	return append(slices.Clone(st.order), entry)
}

// emitUnit writes hoisted global directives, module sections in post-order,
// then the entry body.
func (st *state) emitUnit(entry *module) *Unit {
	var sb strings.Builder
	unit := &Unit{Entry: entry.id}

	hoisted := make(map[string]struct{})
	hoist := func(m *module, d *wgsl.Decl) {
		text := m.scan.Text(d)
		if _, dup := hoisted[text]; dup {
			return
		}
		hoisted[text] = struct{}{}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	for _, m := range st.withEntry(entry) {
		if !m.entry && !slices.Contains(m.emit, true) {
			continue
		}
		for idx := range m.scan.Decls {
			if d := &m.scan.Decls[idx]; d.Kind == wgsl.DeclDirective {
				hoist(m, d)
			}
		}
	}
	if len(hoisted) > 0 {
		sb.WriteString("\n")
	}

	hashes := make([]project.Digest, 0, len(st.order))
	for _, m := range st.order {
		info := ModuleInfo{ID: m.id, Imports: m.deps, Hash: project.Digest(m.file.Hash)}
		wrote := false
		for idx := range m.scan.Decls {
			d := &m.scan.Decls[idx]
			if !m.emit[idx] || d.Kind == wgsl.DeclDirective {
				continue
			}
			sb.WriteString(st.rewrite(m, d))
			sb.WriteString("\n\n")
			wrote = true
			if d.Name != "" {
				info.Emitted = append(info.Emitted, d.Name)
			}
			trace.Point(st.tracer, trace.ScopeDecl, "decl:"+m.id+"::"+d.Name, d.Kind.String(), st.parent)
		}
		if !wrote {
			trace.Point(st.tracer, trace.ScopeModule, "module:"+m.id, "nothing emitted", st.parent)
		}
		unit.Modules = append(unit.Modules, info)
		hashes = append(hashes, info.Hash)
	}

	sb.WriteString(st.rewriteEntry(entry))
	unit.Source = sb.String()
	unit.Digest = project.Combine(project.Digest(entry.file.Hash), hashes...)
	return unit
}

// rewriteEntry rewrites the entry body, keeping comments and layout between
// declarations and dropping hoisted directives.
func (st *state) rewriteEntry(entry *module) string {
	scan := entry.scan
	if len(scan.Tokens) == 0 {
		return scan.Src
	}
	var sb strings.Builder
	sb.Grow(len(scan.Src))
	pos := uint32(0)
	for idx := range scan.Decls {
		d := &scan.Decls[idx]
		sb.WriteString(scan.Src[pos:d.Start])
		if d.Kind != wgsl.DeclDirective {
			sb.WriteString(st.rewrite(entry, d))
		}
		pos = d.End
		if d.Kind == wgsl.DeclDirective && int(pos) < len(scan.Src) && scan.Src[pos] == '\n' {
			pos++
		}
	}
	sb.WriteString(scan.Src[pos:])
	return sb.String()
}

// rewrite renders declaration d of m with imported names qualified.
// Text between tokens, comments included, is copied as is.
func (st *state) rewrite(m *module, d *wgsl.Decl) string {
	first, last := d.First, d.Last
	locals := localsOf(m.scan, d)
	toks := m.scan.Tokens
	src := m.scan.Src
	var sb strings.Builder
	sb.Grow(int(toks[last].End - toks[first].Start))
	pos := toks[first].Start
	for i := first; i <= last; i++ {
		tok := toks[i]
		sb.WriteString(src[pos:tok.Start])
		pos = tok.End
		if tok.Kind != wgsl.Ident {
			sb.WriteString(tok.Text)
			continue
		}
		if i+2 <= last && toks[i+1].Is("::") && toks[i+2].Kind == wgsl.Ident {
			if target, ok := m.aliases[tok.Text]; ok && !afterAccess(toks, i) {
				sb.WriteString(Mangle(toks[i+2].Text, target.id))
				i += 2
				pos = toks[i].End
				continue
			}
		}
		if i == d.NameTok {
			sb.WriteString(st.declName(m, d))
			continue
		}
		sb.WriteString(st.qualify(m, toks, i, last, locals))
	}
	return sb.String()
}

func (st *state) declName(m *module, d *wgsl.Decl) string {
	if m.entry {
		return d.Name
	}
	return Mangle(d.Name, m.id)
}

// qualify returns the output spelling of the identifier at i.
func (st *state) qualify(m *module, toks []wgsl.Token, i, last int, locals map[string]struct{}) string {
	name := toks[i].Text
	if afterAccess(toks, i) || (i > 0 && toks[i-1].Is("@")) {
		return name
	}
	if i+1 <= last && toks[i+1].Is(":") && !(i > 0 && toks[i-1].Kind == wgsl.Ident && toks[i-1].Text == "case") {
		return name // метка поля или параметра
	}
	if _, local := locals[name]; local {
		return name
	}
	if target, ok := m.imported[name]; ok {
		return Mangle(name, target.id)
	}
	if !m.entry {
		if _, ok := m.scan.Lookup(name); ok {
			return Mangle(name, m.id)
		}
	}
	return name
}

func afterAccess(toks []wgsl.Token, i int) bool {
	return i > 0 && (toks[i-1].Is(".") || toks[i-1].Is("::"))
}

// localsOf collects names bound inside a function: parameters and
// let/var/const declarations. They shadow module-level names for the whole
// function body.
func localsOf(scan *wgsl.Module, d *wgsl.Decl) map[string]struct{} {
	if d.Kind != wgsl.DeclFn {
		return nil
	}
	toks := scan.Tokens
	locals := make(map[string]struct{})
	for i := d.NameTok + 1; i <= d.Last; i++ {
		tok := toks[i]
		if tok.Kind != wgsl.Ident {
			continue
		}
		switch tok.Text {
		case "let", "const", "var":
			j := i + 1
			if tok.Text == "var" && j <= d.Last && toks[j].Is("<") {
				for j <= d.Last && !toks[j].Is(">") {
					j++
				}
				j++
			}
			if j <= d.Last && toks[j].Kind == wgsl.Ident {
				locals[toks[j].Text] = struct{}{}
			}
		default:
			if i+1 <= d.Last && toks[i+1].Is(":") && !afterAccess(toks, i) && toks[i-1].Text != "case" {
				locals[tok.Text] = struct{}{}
			}
		}
	}
	return locals
}
