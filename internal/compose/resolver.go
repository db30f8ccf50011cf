// Package compose resolves `#import` directives of a WGSL entry shader and
// produces one self-contained source text.
//
// Resolution is depth-first over module ids with an explicit in-progress
// stack; every module is loaded, parsed and scanned once per call, and
// every declaration is emitted at most once. Imported declarations are
// renamed to qualified names (see Mangle); the entry's own names are kept.
package compose

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/directive"
	"wgslcompose/internal/loader"
	"wgslcompose/internal/project"
	"wgslcompose/internal/source"
	"wgslcompose/internal/trace"
	"wgslcompose/internal/wgsl"
)

// DefaultEntryID names an entry that was given without an id.
const DefaultEntryID = "main"

// Options tune a Resolver.
type Options struct {
	// Tracer receives entry and module events. Nil falls back to the
	// tracer carried by the context.
	Tracer trace.Tracer
}

// Resolver composes entries against one loader. It holds no per-call
// state and may be shared between goroutines when the loader can.
type Resolver struct {
	loader loader.Loader
	opts   Options
}

// New creates a Resolver.
func New(l loader.Loader, opts Options) *Resolver {
	return &Resolver{loader: l, opts: opts}
}

// ModuleInfo describes one module that took part in a resolution.
type ModuleInfo struct {
	ID      string
	Imports []string // прямые зависимости в порядке директив
	Emitted []string // имена объявлений, попавших в вывод
	Hash    project.Digest
}

// Unit is the result of a successful resolution.
type Unit struct {
	Entry   string
	Source  string
	Modules []ModuleInfo // в порядке вывода: зависимости раньше зависимых
	Digest  project.Digest
}

// Resolve composes entryContent into a single WGSL text. It is the
// one-call form of New(l, Options{}).Resolve.
func Resolve(entryContent, entryID string, l loader.Loader) (string, error) {
	unit, err := New(l, Options{}).Resolve(context.Background(), entryContent, entryID)
	if err != nil {
		return "", err
	}
	return unit.Source, nil
}

// Resolve composes entryContent. On error no output is produced. The
// error is a *Error, or ctx.Err() when ctx is done before a module load.
func (r *Resolver) Resolve(ctx context.Context, entryContent, entryID string) (*Unit, error) {
	tracer := r.opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	id := entryID
	if id == "" {
		id = DefaultEntryID
	} else if norm, err := project.NormalizeModulePath(id); err == nil {
		id = norm
	}

	span := trace.Begin(tracer, trace.ScopeEntry, "compose", trace.CurrentSpan(ctx).SpanID)
	span.WithExtra("entry", id)

	st := &state{
		ctx:     ctx,
		loader:  r.loader,
		tracer:  tracer,
		parent:  span.ID(),
		files:   source.NewFileSet(),
		modules: make(map[string]*module),
		onStack: make(map[string]int),
	}
	unit, err := st.run(entryContent, id)
	if err != nil {
		trace.Fail(tracer, trace.ScopeEntry, "compose", err, span.ID())
		span.End("failed")
		return nil, err
	}
	span.WithExtra("modules", fmt.Sprint(len(unit.Modules)))
	span.End("")
	return unit, nil
}

// module is one node of the resolution arena.
type module struct {
	id       string
	file     *source.File
	dir      *directive.File
	scan     *wgsl.Module
	aliases  map[string]*module // alias -> модуль (импорт целиком)
	imported map[string]*module // имя -> модуль (выборочный импорт)
	edges    []edge
	deps     []string
	emit     []bool
	entry    bool
}

type edge struct {
	target  *module
	symbols []string // nil для импорта целиком
}

type state struct {
	ctx     context.Context
	loader  loader.Loader
	tracer  trace.Tracer
	parent  uint64
	files   *source.FileSet
	modules map[string]*module
	order   []*module // post-order
	stack   []string
	onStack map[string]int
}

func (st *state) run(content, id string) (*Unit, error) {
	file := st.files.Get(st.files.Add(id, []byte(content)))
	dir, err := directive.Parse(string(file.Content))
	if err != nil {
		return nil, directiveError(id, st.chain(id), file, err)
	}
	if !dir.HasDirectives() {
		// без директив вход возвращается как есть, даже с CRLF и BOM
		return &Unit{Entry: id, Source: content, Digest: project.Combine(file.Hash)}, nil
	}

	entry := st.newModule(id, file, dir)
	entry.entry = true
	st.push(id)
	if err := st.resolveImports(entry); err != nil {
		return nil, err
	}
	if err := st.scanModule(entry); err != nil {
		return nil, err
	}
	st.pop()

	st.markReachable(entry)
	return st.emitUnit(entry), nil
}

func (st *state) newModule(id string, file *source.File, dir *directive.File) *module {
	return &module{
		id:       id,
		file:     file,
		dir:      dir,
		aliases:  make(map[string]*module),
		imported: make(map[string]*module),
	}
}

func (st *state) push(id string) {
	st.onStack[id] = len(st.stack)
	st.stack = append(st.stack, id)
}

func (st *state) pop() {
	id := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	delete(st.onStack, id)
}

func (st *state) chain(extra ...string) []string {
	out := make([]string, 0, len(st.stack)+len(extra))
	out = append(out, st.stack...)
	return append(out, extra...)
}

// resolveModule returns the fully resolved module id, loading it on first use.
func (st *state) resolveModule(id string, from *module, imp *directive.Import) (*module, error) {
	if at, busy := st.onStack[id]; busy {
		cycle := append(append([]string(nil), st.stack[at:]...), id)
		return nil, &Error{
			Code:   diag.ResCyclicImport,
			Module: from.id,
			Target: id,
			Chain:  cycle,
			Span:   imp.Span,
			File:   from.file,
			Msg:    "cyclic import: " + strings.Join(cycle, " -> "),
		}
	}
	if m, ok := st.modules[id]; ok {
		return m, nil
	}
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}

	text, err := st.loader.Load(id)
	if err != nil {
		msg := fmt.Sprintf("module %q not found", id)
		if !errors.Is(err, loader.ErrNotFound) {
			msg = fmt.Sprintf("cannot load module %q", id)
		}
		return nil, &Error{
			Code:   diag.ResModuleNotFound,
			Module: from.id,
			Target: id,
			Chain:  st.chain(id),
			Span:   imp.PathSpan,
			File:   from.file,
			Msg:    msg,
			Err:    err,
		}
	}
	trace.Point(st.tracer, trace.ScopeModule, "module:"+id, "loaded", st.parent)

	file := st.files.Get(st.files.Add(id, []byte(text)))
	dir, err := directive.Parse(string(file.Content))
	if err != nil {
		return nil, directiveError(id, st.chain(id), file, err)
	}
	m := st.newModule(id, file, dir)

	st.push(id)
	if err := st.resolveImports(m); err != nil {
		return nil, err
	}
	if err := st.scanModule(m); err != nil {
		return nil, err
	}
	st.pop()

	st.modules[id] = m
	st.order = append(st.order, m)
	return m, nil
}

func (st *state) resolveImports(m *module) error {
	for i := range m.dir.Imports {
		imp := &m.dir.Imports[i]
		targetID, err := project.ResolveImportPath(m.id, imp.Path)
		if err != nil {
			return &Error{
				Code:   diag.DirBadImportPath,
				Module: m.id,
				Chain:  st.chain(),
				Span:   imp.PathSpan,
				File:   m.file,
				Msg:    fmt.Sprintf("invalid import path %q", imp.Path),
				Err:    err,
			}
		}
		target, err := st.resolveModule(targetID, m, imp)
		if err != nil {
			return err
		}
		if !slices.Contains(m.deps, target.id) {
			m.deps = append(m.deps, target.id)
		}

		switch imp.Kind {
		case directive.KindAlias:
			if prev, dup := m.aliases[imp.Alias]; dup && prev != target {
				return st.collision(m, imp.Span, imp.Alias,
					fmt.Sprintf("alias %q already refers to module %q", imp.Alias, prev.id))
			}
			if prev, dup := m.imported[imp.Alias]; dup {
				return st.collision(m, imp.Span, imp.Alias,
					fmt.Sprintf("alias %q shadows the symbol imported from %q", imp.Alias, prev.id))
			}
			m.aliases[imp.Alias] = target
			m.edges = append(m.edges, edge{target: target})
		case directive.KindSelective:
			names := make([]string, 0, len(imp.Symbols))
			for _, sym := range imp.Symbols {
				if _, ok := target.scan.Lookup(sym.Name); !ok {
					return &Error{
						Code:   diag.ResSymbolNotFound,
						Module: m.id,
						Target: target.id,
						Symbol: sym.Name,
						Chain:  st.chain(),
						Span:   sym.Span,
						File:   m.file,
						Msg:    fmt.Sprintf("module %q has no declaration named %q", target.id, sym.Name),
					}
				}
				if prev, dup := m.imported[sym.Name]; dup && prev != target {
					return st.collision(m, sym.Span, sym.Name,
						fmt.Sprintf("%q is already imported from module %q", sym.Name, prev.id))
				}
				if prev, dup := m.aliases[sym.Name]; dup {
					return st.collision(m, sym.Span, sym.Name,
						fmt.Sprintf("%q is already an alias of module %q", sym.Name, prev.id))
				}
				m.imported[sym.Name] = target
				names = append(names, sym.Name)
			}
			m.edges = append(m.edges, edge{target: target, symbols: names})
		}
	}
	return nil
}

// scanModule splits the body into declarations and validates the names the
// body uses against the module's imports.
func (st *state) scanModule(m *module) error {
	scan, err := wgsl.Scan(m.dir.Body)
	if err != nil {
		var werr *wgsl.Error
		if errors.As(err, &werr) {
			return &Error{
				Code:   werr.Code,
				Module: m.id,
				Chain:  st.chain(),
				Span:   st.bodySpan(m, werr.Span),
				File:   m.file,
				Msg:    werr.Msg,
			}
		}
		return &Error{Code: diag.WgslUnexpectedToken, Module: m.id, Chain: st.chain(), File: m.file, Msg: "cannot scan module", Err: err}
	}
	m.scan = scan
	m.emit = make([]bool, len(scan.Decls))

	for i := range scan.Decls {
		d := &scan.Decls[i]
		if d.Name == "" {
			continue
		}
		if from, dup := m.imported[d.Name]; dup {
			return st.collision(m, st.bodySpan(m, scan.Tokens[d.NameTok].Span()), d.Name,
				fmt.Sprintf("declaration %q conflicts with the symbol imported from %q", d.Name, from.id))
		}
		if target, dup := m.aliases[d.Name]; dup {
			return st.collision(m, st.bodySpan(m, scan.Tokens[d.NameTok].Span()), d.Name,
				fmt.Sprintf("declaration %q conflicts with the alias of module %q", d.Name, target.id))
		}
	}

	toks := scan.Tokens
	for i := 0; i+2 < len(toks); i++ {
		if toks[i].Kind != wgsl.Ident || !toks[i+1].Is("::") || toks[i+2].Kind != wgsl.Ident {
			continue
		}
		if i > 0 && (toks[i-1].Is(".") || toks[i-1].Is("::")) {
			continue
		}
		target, ok := m.aliases[toks[i].Text]
		if !ok {
			continue
		}
		name := toks[i+2].Text
		if _, ok := target.scan.Lookup(name); !ok {
			sp := source.Span{Start: toks[i].Start, End: toks[i+2].End}
			return &Error{
				Code:   diag.ResSymbolNotFound,
				Module: m.id,
				Target: target.id,
				Symbol: name,
				Chain:  st.chain(),
				Span:   st.bodySpan(m, sp),
				File:   m.file,
				Msg:    fmt.Sprintf("module %q has no declaration named %q", target.id, name),
			}
		}
	}
	return nil
}

func (st *state) collision(m *module, sp source.Span, name, msg string) error {
	return &Error{
		Code:   diag.ResNameCollision,
		Module: m.id,
		Symbol: name,
		Chain:  st.chain(),
		Span:   sp,
		File:   m.file,
		Msg:    msg,
	}
}

func directiveError(id string, chain []string, file *source.File, err error) error {
	out := &Error{Code: diag.DirMalformedImport, Module: id, Chain: chain, File: file, Msg: "malformed directive"}
	var derr *directive.Error
	if errors.As(err, &derr) {
		out.Code = derr.Code
		out.Span = derr.Span
		out.Msg = derr.Msg
		return out
	}
	out.Err = err
	return out
}

// bodySpan maps a span over the directive-free body back to the module text.
func (st *state) bodySpan(m *module, sp source.Span) source.Span {
	return source.Span{Start: m.dir.Origin(sp.Start), End: m.dir.Origin(sp.End)}
}
