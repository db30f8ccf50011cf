package directive

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/source"
)

const (
	importKeyword     = "#import"
	definePathKeyword = "#define_import_path"
)

// Parse scans content line by line, collecting directives and building the
// body with every directive line removed. The first malformed directive is
// returned as *Error.
func Parse(content string) (*File, error) {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		return nil, fmt.Errorf("module too large: %w", err)
	}
	f := &File{}
	var body strings.Builder
	body.Grow(len(content))

	var lineNo uint32
	runStart := 0 // начало текущего непрерывного куска тела в content
	off := 0
	for off < len(content) {
		lineNo++
		end := strings.IndexByte(content[off:], '\n')
		next := len(content)
		if end >= 0 {
			end += off
			next = end + 1
		} else {
			end = len(content)
		}
		line := content[off:end]
		kw, rest, ok := directiveKeyword(line)
		if !ok {
			off = next
			continue
		}

		f.flush(&body, content, runStart, off)
		runStart = next

		lead := len(line) - len(strings.TrimLeft(line, " \t"))
		lineSpan := span(off, end)
		restOff := off + lead + len(kw)
		switch kw {
		case importKeyword:
			imp, err := parseImport(rest, restOff)
			if err != nil {
				err.Line = lineNo
				if err.Span.Empty() {
					err.Span = lineSpan
				}
				return nil, err
			}
			imp.Line = lineNo
			imp.Span = lineSpan
			f.Imports = append(f.Imports, imp)
		case definePathKeyword:
			name := strings.TrimSpace(stripComment(rest))
			if name == "" || strings.ContainsAny(name, " \t\"") {
				return nil, &Error{Code: diag.DirBadImportPath, Span: lineSpan, Line: lineNo, Msg: "#define_import_path expects a single module name"}
			}
			if f.DefinePath != "" {
				return nil, &Error{Code: diag.DirMalformedImport, Span: lineSpan, Line: lineNo, Msg: "duplicate #define_import_path"}
			}
			f.DefinePath = name
		}
		off = next
	}
	f.flush(&body, content, runStart, len(content))
	f.Body = body.String()
	return f, nil
}

func (f *File) flush(body *strings.Builder, content string, from, to int) {
	if to <= from {
		return
	}
	f.segments = append(f.segments, segment{
		body: uint32(body.Len()),
		src:  uint32(from),
		n:    uint32(to - from),
	})
	body.WriteString(content[from:to])
}

// directiveKeyword reports whether line is a directive line and returns the
// keyword and the text after it.
func directiveKeyword(line string) (kw, rest string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, k := range []string{definePathKeyword, importKeyword} {
		if !strings.HasPrefix(trimmed, k) {
			continue
		}
		after := trimmed[len(k):]
		if after == "" || after[0] == ' ' || after[0] == '\t' {
			return k, after, true
		}
	}
	return "", "", false
}

// parseImport разбирает всё после "#import"; base: смещение rest в файле.
func parseImport(rest string, base int) (Import, *Error) {
	text := stripComment(rest)
	lead := len(text) - len(strings.TrimLeft(text, " \t"))
	text = strings.TrimSpace(text)
	base += lead
	if text == "" {
		return Import{}, &Error{Code: diag.DirMalformedImport, Msg: "#import expects a module path"}
	}

	var (
		path    string
		pathEnd int
	)
	if text[0] == '"' {
		closing := strings.IndexByte(text[1:], '"')
		if closing < 0 {
			return Import{}, &Error{Code: diag.DirMalformedImport, Span: span(base, base+len(text)), Msg: "unterminated module path string"}
		}
		path = text[1 : closing+1]
		pathEnd = closing + 2
	} else {
		pathEnd = len(text)
		if i := strings.Index(text, "::{"); i >= 0 {
			pathEnd = i
		} else if i := strings.IndexAny(text, " \t"); i >= 0 {
			pathEnd = i
		}
		path = text[:pathEnd]
	}
	if strings.TrimSpace(path) == "" {
		return Import{}, &Error{Code: diag.DirBadImportPath, Span: span(base, base+pathEnd), Msg: "empty module path"}
	}
	imp := Import{Path: path, PathSpan: span(base, base+pathEnd)}
	tail := text[pathEnd:]
	tailOff := base + pathEnd

	switch {
	case strings.HasPrefix(tail, "::"):
		syms, err := parseSymbols(tail[2:], tailOff+2)
		if err != nil {
			return Import{}, err
		}
		imp.Kind = KindSelective
		imp.Symbols = syms
	case strings.TrimSpace(tail) == "":
		// "#import foo::bar": модуль под именем последнего сегмента
		imp.Kind = KindAlias
		imp.Alias = defaultAlias(path)
		if !IsIdent(imp.Alias) {
			return Import{}, &Error{Code: diag.DirExpectAlias, Span: imp.PathSpan, Msg: fmt.Sprintf("cannot derive an alias from %q; add `as <name>`", path)}
		}
	default:
		trimmed := strings.TrimLeft(tail, " \t")
		tailOff += len(tail) - len(trimmed)
		after, found := strings.CutPrefix(trimmed, "as")
		if !found || (after != "" && after[0] != ' ' && after[0] != '\t') {
			return Import{}, &Error{Code: diag.DirMalformedImport, Span: span(tailOff, tailOff+len(trimmed)), Msg: "expected `as <alias>` or `::{...}` after module path"}
		}
		alias := strings.TrimSpace(after)
		if !IsIdent(alias) {
			return Import{}, &Error{Code: diag.DirExpectAlias, Span: span(tailOff, tailOff+len(trimmed)), Msg: fmt.Sprintf("invalid alias %q", alias)}
		}
		imp.Kind = KindAlias
		imp.Alias = alias
	}
	return imp, nil
}

func parseSymbols(text string, base int) ([]Symbol, *Error) {
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return nil, &Error{Code: diag.DirExpectSymbols, Span: span(base, base+len(text)), Msg: "expected `{Symbol, ...}` after `::`"}
	}
	inner := text[1 : len(text)-1]
	innerOff := base + 1
	syms := make([]Symbol, 0, strings.Count(inner, ",")+1)
	seen := make(map[string]struct{})
	pos := 0
	for _, part := range strings.Split(inner, ",") {
		partOff := innerOff + pos
		pos += len(part) + 1
		name := strings.TrimSpace(part)
		if name == "" {
			continue // "{}" и завершающая запятая допустимы
		}
		start := partOff + strings.Index(part, name)
		if !IsIdent(name) {
			return nil, &Error{Code: diag.DirExpectSymbols, Span: span(start, start+len(name)), Msg: fmt.Sprintf("invalid symbol name %q", name)}
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		syms = append(syms, Symbol{Name: name, Span: span(start, start+len(name))})
	}
	return syms, nil
}

// stripComment drops a trailing `//` comment that is not inside quotes.
func stripComment(s string) string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuote = !inQuote
		case !inQuote && s[i] == '/' && i+1 < len(s) && s[i+1] == '/':
			return s[:i]
		}
	}
	return s
}

// defaultAlias returns the last segment of a module path without extension.
func defaultAlias(path string) string {
	path = strings.TrimSuffix(path, ".wgsl")
	if i := strings.LastIndex(path, "::"); i >= 0 {
		path = path[i+2:]
	}
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		path = path[i+1:]
	}
	return path
}

// IsIdent reports whether s is a valid WGSL identifier usable as a binding.
func IsIdent(s string) bool {
	if s == "" || s == "_" || strings.HasPrefix(s, "__") {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func span(start, end int) source.Span {
	return source.Span{Start: uint32(start), End: uint32(end)}
}
