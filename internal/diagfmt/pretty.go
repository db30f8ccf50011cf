package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/source"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем строку исходника с подчёркиванием ^~~~ по Span и заметки.
// Диагностики без файла печатаются без позиции.
func Pretty(w io.Writer, bag *diag.Bag, files Files, opts PrettyOpts) {
	p := newPalette(opts.Color)
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	for i := range items {
		d := &items[i]
		f := lookup(files, d.Primary)

		var loc string
		if f != nil {
			pos := f.Position(d.Primary.Start)
			loc = fmt.Sprintf("%s:%d:%d: ", formatPath(f, opts.PathMode), pos.Line, pos.Col)
		}
		fmt.Fprintf(w, "%s%s %s: %s\n", p.path(loc), p.severity(d.Severity), p.code(d.Code.ID()), d.Message)

		if f != nil {
			writeSnippet(w, f, d.Primary, opts.Context, p)
		}
		if !opts.ShowNotes {
			continue
		}
		for _, note := range d.Notes {
			nf := lookup(files, note.Span)
			if nf == nil || note.Span.Empty() {
				fmt.Fprintf(w, "  %s %s\n", p.note("= note:"), note.Msg)
				continue
			}
			pos := nf.Position(note.Span.Start)
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", p.note("= note:"), formatPath(nf, opts.PathMode), pos.Line, pos.Col, note.Msg)
		}
	}
	if dropped := bag.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "... %d more diagnostic(s) not shown\n", dropped)
	}
}

// writeSnippet prints the line of span with a caret underline. Context
// lines before it are printed without marks.
func writeSnippet(w io.Writer, f *source.File, span source.Span, context uint8, p palette) {
	start := f.Position(span.Start)
	first := start.Line
	if uint32(context) < first {
		first -= uint32(context)
	} else {
		first = 1
	}
	gutter := len(fmt.Sprint(start.Line))
	for ln := first; ln <= start.Line; ln++ {
		fmt.Fprintf(w, " %*d | %s\n", gutter, ln, f.Line(ln))
	}

	line := f.Line(start.Line)
	col := int(start.Col) - 1
	col = max(min(col, len(line)), 0)
	width := int(span.Len())
	if rest := len(line) - col; width > rest {
		width = rest // подчёркиваем только первую строку
	}
	width = max(width, 1)

	var pad strings.Builder
	for _, b := range []byte(line[:col]) {
		if b == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	mark := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %*s | %s%s\n", gutter, "", pad.String(), p.caret(mark))
}

type palette struct {
	err, warn, info, codeC, pathC, noteC, caretC *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		codeC:  color.New(color.Bold),
		pathC:  color.New(color.FgWhite, color.Bold),
		noteC:  color.New(color.FgBlue),
		caretC: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.codeC, p.pathC, p.noteC, p.caretC} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return p.err.Sprint(s.String())
	case diag.SevWarning:
		return p.warn.Sprint(s.String())
	default:
		return p.info.Sprint(s.String())
	}
}

func (p palette) code(id string) string { return p.codeC.Sprint(id) }

func (p palette) path(loc string) string {
	if loc == "" {
		return ""
	}
	return p.pathC.Sprint(loc)
}

func (p palette) note(s string) string  { return p.noteC.Sprint(s) }
func (p palette) caret(s string) string { return p.caretC.Sprint(s) }
