package layout

import (
	"fmt"
	"strconv"
	"strings"

	"wgslcompose/internal/wgsl"
)

// typeExpr is a parsed type reference: `name` or `name<arg, ...>`.
// Numeric template arguments (array lengths) keep their literal text.
type typeExpr struct {
	name   string
	number bool
	args   []typeExpr
}

func (t typeExpr) String() string {
	if len(t.args) == 0 {
		return t.name
	}
	parts := make([]string, 0, len(t.args))
	for _, a := range t.args {
		parts = append(parts, a.String())
	}
	return t.name + "<" + strings.Join(parts, ",") + ">"
}

func parseTypeText(text string) (typeExpr, error) {
	toks, err := wgsl.Tokenize(text)
	if err != nil {
		return typeExpr{}, err
	}
	p := typeParser{toks: toks}
	t, err := p.parse()
	if err != nil {
		return typeExpr{}, err
	}
	if p.pos != len(p.toks) {
		return typeExpr{}, p.errorf("unexpected %q", p.toks[p.pos].Text)
	}
	return t, nil
}

type typeParser struct {
	toks []wgsl.Token
	pos  int
}

type syntaxError string

func (e syntaxError) Error() string { return string(e) }

func (p *typeParser) errorf(format string, args ...any) error {
	return syntaxError(fmt.Sprintf(format, args...))
}

func (p *typeParser) parse() (typeExpr, error) {
	if p.pos >= len(p.toks) {
		return typeExpr{}, p.errorf("unexpected end of type")
	}
	tok := p.toks[p.pos]
	p.pos++
	switch tok.Kind {
	case wgsl.Number:
		return typeExpr{name: tok.Text, number: true}, nil
	case wgsl.Ident:
	default:
		return typeExpr{}, p.errorf("unexpected %q", tok.Text)
	}
	t := typeExpr{name: tok.Text}
	if p.pos >= len(p.toks) || !p.toks[p.pos].Is("<") {
		return t, nil
	}
	p.pos++
	for {
		arg, err := p.parse()
		if err != nil {
			return typeExpr{}, err
		}
		t.args = append(t.args, arg)
		if p.pos >= len(p.toks) {
			return typeExpr{}, p.errorf("unclosed template list in %s", t.name)
		}
		if p.toks[p.pos].Is(",") {
			p.pos++
			// завершающая запятая допустима: array<f32, 4,>
			if p.pos < len(p.toks) && p.toks[p.pos].Is(">") {
				p.pos++
				return t, nil
			}
			continue
		}
		if p.toks[p.pos].Is(">") {
			p.pos++
			return t, nil
		}
		return typeExpr{}, p.errorf("unexpected %q in template list", p.toks[p.pos].Text)
	}
}

// intLiteral parses a WGSL integer literal such as 4, 4u or 0x10i.
func intLiteral(text string) (int, bool) {
	v, err := strconv.ParseInt(strings.TrimRight(text, "iu"), 0, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}
