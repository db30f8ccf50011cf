package wgsl

import (
	"fmt"
	"strconv"
	"strings"

	"wgslcompose/internal/diag"
)

// Member is one struct member.
type Member struct {
	Name  string
	Type  string // текст типа как в исходнике, без пробелов по краям
	Align int    // значение @align, 0 если не задан
	Size  int    // значение @size, 0 если не задан
	Start uint32
	End   uint32
}

// ParseStruct returns the members of a struct declaration.
func (m *Module) ParseStruct(d *Decl) ([]Member, error) {
	if d.Kind != DeclStruct {
		return nil, fmt.Errorf("%s is a %s, not a struct", d.Name, d.Kind)
	}
	toks := m.Tokens
	i := d.NameTok + 1 // '{'
	end := d.Last
	if toks[end].Is(";") {
		end--
	}
	i++
	var members []Member
	for i < end {
		var mem Member
		mem.Start = toks[i].Start
		for i < end && toks[i].Is("@") {
			next, align, size, err := memberAttr(toks, i)
			if err != nil {
				return nil, err
			}
			if align > 0 {
				mem.Align = align
			}
			if size > 0 {
				mem.Size = size
			}
			i = next
		}
		if i >= end || toks[i].Kind != Ident {
			return nil, &Error{Code: diag.WgslUnexpectedToken, Span: toks[min(i, end)].Span(), Msg: "expected member name"}
		}
		mem.Name = toks[i].Text
		i++
		if i >= end || !toks[i].Is(":") {
			return nil, &Error{Code: diag.WgslUnexpectedToken, Span: toks[min(i, end)].Span(), Msg: fmt.Sprintf("expected ':' after member %q", mem.Name)}
		}
		i++
		typeStart := i
		depth := 0
		for i < end {
			tok := toks[i]
			if depth == 0 && tok.Is(",") {
				break
			}
			switch {
			case tok.Is("<") || tok.Is("("):
				depth++
			case tok.Is(">") || tok.Is(")"):
				depth--
			}
			i++
		}
		if i == typeStart {
			return nil, &Error{Code: diag.WgslUnexpectedToken, Span: toks[i].Span(), Msg: fmt.Sprintf("missing type for member %q", mem.Name)}
		}
		mem.Type = strings.TrimSpace(m.Src[toks[typeStart].Start:toks[i-1].End])
		mem.End = toks[i-1].End
		members = append(members, mem)
		if i < end && toks[i].Is(",") {
			i++
		}
	}
	return members, nil
}

// memberAttr parses one attribute at toks[i] == '@'. Only @align and @size
// carry layout information; other attributes are skipped.
func memberAttr(toks []Token, i int) (next, align, size int, err error) {
	i++
	if i >= len(toks) || toks[i].Kind != Ident {
		return 0, 0, 0, &Error{Code: diag.WgslUnexpectedToken, Span: toks[i-1].Span(), Msg: "expected attribute name"}
	}
	name := toks[i].Text
	i++
	if i >= len(toks) || !toks[i].Is("(") {
		return i, 0, 0, nil
	}
	argStart := i + 1
	depth := 0
	for i < len(toks) {
		if toks[i].Is("(") {
			depth++
		} else if toks[i].Is(")") {
			depth--
			if depth == 0 {
				break
			}
		}
		i++
	}
	if name != "align" && name != "size" {
		return i + 1, 0, 0, nil
	}
	if i-argStart != 1 || toks[argStart].Kind != Number {
		return 0, 0, 0, &Error{Code: diag.WgslUnexpectedToken, Span: toks[argStart-1].Span(), Msg: fmt.Sprintf("@%s expects an integer literal", name)}
	}
	v, convErr := parseIntLiteral(toks[argStart].Text)
	if convErr != nil {
		return 0, 0, 0, &Error{Code: diag.WgslUnexpectedToken, Span: toks[argStart].Span(), Msg: convErr.Error()}
	}
	if name == "align" {
		return i + 1, v, 0, nil
	}
	return i + 1, 0, v, nil
}

func parseIntLiteral(text string) (int, error) {
	text = strings.TrimRight(text, "iu")
	v, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", text)
	}
	return int(v), nil
}
