package layout

import (
	"fmt"
	"strconv"
	"strings"
)

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// scalarLayout returns the layout of a host-shareable scalar.
func scalarLayout(name string) (TypeLayout, bool) {
	switch name {
	case "i32", "u32", "f32":
		return TypeLayout{Size: 4, Align: 4}, true
	case "f16":
		return TypeLayout{Size: 2, Align: 2}, true
	default:
		return TypeLayout{}, false
	}
}

// vecLayout: vec2 (2s, 2s), vec3 (3s, 4s), vec4 (4s, 4s).
func vecLayout(n int, scalar TypeLayout) TypeLayout {
	s := scalar.Size
	switch n {
	case 2:
		return TypeLayout{Size: 2 * s, Align: 2 * s}
	case 3:
		return TypeLayout{Size: 3 * s, Align: 4 * s}
	default:
		return TypeLayout{Size: 4 * s, Align: 4 * s}
	}
}

// matLayout for matCxR: AlignOf(vecR), C * stride(vecR).
func matLayout(cols, rows int, scalar TypeLayout) TypeLayout {
	col := vecLayout(rows, scalar)
	return TypeLayout{Size: cols * roundUp(col.Size, col.Align), Align: col.Align}
}

// shorthandScalar maps the vecNf / mat4x4h suffixes.
var shorthandScalar = map[byte]string{'i': "i32", 'u': "u32", 'f': "f32", 'h': "f16"}

// splitVecName recognizes vecN and vecN<suffix>.
func splitVecName(name string) (n int, scalar string, ok bool) {
	if !strings.HasPrefix(name, "vec") || len(name) < 4 {
		return 0, "", false
	}
	n = int(name[3] - '0')
	if n < 2 || n > 4 {
		return 0, "", false
	}
	switch len(name) {
	case 4:
		return n, "", true
	case 5:
		s, ok := shorthandScalar[name[4]]
		return n, s, ok
	}
	return 0, "", false
}

// splitMatName recognizes matCxR and matCxR<suffix>.
func splitMatName(name string) (cols, rows int, scalar string, ok bool) {
	if !strings.HasPrefix(name, "mat") || len(name) < 6 || name[4] != 'x' {
		return 0, 0, "", false
	}
	cols, rows = int(name[3]-'0'), int(name[5]-'0')
	if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
		return 0, 0, "", false
	}
	switch len(name) {
	case 6:
		return cols, rows, "", true
	case 7:
		if name[6] == 'i' || name[6] == 'u' {
			return 0, 0, "", false
		}
		s, ok := shorthandScalar[name[6]]
		return cols, rows, s, ok
	}
	return 0, 0, "", false
}

func (e *LayoutEngine) computeLayout(t typeExpr, state *layoutState) (TypeLayout, *LayoutError) {
	name := t.name

	if l, ok := scalarLayout(name); ok && len(t.args) == 0 {
		return l, nil
	}
	if n, scalar, ok := splitVecName(name); ok {
		sl, err := e.componentLayout(t, scalar, state)
		if err != nil {
			return TypeLayout{}, err
		}
		return vecLayout(n, sl), nil
	}
	if cols, rows, scalar, ok := splitMatName(name); ok {
		sl, err := e.componentLayout(t, scalar, state)
		if err != nil {
			return TypeLayout{}, err
		}
		if sl.Size != 4 && sl.Size != 2 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: t.String(), Detail: "matrix components must be f32 or f16"}
		}
		return matLayout(cols, rows, sl), nil
	}

	switch name {
	case "atomic":
		if len(t.args) != 1 || (t.args[0].name != "i32" && t.args[0].name != "u32") {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: t.String(), Detail: "atomic expects i32 or u32"}
		}
		return TypeLayout{Size: 4, Align: 4}, nil
	case "array":
		return e.arrayLayout(t, state)
	case "bool":
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: name, Detail: "bool (not host-shareable)"}
	}

	if len(t.args) == 0 {
		if target, ok := e.aliases[name]; ok {
			return e.layoutOf(target, state)
		}
		if _, ok := e.structs[name]; ok {
			sl, err := e.structLayout(name, state)
			if err != nil {
				return TypeLayout{}, err
			}
			return sl.typeLayout(), nil
		}
	}
	return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: t.String(), Detail: t.String()}
}

// componentLayout resolves the scalar of vecN<T>/matCxR<T> or its shorthand.
func (e *LayoutEngine) componentLayout(t typeExpr, shorthand string, state *layoutState) (TypeLayout, *LayoutError) {
	if shorthand != "" {
		if len(t.args) != 0 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrSyntax, Type: t.String(), Detail: "shorthand type takes no template arguments"}
		}
		l, _ := scalarLayout(shorthand)
		return l, nil
	}
	if len(t.args) != 1 || t.args[0].number {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrSyntax, Type: t.String(), Detail: "expected one component type"}
	}
	l, err := e.layoutOf(t.args[0], state)
	if err != nil {
		return TypeLayout{}, err
	}
	if (l.Size != 4 && l.Size != 2) || l.FieldOffsets != nil || l.Stride != 0 {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: t.String(), Detail: "components must be scalars"}
	}
	return l, nil
}

func (e *LayoutEngine) arrayLayout(t typeExpr, state *layoutState) (TypeLayout, *LayoutError) {
	if len(t.args) < 1 || len(t.args) > 2 || t.args[0].number {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrSyntax, Type: t.String(), Detail: "expected array<T> or array<T, N>"}
	}
	elem, err := e.layoutOf(t.args[0], state)
	if err != nil {
		return TypeLayout{}, err
	}
	if elem.Runtime {
		return TypeLayout{}, &LayoutError{Kind: LayoutErrRuntimeArrayPosition, Type: t.String()}
	}
	align := elem.Align
	if e.Space == Uniform {
		align = roundUp(align, 16)
	}
	stride := roundUp(elem.Size, align)

	if len(t.args) == 1 {
		if e.Space == Uniform {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrRuntimeArrayInUniform, Type: t.String()}
		}
		return TypeLayout{Align: align, Stride: stride, Runtime: true}, nil
	}
	n, lerr := e.arrayLength(t.args[1])
	if lerr != nil {
		lerr.Type = t.String()
		return TypeLayout{}, lerr
	}
	return TypeLayout{Size: n * stride, Align: align, Stride: stride}, nil
}

func (e *LayoutEngine) arrayLength(arg typeExpr) (int, *LayoutError) {
	var (
		n  int
		ok bool
	)
	switch {
	case arg.number:
		n, ok = intLiteral(arg.name)
	case len(arg.args) == 0:
		n, ok = e.consts[arg.name]
	}
	if !ok {
		return 0, &LayoutError{Kind: LayoutErrBadLength, Detail: strconv.Quote(arg.String())}
	}
	if n <= 0 {
		return 0, &LayoutError{Kind: LayoutErrBadLength, Detail: fmt.Sprint(n)}
	}
	return n, nil
}
