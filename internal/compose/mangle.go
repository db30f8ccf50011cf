package compose

import (
	"encoding/base32"
	"strings"
)

// Decoration around the encoded module id, shared with naga_oil so
// downstream bind generators can recover `module::name`.
const (
	decorationPre  = "X_naga_oil_mod_X"
	decorationPost = "X"
)

// Scheme names the mangling convention, for tools that demangle output.
const Scheme = "naga_oil"

var moduleEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Mangle returns the qualified name of declaration name in module id.
func Mangle(name, id string) string {
	return name + decorationPre + moduleEncoding.EncodeToString([]byte(id)) + decorationPost
}

// Demangle splits a qualified name into declaration name and module id.
// ok is false for names that were not produced by Mangle.
func Demangle(qualified string) (name, id string, ok bool) {
	i := strings.Index(qualified, decorationPre)
	if i <= 0 || !strings.HasSuffix(qualified, decorationPost) {
		return "", "", false
	}
	enc := qualified[i+len(decorationPre) : len(qualified)-len(decorationPost)]
	raw, err := moduleEncoding.DecodeString(enc)
	if err != nil {
		return "", "", false
	}
	return qualified[:i], string(raw), true
}

// DemangleText replaces every qualified name in text with `module::name`.
func DemangleText(text string) string {
	if !strings.Contains(text, decorationPre) {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	pos := 0
	for {
		rel := strings.Index(text[pos:], decorationPre)
		if rel < 0 {
			break
		}
		at := pos + rel
		start := at
		for start > pos && isIdentByte(text[start-1]) {
			start--
		}
		end := at + len(decorationPre)
		for end < len(text) && isBase32Byte(text[end]) {
			end++
		}
		if start == at || (end < len(text) && isIdentByte(text[end])) {
			sb.WriteString(text[pos:end])
			pos = end
			continue
		}
		name, id, ok := Demangle(text[start:end])
		if !ok {
			sb.WriteString(text[pos:end])
			pos = end
			continue
		}
		sb.WriteString(text[pos:start])
		sb.WriteString(strings.ReplaceAll(id, "/", "::"))
		sb.WriteString("::")
		sb.WriteString(name)
		pos = end
	}
	sb.WriteString(text[pos:])
	return sb.String()
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func isBase32Byte(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= '2' && b <= '7'
}
