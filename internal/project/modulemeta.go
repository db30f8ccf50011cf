package project

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"wgslcompose/internal/source"
)

// ShaderExt is the extension dropped from module references.
const ShaderExt = ".wgsl"

type ImportMeta struct {
	Path string
	Span source.Span
}

// ModuleMeta is the directive-level view of one module: who it is and what it imports.
type ModuleMeta struct {
	Path        string // нормализованный путь модуля: "a/b"
	DefinePath  string // значение #define_import_path, если есть
	Span        source.Span
	Imports     []ImportMeta
	ContentHash Digest
	ModuleHash  Digest // агрегированный хеш модуля с учётом зависимостей
}

func IsValidModuleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
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

var errInvalidModulePath = errors.New("invalid module path")

// NormalizeModulePath приводит ссылку на модуль к каноническому виду "a/b".
// Отсекает расширение .wgsl, переводит "::" и '\' в '/', приводит к NFC,
// запрещает пустые сегменты, ".", "..".
func NormalizeModulePath(path string) (string, error) {
	path = norm.NFC.String(strings.TrimSpace(path))
	path = strings.TrimSuffix(path, ShaderExt)
	path = strings.ReplaceAll(path, "::", "/")
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", errInvalidModulePath
	}
	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w %q", errInvalidModulePath, path)
		}
	}
	return strings.Join(segments, "/"), nil
}

// ResolveImportPath turns the reference written in modulePath's directive
// into a ModuleId. References starting with "./" or "../" are relative to
// the importing module's directory; everything else is already absolute.
func ResolveImportPath(modulePath, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty import path")
	}
	ref = strings.ReplaceAll(ref, "\\", "/")
	if !strings.HasPrefix(ref, "./") && !strings.HasPrefix(ref, "../") {
		return NormalizeModulePath(ref)
	}

	var target []string
	if i := strings.LastIndex(modulePath, "/"); i >= 0 {
		target = append(target, strings.Split(modulePath[:i], "/")...)
	}
	for _, seg := range strings.Split(strings.TrimSuffix(ref, ShaderExt), "/") {
		switch seg {
		case "":
			return "", errors.New("empty import segment")
		case ".":
			continue
		case "..":
			if len(target) == 0 {
				return "", errors.New("import path escapes project root")
			}
			target = target[:len(target)-1]
		default:
			target = append(target, seg)
		}
	}
	if len(target) == 0 {
		return "", errors.New("import resolves to empty path")
	}
	return NormalizeModulePath(strings.Join(target, "/"))
}
