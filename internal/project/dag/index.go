// Package dag checks the import graph of a project: missing and duplicate
// modules, self imports and cycles, and orders modules so that every
// module comes after the modules it imports.
package dag

import (
	"maps"
	"slices"

	"wgslcompose/internal/project"
)

type ModuleID uint32

// ModuleIndex assigns dense ids to module paths in sorted order, so ids
// are stable for the same set of modules.
type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// BuildIndex indexes every module path and every imported path, loaded
// or not.
func BuildIndex(metas []project.ModuleMeta) ModuleIndex {
	set := make(map[string]struct{}, len(metas))
	add := func(p string) {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	for _, meta := range metas {
		add(meta.Path)
		for _, imp := range meta.Imports {
			add(imp.Path)
		}
	}
	idx := ModuleIndex{
		NameToID: make(map[string]ModuleID, len(set)),
		IDToName: slices.Sorted(maps.Keys(set)),
	}
	for i, name := range idx.IDToName {
		idx.NameToID[name] = toModuleID(i)
	}
	return idx
}

// Names maps ids back to module paths.
func (idx ModuleIndex) Names(ids []ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[id]
	}
	return out
}
