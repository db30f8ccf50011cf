package dag

import (
	"fmt"
	"slices"
	"strings"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/project"
	"wgslcompose/internal/source"
)

// Graph is the import graph. Edges[from] lists the modules from imports;
// Users is the reverse relation.
type Graph struct {
	Edges   [][]ModuleID
	Users   [][]ModuleID
	Pending []int  // число присутствующих зависимостей (для Kahn)
	Present []bool // модуль реально загружен, а не только упомянут в импорте
}

type ModuleSlot struct {
	Meta    project.ModuleMeta
	Present bool
}

// BuildGraph wires metas into a graph. Duplicate modules, self imports and
// imports of modules that were never loaded are reported to r.
func BuildGraph(idx ModuleIndex, metas []project.ModuleMeta, r diag.Reporter) (Graph, []ModuleSlot) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, nodeCount),
		Users:   make([][]ModuleID, nodeCount),
		Pending: make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]ModuleSlot, nodeCount)
	for i, name := range idx.IDToName {
		slots[i].Meta.Path = name
	}

	for _, meta := range metas {
		if meta.Path == "" {
			continue
		}
		id, ok := idx.NameToID[meta.Path]
		if !ok {
			// не должно происходить, индекс строится на тех же метаданных
			continue
		}
		slot := &slots[int(id)]
		if slot.Present {
			report(r, diag.ProjDuplicateModule, meta.Span,
				fmt.Sprintf("duplicate module %q", meta.Path),
				diag.Note{Span: slot.Meta.Span, Msg: fmt.Sprintf("previous definition of %q", slot.Meta.Path)})
			continue
		}
		slot.Meta = meta
		slot.Present = true
		g.Present[int(id)] = true
	}

	for from := range slots {
		slot := &slots[from]
		if !slot.Present {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(slot.Meta.Imports))
		for _, dep := range slot.Meta.Imports {
			toID, ok := idx.NameToID[dep.Path]
			if !ok {
				continue
			}
			if ModuleID(from) == toID {
				report(r, diag.ProjSelfImport, dep.Span, fmt.Sprintf("module %q imports itself", slot.Meta.Path))
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}

			g.Edges[from] = append(g.Edges[from], toID)
			g.Users[int(toID)] = append(g.Users[int(toID)], ModuleID(from))
			if g.Present[int(toID)] {
				g.Pending[from]++
			} else {
				report(r, diag.ProjMissingModule, dep.Span,
					fmt.Sprintf("module %q imports missing module %q", slot.Meta.Path, idx.IDToName[int(toID)]))
			}
		}
		slices.Sort(g.Edges[from])
	}
	for i := range g.Users {
		slices.Sort(g.Users[i])
	}

	return g, slots
}

// ReportCycles reports one diagnostic per module left in a cycle, naming a
// concrete import chain through it. Modules that only depend on a cycle get
// ProjDependencyFailed.
func ReportCycles(idx ModuleIndex, g Graph, slots []ModuleSlot, topo *Topo, r diag.Reporter) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	stuck := make(map[ModuleID]bool, len(topo.Cycles))
	for _, id := range topo.Cycles {
		stuck[id] = true
	}
	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present {
			continue
		}
		chain := idx.Names(cycleThrough(g, id, stuck))
		if len(chain) < 2 {
			report(r, diag.ProjDependencyFailed, slot.Meta.Span,
				fmt.Sprintf("module %q depends on a module in an import cycle", slot.Meta.Path))
			continue
		}
		report(r, diag.ProjImportCycle, slot.Meta.Span,
			fmt.Sprintf("module %q participates in an import cycle: %s", slot.Meta.Path, strings.Join(chain, " -> ")))
	}
}

// cycleThrough finds a path start -> ... -> start among stuck nodes.
func cycleThrough(g Graph, start ModuleID, stuck map[ModuleID]bool) []ModuleID {
	prev := map[ModuleID]ModuleID{}
	queue := []ModuleID{start}
	visited := map[ModuleID]bool{start: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Edges[int(cur)] {
			if !stuck[next] {
				continue
			}
			if next == start {
				path := []ModuleID{start}
				for n := cur; n != start; n = prev[n] {
					path = append(path, n)
				}
				path = append(path, start)
				// путь собран с конца
				slices.Reverse(path[1 : len(path)-1])
				return path
			}
			if !visited[next] {
				visited[next] = true
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return []ModuleID{start}
}

func report(r diag.Reporter, code diag.Code, sp source.Span, msg string, notes ...diag.Note) {
	if r == nil {
		return
	}
	r.Report(code, diag.SevError, sp, msg, notes)
}
