package dag

import (
	"reflect"
	"strings"
	"testing"

	"wgslcompose/internal/diag"
	"wgslcompose/internal/project"
	"wgslcompose/internal/source"
)

func batchesToNames(idx ModuleIndex, batches [][]ModuleID) [][]string {
	out := make([][]string, len(batches))
	for i, batch := range batches {
		out[i] = idx.Names(batch)
	}
	return out
}

func TestBuildIndexIncludesImports(t *testing.T) {
	metas := []project.ModuleMeta{
		{
			Path: "shaders/main",
			Imports: []project.ImportMeta{
				{Path: "lib/math"},
				{Path: "lib/util"},
			},
		},
		{Path: "lib/util"},
	}

	idx := BuildIndex(metas)

	wantNames := []string{"lib/math", "lib/util", "shaders/main"}
	if !reflect.DeepEqual(idx.IDToName, wantNames) {
		t.Fatalf("IDToName = %v, want %v", idx.IDToName, wantNames)
	}
	for i, want := range wantNames {
		if id, ok := idx.NameToID[want]; !ok || int(id) != i {
			t.Fatalf("idx.NameToID[%q] = %v, want %d", want, id, i)
		}
	}
}

func TestBuildGraphReportsMissingModules(t *testing.T) {
	utilImportSpan := source.Span{File: 1, Start: 5, End: 8}

	appMeta := project.ModuleMeta{
		Path: "app",
		Span: source.Span{File: 1},
		Imports: []project.ImportMeta{
			{Path: "core", Span: source.Span{File: 1, Start: 1, End: 4}},
			{Path: "util", Span: utilImportSpan},
		},
	}
	coreMeta := project.ModuleMeta{
		Path: "core",
		Span: source.Span{File: 2},
		Imports: []project.ImportMeta{
			{Path: "util", Span: source.Span{File: 2, Start: 2, End: 5}},
		},
	}

	bag := diag.NewBag(10)
	idx := BuildIndex([]project.ModuleMeta{appMeta, coreMeta})
	graph, _ := BuildGraph(idx, []project.ModuleMeta{appMeta, coreMeta}, diag.BagReporter{Bag: bag})

	appID := idx.NameToID["app"]
	coreID := idx.NameToID["core"]
	utilID := idx.NameToID["util"]

	if got := graph.Edges[int(appID)]; !reflect.DeepEqual(got, []ModuleID{coreID, utilID}) {
		t.Fatalf("app deps = %v", got)
	}
	if got := graph.Users[int(coreID)]; !reflect.DeepEqual(got, []ModuleID{appID}) {
		t.Fatalf("core users = %v", got)
	}
	if graph.Pending[int(appID)] != 1 || graph.Pending[int(coreID)] != 0 {
		t.Fatalf("pending = %v", graph.Pending)
	}
	if !graph.Present[int(appID)] || !graph.Present[int(coreID)] || graph.Present[int(utilID)] {
		t.Fatalf("unexpected Present flags: %v", graph.Present)
	}

	if bag.Len() != 2 {
		t.Fatalf("diagnostics = %d, want 2", bag.Len())
	}
	for _, d := range bag.Items() {
		if d.Code != diag.ProjMissingModule {
			t.Fatalf("diag code = %v, want %v", d.Code, diag.ProjMissingModule)
		}
	}
	if bag.Items()[0].Primary != utilImportSpan {
		t.Errorf("missing module must point at the import")
	}
}

func TestBuildGraphDuplicateModules(t *testing.T) {
	spanA := source.Span{File: 1, Start: 0, End: 5}
	spanB := source.Span{File: 2, Start: 0, End: 5}

	metaA := project.ModuleMeta{Path: "dup/mod", Span: spanA}
	metaB := project.ModuleMeta{Path: "dup/mod", Span: spanB}

	bag := diag.NewBag(10)
	idx := BuildIndex([]project.ModuleMeta{metaA, metaB})
	_, slots := BuildGraph(idx, []project.ModuleMeta{metaA, metaB}, diag.BagReporter{Bag: bag})

	if bag.Len() != 1 || bag.Items()[0].Code != diag.ProjDuplicateModule {
		t.Fatalf("diagnostics = %v", bag.Items())
	}
	if len(bag.Items()[0].Notes) != 1 || bag.Items()[0].Notes[0].Span != spanA {
		t.Errorf("duplicate should note the first definition")
	}
	slot := slots[int(idx.NameToID["dup/mod"])]
	if !slot.Present || slot.Meta.Span != spanA {
		t.Fatalf("expected slot to hold first module metadata")
	}
}

func TestToposortKahnDependenciesFirst(t *testing.T) {
	metas := []project.ModuleMeta{
		{Path: "main", Imports: []project.ImportMeta{{Path: "lib/a"}, {Path: "lib/b"}}},
		{Path: "lib/a", Imports: []project.ImportMeta{{Path: "lib/common"}}},
		{Path: "lib/b"},
		{Path: "lib/common"},
	}

	idx := BuildIndex(metas)
	graph, _ := BuildGraph(idx, metas, nil)

	topo := ToposortKahn(graph)
	if topo.Cyclic {
		t.Fatalf("expected acyclic graph")
	}

	want := [][]string{{"lib/b", "lib/common"}, {"lib/a"}, {"main"}}
	if got := batchesToNames(idx, topo.Batches); !reflect.DeepEqual(got, want) {
		t.Fatalf("batches = %v, want %v", got, want)
	}
	if got := idx.Names(topo.Order); !reflect.DeepEqual(got, []string{"lib/b", "lib/common", "lib/a", "main"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestReportCycles(t *testing.T) {
	metas := []project.ModuleMeta{
		{Path: "a", Span: source.Span{File: 1}, Imports: []project.ImportMeta{{Path: "b"}}},
		{Path: "b", Span: source.Span{File: 2}, Imports: []project.ImportMeta{{Path: "a"}}},
		{Path: "main", Span: source.Span{File: 3}, Imports: []project.ImportMeta{{Path: "a"}}},
	}

	bag := diag.NewBag(10)
	r := diag.BagReporter{Bag: bag}
	idx := BuildIndex(metas)
	graph, slots := BuildGraph(idx, metas, r)

	topo := ToposortKahn(graph)
	if !topo.Cyclic || len(topo.Cycles) != 3 {
		t.Fatalf("expected three stuck modules, got %+v", topo)
	}

	ReportCycles(idx, graph, slots, topo, r)

	var cycles, dependents int
	for _, d := range bag.Items() {
		switch d.Code {
		case diag.ProjImportCycle:
			cycles++
			if !strings.Contains(d.Message, "a -> b -> a") && !strings.Contains(d.Message, "b -> a -> b") {
				t.Errorf("cycle message lacks chain: %q", d.Message)
			}
		case diag.ProjDependencyFailed:
			dependents++
		}
	}
	if cycles != 2 || dependents != 1 {
		t.Fatalf("cycles = %d, dependents = %d: %v", cycles, dependents, bag.Items())
	}
}
