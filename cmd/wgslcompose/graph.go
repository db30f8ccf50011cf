package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wgslcompose/internal/buildpipeline"
	"wgslcompose/internal/compose"
	"wgslcompose/internal/diag"
	"wgslcompose/internal/diagfmt"
	"wgslcompose/internal/loader"
	"wgslcompose/internal/project/dag"
	"wgslcompose/internal/trace"
)

var graphCmd = &cobra.Command{
	Use:   "graph [flags] [entry.wgsl...]",
	Short: "Print the import graph in dependency order",
	Long: `Scan the #import directives reachable from the given entries (or every
manifest entry) and print modules in batches: every module comes after the
modules it imports. Cycles and missing modules are reported as diagnostics.`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringArrayP("include", "I", nil, "module root directory (repeatable)")
	graphCmd.Flags().String("format", "text", "output format (text|json|yaml)")
}

type graphModule struct {
	ID      string   `json:"id" yaml:"id"`
	Imports []string `json:"imports,omitempty" yaml:"imports,omitempty"`
	Hash    string   `json:"hash" yaml:"hash"`
}

type graphReport struct {
	Entries []string      `json:"entries" yaml:"entries"`
	Modules []graphModule `json:"modules" yaml:"modules"`
	Batches [][]string    `json:"batches" yaml:"batches"`
	Missing []string      `json:"missing,omitempty" yaml:"missing,omitempty"`
	Cycles  []string      `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	opts, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	includes, err := cmd.Flags().GetStringArray("include")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q (must be text, json or yaml)", format)
	}

	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	l, ids, err := graphInputs(args, includes)
	if err != nil {
		return err
	}

	span := trace.Begin(tracer, trace.ScopeDriver, "graph", 0)
	res, err := compose.Scan(cmd.Context(), l, ids...)
	if err != nil {
		span.End("error")
		renderError(cmd.ErrOrStderr(), err, format, opts)
		return errReported
	}
	span.WithExtra("modules", fmt.Sprint(len(res.Metas)))
	span.End("")

	bag := diag.NewBag(opts.maxDiagnostics)
	report := buildGraphReport(ids, res, diag.BagReporter{Bag: bag})

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		err = enc.Encode(report)
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	default:
		renderGraphText(out, report)
	}
	if err != nil {
		return err
	}

	if bag.Len() > 0 {
		bag.Dedup()
		bag.Sort()
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, res.Files, diagfmt.PrettyOpts{Color: opts.color, ShowNotes: true, Max: opts.maxDiagnostics})
	}
	if bag.HasErrors() {
		return errReported
	}
	return nil
}

// graphInputs returns the loader and entry ids for graph: explicit entry
// files (resolved like compose), else every entry of the enclosing manifest.
func graphInputs(args, includes []string) (loader.Loader, []string, error) {
	if len(args) == 0 {
		m, err := loadProjectManifest(".")
		if err != nil {
			return nil, nil, err
		}
		l, err := buildpipeline.ProjectLoader(m)
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, 0, len(m.Entries))
		for _, e := range m.Entries {
			id, err := m.EntryID(e)
			if err != nil {
				return nil, nil, err
			}
			ids = append(ids, id)
		}
		return l, ids, nil
	}

	setup, err := setupLoader(args[0], includes, nil)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		if err := checkInsideRoots(setup.roots, arg); err != nil {
			return nil, nil, err
		}
		id, err := entryID(setup.roots, arg)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
	}
	return setup.loader, ids, nil
}

// checkInsideRoots rejects entries the loader cannot see under their id.
func checkInsideRoots(roots []string, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	for _, root := range roots {
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(filepath.ToSlash(rel), "../") {
			return nil
		}
	}
	return fmt.Errorf("%s is outside the module roots", path)
}

func buildGraphReport(entries []string, res *compose.ScanResult, r diag.Reporter) graphReport {
	idx := dag.BuildIndex(res.Metas)
	g, slots := dag.BuildGraph(idx, res.Metas, r)
	topo := dag.ToposortKahn(g)
	dag.ReportCycles(idx, g, slots, topo, r)

	report := graphReport{
		Entries: entries,
		Modules: make([]graphModule, 0, len(res.Metas)),
		Batches: [][]string{},
		Missing: res.Missing,
	}
	for _, meta := range res.Metas {
		m := graphModule{ID: meta.Path, Hash: meta.ContentHash.String()}
		for _, imp := range meta.Imports {
			m.Imports = append(m.Imports, imp.Path)
		}
		report.Modules = append(report.Modules, m)
	}
	for _, batch := range topo.Batches {
		report.Batches = append(report.Batches, idx.Names(batch))
	}
	if topo.Cyclic {
		report.Cycles = idx.Names(topo.Cycles)
	}
	return report
}

func renderGraphText(out io.Writer, report graphReport) {
	imports := make(map[string][]string, len(report.Modules))
	for _, m := range report.Modules {
		imports[m.ID] = m.Imports
	}
	for i, batch := range report.Batches {
		fmt.Fprintf(out, "batch %d:\n", i)
		for _, id := range batch {
			if deps := imports[id]; len(deps) > 0 {
				fmt.Fprintf(out, "  %s <- %s\n", id, strings.Join(deps, ", "))
			} else {
				fmt.Fprintf(out, "  %s\n", id)
			}
		}
	}
	if len(report.Missing) > 0 {
		fmt.Fprintf(out, "missing: %s\n", strings.Join(report.Missing, ", "))
	}
	if len(report.Cycles) > 0 {
		fmt.Fprintf(out, "cyclic: %s\n", strings.Join(report.Cycles, ", "))
	}
}
