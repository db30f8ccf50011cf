package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wgslcompose/internal/buildpipeline"
	"wgslcompose/internal/compose"
	"wgslcompose/internal/diagfmt"
	"wgslcompose/internal/observ"
)

var composeCmd = &cobra.Command{
	Use:   "compose [flags] <entry.wgsl>",
	Short: "Compose one WGSL entry shader",
	Long:  "Resolve the #import directives of one entry shader and print the composed WGSL (or write it with -o).",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompose,
}

func init() {
	composeCmd.Flags().StringP("output", "o", "", "write the composed shader to file instead of stdout")
	composeCmd.Flags().StringArrayP("include", "I", nil, "module root directory (repeatable)")
	composeCmd.Flags().StringArray("module", nil, "module override id=path (repeatable)")
	composeCmd.Flags().String("format", "text", "output format (text|json)")
}

type composeModuleJSON struct {
	ID      string   `json:"id"`
	Imports []string `json:"imports,omitempty"`
	Emitted []string `json:"emitted,omitempty"`
	Hash    string   `json:"hash"`
}

type composeJSON struct {
	Entry   string              `json:"entry"`
	Digest  string              `json:"digest"`
	Modules []composeModuleJSON `json:"modules"`
	Source  string              `json:"source"`
}

func runCompose(cmd *cobra.Command, args []string) error {
	opts, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	includes, err := cmd.Flags().GetStringArray("include")
	if err != nil {
		return err
	}
	modules, err := cmd.Flags().GetStringArray("module")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}

	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	timer := observ.NewTimer()
	entryPath := args[0]
	data, err := os.ReadFile(entryPath)
	if err != nil {
		return fmt.Errorf("failed to read entry: %w", err)
	}
	setup, err := setupLoader(entryPath, includes, modules)
	if err != nil {
		return err
	}
	id, err := entryID(setup.roots, entryPath)
	if err != nil {
		return err
	}

	var unit *compose.Unit
	err = timer.Measure("resolve", func() error {
		var rerr error
		unit, rerr = compose.New(setup.loader, compose.Options{Tracer: tracer}).Resolve(cmd.Context(), string(data), id)
		return rerr
	})
	if err != nil {
		renderError(cmd.ErrOrStderr(), err, format, opts)
		return errReported
	}

	if output == "" {
		err = writeComposed(cmd.OutOrStdout(), unit, format)
	} else {
		var sb strings.Builder
		if err = writeComposed(&sb, unit, format); err == nil {
			err = buildpipeline.WriteAtomic(output, sb.String())
		}
	}
	if err != nil {
		return err
	}
	if opts.timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}

func writeComposed(w io.Writer, unit *compose.Unit, format string) error {
	if format == "json" {
		return writeComposeJSON(w, unit)
	}
	_, err := io.WriteString(w, unit.Source)
	return err
}

func writeComposeJSON(w io.Writer, unit *compose.Unit) error {
	payload := composeJSON{
		Entry:   unit.Entry,
		Digest:  unit.Digest.String(),
		Modules: make([]composeModuleJSON, 0, len(unit.Modules)),
		Source:  unit.Source,
	}
	for _, m := range unit.Modules {
		payload.Modules = append(payload.Modules, composeModuleJSON{
			ID:      m.ID,
			Imports: m.Imports,
			Emitted: m.Emitted,
			Hash:    m.Hash.String(),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// renderError prints err as diagnostics in the requested format.
func renderError(w io.Writer, err error, format string, opts globalOptions) {
	bag, files := diagfmt.FromError(err)
	if format == "json" {
		if jerr := diagfmt.JSON(w, bag, files, diagfmt.JSONOpts{IncludePositions: true, IncludeNotes: true, Max: opts.maxDiagnostics}); jerr != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		return
	}
	diagfmt.Pretty(w, bag, files, diagfmt.PrettyOpts{Color: opts.color, ShowNotes: true, Max: opts.maxDiagnostics})
}
