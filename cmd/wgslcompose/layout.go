package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wgslcompose/internal/compose"
	"wgslcompose/internal/layout"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [flags] <file.wgsl>",
	Short: "Print host-shareable struct layouts",
	Long: `Compose the shader, then print offset, size, alignment and padding of
every struct member as laid out in the storage or uniform address space.`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

func init() {
	layoutCmd.Flags().StringArrayP("include", "I", nil, "module root directory (repeatable)")
	layoutCmd.Flags().StringArray("module", nil, "module override id=path (repeatable)")
	layoutCmd.Flags().String("space", "storage", "address space (storage|uniform)")
	layoutCmd.Flags().String("struct", "", "print only this struct")
	layoutCmd.Flags().String("format", "text", "output format (text|json)")
}

type memberJSON struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Offset  int    `json:"offset"`
	Size    int    `json:"size"`
	Align   int    `json:"align"`
	Padding int    `json:"padding,omitempty"`
}

type structJSON struct {
	Name        string       `json:"name"`
	Size        int          `json:"size"`
	Align       int          `json:"align"`
	Runtime     bool         `json:"runtime_sized,omitempty"`
	TailPadding int          `json:"tail_padding,omitempty"`
	Members     []memberJSON `json:"members"`
}

func runLayout(cmd *cobra.Command, args []string) error {
	opts, err := readGlobalOptions(cmd)
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
	spaceValue, err := cmd.Flags().GetString("space")
	if err != nil {
		return err
	}
	only, err := cmd.Flags().GetString("struct")
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
	space, err := layout.ParseAddressSpace(spaceValue)
	if err != nil {
		return err
	}

	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	entryPath := args[0]
	data, err := os.ReadFile(entryPath)
	if err != nil {
		return fmt.Errorf("failed to read shader: %w", err)
	}
	setup, err := setupLoader(entryPath, includes, modules)
	if err != nil {
		return err
	}
	id, err := entryID(setup.roots, entryPath)
	if err != nil {
		return err
	}
	unit, err := compose.New(setup.loader, compose.Options{Tracer: tracer}).Resolve(cmd.Context(), string(data), id)
	if err != nil {
		renderError(cmd.ErrOrStderr(), err, format, opts)
		return errReported
	}

	structs, err := collectLayouts(unit.Source, space, only)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeLayoutJSON(cmd.OutOrStdout(), structs)
	}
	renderLayoutText(cmd.OutOrStdout(), space, structs)
	return nil
}

// collectLayouts lays out every struct of src, or only the one named
// only (plain or demangled module::name).
func collectLayouts(src string, space layout.AddressSpace, only string) ([]*layout.StructLayout, error) {
	engine, err := layout.FromSource(src, space)
	if err != nil {
		return nil, err
	}
	all, err := engine.Structs()
	if err != nil {
		return nil, err
	}
	if only == "" {
		return all, nil
	}
	for _, s := range all {
		if s.Name == only || s.Display == only {
			return []*layout.StructLayout{s}, nil
		}
	}
	return nil, fmt.Errorf("struct %q not found", only)
}

func renderLayoutText(out io.Writer, space layout.AddressSpace, structs []*layout.StructLayout) {
	for i, s := range structs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		size := fmt.Sprint(s.Size)
		if s.Runtime {
			size += "+"
		}
		fmt.Fprintf(out, "struct %s (%s): size %s, align %d\n", s.Display, space, size, s.Align)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  offset\tsize\talign\tpad\tmember")
		for _, m := range s.Members {
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%d\t%s: %s\n", m.Offset, m.Size, m.Align, m.Padding, m.Name, m.Type)
		}
		if s.TailPadding > 0 {
			fmt.Fprintf(tw, "  \t\t\t%d\t(tail)\n", s.TailPadding)
		}
		_ = tw.Flush()
	}
}

func writeLayoutJSON(out io.Writer, structs []*layout.StructLayout) error {
	payload := make([]structJSON, 0, len(structs))
	for _, s := range structs {
		sj := structJSON{
			Name:        s.Display,
			Size:        s.Size,
			Align:       s.Align,
			Runtime:     s.Runtime,
			TailPadding: s.TailPadding,
			Members:     make([]memberJSON, 0, len(s.Members)),
		}
		for _, m := range s.Members {
			sj.Members = append(sj.Members, memberJSON{
				Name: m.Name, Type: m.Type, Offset: m.Offset, Size: m.Size, Align: m.Align, Padding: m.Padding,
			})
		}
		payload = append(payload, sj)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
