package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"wgslcompose/internal/cache"
	"wgslcompose/internal/compose"
	"wgslcompose/internal/version"
)

const versionTagline = "one shader out of many modules"

type versionOptions struct {
	format      string
	showHash    bool
	showMessage bool
	showDate    bool
	showBuild   bool // схема имён, формат кеша, Go
}

// composerBuild describes what composed outputs and cache entries of this
// binary depend on.
type composerBuild struct {
	Mangling    string `json:"mangling"`
	CacheSchema uint16 `json:"cache_schema"`
	Go          string `json:"go"`
}

type versionPayload struct {
	Tool       string         `json:"tool"`
	Version    string         `json:"version"`
	Tagline    string         `json:"tagline"`
	GitCommit  string         `json:"git_commit,omitempty"`
	GitMessage string         `json:"git_message,omitempty"`
	BuildDate  string         `json:"build_date,omitempty"`
	Build      *composerBuild `json:"build,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show wgslcompose build metadata",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("message", false, "include git commit message")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("build", false, "include mangling scheme, cache schema and Go version")
	versionCmd.Flags().Bool("full", false, "show all recorded build metadata")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	if _, err := readGlobalOptions(cmd); err != nil {
		return err
	}
	opts, err := readVersionOptions(cmd)
	if err != nil {
		return err
	}
	info := version.Current()
	if opts.format == "json" {
		return renderVersionJSON(cmd.OutOrStdout(), info, opts)
	}
	renderVersionPretty(cmd.OutOrStdout(), info, opts)
	return nil
}

func readVersionOptions(cmd *cobra.Command) (versionOptions, error) {
	flags := cmd.Flags()
	var opts versionOptions
	full, err := flags.GetBool("full")
	if err != nil {
		return opts, err
	}
	for name, dst := range map[string]*bool{
		"hash":    &opts.showHash,
		"message": &opts.showMessage,
		"date":    &opts.showDate,
		"build":   &opts.showBuild,
	} {
		v, err := flags.GetBool(name)
		if err != nil {
			return opts, err
		}
		*dst = v || full
	}
	format, err := flags.GetString("format")
	if err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(format)
	switch opts.format {
	case "pretty", "json":
	default:
		return opts, fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	return opts, nil
}

func currentBuild() composerBuild {
	return composerBuild{
		Mangling:    compose.Scheme,
		CacheSchema: cache.SchemaVersion,
		Go:          runtime.Version(),
	}
}

func renderVersionPretty(out io.Writer, info version.Info, opts versionOptions) {
	fmt.Fprintf(out, "wgslcompose %s: %s\n", version.Colored(info.Version), versionTagline)
	if opts.showHash {
		fmt.Fprintf(out, "commit:  %s\n", valueOrUnknown(info.GitCommit))
	}
	if opts.showMessage {
		fmt.Fprintf(out, "message: %s\n", valueOrUnknown(info.GitMessage))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:   %s\n", valueOrUnknown(info.BuildDate))
	}
	if opts.showBuild {
		b := currentBuild()
		fmt.Fprintf(out, "mangle:  %s (%s)\n", b.Mangling, compose.Mangle("name", "module"))
		fmt.Fprintf(out, "cache:   schema %d\n", b.CacheSchema)
		fmt.Fprintf(out, "go:      %s\n", b.Go)
	}
}

func renderVersionJSON(out io.Writer, info version.Info, opts versionOptions) error {
	payload := versionPayload{
		Tool:    "wgslcompose",
		Version: info.Version,
		Tagline: versionTagline,
	}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(info.GitCommit)
	}
	if opts.showMessage {
		payload.GitMessage = valueOrUnknown(info.GitMessage)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(info.BuildDate)
	}
	if opts.showBuild {
		b := currentBuild()
		payload.Build = &b
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
