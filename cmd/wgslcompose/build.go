package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wgslcompose/internal/buildpipeline"
	"wgslcompose/internal/cache"
	"wgslcompose/internal/diagfmt"
	"wgslcompose/internal/observ"
	"wgslcompose/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Compose every entry of a wgslcompose project",
	Long:  "Compose every [[entry]] of wgslcompose.toml (or wgslcompose.yaml) found in path or its parents.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().Int("jobs", 0, "parallel entries (0 = manifest value or CPU count)")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().Bool("no-cache", false, "compose every entry without the output cache")
	buildCmd.Flags().Bool("clean-cache", false, "drop the output cache before building")
}

const noManifestMessage = "no wgslcompose.toml or wgslcompose.yaml found; use `wgslcompose compose <entry.wgsl>` for a single shader"

func buildExecution(cmd *cobra.Command, args []string) error {
	opts, err := readGlobalOptions(cmd)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if jobs < 0 {
		return fmt.Errorf("--jobs must be >= 0")
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	cleanCache, err := cmd.Flags().GetBool("clean-cache")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	start := "."
	if len(args) > 0 {
		start = args[0]
	}
	manifest, err := loadProjectManifest(start)
	if err != nil {
		return err
	}

	tracer, cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var outCache *cache.Disk
	if !noCache {
		outCache, err = cache.Open("wgslcompose")
		if err != nil {
			return err
		}
		if cleanCache {
			if err := outCache.DropAll(); err != nil {
				return fmt.Errorf("failed to clean cache: %w", err)
			}
		}
	}

	timer := observ.NewTimer()
	req := buildpipeline.BuildRequest{
		Manifest: manifest,
		Cache:    outCache,
		Jobs:     jobs,
		Tracer:   tracer,
		Timer:    timer,
	}

	var res buildpipeline.BuildResult
	if shouldUseTUI(uiModeValue) && !opts.quiet {
		res, err = runBuildWithUI(cmd.Context(), manifest, &req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), &req)
	}

	out := cmd.OutOrStdout()
	if !opts.quiet {
		printEntrySummary(out, manifest.Root, res)
	}
	if opts.timings {
		printStageTimings(out, res.Timings)
		fmt.Fprint(out, timer.Summary())
	}
	if failed := res.Failed(); len(failed) > 0 {
		for _, e := range failed {
			bag, files := diagfmt.FromError(e.Err)
			diagfmt.Pretty(cmd.ErrOrStderr(), bag, files, diagfmt.PrettyOpts{Color: opts.color, ShowNotes: true, Max: opts.maxDiagnostics})
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d entries failed\n", len(failed), len(res.Entries))
		return errReported
	}
	return err
}

func loadProjectManifest(start string) (*project.Manifest, error) {
	info, err := os.Stat(start)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", start, err)
	}
	if !info.IsDir() {
		return project.LoadManifest(start)
	}
	path, ok, err := project.FindManifest(start)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New(noManifestMessage)
	}
	return project.LoadManifest(path)
}

func printEntrySummary(out io.Writer, root string, res buildpipeline.BuildResult) {
	for _, e := range res.Entries {
		switch {
		case e.Err != nil:
			fmt.Fprintf(out, "failed   %s\n", e.Entry.Path)
		case e.Cached:
			fmt.Fprintf(out, "cached   %s -> %s\n", e.Entry.Path, formatPathForOutput(root, e.OutputPath))
		default:
			fmt.Fprintf(out, "composed %s -> %s\n", e.Entry.Path, formatPathForOutput(root, e.OutputPath))
		}
	}
}
