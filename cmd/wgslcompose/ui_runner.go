package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"wgslcompose/internal/buildpipeline"
	"wgslcompose/internal/project"
	"wgslcompose/internal/ui"
)

var errBuildInterrupted = errors.New("build interrupted")

type buildOutcome struct {
	result buildpipeline.BuildResult
	err    error
}

// queued плюс working/done на каждую стадию
var eventsPerEntry = 1 + 2*len(buildpipeline.Stages)

// runBuildWithUI runs the manifest build behind the progress view.
// Quitting the view cancels entries that have not started; outputs that
// were already written stay in place.
func runBuildWithUI(ctx context.Context, manifest *project.Manifest, req *buildpipeline.BuildRequest) (buildpipeline.BuildResult, error) {
	if manifest == nil || req == nil {
		return buildpipeline.BuildResult{}, fmt.Errorf("missing build request")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths := make([]string, len(manifest.Entries))
	for i, e := range manifest.Entries {
		paths[i] = e.Path
	}
	// буфер вмещает все события, иначе Build встанет после выхода из UI
	events := make(chan buildpipeline.Event, eventsPerEntry*len(paths))
	done := make(chan buildOutcome, 1)
	go func() {
		run := *req
		run.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Build(ctx, &run)
		close(events)
		done <- buildOutcome{result: res, err: err}
	}()

	title := "wgslcompose build " + filepath.Base(manifest.Root)
	final, uiErr := tea.NewProgram(ui.NewProgressModel(title, paths, events), tea.WithOutput(os.Stdout)).Run()
	interrupted := ui.Interrupted(final)
	if interrupted {
		cancel()
	}
	outcome := <-done
	switch {
	case uiErr != nil:
		return outcome.result, uiErr
	case interrupted:
		return outcome.result, errBuildInterrupted
	}
	return outcome.result, outcome.err
}
