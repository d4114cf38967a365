package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ngbuild/internal/buildpipeline"
	"ngbuild/internal/ui"
)

type buildOutcome struct {
	report buildpipeline.Report
	err    error
}

// runBuildWithUI builds once while the progress model renders the events.
func runBuildWithUI(ctx context.Context, title string, targets []string, req buildpipeline.Request) (buildpipeline.Report, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		req.Progress = buildpipeline.ChannelSink{Ch: events}
		report, err := buildpipeline.Build(ctx, req)
		outcomeCh <- buildOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, targets, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
