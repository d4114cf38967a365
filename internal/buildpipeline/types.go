package buildpipeline

import (
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"ngbuild/internal/observ"
)

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageCompile covers the compilation and the bundling of a target.
	StageCompile Stage = "compile"
	// StageWrite is the output writing stage.
	StageWrite Stage = "write"
	// StageWatch is reported while watch mode waits for changes.
	StageWatch Stage = "watch"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
	// StatusSkipped marks a target whose dependency failed.
	StatusSkipped Status = "skipped"
)

// Event reports progress for a target (or for the whole pipeline when
// Target is empty).
type Event struct {
	Target  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// TargetResult is the outcome of one target build.
type TargetResult struct {
	Name     string
	Errors   []api.Message
	Warnings []api.Message
	// Outputs are written files relative to the project root.
	Outputs []string
	Skipped bool
	Timings Timings
	Phases  observ.Report
}

// Failed reports whether the target produced errors or was skipped.
func (r TargetResult) Failed() bool { return r.Skipped || len(r.Errors) > 0 }

// Report collects the results of one pipeline run in target order.
type Report struct {
	Targets []TargetResult
}

// Failed reports whether any target failed.
func (r Report) Failed() bool {
	for _, t := range r.Targets {
		if t.Failed() {
			return true
		}
	}
	return false
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
