package main

import (
	"fmt"
	"io"

	"ngbuild/internal/buildpipeline"
)

func printStageTimings(out io.Writer, t buildpipeline.TargetResult) {
	if out == nil {
		return
	}
	if t.Timings.Has(buildpipeline.StageCompile) {
		fmt.Fprintf(out, "  compiled %.1f ms\n", toMillis(t.Timings.Duration(buildpipeline.StageCompile)))
	}
	for _, phase := range t.Phases.Phases {
		fmt.Fprintf(out, "    %-18s %.1f ms", phase.Name, phase.DurationMS)
		if phase.Note != "" {
			fmt.Fprintf(out, "  (%s)", phase.Note)
		}
		fmt.Fprintln(out)
	}
	if t.Timings.Has(buildpipeline.StageWrite) {
		fmt.Fprintf(out, "  written %.1f ms\n", toMillis(t.Timings.Duration(buildpipeline.StageWrite)))
	}
}
