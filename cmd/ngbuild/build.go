package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ngbuild/internal/buildpipeline"
	"ngbuild/internal/bundler"
	"ngbuild/internal/diagfmt"
	"ngbuild/internal/project"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [target...]",
	Short: "Build the targets of an ngbuild project",
	Long:  "Build the targets declared in ngbuild.toml. Without arguments every target is built.",
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().String("ui", "auto", "progress UI mode (auto|on|off)")
	buildCmd.Flags().Bool("watch", false, "rebuild affected targets when files change")
	buildCmd.Flags().Duration("debounce", buildpipeline.DefaultDebounce, "wait this long after a change before rebuilding")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	manifest, err := project.LoadFrom(".")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	quiet := viper.GetBool("quiet")
	printer := reportPrinter{
		out:     out,
		root:    manifest.Root,
		max:     viper.GetInt("max-diagnostics"),
		timings: viper.GetBool("timings"),
		quiet:   quiet,
	}
	req := buildpipeline.Request{Manifest: manifest, Targets: args}

	if shouldUseTUI(mode, watch, quiet) {
		report, err := runBuildWithUI(cmd.Context(), "ngbuild build", targetNames(manifest, args), req)
		if err != nil {
			return err
		}
		if err := printer.print(report); err != nil {
			return err
		}
		return exitStatus(report)
	}

	if !quiet {
		req.Progress = lineSink{out: out}
	}
	pipeline, err := buildpipeline.Open(cmd.Context(), req)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	report, err := pipeline.Build(cmd.Context())
	if err != nil {
		return err
	}
	if err := printer.print(report); err != nil {
		return err
	}
	if !watch {
		return exitStatus(report)
	}
	return pipeline.Watch(cmd.Context(), debounce, func(r buildpipeline.Report) {
		if err := printer.print(r); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "ngbuild: %v\n", err)
		}
	})
}

func targetNames(m *project.Manifest, args []string) []string {
	if len(args) > 0 {
		return args
	}
	names := make([]string, 0, len(m.Config.Targets))
	for _, t := range m.Config.Targets {
		names = append(names, t.Name)
	}
	return names
}

func exitStatus(report buildpipeline.Report) error {
	if report.Failed() {
		return errSilentExit
	}
	return nil
}

// lineSink prints progress as plain lines.
type lineSink struct {
	out io.Writer
}

func (s lineSink) OnEvent(ev buildpipeline.Event) {
	switch {
	case ev.Stage == buildpipeline.StageWatch:
		fmt.Fprintln(s.out, "watching for changes...")
	case ev.Status == buildpipeline.StatusDone && ev.Stage == buildpipeline.StageWrite:
		fmt.Fprintf(s.out, "%s: done in %.1f ms\n", ev.Target, toMillis(ev.Elapsed))
	case ev.Status == buildpipeline.StatusError:
		fmt.Fprintf(s.out, "%s: failed\n", ev.Target)
	case ev.Status == buildpipeline.StatusSkipped:
		fmt.Fprintf(s.out, "%s: skipped, a dependency failed\n", ev.Target)
	}
}

type reportPrinter struct {
	out     io.Writer
	root    string
	max     int
	timings bool
	quiet   bool
}

func (p reportPrinter) print(report buildpipeline.Report) error {
	for _, t := range report.Targets {
		if t.Skipped {
			continue
		}
		bag := bundler.Bag(t.Errors, t.Warnings, p.max)
		if bag.Len() > 0 {
			bag.Sort()
			if err := diagfmt.Pretty(p.out, bag, diagfmt.PrettyOpts{
				Color:       useColor(),
				PathMode:    diagfmt.PathModeAuto,
				BaseDir:     p.root,
				ShowNotes:   true,
				ShowPreview: true,
			}); err != nil {
				return err
			}
		}
		if p.quiet || t.Failed() {
			continue
		}
		for _, out := range t.Outputs {
			fmt.Fprintf(p.out, "  %s\n", formatPathForOutput(p.root, out))
		}
		if p.timings {
			printStageTimings(p.out, t)
		}
	}
	return nil
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
