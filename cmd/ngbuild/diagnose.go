package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ngbuild/internal/buildpipeline"
	"ngbuild/internal/diag"
	"ngbuild/internal/diagfmt"
	"ngbuild/internal/project"
	"ngbuild/internal/version"
)

var diagCmd = &cobra.Command{
	Use:     "diagnose [flags] [target...]",
	Aliases: []string{"diag"},
	Short:   "Type-check targets without bundling",
	Long:    `Run the TypeScript and template diagnostics of the targets declared in ngbuild.toml. Nothing is written.`,
	RunE:    runDiagnose,
}

func init() {
	diagCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	diagCmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	diagCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	diagCmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	diagCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

// runDiagnose prints the diagnostics in the chosen format and fails when
// any of them is an error.
func runDiagnose(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "sarif":
	default:
		return fmt.Errorf("unknown format %q (must be pretty, json or sarif)", format)
	}

	manifest, err := project.LoadFrom(".")
	if err != nil {
		return err
	}
	maxDiagnostics := viper.GetInt("max-diagnostics")
	bag, err := buildpipeline.Diagnose(cmd.Context(), buildpipeline.Request{Manifest: manifest, Targets: args}, 0)
	if err != nil {
		return err
	}
	bag = adjustSeverities(bag, noWarnings, warningsAsErrors, maxDiagnostics)

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		err = diagfmt.JSON(out, bag, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			BaseDir:          manifest.Root,
			IncludeNotes:     withNotes,
		})
	case "sarif":
		err = diagfmt.Sarif(out, bag, diagfmt.SarifRunMeta{
			ToolName:       "ngbuild",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
			PathMode:       pathMode,
			BaseDir:        manifest.Root,
		})
	default:
		err = diagfmt.Pretty(out, bag, diagfmt.PrettyOpts{
			Color:       useColor(),
			PathMode:    pathMode,
			BaseDir:     manifest.Root,
			ShowNotes:   withNotes,
			ShowPreview: true,
		})
		if err == nil && !viper.GetBool("quiet") {
			fmt.Fprintf(out, "%d error(s), %d warning(s)\n", bag.Count(diag.SevError), bag.Count(diag.SevWarning))
		}
	}
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		return errSilentExit
	}
	return nil
}

// adjustSeverities applies the warning flags before the limit so dropped
// warnings do not take the place of errors.
func adjustSeverities(bag *diag.Bag, noWarnings, warningsAsErrors bool, maxDiagnostics int) *diag.Bag {
	out := diag.NewBag(maxDiagnostics)
	for _, d := range bag.Items() {
		switch {
		case d.Severity == diag.SevWarning && noWarnings:
			continue
		case d.Severity == diag.SevWarning && warningsAsErrors:
			d.Severity = diag.SevError
		}
		out.Add(d)
	}
	return out
}
