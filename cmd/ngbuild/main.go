// Package main implements the ngbuild CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"ngbuild/internal/prof"
	"ngbuild/internal/version"
)

var (
	profiler      *prof.Session
	traceCleanup  = func() {}
	errSilentExit = errors.New("exit status 1")
)

var rootCmd = &cobra.Command{
	Use:           "ngbuild",
	Short:         "Build Angular applications with esbuild",
	Long:          `ngbuild compiles Angular applications ahead of time or just in time and bundles them with esbuild.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColorMode(viper.GetString("color")); err != nil {
			return err
		}
		var err error
		profiler, err = prof.Start(prof.Options{
			CPU:   viper.GetString("cpu-profile"),
			Heap:  viper.GetString("mem-profile"),
			Trace: viper.GetString("runtime-trace"),
		})
		if err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return errors.Join(err, profiler.Stop())
		}
		traceCleanup = cleanup
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

func shutdown() error {
	traceCleanup()
	traceCleanup = func() {}
	return profiler.Stop()
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	flags.String("trace", "", "write trace events to a file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage mode (stream|ring)")
	flags.Int("trace-ring-size", 4096, "events kept by the ring tracer")
	flags.String("cpu-profile", "", "write a CPU profile to file")
	flags.String("mem-profile", "", "write a heap profile to file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to file")

	// NGBUILD_MAX_DIAGNOSTICS and friends override the defaults
	viper.SetEnvPrefix("ngbuild")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	flags.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
}

// main executes the root command. Errors already reported by a command are
// not printed again.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		_ = shutdown()
		if !errors.Is(err, errSilentExit) {
			fmt.Fprintf(os.Stderr, "ngbuild: %v\n", err)
		}
		os.Exit(1)
	}
}

func applyColorMode(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func useColor() bool { return !color.NoColor }

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
