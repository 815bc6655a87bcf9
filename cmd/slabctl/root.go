package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/slabkit"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	classSpecs []string
)

var rootCmd = &cobra.Command{
	Use:   "slabctl",
	Short: "Exercise and inspect slab allocators",
	Long: `slabctl builds a slabkit allocator from size-class specs, runs
concurrent workloads against it, and writes or inspects region dumps.

Classes are given as SIZE:REGION, for example --class 64:512KiB.
Without --class the default classes are used.`,
	SilenceUsage: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringArrayVar(&classSpecs, "class", nil, "Size class as SIZE:REGION (repeatable)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configuredClasses returns the classes named by --class, or the defaults.
func configuredClasses() ([]slabkit.ClassConfig, error) {
	if len(classSpecs) == 0 {
		return slabkit.DefaultClasses(), nil
	}
	classes := make([]slabkit.ClassConfig, 0, len(classSpecs))
	for _, spec := range classSpecs {
		c, err := parseClassSpec(spec)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// cliLogger maps --verbose and --quiet to a log level.
func cliLogger() *slabkit.Logger {
	switch {
	case quiet:
		return slabkit.NoopLogger()
	case verbose:
		return slabkit.NewTextLogger(slog.LevelDebug)
	default:
		return slabkit.NewTextLogger(slog.LevelWarn)
	}
}

// newAllocator builds an allocator from the global flags.
func newAllocator(opts ...slabkit.Option) (*slabkit.Allocator, error) {
	classes, err := configuredClasses()
	if err != nil {
		return nil, err
	}
	base := []slabkit.Option{
		slabkit.WithClasses(classes...),
		slabkit.WithLogger(cliLogger()),
	}
	return slabkit.New(append(base, opts...)...)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
