package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/slabkit"
	"github.com/hupe1980/slabkit/internal/dump"
	"github.com/hupe1980/slabkit/internal/fs"
)

var (
	dumpOut         string
	dumpCompression string
	dumpStressCfg   = stressConfig{Workers: 4, Ops: 10_000, Seed: 42, Hold: 64, Skew: 1.1, Keep: true}
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().StringVarP(&dumpOut, "out", "o", "slab.dump", "Output file")
	cmd.Flags().StringVar(&dumpCompression, "compression", "zstd", "Block compression: none, lz4 or zstd")
	addStressFlags(cmd, &dumpStressCfg)
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Run a workload and dump the class regions",
		Long: `The dump command runs a stress workload that leaves its last live
allocations in place, then writes an image of every class region to a file.
Use inspect to read it back.

Example:
  slabctl dump --out slab.dump
  slabctl dump --compression lz4 --ops 50000 --class 64:64KiB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dump.ParseCompression(dumpCompression)
			if err != nil {
				return err
			}
			a, err := newAllocator()
			if err != nil {
				return err
			}
			if _, err := runStress(cmd.Context(), a, dumpStressCfg); err != nil {
				return err
			}
			return runDump(a, dumpOut, c)
		},
	}
}

func runDump(a *slabkit.Allocator, path string, c slabkit.Compression) error {
	err := fs.WriteAtomic(fs.Default, path, func(w io.Writer) error {
		return a.Dump(w, c)
	})
	if err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}

	info, err := fs.Default.Stat(path)
	if err != nil {
		return err
	}
	var region int
	for _, s := range a.Stats() {
		region += s.RegionBytes
	}
	printInfo("Wrote %s: %s of regions as %s (%s)\n", path,
		humanize.IBytes(uint64(region)), humanize.IBytes(uint64(info.Size())), c) //nolint:gosec // sizes are positive
	return nil
}
