package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hupe1980/slabkit"
	"github.com/hupe1980/slabkit/testutil"
)

type stressConfig struct {
	Workers int
	Ops     int
	Seed    int64
	Hold    int     // most handles a worker keeps live
	Skew    float64 // Zipf skew of request sizes
	Keep    bool    // leave the live handles allocated at the end
}

var stressCfg = stressConfig{Workers: 8, Ops: 100_000, Seed: 42, Hold: 64, Skew: 1.1}

func init() {
	cmd := newStressCmd()
	addStressFlags(cmd, &stressCfg)
	rootCmd.AddCommand(cmd)
}

func addStressFlags(cmd *cobra.Command, cfg *stressConfig) {
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent workers")
	cmd.Flags().IntVar(&cfg.Ops, "ops", cfg.Ops, "Operations per worker")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Workload seed")
	cmd.Flags().IntVar(&cfg.Hold, "hold", cfg.Hold, "Maximum live allocations per worker")
	cmd.Flags().Float64Var(&cfg.Skew, "skew", cfg.Skew, "Zipf skew of request sizes (>1 favors small sizes)")
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent allocation workload",
		Long: `The stress command runs random Alloc/Dealloc traffic across all classes
from several goroutines, then verifies every free list and prints per-class
statistics. Requests beyond a class pool spill to the fallback allocator.

Example:
  slabctl stress --workers 16 --ops 1000000
  slabctl stress --class 32:4KiB --hold 256 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newAllocator()
			if err != nil {
				return err
			}
			res, err := runStress(cmd.Context(), a, stressCfg)
			if err != nil {
				return err
			}
			if err := a.Verify(); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			printVerbose("All free lists verified\n")
			return printStressResult(res)
		},
	}
}

type stressResult struct {
	Ops      int64                `json:"ops"`
	Allocs   int64                `json:"allocs"`
	Deallocs int64                `json:"deallocs"`
	Elapsed  time.Duration        `json:"elapsed_ns"`
	Classes  []slabkit.ClassStats `json:"classes"`
}

// tagFloor keeps worker tags out of the free-list link word.
const tagFloor = 4

type handle struct {
	b    []byte
	size int
}

// runStress drives a with cfg. Each worker owns its RNG and its live set, so
// a slot seen by two workers at once shows up as a damaged tag.
func runStress(ctx context.Context, a *slabkit.Allocator, cfg stressConfig) (stressResult, error) {
	if cfg.Workers <= 0 || cfg.Ops < 0 || cfg.Hold <= 0 {
		return stressResult{}, fmt.Errorf("invalid workload: %d workers, %d ops, hold %d", cfg.Workers, cfg.Ops, cfg.Hold)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	classes := a.Classes()
	maxSize := classes[len(classes)-1].SlotSize

	var allocs, deallocs atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		w := w
		g.Go(func() error {
			rng := testutil.NewRNG(cfg.Seed + int64(w))
			tag := byte(w)
			live := make([]handle, 0, cfg.Hold)

			release := func(h handle) error {
				if h.size > tagFloor && h.b[h.size-1] != tag {
					return fmt.Errorf("worker %d: %d-byte allocation changed under it", w, h.size)
				}
				a.Dealloc(h.b, h.size)
				deallocs.Add(1)
				return nil
			}

			for i := 0; i < cfg.Ops; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				if len(live) < cfg.Hold && (len(live) == 0 || rng.Intn(2) == 0) {
					size := rng.RequestSize(maxSize, cfg.Skew)
					b := a.Alloc(size)
					if size > tagFloor {
						b[size-1] = tag
					}
					live = append(live, handle{b, size})
					allocs.Add(1)
					continue
				}
				k := rng.Intn(len(live))
				h := live[k]
				live[k] = live[len(live)-1]
				live = live[:len(live)-1]
				if err := release(h); err != nil {
					return err
				}
			}

			if cfg.Keep {
				return nil
			}
			for _, h := range live {
				if err := release(h); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stressResult{}, err
	}

	return stressResult{
		Ops:      int64(cfg.Workers) * int64(cfg.Ops),
		Allocs:   allocs.Load(),
		Deallocs: deallocs.Load(),
		Elapsed:  time.Since(start),
		Classes:  a.Stats(),
	}, nil
}

func printStressResult(res stressResult) error {
	if jsonOut {
		return printJSON(res)
	}
	if quiet {
		return nil
	}

	p := message.NewPrinter(language.English)
	rate := float64(res.Ops) / res.Elapsed.Seconds()
	p.Printf("%d ops (%d allocs, %d deallocs) in %s, %.0f ops/s\n\n",
		res.Ops, res.Allocs, res.Deallocs, res.Elapsed.Round(time.Millisecond), rate)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "SLOT\tSLOTS\tALLOCATED\tFREE\tREGION\tFALLBACK\t\n")
	for _, c := range res.Classes {
		p.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%d\t\n",
			c.SlotSize, c.SlotCount, c.Allocated, c.Free,
			humanize.IBytes(uint64(c.RegionBytes)), c.FallbackAllocs) //nolint:gosec // positive
	}
	return tw.Flush()
}
