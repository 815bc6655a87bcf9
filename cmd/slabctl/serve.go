package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/slabkit"
	"github.com/hupe1980/slabkit/slabmetrics"
)

var (
	serveAddr      string
	servePause     time.Duration
	serveStressCfg = stressConfig{Workers: 4, Ops: 20_000, Seed: 42, Hold: 256, Skew: 1.1}
)

func init() {
	cmd := newServeCmd()
	cmd.Flags().StringVar(&serveAddr, "addr", ":9090", "Metrics listen address")
	cmd.Flags().DurationVar(&servePause, "pause", 100*time.Millisecond, "Pause between workload rounds")
	addStressFlags(cmd, &serveStressCfg)
	rootCmd.AddCommand(cmd)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a background workload and expose Prometheus metrics",
		Long: `The serve command runs stress rounds in a loop and serves allocator
metrics on /metrics until interrupted.

Example:
  slabctl serve --addr :9090
  slabctl serve --class 64:16KiB --hold 1024   # force fallback traffic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	collector := slabmetrics.New("slabkit")
	a, err := newAllocator(slabkit.WithMetricsCollector(collector))
	if err != nil {
		return err
	}
	collector.Bind(a)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collector, collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		printInfo("Serving metrics on %s/metrics\n", serveAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		cfg := serveStressCfg
		for round := int64(0); ; round++ {
			cfg.Seed = serveStressCfg.Seed + round
			if _, err := runStress(ctx, a, cfg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			printVerbose("Round %d done\n", round)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(servePause):
			}
		}
	})

	return g.Wait()
}
