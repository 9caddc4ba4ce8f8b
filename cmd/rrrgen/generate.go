package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Tubbz-alt/ripples/domain/rrr"
	"github.com/Tubbz-alt/ripples/internal"
	"github.com/Tubbz-alt/ripples/internal/config"
	"github.com/Tubbz-alt/ripples/internal/device"
	"github.com/Tubbz-alt/ripples/internal/engine"
	"github.com/Tubbz-alt/ripples/internal/errors"
	"github.com/Tubbz-alt/ripples/internal/graph"
	"github.com/Tubbz-alt/ripples/internal/profiling"
	"github.com/Tubbz-alt/ripples/ports"
)

func newGenerateCmd() *cobra.Command {
	var model, weights string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Load a graph and generate theta samples per round",
		Long: `Load a graph, build the streaming engine and run Generate once per round.

Defaults come from RRR_* environment variables (and .env); flags override them.

Example: rrrgen generate --graph web.txt --model lt --cpu-workers 6 --gpu-workers 2 --gpu-mapping 0,4 --theta 100000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg, model, weights); err != nil {
				return err
			}
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("graph", "", "Graph file path")
	f.String("format", "edgelist", "Graph file format: edgelist or binary")
	f.StringVar(&model, "model", "ic", "Diffusion model: ic or lt")
	f.StringVar(&weights, "weights", "uniform", "Edge weights: uniform or indegree")
	f.Float64("probability", 0.1, "Uniform edge probability")
	f.Uint64("seed", 0, "Master random seed")
	f.Int("theta", 1000, "Samples per round")
	f.Int("rounds", 1, "Number of Generate calls")
	f.Int("cpu-workers", 1, "Number of CPU workers")
	f.Int("gpu-workers", 0, "Number of GPU workers")
	f.String("gpu-mapping", "", "Comma-separated ranks of the GPU workers")
	f.Int("mask-words", 8, "LT result row width in words")
	f.Int("gpu-threads", 1<<15, "LT device-thread budget per GPU worker")
	f.Int("block-size", 256, "LT kernel block size")
	f.Int64("device-memory-limit", 0, "Emulated device memory limit in bytes (0 = unlimited)")
	f.Bool("profile", false, "Report per-iteration profiles when the engine closes")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.String("log-level", "INFO", "Log level: ERROR, WARN, INFO, DEBUG, TRACE")

	return cmd
}

// applyFlags overrides cfg with every flag set on the command line and
// revalidates it.
func applyFlags(cmd *cobra.Command, cfg *config.Config, model, weights string) error {
	f := cmd.Flags()
	var err error
	if f.Changed("model") {
		if cfg.Sampling.Model, err = rrr.ParseDiffusionModel(model); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}
	if f.Changed("weights") {
		if cfg.Sampling.Weights, err = graph.ParseWeightScheme(weights); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}

	strs := map[string]*string{
		"graph":        &cfg.Sampling.GraphPath,
		"format":       &cfg.Sampling.GraphFormat,
		"gpu-mapping":  &cfg.Workers.Mapping,
		"metrics-addr": &cfg.Profiling.MetricsAddr,
		"log-level":    &cfg.Profiling.LogLevel,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			if *dst, err = f.GetString(name); err != nil {
				return err
			}
		}
	}
	ints := map[string]*int{
		"theta":       &cfg.Sampling.Theta,
		"rounds":      &cfg.Sampling.Rounds,
		"cpu-workers": &cfg.Workers.CPU,
		"gpu-workers": &cfg.Workers.GPU,
		"mask-words":  &cfg.Tuning.MaskWords,
		"gpu-threads": &cfg.Tuning.GPUThreads,
		"block-size":  &cfg.Tuning.BlockSize,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			if *dst, err = f.GetInt(name); err != nil {
				return err
			}
		}
	}
	if f.Changed("seed") {
		if cfg.Sampling.Seed, err = f.GetUint64("seed"); err != nil {
			return err
		}
	}
	if f.Changed("probability") {
		if cfg.Sampling.Probability, err = f.GetFloat64("probability"); err != nil {
			return err
		}
	}
	if f.Changed("device-memory-limit") {
		if cfg.Device.MemoryLimit, err = f.GetInt64("device-memory-limit"); err != nil {
			return err
		}
	}
	if f.Changed("profile") {
		if cfg.Profiling.Enabled, err = f.GetBool("profile"); err != nil {
			return err
		}
	}
	return cfg.Validate()
}

func runGenerate(ctx context.Context, out io.Writer, cfg *config.Config) error {
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Profiling.LogLevel))

	g, err := loadGraph(cfg.Sampling)
	if err != nil {
		return err
	}
	logger.Info("graph loaded: %d vertices, %d edges", g.NumNodes(), g.NumEdges())

	var observers profiling.Multi
	if cfg.Profiling.Enabled {
		observers = append(observers, profiling.NewProfiler(logger))
	}
	if cfg.Profiling.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		observers = append(observers, profiling.NewMetrics(reg))
		srv := serveMetrics(cfg.Profiling.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var dev ports.Device
	if cfg.Workers.GPU > 0 {
		dev = device.New(device.Config{
			MaxBlocks:    cfg.Device.MaxBlocks,
			BFSBlockSize: cfg.Device.BFSBlockSize,
			MemoryLimit:  cfg.Device.MemoryLimit,
			MaxStreams:   cfg.Device.MaxStreams,
		})
	}

	opts := engine.Options{
		Graph:      g,
		Seed:       cfg.Sampling.Seed,
		Model:      cfg.Sampling.Model,
		NumCPU:     cfg.Workers.CPU,
		NumGPU:     cfg.Workers.GPU,
		GPUMapping: cfg.Workers.Mapping,
		Device:     dev,
		Tuning:     cfg.Tuning,
		Logger:     logger,
	}
	if len(observers) > 0 {
		opts.Observer = observers
	}
	e, err := engine.New(opts)
	if err != nil {
		return errors.Wrap(err, "failed to build engine")
	}
	defer e.Close()

	for round := 0; round < cfg.Sampling.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		res, err := e.Generate(cfg.Sampling.Theta)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		mean := 0.0
		if len(res) > 0 {
			mean = float64(res.TotalSize()) / float64(len(res))
		}
		fmt.Fprintf(out, "round %d: %d samples (%s), total size %d, mean size %.2f, %v\n",
			round, len(res), cfg.Sampling.Model, res.TotalSize(), mean, elapsed.Round(time.Microsecond))
	}
	return nil
}

func loadGraph(cfg config.SamplingConfig) (*graph.CSR, error) {
	if cfg.GraphPath == "" {
		return nil, errors.ConfigInvalid("a graph file is required (--graph or RRR_GRAPH)")
	}
	p := float32(cfg.Probability)

	var g *graph.CSR
	var err error
	if cfg.GraphFormat == "binary" {
		g, err = graph.ReadBinary(cfg.GraphPath, p)
	} else {
		g, err = graph.ReadEdgeList(cfg.GraphPath, p)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	if cfg.Weights == graph.WeightInDegree {
		return graph.Reweight(g, graph.WeightInDegree, p)
	}
	return g, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger ports.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: %v", err)
		}
	}()
	return srv
}
