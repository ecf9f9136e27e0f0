// Command stackbench times a stack variant over rounds of a random
// push/pop workload, doubling the thread count each round.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/23skdu/elimstack/internal/logging"
	"github.com/23skdu/elimstack/internal/tracing"
)

// version is stamped into trace resources.
var version = "dev"

func main() {
	args := os.Args[1:]
	cfg, err := LoadConfig(envFileArg(args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackbench: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg, args)

	if err := ValidateConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "stackbench: invalid config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "stackbench: %v\n", err)
		os.Exit(2)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, closeTrace, err := openTracer(ctx, cfg.TraceFile, cfg.TraceEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up tracing")
	}

	rows, err := run(ctx, &cfg, logger, tracer, os.Stdout)
	closeTrace()
	if err != nil {
		logger.Fatal().Err(err).Msg("Benchmark failed")
	}

	if cfg.Output != "" {
		if err := WriteReport(cfg.Output, rows); err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Output).Msg("Failed to write report")
		}
		logger.Info().Str("path", cfg.Output).Int("rows", len(rows)).Msg("Report written")
	}
}

// envFileArg finds -env-file ahead of the full flag parse, which needs the
// environment already loaded for its defaults.
func envFileArg(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "env-file" || !strings.HasPrefix(a, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ".env"
}

// applyFlags overrides cfg with flags given on the command line. Flag
// defaults come from cfg, so unset flags keep the environment's values.
func applyFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("stackbench", flag.ExitOnError)
	fs.String("env-file", ".env", "Optional dotenv file read before the environment")
	fs.StringVar(&cfg.Variant, "variant", cfg.Variant, "Stack variant: delegation, elimination, elimination-rendezvous, hybrid, hybrid-rendezvous")
	fs.IntVar(&cfg.Threads, "threads", cfg.Threads, "Thread count of a single round (with -sweep=false)")
	fs.BoolVar(&cfg.Sweep, "sweep", cfg.Sweep, "Double the thread count from 1 to -max-threads")
	fs.IntVar(&cfg.MaxThreads, "max-threads", cfg.MaxThreads, "Largest thread count of a sweep")
	fs.IntVar(&cfg.Ops, "ops", cfg.Ops, "Operations per round, split across threads")
	fs.IntVar(&cfg.Repetitions, "repetitions", cfg.Repetitions, "Rounds per thread count")
	fs.IntVar(&cfg.DumpCount, "dump", cfg.DumpCount, "Values printed from the top after each round")
	fs.IntVar(&cfg.Nodes, "nodes", cfg.Nodes, "NUMA nodes to use (0 = all)")
	fs.IntVar(&cfg.CoresPerNode, "cores-per-node", cfg.CoresPerNode, "Thread ids per node block (0 = derived)")
	fs.IntVar(&cfg.CombinerNode, "combiner-node", cfg.CombinerNode, "Node the combiner runs on")
	fs.BoolVar(&cfg.Pin, "pin", cfg.Pin, "Pin threads to their node's CPUs")
	fs.BoolVar(&cfg.BindMemory, "bind-memory", cfg.BindMemory, "Place arrays and slots in node-bound memory")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Address to serve Prometheus metrics on (empty = off)")
	fs.StringVar(&cfg.TraceFile, "trace", cfg.TraceFile, "File to write OpenTelemetry spans to, one per round")
	fs.StringVar(&cfg.TraceEndpoint, "trace-endpoint", cfg.TraceEndpoint, "OTLP/gRPC collector to send spans to instead of -trace")
	fs.StringVar(&cfg.Output, "out", cfg.Output, "Parquet file to write per-round results to")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	_ = fs.Parse(args)
}

// openTracer exports to endpoint when set, else to the file at path. Both
// empty yields a nil tracer. The returned func flushes pending spans.
func openTracer(ctx context.Context, path, endpoint string) (*tracing.Tracer, func(), error) {
	if path == "" && endpoint == "" {
		return nil, func() {}, nil
	}

	cfg := tracing.SpanConfig{
		ServiceName:    "stackbench",
		ServiceVersion: version,
		SampleRate:     1,
		Endpoint:       endpoint,
	}
	var f *os.File
	if endpoint == "" {
		var err error
		if f, err = os.Create(path); err != nil {
			return nil, nil, err
		}
		cfg.Output = f
	}

	tracer, err := tracing.NewTracer(ctx, cfg)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}
		return nil, nil, err
	}
	return tracer, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(ctx)
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info().Str("address", addr).Msg("Starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics server stopped")
	}
}
