package main

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/23skdu/elimstack/stack"
)

// envPrefix prefixes every environment variable, e.g. ELIMSTACK_THREADS.
const envPrefix = "ELIMSTACK"

// Config validation errors
var (
	ErrInvalidOps         = errors.New("ops must be positive")
	ErrInvalidMaxThreads  = errors.New("max_threads must be positive")
	ErrInvalidDumpCount   = errors.New("dump_count cannot be negative")
	ErrInvalidRepetitions = errors.New("repetitions must be positive")
	ErrInvalidLogFormat   = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
)

// Config is the benchmark configuration. The embedded stack.Config shares
// the prefix, so ELIMSTACK_VARIANT sets the variant.
type Config struct {
	stack.Config

	// Ops is the number of operations per round, split across the threads.
	Ops int `envconfig:"OPS"`
	// Sweep doubles the thread count from 1 up to MaxThreads.
	Sweep       bool `envconfig:"SWEEP"`
	MaxThreads  int  `envconfig:"MAX_THREADS"`
	Repetitions int  `envconfig:"REPETITIONS"`
	DumpCount   int  `envconfig:"DUMP_COUNT"`

	MetricsAddr   string `envconfig:"METRICS_ADDR"`
	Output        string `envconfig:"OUTPUT"`
	TraceFile     string `envconfig:"TRACE_FILE"`
	TraceEndpoint string `envconfig:"TRACE_ENDPOINT"`
	LogFormat     string `envconfig:"LOG_FORMAT"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	sc := stack.DefaultConfig()
	sc.Threads = 1
	return Config{
		Config:      sc,
		Ops:         10_000_000,
		Sweep:       true,
		MaxThreads:  128,
		Repetitions: 1,
		DumpCount:   10,
		LogFormat:   "console",
		LogLevel:    "info",
	}
}

// LoadConfig layers an optional .env file and then the environment over
// the defaults. A missing .env file is not an error.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg := DefaultConfig()
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.Ops <= 0 {
		return ErrInvalidOps
	}
	if cfg.Sweep && cfg.MaxThreads < 1 {
		return ErrInvalidMaxThreads
	}
	if cfg.Repetitions < 1 {
		return ErrInvalidRepetitions
	}
	if cfg.DumpCount < 0 {
		return ErrInvalidDumpCount
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return cfg.stackConfig().Validate()
}

// ThreadCounts returns the thread count of every round.
func ThreadCounts(cfg *Config) []int {
	if !cfg.Sweep {
		return []int{cfg.Threads}
	}
	var counts []int
	for n := 1; n <= cfg.MaxThreads; n *= 2 {
		counts = append(counts, n)
	}
	return counts
}

// stackConfig sizes the stack for the largest round.
func (cfg *Config) stackConfig() stack.Config {
	sc := cfg.Config
	counts := ThreadCounts(cfg)
	sc.Threads = counts[len(counts)-1]
	return sc
}
