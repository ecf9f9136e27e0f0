package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/elimstack/stack"
)

func TestValidateConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ValidateConfig(&cfg))
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"ops", func(c *Config) { c.Ops = 0 }, ErrInvalidOps},
		{"max threads", func(c *Config) { c.MaxThreads = 0 }, ErrInvalidMaxThreads},
		{"repetitions", func(c *Config) { c.Repetitions = 0 }, ErrInvalidRepetitions},
		{"dump count", func(c *Config) { c.DumpCount = -1 }, ErrInvalidDumpCount},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
		{"variant", func(c *Config) { c.Variant = "queue" }, stack.ErrInvalidVariant},
		{"sweep too wide", func(c *Config) { c.MaxThreads = stack.MaxThreads * 2 }, stack.ErrInvalidThreads},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, ValidateConfig(&cfg), tt.wantErr)
		})
	}
}

func TestThreadCounts(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []int{1, 2, 4, 8, 16, 32, 64, 128}, ThreadCounts(&cfg))
	assert.Equal(t, 128, cfg.stackConfig().Threads)

	cfg.MaxThreads = 6
	assert.Equal(t, []int{1, 2, 4}, ThreadCounts(&cfg))

	cfg.Sweep = false
	cfg.Threads = 3
	assert.Equal(t, []int{3}, ThreadCounts(&cfg))
	assert.Equal(t, 3, cfg.stackConfig().Threads)
}

func TestLoadConfig_EnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ELIMSTACK_VARIANT=hybrid\nELIMSTACK_OPS=5000\n"), 0o644))

	// The real environment wins over the dotenv file.
	t.Setenv("ELIMSTACK_OPS", "777")
	t.Setenv("ELIMSTACK_SWEEP", "false")
	t.Setenv("ELIMSTACK_THREADS", "4")
	t.Setenv("ELIMSTACK_VARIANT", "")
	require.NoError(t, os.Unsetenv("ELIMSTACK_VARIANT"))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.Variant)
	assert.Equal(t, 777, cfg.Ops)
	assert.False(t, cfg.Sweep)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 10, cfg.DumpCount)
}

func TestLoadConfig_MissingDotenv(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Ops, cfg.Ops)
}

func TestApplyFlags(t *testing.T) {
	cfg := DefaultConfig()
	applyFlags(&cfg, []string{"-variant", "delegation", "-sweep=false", "-threads", "2", "-out", "r.parquet", "-env-file", "x"})

	assert.Equal(t, "delegation", cfg.Variant)
	assert.False(t, cfg.Sweep)
	assert.Equal(t, 2, cfg.Threads)
	assert.Equal(t, "r.parquet", cfg.Output)
	assert.Equal(t, DefaultConfig().Ops, cfg.Ops, "unset flags keep loaded values")
}

func TestEnvFileArg(t *testing.T) {
	assert.Equal(t, ".env", envFileArg(nil))
	assert.Equal(t, "a.env", envFileArg([]string{"-env-file", "a.env"}))
	assert.Equal(t, "b.env", envFileArg([]string{"-threads", "2", "--env-file=b.env"}))
}
