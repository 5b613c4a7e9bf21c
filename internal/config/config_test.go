package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./output", cfg.OutputDir)
	assert.Equal(t, "|", cfg.Delimiter)
	assert.Equal(t, 1_000_000, cfg.ProgressEvery)
	assert.Equal(t, 60, cfg.Matching.ScoreThreshold)
	assert.Equal(t, "0", cfg.Matching.NoMatchFill)
	assert.Equal(t, []string{"contribution", "donation", "transfer", "political contribution"}, cfg.Matching.TransferKeywords)
	assert.Equal(t, 8, cfg.Pool.Workers)
	assert.Equal(t, 30*time.Second, cfg.Pool.TaskTimeout)
	assert.Equal(t, 1000, cfg.Writer.BatchSize)
	assert.Equal(t, 1000, cfg.Writer.QueueCapacity)
	assert.Equal(t, time.Second, cfg.Writer.FlushInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
input_file: ./fullData.txt
output_dir: ./split
progress_every: 0
matching:
  score_threshold: 90
  transfer_keywords: [gift]
pool:
  workers: 2
  task_timeout: 5s
writer:
  flush_interval: 250ms
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./fullData.txt", cfg.InputFile)
	assert.Equal(t, "./split", cfg.OutputDir)
	assert.Equal(t, 0, cfg.ProgressEvery)
	assert.Equal(t, 90, cfg.Matching.ScoreThreshold)
	assert.Equal(t, []string{"gift"}, cfg.Matching.TransferKeywords)
	assert.Equal(t, "0", cfg.Matching.NoMatchFill)
	assert.Equal(t, 2, cfg.Pool.Workers)
	assert.Equal(t, 5*time.Second, cfg.Pool.TaskTimeout)
	assert.Equal(t, 1000, cfg.Writer.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Writer.FlushInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "input_file: from-file.txt\npool:\n  workers: 2\n")

	t.Setenv("SPLIT527_INPUT_FILE", "from-env.txt")
	t.Setenv("SPLIT527_POOL_WORKERS", "16")
	t.Setenv("SPLIT527_MATCHING_SCORE_THRESHOLD", "75")
	t.Setenv("SPLIT527_MATCHING_TRANSFER_KEYWORDS", "a,b")
	t.Setenv("SPLIT527_WRITER_FLUSH_INTERVAL", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.txt", cfg.InputFile)
	assert.Equal(t, 16, cfg.Pool.Workers)
	assert.Equal(t, 75, cfg.Matching.ScoreThreshold)
	assert.Equal(t, []string{"a", "b"}, cfg.Matching.TransferKeywords)
	assert.Equal(t, 2*time.Second, cfg.Writer.FlushInterval)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("SPLIT527_POOL_WORKERS", "many")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(DefaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Pool.Workers)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "pool: [\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.InputFile = "in.txt"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing input", func(c *Config) { c.InputFile = " " }},
		{"empty delimiter", func(c *Config) { c.Delimiter = "" }},
		{"negative progress", func(c *Config) { c.ProgressEvery = -1 }},
		{"threshold too high", func(c *Config) { c.Matching.ScoreThreshold = 101 }},
		{"threshold negative", func(c *Config) { c.Matching.ScoreThreshold = -1 }},
		{"no workers", func(c *Config) { c.Pool.Workers = 0 }},
		{"no timeout", func(c *Config) { c.Pool.TaskTimeout = 0 }},
		{"no batch", func(c *Config) { c.Writer.BatchSize = 0 }},
		{"no queue", func(c *Config) { c.Writer.QueueCapacity = -3 }},
		{"no flush interval", func(c *Config) { c.Writer.FlushInterval = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
