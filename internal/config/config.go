// =============================================================================
// IRS 527 Splitter - Configuration Module
// =============================================================================
//
// This module loads the run configuration. Values are layered, later layers
// winning over earlier ones:
//
//   1. Built-in defaults (Default)
//   2. The YAML config file (config.yaml unless --config says otherwise)
//   3. Environment variables prefixed with SPLIT527_
//   4. Command line flags (applied by the cmd package)
//
// ENVIRONMENT VARIABLES:
//   Every field can be set from the environment. Nested sections join their
//   names with an underscore, for example:
//
//   SPLIT527_INPUT_FILE=./fullData.txt
//   SPLIT527_POOL_WORKERS=16
//   SPLIT527_MATCHING_SCORE_THRESHOLD=90
//   SPLIT527_MATCHING_TRANSFER_KEYWORDS=contribution,donation
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config file used when --config is not given.
const DefaultConfigPath = "config.yaml"

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "SPLIT527"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the settings for one splitter run.
type Config struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// InputFile is the pipe-delimited IRS 527 bulk data file.
	// Required.
	InputFile string `yaml:"input_file" envconfig:"INPUT_FILE"`

	// OutputDir receives one <type>_records.txt file per record type and
	// the exception log. It is created if missing.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`

	// Delimiter separates fields on every line.
	// Default: "|"
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER"`

	// SchemaWorkbook is an optional XLSX file whose sheets override the
	// built-in header tables. One sheet per record type, named after the
	// discriminator.
	SchemaWorkbook string `yaml:"schema_workbook" envconfig:"SCHEMA_WORKBOOK"`

	// SummaryDB is an optional SQLite database that receives the run summary.
	SummaryDB string `yaml:"summary_db" envconfig:"SUMMARY_DB"`

	// ReportFile is an optional path the Markdown report is written to, in
	// addition to standard output.
	ReportFile string `yaml:"report_file" envconfig:"REPORT_FILE"`

	// ProgressEvery logs progress every N input lines. 0 disables progress.
	// Default: 1000000
	ProgressEvery int `yaml:"progress_every" envconfig:"PROGRESS_EVERY"`

	// =========================================================================
	// SECTIONS
	// =========================================================================

	Matching MatchingConfig `yaml:"matching" envconfig:"MATCHING"`
	Pool     PoolConfig     `yaml:"pool" envconfig:"POOL"`
	Writer   WriterConfig   `yaml:"writer" envconfig:"WRITER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// MatchingConfig controls fuzzy scoring and transfer detection.
type MatchingConfig struct {
	// ScoreThreshold is the minimum match score, inclusive, for an
	// expenditure to count as a PAC-to-PAC transfer. 0 to 100.
	// Default: 60
	ScoreThreshold int `yaml:"score_threshold" envconfig:"SCORE_THRESHOLD"`

	// NoMatchFill is written to fuzzy_match_score when the recipient name is
	// empty or nothing in the registry matched.
	// Default: "0"
	NoMatchFill string `yaml:"no_match_fill" envconfig:"NO_MATCH_FILL"`

	// TransferKeywords are purpose substrings that mark a transfer.
	// Default: contribution, donation, transfer, political contribution
	TransferKeywords []string `yaml:"transfer_keywords" envconfig:"TRANSFER_KEYWORDS"`
}

// PoolConfig controls the expenditure worker pool.
type PoolConfig struct {
	// Workers is the number of concurrent expenditure workers.
	// Default: 8
	Workers int `yaml:"workers" envconfig:"WORKERS"`

	// TaskTimeout is how long a task may run before a warning is logged.
	// Tasks are never cancelled.
	// Default: 30s
	TaskTimeout time.Duration `yaml:"task_timeout" envconfig:"TASK_TIMEOUT"`
}

// WriterConfig controls the batched "B" writer.
type WriterConfig struct {
	// BatchSize is the number of lines written per batch.
	// Default: 1000
	BatchSize int `yaml:"batch_size" envconfig:"BATCH_SIZE"`

	// QueueCapacity bounds the channel between workers and the writer.
	// Default: 1000
	QueueCapacity int `yaml:"queue_capacity" envconfig:"QUEUE_CAPACITY"`

	// FlushInterval writes a partial batch after this long without input.
	// Default: 1s
	FlushInterval time.Duration `yaml:"flush_interval" envconfig:"FLUSH_INTERVAL"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level" envconfig:"LEVEL"`

	// Format is "text" or "json".
	// Default: "text"
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		ProgressEvery: 1_000_000,
		Matching: MatchingConfig{
			ScoreThreshold: 60,
		},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any unset option whose zero value is
// not meaningful. ScoreThreshold and ProgressEvery are left alone because 0
// is a valid setting for both.
func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = "|"
	}
	if cfg.Matching.NoMatchFill == "" {
		cfg.Matching.NoMatchFill = "0"
	}
	if len(cfg.Matching.TransferKeywords) == 0 {
		cfg.Matching.TransferKeywords = []string{
			"contribution",
			"donation",
			"transfer",
			"political contribution",
		}
	}
	if cfg.Pool.Workers == 0 {
		cfg.Pool.Workers = 8
	}
	if cfg.Pool.TaskTimeout == 0 {
		cfg.Pool.TaskTimeout = 30 * time.Second
	}
	if cfg.Writer.BatchSize == 0 {
		cfg.Writer.BatchSize = 1000
	}
	if cfg.Writer.QueueCapacity == 0 {
		cfg.Writer.QueueCapacity = 1000
	}
	if cfg.Writer.FlushInterval == 0 {
		cfg.Writer.FlushInterval = time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the configuration from defaults, the YAML file at path and the
// environment. A missing file is only an error when path is not
// DefaultConfigPath; an empty path skips the file entirely.
//
// Load does not validate, so that command line flags can still be applied.
// Call Validate before use.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			if !(errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath) {
				return nil, err
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current values.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks that the configuration can drive a run. Errors wrap
// ErrInvalidConfig and name the offending field.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.InputFile) == "" {
		problems = append(problems, "input_file is required")
	}
	if c.OutputDir == "" {
		problems = append(problems, "output_dir is required")
	}
	if c.Delimiter == "" {
		problems = append(problems, "delimiter must not be empty")
	}
	if c.ProgressEvery < 0 {
		problems = append(problems, "progress_every must not be negative")
	}
	if c.Matching.ScoreThreshold < 0 || c.Matching.ScoreThreshold > 100 {
		problems = append(problems, fmt.Sprintf("matching.score_threshold must be between 0 and 100, got %d", c.Matching.ScoreThreshold))
	}
	if c.Pool.Workers < 1 {
		problems = append(problems, fmt.Sprintf("pool.workers must be at least 1, got %d", c.Pool.Workers))
	}
	if c.Pool.TaskTimeout <= 0 {
		problems = append(problems, "pool.task_timeout must be positive")
	}
	if c.Writer.BatchSize < 1 {
		problems = append(problems, fmt.Sprintf("writer.batch_size must be at least 1, got %d", c.Writer.BatchSize))
	}
	if c.Writer.QueueCapacity < 1 {
		problems = append(problems, fmt.Sprintf("writer.queue_capacity must be at least 1, got %d", c.Writer.QueueCapacity))
	}
	if c.Writer.FlushInterval <= 0 {
		problems = append(problems, "writer.flush_interval must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
