// =============================================================================
// IRS 527 Splitter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (split527)
//   ├── splitCmd   (split527 split)
//   ├── schemaCmd  (split527 schema export)
//   ├── runsCmd    (split527 runs)
//   └── versionCmd (split527 version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   that need settings call loadConfig, which reads the YAML file, applies
//   SPLIT527_* environment overrides and builds the process logger.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/irs527-splitter/internal/config"
	"github.com/ginjaninja78/irs527-splitter/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose forces debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "split527",
	Short: "IRS 527 Splitter - Split IRS Form 527 bulk data by record type",

	Long: `split527 reads the pipe-delimited IRS Form 527 bulk data file and splits it
into one file per record type. Along the way it:

  - Builds a registry of organization names from the "1" records
  - Fuzzy-matches every expenditure recipient against that registry
  - Writes the match score into each "B" record's fuzzy_match_score field
  - Aggregates contribution, expenditure and transfer statistics
  - Prints a Markdown report and optionally stores the run in SQLite

Example Usage:
  split527 split --input fullData.txt          # Split with defaults
  split527 split --config ./my.yaml            # Use a custom configuration file
  split527 schema export schema.xlsx           # Export the header tables
  split527 runs --summary-db runs.db           # List stored runs`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main(). An interrupt
// cancels the command context, which stops a split after in-flight records
// finish.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// --config flag: A missing config.yaml is fine; a missing custom path is not.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigPath,
		"Path to the configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// HELPERS
// =============================================================================

// loadConfig loads the configuration and builds the logger it describes.
// Logs go to standard error so the report on standard output stays clean.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Logging, verbose, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
