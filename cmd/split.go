// =============================================================================
// IRS 527 Splitter - Split Command
// =============================================================================
//
// This file defines the 'split' command, the main command of the tool. It
// runs the two-pass pipeline over one bulk data file.
//
// COMMAND USAGE:
//   split527 split [flags]
//
// FLAGS (each overrides the matching configuration setting):
//   --input            : The pipe-delimited bulk data file
//   --output-dir       : Directory for the per-type output files
//   --workers          : Number of expenditure workers
//   --threshold        : Minimum match score for a transfer
//   --schema-workbook  : XLSX workbook overriding the built-in headers
//   --report-file      : Also write the Markdown report here
//   --summary-db       : Save the run summary to this SQLite database
//
// PROCESSING:
//   1. Load configuration, apply flag overrides and validate
//   2. Load the record schema
//   3. Run the pipeline (registry pass, then split pass)
//   4. Print the report, optionally write it to a file
//   5. Optionally save the run summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/irs527-splitter/internal/config"
	"github.com/ginjaninja78/irs527-splitter/internal/pipeline"
	"github.com/ginjaninja78/irs527-splitter/internal/report"
	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/store"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	inputFile      string
	outputDir      string
	workers        int
	threshold      int
	schemaWorkbook string
	reportFile     string
	summaryDB      string
)

// splitCmd represents the 'split' command.
var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split an IRS 527 bulk data file by record type",
	Long: `The split command reads the bulk data file twice. The first pass collects
organization names from the "1" records. The second pass writes every record
to <type>_records.txt in the output directory, fuzzy-matches each "B" record's
recipient against the collected names and aggregates statistics.

Amounts that are not numeric are listed in exception_log.txt and left out of
the totals. The Markdown report is printed to standard output when the run
finishes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		applySplitFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runSplit(cmd, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)

	flags := splitCmd.Flags()
	flags.StringVarP(&inputFile, "input", "i", "", "Pipe-delimited IRS 527 bulk data file")
	flags.StringVarP(&outputDir, "output-dir", "o", "", "Directory for the per-type output files")
	flags.IntVarP(&workers, "workers", "w", 0, "Number of concurrent expenditure workers")
	flags.IntVar(&threshold, "threshold", 0, "Minimum match score (0-100) for a PAC-to-PAC transfer")
	flags.StringVar(&schemaWorkbook, "schema-workbook", "", "XLSX workbook overriding the built-in record headers")
	flags.StringVar(&reportFile, "report-file", "", "Also write the Markdown report to this file")
	flags.StringVar(&summaryDB, "summary-db", "", "Save the run summary to this SQLite database")
}

// applySplitFlags copies the flags the user set onto cfg.
func applySplitFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputFile = inputFile
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("workers") {
		cfg.Pool.Workers = workers
	}
	if flags.Changed("threshold") {
		cfg.Matching.ScoreThreshold = threshold
	}
	if flags.Changed("schema-workbook") {
		cfg.SchemaWorkbook = schemaWorkbook
	}
	if flags.Changed("report-file") {
		cfg.ReportFile = reportFile
	}
	if flags.Changed("summary-db") {
		cfg.SummaryDB = summaryDB
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runSplit(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	ctx := cmd.Context()

	s, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	result, err := pipeline.New(pipeline.OptionsFromConfig(cfg, s, logger)).Run(ctx)
	if err != nil {
		return err
	}

	in := report.Input{
		RunID:     result.RunID,
		Threshold: cfg.Matching.ScoreThreshold,
		Summary:   result.Summary,
	}
	if err := report.Render(cmd.OutOrStdout(), in); err != nil {
		return err
	}
	if cfg.ReportFile != "" {
		if err := report.WriteFile(cfg.ReportFile, in); err != nil {
			return err
		}
		logger.Info("report written", slog.String("path", cfg.ReportFile))
	}

	if cfg.SummaryDB == "" {
		return nil
	}
	db, err := store.Open(ctx, cfg.SummaryDB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveRun(ctx, storedRun(result, cfg.Matching.ScoreThreshold)); err != nil {
		return err
	}
	logger.Info("run saved",
		slog.String("run_id", result.RunID),
		slog.String("db", cfg.SummaryDB))
	return nil
}

// loadSchema returns the built-in schema, overlaid with the configured
// workbook when there is one.
func loadSchema(cfg *config.Config) (*schema.Schema, error) {
	s := schema.Default()
	if cfg.SchemaWorkbook == "" {
		return s, nil
	}
	return schema.LoadWorkbook(cfg.SchemaWorkbook, s)
}

func storedRun(result *pipeline.Result, threshold int) store.Run {
	return store.Run{
		RunID:        result.RunID,
		InputFile:    result.InputFile,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		Threshold:    threshold,
		RegistrySize: result.RegistrySize,
		LinesRead:    result.LinesRead,
		Skipped:      result.Skipped,
		Dropped:      result.Dropped,
		Written:      result.Written,
		Summary:      result.Summary,
	}
}

// printf writes to the command's standard output.
func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
