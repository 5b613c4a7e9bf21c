// =============================================================================
// IRS 527 Splitter - Runs Command
// =============================================================================
//
// COMMAND USAGE:
//   split527 runs [--summary-db runs.db] [--limit 20]
//   split527 runs show <run-id>
//
// Lists runs saved by 'split --summary-db', most recent first, or prints
// the full report of one stored run.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/irs527-splitter/internal/config"
	"github.com/ginjaninja78/irs527-splitter/internal/report"
	"github.com/ginjaninja78/irs527-splitter/internal/store"
)

var (
	runsDB    string
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs stored in the summary database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			printf(cmd, "No runs stored.\n")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTARTED\tDURATION\tINPUT\tEXPENDITURES\tTRANSFERS")
		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
				run.RunID,
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
				run.InputFile,
				run.Summary.ExpenditureCount,
				run.Summary.TransferCount)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.LoadRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), report.Input{
			RunID:     run.RunID,
			Threshold: run.Threshold,
			Summary:   run.Summary,
		})
	},
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsDB, "summary-db", "", "SQLite database written by 'split --summary-db'")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// openRunStore opens the database named by --summary-db, falling back to
// the configured summary_db.
func openRunStore(cmd *cobra.Command) (*store.Store, error) {
	path := runsDB
	if path == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		path = cfg.SummaryDB
	}
	if path == "" {
		return nil, errors.New("no summary database: set --summary-db or summary_db")
	}
	return store.Open(cmd.Context(), path)
}
