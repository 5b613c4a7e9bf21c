// =============================================================================
// IRS 527 Splitter - Schema Command
// =============================================================================
//
// COMMAND USAGE:
//   split527 schema export <file.xlsx>
//
// Writes the record header tables to a workbook, one sheet per record type.
// The workbook can be edited and passed back with --schema-workbook.
// When schema_workbook is configured, the exported tables include its
// overrides.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/irs527-splitter/internal/config"
	"github.com/ginjaninja78/irs527-splitter/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Work with the record header tables",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write the record header tables to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		s, err := loadSchema(cfg)
		if err != nil {
			return err
		}
		if err := schema.WriteWorkbook(s, args[0]); err != nil {
			return err
		}

		printf(cmd, "Wrote %d record types to %s\n", len(s.Types()), args[0])
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaExportCmd)
	rootCmd.AddCommand(schemaCmd)
}
