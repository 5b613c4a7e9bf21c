// =============================================================================
// IRS 527 Splitter - Main Entry Point
// =============================================================================
//
// USAGE:
//   split527 split          - Split the bulk data file and print the report
//   split527 schema export  - Write the header tables to an XLSX workbook
//   split527 runs           - List runs stored in the summary database
//   split527 version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : Cobra command definitions
//   - internal/  : Record parsing, registry, fuzzy matching, pipeline,
//                  statistics, outputs, report and run store
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/irs527-splitter/cmd"
)

func main() {
	cmd.Execute()
}
