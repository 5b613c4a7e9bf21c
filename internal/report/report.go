// =============================================================================
// IRS 527 Splitter - Markdown Report
// =============================================================================
//
// The report is rendered from a finished stats.Summary and nothing else:
//
//   # IRS 527 Data Statistics
//   ## Contributions               totals, count, exceptions
//   ## Expenditures                totals, count, exceptions
//   ## PAC-to-PAC Transfers        inferred transfer totals
//   ## Top-5 / Bottom-5 Purposes   per-purpose table with averages
//   ## Fuzzy Match Score Histogram one row per decile, then 100
//
// Currency and counts use American English digit grouping ($1,234.50).
//
// =============================================================================

package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ginjaninja78/irs527-splitter/internal/stats"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// purposeRows is the number of rows in the top and bottom purpose tables.
const purposeRows = 5

// Input is everything the report shows.
type Input struct {
	// RunID is printed under the title when set.
	RunID string

	// Threshold is the transfer score threshold the run used.
	Threshold int

	Summary stats.Summary
}

// Render writes the Markdown report to w.
func Render(w io.Writer, in Input) error {
	p := message.NewPrinter(language.AmericanEnglish)
	s := in.Summary

	var b bytes.Buffer

	b.WriteString("# IRS 527 Data Statistics\n\n")
	if in.RunID != "" {
		fmt.Fprintf(&b, "_Run %s_\n\n", in.RunID)
	}

	b.WriteString("## Contributions\n\n")
	p.Fprintf(&b, "- **Total Contributions**: $%.2f\n", s.ContributionTotal)
	p.Fprintf(&b, "- **Number of Contributions**: %d\n", s.ContributionCount)
	p.Fprintf(&b, "- **Contribution Exceptions**: %d\n", s.Exception(types.TypeContribution))

	b.WriteString("\n## Expenditures\n\n")
	p.Fprintf(&b, "- **Total Expenditures**: $%.2f\n", s.ExpenditureTotal)
	p.Fprintf(&b, "- **Number of Expenditures**: %d\n", s.ExpenditureCount)
	p.Fprintf(&b, "- **Expenditure Exceptions**: %d\n", s.Exception(types.TypeExpenditure))

	b.WriteString("\n## PAC-to-PAC Transfers (Approximated)\n\n")
	p.Fprintf(&b, "- **Total PAC-to-PAC Transfers**: $%.2f (based on fuzzy matching with score >= %d and purpose keywords)\n",
		s.TransferTotal, in.Threshold)
	p.Fprintf(&b, "- **Number of PAC-to-PAC Transfers**: %d\n", s.TransferCount)

	b.WriteString("\n## Top-5 Purposes by Total Expenditure\n\n")
	writePurposeTable(&b, p, s.TopPurposes(purposeRows))

	b.WriteString("\n## Bottom-5 Purposes by Total Expenditure\n\n")
	writePurposeTable(&b, p, s.BottomPurposes(purposeRows))

	b.WriteString("\n## Fuzzy Match Score Histogram\n\n")
	b.WriteString("| Score Range | Count |\n")
	b.WriteString("|-------------|-------|\n")
	for bucket := 0; bucket <= 100; bucket += 10 {
		fmt.Fprintf(&b, "| %s | %d |\n", BucketLabel(bucket), s.HistogramCount(bucket))
	}

	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writePurposeTable(b *bytes.Buffer, p *message.Printer, rows []stats.PurposeTotal) {
	b.WriteString("| Purpose | Total Expenditure | Count | Average Expenditure |\n")
	b.WriteString("|---------|-------------------|-------|--------------------|\n")
	for _, row := range rows {
		p.Fprintf(b, "| %s | $%.2f | %d | $%.2f |\n", row.Purpose, row.Amount, row.Count, row.Average())
	}
}

// BucketLabel names a histogram bucket: "0-9" through "90-99", then "100".
func BucketLabel(bucket int) string {
	if bucket >= 100 {
		return "100"
	}
	return fmt.Sprintf("%d-%d", bucket, bucket+9)
}

// WriteFile renders the report into the file at path.
func WriteFile(path string, in Input) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := Render(file, in); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}
