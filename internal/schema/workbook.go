// =============================================================================
// IRS 527 Splitter - Schema Workbook
// =============================================================================
//
// The field tables can be maintained in an XLSX workbook instead of code.
// Each sheet describes one record type:
//   - the sheet name is the discriminator ("H", "1", "A", "B", ...)
//   - column A holds the field names, one per row, starting at row 2
//   - row 1 is a free-form header ("field_name")
//
// Sheets whose names start with "_" are ignored. Record types that have no
// sheet keep their built-in table.
//
// =============================================================================

package schema

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// WorkbookLayout tells the loader where the field names live on each sheet.
// Indexes are 0-based.
type WorkbookLayout struct {
	// NameColumn is the column holding field names. Default: 0 (column A).
	NameColumn int

	// DataStartRow is the first row holding a field name. Default: 1 (row 2).
	DataStartRow int
}

// DefaultWorkbookLayout returns the layout produced by WriteWorkbook.
func DefaultWorkbookLayout() WorkbookLayout {
	return WorkbookLayout{
		NameColumn:   0,
		DataStartRow: 1,
	}
}

// LoadWorkbook overlays the field tables found in the workbook onto base.
func LoadWorkbook(path string, base *Schema) (*Schema, error) {
	return LoadWorkbookWithLayout(path, base, DefaultWorkbookLayout())
}

// LoadWorkbookWithLayout is LoadWorkbook with an explicit sheet layout.
func LoadWorkbookWithLayout(path string, base *Schema, layout WorkbookLayout) (*Schema, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema workbook: %w", err)
	}
	defer f.Close()

	table := make(map[types.RecordType][]string, len(base.fields))
	order := base.Types()
	for rt, names := range base.fields {
		table[rt] = names
	}

	for _, sheetName := range f.GetSheetList() {
		if strings.HasPrefix(sheetName, "_") {
			continue
		}

		names, err := readSheet(f, sheetName, layout)
		if err != nil {
			return nil, fmt.Errorf("error parsing sheet '%s': %w", sheetName, err)
		}
		if len(names) == 0 {
			continue
		}

		rt := types.RecordType(strings.TrimSpace(sheetName))
		if _, known := table[rt]; !known {
			order = append(order, rt)
		}
		table[rt] = names
	}

	if names := table[types.TypeExpenditure]; len(names) <= types.PurposeIndex+1 {
		return nil, fmt.Errorf("sheet %q must define at least %d fields, got %d",
			types.TypeExpenditure, types.PurposeIndex+2, len(names))
	}

	return New(order, table)
}

// readSheet collects the non-empty field names of a single sheet.
func readSheet(f *excelize.File, sheetName string, layout WorkbookLayout) ([]string, error) {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	var names []string
	for i := layout.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if layout.NameColumn >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[layout.NameColumn])
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// WriteWorkbook saves the schema as a workbook that LoadWorkbook accepts.
func WriteWorkbook(s *Schema, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const defaultSheet = "Sheet1"

	for i, rt := range s.order {
		sheet := string(rt)
		idx, err := f.NewSheet(sheet)
		if err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}

		if err := f.SetCellValue(sheet, "A1", "field_name"); err != nil {
			return fmt.Errorf("failed to write header on sheet %q: %w", sheet, err)
		}
		for row, name := range s.fields[rt] {
			cell, err := excelize.CoordinatesToCellName(1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, name); err != nil {
				return fmt.Errorf("failed to write %s on sheet %q: %w", cell, sheet, err)
			}
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save schema workbook: %w", err)
	}
	return nil
}
