// =============================================================================
// IRS 527 Splitter - Shared Types
// =============================================================================
//
// This package contains types shared by the record, registry, fuzzy, sink and
// pipeline packages. Keeping them here avoids import cycles between the
// classifier and the components that consume classified records.
//
// =============================================================================

package types

import "strings"

// =============================================================================
// RECORD TYPES
// =============================================================================

// RecordType is the discriminator found in the first field of every line.
type RecordType string

// Record types present in the IRS Form 527 bulk data file.
const (
	TypeHeader       RecordType = "H"
	TypeOrganization RecordType = "1"
	TypeDirector     RecordType = "D"
	TypeRelated      RecordType = "R"
	TypeBuff         RecordType = "Buff"
	TypeReport       RecordType = "2"
	TypeContribution RecordType = "A"
	TypeExpenditure  RecordType = "B"
	TypeFooter       RecordType = "F"
)

// AllRecordTypes lists every discriminator in the order the output files are
// created.
var AllRecordTypes = []RecordType{
	TypeHeader,
	TypeOrganization,
	TypeDirector,
	TypeRelated,
	TypeBuff,
	TypeReport,
	TypeContribution,
	TypeExpenditure,
	TypeFooter,
}

// =============================================================================
// FIELD POSITIONS
// =============================================================================
// Positions are 0-based indexes into Record.Fields.

const (
	// OrganizationNameIndex is the organization_name field of a "1" record.
	OrganizationNameIndex = 7

	// AmountIndex is contribution_amount for "A" and expenditure_amount for "B".
	AmountIndex = 13

	// RecipientNameIndex is recipient_name of a "B" record.
	RecipientNameIndex = 5

	// PurposeIndex is expenditure_purpose of a "B" record.
	PurposeIndex = 16

	// MinExpenditureFields is the raw field count below which a "B" line is
	// treated as truncated and dropped.
	MinExpenditureFields = 14
)

// =============================================================================
// RECORD
// =============================================================================

// Record is one classified input line.
type Record struct {
	// Type is the discriminator taken from the first field.
	Type RecordType

	// Fields holds the field values, normalized to the schema width.
	Fields []string

	// RawFieldCount is the number of fields before normalization.
	RawFieldCount int

	// Line is the original input line with surrounding whitespace removed.
	Line string

	// LineNumber is the 1-based position of the line in the input.
	LineNumber int
}

// Field returns the field at index i, or "" when the record is too short.
func (r *Record) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// SetLast overwrites the trailing field. It is a no-op on an empty record.
func (r *Record) SetLast(value string) {
	if len(r.Fields) == 0 {
		return
	}
	r.Fields[len(r.Fields)-1] = value
}

// Join renders the fields with the given delimiter.
func (r *Record) Join(delimiter string) string {
	return strings.Join(r.Fields, delimiter)
}

// =============================================================================
// MATCH RESULT
// =============================================================================

// MatchResult is the outcome of a fuzzy lookup against the name registry.
type MatchResult struct {
	// Name is the best-matching registry entry. Empty when nothing matched.
	Name string

	// Score is the similarity between 0 and 100.
	Score int
}

// Matched reports whether the lookup produced a registry entry.
func (m MatchResult) Matched() bool {
	return m.Name != ""
}
