// =============================================================================
// IRS 527 Splitter - Record Schema
// =============================================================================
//
// A Schema maps every record type discriminator to its ordered list of field
// names. It serves two purposes only:
//   - the header line written at the top of each <type>_records.txt file
//   - the width every record of that type is padded or truncated to
//
// Field values are never validated against the schema.
//
// The built-in tables follow the IRS 527 bulk data documentation. They can be
// replaced at startup with a workbook (see workbook.go).
//
// =============================================================================

package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// ErrUnknownRecordType is returned when a lookup names a type the schema does
// not define.
var ErrUnknownRecordType = errors.New("unknown record type")

// Schema is an immutable mapping from record type to field names.
type Schema struct {
	fields map[types.RecordType][]string
	order  []types.RecordType
}

// New builds a Schema from a field table. The order slice fixes the order in
// which Types reports the record types; types missing from the table are
// rejected.
func New(order []types.RecordType, table map[types.RecordType][]string) (*Schema, error) {
	s := &Schema{
		fields: make(map[types.RecordType][]string, len(table)),
		order:  make([]types.RecordType, 0, len(order)),
	}
	for _, rt := range order {
		names, ok := table[rt]
		if !ok {
			return nil, fmt.Errorf("%w: %q has no field table", ErrUnknownRecordType, rt)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("record type %q has an empty field table", rt)
		}
		s.fields[rt] = append([]string(nil), names...)
		s.order = append(s.order, rt)
	}
	return s, nil
}

// Default returns the built-in IRS 527 schema.
func Default() *Schema {
	s, err := New(types.AllRecordTypes, defaultFields)
	if err != nil {
		// The built-in table is static.
		panic(err)
	}
	return s
}

// Has reports whether the schema defines the record type.
func (s *Schema) Has(rt types.RecordType) bool {
	_, ok := s.fields[rt]
	return ok
}

// Width returns the number of fields for the record type, or 0 if the type is
// unknown.
func (s *Schema) Width(rt types.RecordType) int {
	return len(s.fields[rt])
}

// Fields returns a copy of the field names for the record type.
func (s *Schema) Fields(rt types.RecordType) ([]string, error) {
	names, ok := s.fields[rt]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecordType, rt)
	}
	return append([]string(nil), names...), nil
}

// Header renders the header line for the record type.
func (s *Schema) Header(rt types.RecordType, delimiter string) string {
	return strings.Join(s.fields[rt], delimiter)
}

// Types returns the record types in creation order.
func (s *Schema) Types() []types.RecordType {
	return append([]types.RecordType(nil), s.order...)
}

// =============================================================================
// BUILT-IN FIELD TABLES
// =============================================================================

var defaultFields = map[types.RecordType][]string{
	types.TypeHeader: {"record_type", "file_date", "version", "flag"},
	types.TypeOrganization: {
		"record_type", "form_id_number", "initial_or_amended", "organization_type", "filing_date", "amended_date",
		"ein", "organization_name", "address_line_1", "address_line_2", "city", "state", "zip_code", "contact_email",
		"contact_phone", "contact_name", "custodian_address_line_1", "custodian_address_line_2", "custodian_city",
		"custodian_state", "custodian_zip_code", "director_1_name", "director_1_address_line_1", "director_1_address_line_2",
		"director_1_city", "director_1_state", "director_1_zip_code", "related_entity_1_name", "related_entity_1_ein",
		"related_entity_1_city", "related_entity_1_state", "related_entity_1_zip_code", "exemption_type", "purpose",
		"date_organized", "date_of_initial_filing", "amended_reason", "qualified_status", "lobbying_expenditures",
		"election_participation", "fundraising_method", "bank_name", "bank_city", "bank_state", "bank_zip_code",
	},
	types.TypeDirector: {
		"record_type", "form_id_number", "record_id", "organization_name", "ein", "candidate_name", "candidate_role",
		"address_line_1", "address_line_2", "city", "state", "zip_code", "additional_detail",
	},
	types.TypeRelated: {
		"record_type", "form_id_number", "record_id", "organization_name", "ein", "related_name", "relationship_type",
		"related_address_line_1", "related_address_line_2", "related_city", "related_state", "related_zip_code",
		"additional_related_info",
	},
	types.TypeBuff: {"record_type", "form_id_number", "field_3", "field_4", "state_code"},
	types.TypeReport: {
		"record_type", "form_id_number", "report_id", "period_begin_date", "period_end_date", "initial_or_amended",
		"filing_date", "address_line_1", "city", "state", "organization_name", "ein", "address_line_2", "zip_code",
		"contact_phone", "contact_email", "date_organized", "contact_name", "contact_address_line_1", "contact_address_line_2",
		"contact_city", "contact_state", "contact_zip_code", "custodian_name", "custodian_address_line_1", "custodian_address_line_2",
		"custodian_city", "custodian_state", "custodian_zip_code", "bank_address_line_1", "bank_address_line_2", "bank_city",
		"bank_state", "bank_zip_code", "schedule_a_indicator", "total_contributions", "total_expenditures", "itemized_contributions",
		"itemized_expenditures", "unitemized_contributions", "cash_on_hand_beginning", "cash_on_hand_end", "contribution_count",
		"expenditure_count", "report_type", "due_date", "amended_reason", "total_receipts",
	},
	types.TypeContribution: {
		"record_type", "form_id_number", "schedule_id_number", "organization_name", "organization_ein", "contributor_name",
		"contributor_address_line_1", "contributor_address_line_2", "contributor_city", "contributor_state", "contributor_zip_code",
		"contributor_zip_ext", "contributor_employer", "contribution_amount", "contributor_occupation", "agg_contribution_ytd",
		"contribution_date",
	},
	types.TypeExpenditure: {
		"record_type", "form_id_number", "schedule_id_number", "organization_name", "organization_ein", "recipient_name",
		"recipient_address_line_1", "recipient_address_line_2", "recipient_city", "recipient_state", "recipient_zip_code",
		"recipient_zip_ext", "recipient_employer", "expenditure_amount", "recipient_occupation", "expenditure_date",
		"expenditure_purpose", "fuzzy_match_score",
	},
	types.TypeFooter: {"record_type", "file_date", "version"},
}
