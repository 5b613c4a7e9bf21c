// =============================================================================
// IRS 527 Splitter - Record Classifier
// =============================================================================
//
// The classifier turns one raw line into a types.Record:
//   1. surrounding whitespace is removed
//   2. the line is split on the delimiter
//   3. the first field selects the record type
//   4. the field list is padded with "" or truncated to the schema width
//
// Width mismatches never fail and never drop a record. Lines without a
// discriminator, or with one the schema does not know, are reported as not
// classified; the caller skips them.
//
// =============================================================================

package record

import (
	"strings"

	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// Classifier splits and normalizes lines against a schema.
type Classifier struct {
	schema    *schema.Schema
	delimiter string
}

// NewClassifier returns a classifier for the given schema and delimiter.
func NewClassifier(s *schema.Schema, delimiter string) *Classifier {
	return &Classifier{
		schema:    s,
		delimiter: delimiter,
	}
}

// Classify parses a line. The boolean is false when the line has no
// recognized discriminator.
func (c *Classifier) Classify(line string, lineNumber int) (types.Record, bool) {
	trimmed := strings.TrimSpace(line)
	fields := Split(trimmed, c.delimiter)

	rt := types.RecordType(fields[0])
	if rt == "" || !c.schema.Has(rt) {
		return types.Record{}, false
	}

	return types.Record{
		Type:          rt,
		Fields:        Normalize(fields, c.schema.Width(rt)),
		RawFieldCount: len(fields),
		Line:          trimmed,
		LineNumber:    lineNumber,
	}, true
}

// Split breaks a line into fields. It always returns at least one field.
func Split(line, delimiter string) []string {
	return strings.Split(line, delimiter)
}

// Normalize pads fields with empty strings, or truncates them, so that the
// result has exactly width entries. The input slice is not modified.
func Normalize(fields []string, width int) []string {
	out := make([]string, width)
	copy(out, fields)
	return out
}
