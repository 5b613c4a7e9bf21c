package record

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(schema.Default(), "|")

	tests := []struct {
		name      string
		line      string
		ok        bool
		rt        types.RecordType
		width     int
		rawFields int
	}{
		{name: "exact width footer", line: "F|20240101|1.0", ok: true, rt: types.TypeFooter, width: 3, rawFields: 3},
		{name: "short header is padded", line: "H|20240101", ok: true, rt: types.TypeHeader, width: 4, rawFields: 2},
		{name: "long footer is truncated", line: "F|a|b|c|d", ok: true, rt: types.TypeFooter, width: 3, rawFields: 5},
		{name: "trailing newline and spaces", line: "  Buff|1|2|3|TX \r\n", ok: true, rt: types.TypeBuff, width: 5, rawFields: 5},
		{name: "empty line", line: "", ok: false},
		{name: "empty discriminator", line: "|a|b", ok: false},
		{name: "unknown discriminator", line: "Z|a|b", ok: false},
		{name: "discriminator is case sensitive", line: "b|a|b", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := c.Classify(tt.line, 7)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.rt, rec.Type)
			assert.Len(t, rec.Fields, tt.width)
			assert.Equal(t, tt.rawFields, rec.RawFieldCount)
			assert.Equal(t, strings.TrimSpace(tt.line), rec.Line)
			assert.Equal(t, 7, rec.LineNumber)
		})
	}
}

func TestClassifier_PadsWithEmptyStrings(t *testing.T) {
	c := NewClassifier(schema.Default(), "|")

	rec, ok := c.Classify("H|20240101", 1)
	require.True(t, ok)
	assert.Equal(t, []string{"H", "20240101", "", ""}, rec.Fields)
}

func TestNormalize_DoesNotAliasInput(t *testing.T) {
	in := []string{"a", "b", "c"}
	out := Normalize(in, 2)
	out[0] = "z"

	assert.Equal(t, []string{"a", "b", "c"}, in)
	assert.Equal(t, []string{"z", "b"}, out)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "50.00", want: 50},
		{raw: " 12.5 ", want: 12.5},
		{raw: "-3", want: -3},
		{raw: "1e3", want: 1000},
		{raw: "", want: 0},
		{raw: "   ", want: 0},
		{raw: "abc", wantErr: true},
		{raw: "$5", wantErr: true},
		{raw: "1,000", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "inf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnparseableAmount))

				var amountErr *AmountError
				require.ErrorAs(t, err, &amountErr)
				assert.Equal(t, tt.raw, amountErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseRequiredAmount(t *testing.T) {
	got, err := ParseRequiredAmount(" 100.25 ")
	require.NoError(t, err)
	assert.Equal(t, 100.25, got)

	for _, raw := range []string{"", "   ", "abc"} {
		_, err := ParseRequiredAmount(raw)
		require.ErrorIs(t, err, ErrUnparseableAmount, "raw %q", raw)

		var amountErr *AmountError
		require.ErrorAs(t, err, &amountErr)
		assert.Equal(t, raw, amountErr.Raw)
	}
}

func TestReader(t *testing.T) {
	input := "H|1\r\nA|2\n\nB|3"
	r := NewReader(strings.NewReader(input))
	defer r.Close()

	var lines []string
	var numbers []int
	for r.Next() {
		lines = append(lines, r.Line())
		numbers = append(numbers, r.LineNumber())
	}

	require.NoError(t, r.Err())
	assert.Equal(t, []string{"H|1", "A|2", "", "B|3"}, lines)
	assert.Equal(t, []int{1, 2, 3, 4}, numbers)
}

func TestReader_LineTooLong(t *testing.T) {
	input := strings.Repeat("x", MaxLineSize+10)
	r := NewReader(strings.NewReader(input))

	assert.False(t, r.Next())
	assert.Error(t, r.Err())
	assert.False(t, r.Next())
}
