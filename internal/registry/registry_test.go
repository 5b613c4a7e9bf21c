package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/irs527-splitter/internal/record"
)

func orgLine(name string) string {
	// Organization name is the eighth field.
	return "1|F1|I|PAC|20240101||12-3456789|" + name + "|1 Main St"
}

func TestBuild(t *testing.T) {
	input := strings.Join([]string{
		"H|20240101|1.0|",
		orgLine("Friends Of Jane"),
		orgLine("FRIENDS OF JANE"),
		orgLine("Citizens For Change"),
		orgLine(""),
		"1|F2|I|PAC|20240101||12-3456789",
		"B|1|2|Org|ein|Friends Of Bob|",
		"A|1|2|Some Org",
		"F|20240101|1.0",
	}, "\n")

	r, err := Build(record.NewReader(strings.NewReader(input)), BuildOptions{Delimiter: "|"})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"citizens for change", "friends of jane"}, r.Names())
}

func TestBuild_RequiresNameField(t *testing.T) {
	// Exactly eight fields carries the name; seven does not.
	input := "1|a|b|c|d|e|f|Just Enough\n1|a|b|c|d|e|f"

	r, err := Build(record.NewReader(strings.NewReader(input)), BuildOptions{Delimiter: "|"})
	require.NoError(t, err)
	assert.Equal(t, []string{"just enough"}, r.Names())
}

func TestBuild_ReadError(t *testing.T) {
	input := strings.Repeat("x", record.MaxLineSize+1)

	_, err := Build(record.NewReader(strings.NewReader(input)), BuildOptions{Delimiter: "|"})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	r := New("B Org", "a org", "b org", "")

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"a org", "b org"}, r.Names())
}
