package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/irs527-splitter/internal/config"
	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/sink"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--config", config.DefaultConfigPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fields(n int, set map[int]string) string {
	f := make([]string, n)
	for i, v := range set {
		f[i] = v
	}
	return strings.Join(f, "|")
}

func TestSplitAndRuns(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	input := filepath.Join(dir, "fullData.txt")
	lines := []string{
		"H|header",
		fields(45, map[int]string{0: "1", 7: "Friends of Jane"}),
		fields(17, map[int]string{0: "A", 13: "100.00"}),
		fields(17, map[int]string{0: "B", 5: "Jane Friends Of", 13: "50.00", 16: "Political Contribution"}),
		"F|footer",
	}
	require.NoError(t, os.WriteFile(input, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	output := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.db")
	reportPath := filepath.Join(dir, "report.md")

	out, err := execute(t, "split",
		"--input", input,
		"--output-dir", output,
		"--workers", "2",
		"--summary-db", db,
		"--report-file", reportPath)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# IRS 527 Data Statistics"))
	assert.Contains(t, out, "- **Total PAC-to-PAC Transfers**: $50.00")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))

	data, err = os.ReadFile(filepath.Join(output, sink.FileName(types.TypeExpenditure)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "|100\n"))

	out, err = execute(t, "runs", "--summary-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN ID")
	assert.Contains(t, out, input)
}

func TestSplit_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "split", "--input", "", "--threshold", "101")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSchemaExport(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "schema.xlsx")

	out, err := execute(t, "schema", "export", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	s, err := schema.LoadWorkbook(path, schema.Default())
	require.NoError(t, err)
	assert.Equal(t, schema.Default().Types(), s.Types())
	assert.Equal(t, schema.Default().Header(types.TypeExpenditure, "|"), s.Header(types.TypeExpenditure, "|"))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "IRS 527 Splitter")
	assert.Contains(t, out, "Version:    "+Version)
}
