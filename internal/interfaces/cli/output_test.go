package cli

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HyperBlend/pkg/errors"
)

func init() {
	color.NoColor = true
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := renderTable([]string{"ID", "NAME"}, [][]string{
		{"M-1", "Caffeine"},
		{"M-12", "Theobromine"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID    NAME", lines[0])
	assert.Equal(t, "────  ───────────", lines[1])
	assert.Equal(t, "M-1   Caffeine", lines[2])
	assert.Equal(t, "M-12  Theobromine", lines[3])
}

func TestRenderTable_ShortRowsAndEmptyHeaders(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}))

	out := renderTable([]string{"A", "B"}, [][]string{{"only"}})
	assert.Contains(t, out, "only")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a\n  b\tc", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestPrintResult_FallsBackToJSONWithoutContext(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, PrintResult(cmd, map[string]int{"molecule": 3}))
	assert.JSONEq(t, `{"molecule":3}`, buf.String())
}

func TestPrintYAML_UsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printYAML(&buf, struct {
		JobID string `json:"job_id"`
	}{JobID: "job-1"}))
	assert.Equal(t, "job_id: job-1\n", buf.String())
}

func TestPrintError_IncludesCode(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetErr(&buf)

	PrintError(cmd, errors.NotFound("molecule not found"))
	assert.Contains(t, buf.String(), "Error:")
	assert.Contains(t, buf.String(), "["+string(errors.ErrCodeNotFound)+"]")

	buf.Reset()
	PrintError(cmd, stderrors.New("plain"))
	assert.Equal(t, "Error: plain\n", buf.String())

	buf.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, buf.String())
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"json", "YAML", "table"} {
		assert.NoError(t, validateOutputFormat(f), f)
	}
	assert.Error(t, validateOutputFormat("csv"))
}
