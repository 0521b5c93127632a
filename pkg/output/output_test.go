package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestSuccess(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	p.Success("Created %d items in %s", 5, "report.xlsx")

	assert.Equal(t, "✓ Created 5 items in report.xlsx\n", out.String())
}

func TestError_GoesToErrOut(t *testing.T) {
	p, out, errOut := newTestPrinter(t)
	p.Error("Failed to connect to %s", "server")

	assert.Empty(t, out.String())
	assert.Equal(t, "✗ Failed to connect to server\n", errOut.String())
}

func TestInfo(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	p.Info("Processing %d of %d batches", 2, 3)

	assert.Equal(t, "Processing 2 of 3 batches\n", out.String())
	assert.NotContains(t, out.String(), "✓")
}

func TestWarn(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	p.Warn("Disk usage is %d%%", 95)

	assert.Equal(t, "⚠ Disk usage is 95%\n", out.String())
}

func TestRuleAndPlain(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	p.Rule()
	p.Plain("Период: %s", "2024-01-01")

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Repeat("=", 70), lines[0])
	assert.Equal(t, "Период: 2024-01-01", lines[1])
}

func TestTrace_AppendsNewline(t *testing.T) {
	p, _, errOut := newTestPrinter(t)
	p.Trace("goroutine 1 [running]:")
	p.Trace("main.main()\n")

	assert.Equal(t, "goroutine 1 [running]:\nmain.main()\n", errOut.String())
}

func TestJSON_Indented(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	data := map[string]interface{}{
		"summary": map[string]interface{}{
			"rows": 2,
		},
	}

	require.NoError(t, p.JSON(data))
	assert.Contains(t, out.String(), "  \"summary\":")
	assert.Contains(t, out.String(), "    \"rows\": 2")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &parsed))
}

func TestDiscard(t *testing.T) {
	p := Discard()
	p.Info("nothing")
	p.Error("nothing")
	assert.NotNil(t, p.Out())
}

func TestTable_AddRow(t *testing.T) {
	table := NewTable([]string{"Col1", "Col2"})

	table.AddRow([]string{"val1", "val2"})
	table.AddRow([]string{"val3", "val4"})

	assert.Len(t, table.rows, 2)
	assert.Equal(t, []string{"val3", "val4"}, table.rows[1])
}

func TestTable_Render_Empty(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	NewTable([]string{"Name", "Status"}).Render(&buf)

	assert.Contains(t, buf.String(), "Name")
	assert.Contains(t, buf.String(), "Status")
	assert.Contains(t, buf.String(), "----")
}

func TestTable_Render_AlignsCyrillic(t *testing.T) {
	color.NoColor = true
	table := NewTable([]string{"Показател", "Стойност"})
	table.AddRow([]string{"Уникални блокове", "3"})
	table.AddRow([]string{"GPS", "12"})

	var buf bytes.Buffer
	table.Render(&buf)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	// "Уникални блокове" is 16 runes, so the second column starts at rune 18
	// on every line.
	for _, line := range []string{lines[0], lines[2], lines[3]} {
		runes := []rune(line)
		require.Greater(t, len(runes), 18)
		assert.NotEqual(t, ' ', runes[18], "line %q", line)
		assert.Equal(t, ' ', runes[17], "line %q", line)
	}
	assert.Equal(t, strings.Repeat("-", 16)+"  "+strings.Repeat("-", 8)+"  ", lines[1])
}

func TestTable_Render_ShortRows(t *testing.T) {
	color.NoColor = true
	table := NewTable([]string{"A", "B"})
	table.AddRow([]string{"only"})
	table.AddRow([]string{"x", "y", "extra"})

	var buf bytes.Buffer
	table.Render(&buf)

	assert.Contains(t, buf.String(), "only")
	assert.NotContains(t, buf.String(), "extra")
}
