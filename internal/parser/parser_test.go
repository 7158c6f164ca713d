package parser_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/vesselvision-cli/internal/parser"
	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

func writeWorkbook(t *testing.T, cells map[string]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", axis, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParse_XLSXWithPreamble(t *testing.T) {
	data := writeWorkbook(t, map[string]any{
		"A1": "MV Aurora noon reports",
		"A3": "VesselName", "B3": "RPM", "C3": "Fuel",
		"A4": "Aurora", "B4": 80, "C4": 12.5,
		"A5": "Aurora", "C5": 13.0,
	})
	raw, err := parser.Parse("march.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 5, raw.Len())
	assert.True(t, raw.At(1, 0).IsMissing())
	assert.Equal(t, table.TextCell("VesselName"), raw.At(2, 0))
	assert.Equal(t, table.NumberCell(80), raw.At(3, 1))
	assert.Equal(t, table.NumberCell(12.5), raw.At(3, 2))

	ct, res, err := table.Normalize(parser.FromBytes("march.xlsx", data), table.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, res.HeaderRow)
	assert.Equal(t, []string{"VesselName", "RPM", "Fuel"}, ct.Names())
	rpm, _ := ct.Column("RPM")
	assert.Equal(t, []float64{80, 0}, rpm.Nums)
}

func TestParse_CSVSemicolon(t *testing.T) {
	in := "Date;RPM;Fuel\n2024-01-01;80;12.5\n2024-01-02;;13\n"
	raw, err := parser.Parse("noon.csv", bytes.NewBufferString(in))
	require.NoError(t, err)
	require.Equal(t, 3, raw.Len())
	assert.Equal(t, table.NumberCell(12.5), raw.At(1, 2))
	assert.True(t, raw.At(2, 1).IsMissing())
}

func TestParse_CSVWindows1252(t *testing.T) {
	in := []byte("Port,Temp \xB0C,Fuel\nKøge,21,3\n")
	in = bytes.ReplaceAll(in, []byte("ø"), []byte{0xF8})
	raw, err := parser.Parse("ports.csv", bytes.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "Temp °C", raw.At(0, 1).String())
	assert.Equal(t, "Køge", raw.At(1, 0).String())
}

func TestParse_CorruptWorkbookIsUnreadable(t *testing.T) {
	_, err := parser.Parse("broken.xlsx", bytes.NewBufferString("not a zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrSourceUnreadable)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := parser.Parse("notes.docx", bytes.NewBufferString("x"))
	assert.ErrorIs(t, err, parser.ErrUnsupported)
	assert.ErrorIs(t, err, table.ErrSourceUnreadable)
	assert.False(t, parser.Supported("notes.docx"))
	assert.True(t, parser.Supported("NOON.XLSX"))
}

func TestOpen_MissingFile(t *testing.T) {
	src := parser.Open(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Equal(t, "nope.csv", src.Name())
	_, _, err := table.Normalize(src, table.DefaultOptions())
	var sue *table.SourceUnreadableError
	require.ErrorAs(t, err, &sue)
	assert.Equal(t, "nope.csv", sue.Source)
}

func TestParseFile_EmptyCSV(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(p, nil, 0o644))
	ct, res, err := table.Normalize(parser.Open(p), table.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, ct.NumCols())
	assert.Equal(t, -1, res.HeaderRow)
}

func TestOpenSheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Engine")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Engine", "A1", &[]any{"Date", "RPM", "Load"}))
	require.NoError(t, f.SetSheetRow("Engine", "A2", &[]any{"2024-01-01", 81, 74.5}))
	p := filepath.Join(t.TempDir(), "multi.xlsx")
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	ct, res, err := table.Normalize(parser.OpenSheet(p, "Engine"), table.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "multi.xlsx#Engine", res.Source)
	assert.Equal(t, []string{"Date", "RPM", "Load"}, ct.Names())

	_, _, err = table.Normalize(parser.OpenSheet(p, "Deck"), table.DefaultOptions())
	assert.ErrorIs(t, err, table.ErrSourceUnreadable)
}

func TestParse_XLSXNumberFormatsStayNumeric(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Date", "VesselName", "Fuel", "Load"},
		{45352, "Aurora", 1234.5, 0.25},
		{45353, "Aurora", nil, 0.5},
	}
	for i, r := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", axis, &r))
	}
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	require.NoError(t, err)
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	require.NoError(t, err)
	date, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C3", thousands))
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D3", percent))
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "A3", date))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	raw, err := parser.Parse("noon.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, table.NumberCell(1234.5), raw.At(1, 2))
	assert.Equal(t, table.NumberCell(0.25), raw.At(1, 3))
	assert.Equal(t, table.Text, raw.At(1, 0).Kind, "date-formatted serials keep their displayed text")

	ct, _ := table.NormalizeRaw(raw, table.DefaultOptions())
	fuel, ok := ct.Column("Fuel")
	require.True(t, ok)
	assert.Equal(t, table.KindNumeric, fuel.Kind)
	assert.Equal(t, []float64{1234.5, 0}, fuel.Nums)
	day, _ := ct.Column("Date")
	assert.Equal(t, table.KindText, day.Kind)
}
