package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

type xlsxParser struct {
	// Sheet names the worksheet to read; empty means the first sheet.
	Sheet string
}

func (xlsxParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

func (p xlsxParser) Parse(r io.Reader) (*table.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := p.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &table.RawTable{}, nil
		}
		sheet = sheets[0]
	}
	shown, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	stored, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	c := &cellClassifier{f: f, sheet: sheet, dates: map[int]bool{}}
	rows := make([][]table.Cell, len(shown))
	for i, row := range shown {
		cells := make([]table.Cell, len(row))
		for j, disp := range row {
			cells[j] = c.cell(i, j, disp, at(stored, i, j))
		}
		rows[i] = cells
	}
	return table.NewRawTable(rows), nil
}

// ParseXLSXSheet reads a named worksheet from r.
func ParseXLSXSheet(r io.Reader, sheet string) (*table.RawTable, error) {
	return xlsxParser{Sheet: sheet}.Parse(r)
}

// cellClassifier types cells from the workbook itself: a cell stored as a
// number is numeric whatever its display format ("1,234.50", "12.5 kn",
// "25%"), unless its number format is a date or time.
type cellClassifier struct {
	f     *excelize.File
	sheet string
	// dates caches whether a style id formats values as dates.
	dates map[int]bool
}

func (c *cellClassifier) cell(i, j int, disp, stored string) table.Cell {
	d := table.ParseCell(disp)
	if d.IsMissing() {
		return d
	}
	axis, err := excelize.CoordinatesToCellName(j+1, i+1)
	if err != nil {
		return d
	}
	typ, err := c.f.GetCellType(c.sheet, axis)
	if err != nil {
		return d
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		s := table.ParseCell(stored)
		if s.Kind != table.Number || c.isDate(axis) {
			return d
		}
		return s
	}
	return d
}

func (c *cellClassifier) isDate(axis string) bool {
	id, err := c.f.GetCellStyle(c.sheet, axis)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := c.dates[id]; ok {
		return v
	}
	st, err := c.f.GetStyle(id)
	v := err == nil && st != nil && dateFormat(st.NumFmt, st.CustomNumFmt)
	c.dates[id] = v
	return v
}

// dateFormat reports whether a number format renders dates or times. Built-in
// ids follow ECMA-376 18.8.30; custom codes are checked for date tokens outside
// quoted literals, escapes and [bracketed] sections.
func dateFormat(id int, custom *string) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	if custom == nil {
		return false
	}
	var b strings.Builder
	code := *custom
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '"':
			for i++; i < len(code) && code[i] != '"'; i++ {
			}
		case '[':
			for i++; i < len(code) && code[i] != ']'; i++ {
			}
		case '\\':
			i++
		default:
			b.WriteByte(code[i])
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

func at(grid [][]string, i, j int) string {
	if i < len(grid) && j < len(grid[i]) {
		return grid[i][j]
	}
	return ""
}
