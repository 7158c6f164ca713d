package table

import (
	"math"
	"strconv"
	"strings"
)

// CellKind classifies a raw spreadsheet value.
type CellKind int

const (
	Missing CellKind = iota
	Text
	Number
)

// Cell is one value of a RawTable.
type Cell struct {
	Kind CellKind
	Text string
	Num  float64
}

// naTokens are spellings that spreadsheet exports use for "no value".
var naTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "-nan": {}, "null": {}, "none": {}, "#n/a": {}, "<na>": {},
}

// Empty returns a missing cell.
func Empty() Cell { return Cell{} }

// TextCell returns a text cell, or a missing cell if s is blank after trimming.
func TextCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: Text, Text: s}
}

// NumberCell returns a numeric cell. NaN is treated as missing.
func NumberCell(f float64) Cell {
	if math.IsNaN(f) {
		return Cell{}
	}
	return Cell{Kind: Number, Num: f}
}

// ParseCell interprets an untyped string (e.g. a CSV field): NA tokens are
// missing, anything strconv can read as a finite float is a number, the rest is text.
func ParseCell(s string) Cell {
	v := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if _, ok := naTokens[strings.ToLower(v)]; ok {
		return Cell{}
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Cell{Kind: Number, Num: f}
	}
	return Cell{Kind: Text, Text: v}
}

// IsMissing reports whether the cell has no recorded value.
func (c Cell) IsMissing() bool { return c.Kind == Missing }

// String renders the cell the way it is shown to users and models.
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return formatNumber(c.Num)
	default:
		return ""
	}
}

func formatNumber(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// RawTable is an ordered sequence of rows with no guaranteed header.
// Rows may be ragged.
type RawTable struct {
	Rows [][]Cell
}

// NewRawTable wraps rows without copying.
func NewRawTable(rows [][]Cell) *RawTable { return &RawTable{Rows: rows} }

// Len returns the number of rows.
func (r *RawTable) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Width returns the length of the longest row.
func (r *RawTable) Width() int {
	if r == nil {
		return 0
	}
	w := 0
	for _, row := range r.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// At returns the cell at (i, j); out-of-range positions are missing.
func (r *RawTable) At(i, j int) Cell {
	if r == nil || i < 0 || i >= len(r.Rows) || j < 0 || j >= len(r.Rows[i]) {
		return Cell{}
	}
	return r.Rows[i][j]
}

// Kind is the inferred type of a clean column.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Column is a named, single-typed, fully populated column.
// Exactly one of Text or Nums is used, depending on Kind.
type Column struct {
	Name string
	Kind Kind
	Text []string
	Nums []float64
}

// Len returns the number of values.
func (c *Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.Nums)
	}
	return len(c.Text)
}

// Value returns the i-th value as string or float64.
func (c *Column) Value(i int) any {
	if c.Kind == KindNumeric {
		return c.Nums[i]
	}
	return c.Text[i]
}

// String returns the i-th value rendered as text.
func (c *Column) String(i int) string {
	if c.Kind == KindNumeric {
		return formatNumber(c.Nums[i])
	}
	return c.Text[i]
}

// Float returns the i-th value as a number. Text values are parsed when possible.
func (c *Column) Float(i int) (float64, bool) {
	if c.Kind == KindNumeric {
		return c.Nums[i], true
	}
	cell := ParseCell(c.Text[i])
	if cell.Kind != Number {
		return 0, false
	}
	return cell.Num, true
}

// CleanTable is the normalized, rectangular result of a RawTable.
type CleanTable struct {
	Columns []*Column
}

// NumRows returns the row count (all columns share it).
func (t *CleanTable) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumCols returns the column count.
func (t *CleanTable) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Empty reports whether the table has no rows.
func (t *CleanTable) Empty() bool { return t.NumRows() == 0 }

// Names returns column names in order.
func (t *CleanTable) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (t *CleanTable) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Row returns the i-th row as string/float64 values in column order.
func (t *CleanTable) Row(i int) []any {
	out := make([]any, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Value(i)
	}
	return out
}

// StringRow returns the i-th row rendered as text.
func (t *CleanTable) StringRow(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.String(i)
	}
	return out
}

// Records returns rows as name→value maps.
func (t *CleanTable) Records() []map[string]any {
	n := t.NumRows()
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c.Name] = c.Value(i)
		}
		out[i] = rec
	}
	return out
}

// Head returns a table holding the first n rows. The result shares no slices with t.
func (t *CleanTable) Head(n int) *CleanTable {
	if t == nil {
		return &CleanTable{}
	}
	if n < 0 || n > t.NumRows() {
		n = t.NumRows()
	}
	out := &CleanTable{Columns: make([]*Column, len(t.Columns))}
	for j, c := range t.Columns {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindNumeric {
			nc.Nums = append([]float64(nil), c.Nums[:n]...)
		} else {
			nc.Text = append([]string(nil), c.Text[:n]...)
		}
		out.Columns[j] = nc
	}
	return out
}

// ToRaw renders t back into a RawTable with the header at row 0.
// Empty strings become missing cells.
func (t *CleanTable) ToRaw() *RawTable {
	if t == nil || len(t.Columns) == 0 {
		return &RawTable{}
	}
	rows := make([][]Cell, 0, t.NumRows()+1)
	header := make([]Cell, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = TextCell(c.Name)
	}
	rows = append(rows, header)
	for i := 0; i < t.NumRows(); i++ {
		row := make([]Cell, len(t.Columns))
		for j, c := range t.Columns {
			if c.Kind == KindNumeric {
				row[j] = NumberCell(c.Nums[i])
			} else {
				row[j] = TextCell(c.Text[i])
			}
		}
		rows = append(rows, row)
	}
	return &RawTable{Rows: rows}
}
