package table

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Header detection policy. Noon report exports put the real header within the
// first few rows, under title or vessel metadata lines.
const (
	DefaultScanRows = 5
	DefaultMinCells = 3
)

// Options controls header detection.
type Options struct {
	// ScanRows is how many leading rows are considered as header candidates.
	ScanRows int
	// MinCells is the validity score a row needs to be accepted as the header.
	MinCells int
}

// DefaultOptions returns the standard detection policy (5 rows, 3 cells).
func DefaultOptions() Options {
	return Options{ScanRows: DefaultScanRows, MinCells: DefaultMinCells}
}

func (o Options) withDefaults() Options {
	if o.ScanRows <= 0 {
		o.ScanRows = DefaultScanRows
	}
	if o.MinCells <= 0 {
		o.MinCells = DefaultMinCells
	}
	return o
}

// HeaderCandidate is a scanned row and its validity score.
type HeaderCandidate struct {
	Row   int `json:"row"`
	Score int `json:"score"`
}

// Result carries diagnostics about one normalization.
type Result struct {
	Source string `json:"source,omitempty"`
	// HeaderRow is the raw index used as header, -1 for an empty source.
	HeaderRow int `json:"header_row"`
	// Fallback is set when no scanned row qualified and row 0 was used.
	Fallback       bool              `json:"fallback"`
	Candidates     []HeaderCandidate `json:"candidates,omitempty"`
	PreambleRows   int               `json:"preamble_rows"`
	BlankRows      int               `json:"blank_rows"`
	DroppedColumns []string          `json:"dropped_columns,omitempty"`
	FilledCells    int               `json:"filled_cells"`
	Rows           int               `json:"rows"`
	Columns        int               `json:"columns"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// Source yields a RawTable. The concrete parsers live in internal/parser.
type Source interface {
	Name() string
	Read() (*RawTable, error)
}

type rawSource struct {
	name string
	raw  *RawTable
}

func (s rawSource) Name() string             { return s.name }
func (s rawSource) Read() (*RawTable, error) { return s.raw, nil }

// FromRaw adapts an in-memory RawTable to Source.
func FromRaw(name string, raw *RawTable) Source { return rawSource{name: name, raw: raw} }

// Normalize reads src and normalizes it. The only error is a
// SourceUnreadableError; everything readable yields some table.
func Normalize(src Source, opt Options) (*CleanTable, *Result, error) {
	raw, err := src.Read()
	if err != nil {
		return nil, nil, Unreadable(src.Name(), err)
	}
	ct, res := NormalizeRaw(raw, opt)
	res.Source = src.Name()
	return ct, res, nil
}

// Score is the number of non-missing cells in row.
func Score(row []Cell) int {
	n := 0
	for _, c := range row {
		if !c.IsMissing() {
			n++
		}
	}
	return n
}

// DetectHeader returns the first row among the leading scanRows whose score
// reaches minCells. A later, fuller row never wins over an earlier qualifying one.
func DetectHeader(raw *RawTable, scanRows, minCells int) (HeaderCandidate, bool) {
	for _, c := range scan(raw, scanRows) {
		if c.Score >= minCells {
			return c, true
		}
	}
	return HeaderCandidate{}, false
}

func scan(raw *RawTable, scanRows int) []HeaderCandidate {
	n := raw.Len()
	if scanRows < n {
		n = scanRows
	}
	out := make([]HeaderCandidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, HeaderCandidate{Row: i, Score: Score(raw.Rows[i])})
	}
	return out
}

// NormalizeRaw picks the header row, drops blank rows and columns, infers a
// kind per column and fills missing values ("" for text, 0 for numeric).
func NormalizeRaw(raw *RawTable, opt Options) (*CleanTable, *Result) {
	opt = opt.withDefaults()
	res := &Result{HeaderRow: -1}
	width := raw.Width()
	if raw.Len() == 0 || width == 0 {
		res.Warnings = append(res.Warnings, "source is empty")
		return &CleanTable{}, res
	}

	res.Candidates = scan(raw, opt.ScanRows)
	header := 0
	if c, ok := DetectHeader(raw, opt.ScanRows, opt.MinCells); ok {
		header = c.Row
	} else {
		res.Fallback = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("no header candidate in the first %d rows has %d or more values; using row 0", len(res.Candidates), opt.MinCells))
	}
	res.HeaderRow = header
	res.PreambleRows = header

	names := headerNames(raw.Rows[header], width)

	// Keep data rows that carry at least one value.
	var rows [][]Cell
	for _, row := range raw.Rows[header+1:] {
		if Score(row) == 0 {
			res.BlankRows++
			continue
		}
		rows = append(rows, row)
	}

	ct := &CleanTable{}
	for j := 0; j < width; j++ {
		col, filled, ok := buildColumn(names[j], rows, j)
		if !ok {
			res.DroppedColumns = append(res.DroppedColumns, names[j])
			continue
		}
		res.FilledCells += filled
		ct.Columns = append(ct.Columns, col)
	}
	res.Rows = ct.NumRows()
	res.Columns = ct.NumCols()
	return ct, res
}

// buildColumn materializes column j. ok is false when every cell is missing.
func buildColumn(name string, rows [][]Cell, j int) (*Column, int, bool) {
	present, numeric := 0, true
	for _, row := range rows {
		c := cellAt(row, j)
		if c.IsMissing() {
			continue
		}
		present++
		if c.Kind != Number {
			numeric = false
		}
	}
	if present == 0 {
		return nil, 0, false
	}
	col := &Column{Name: name}
	if numeric {
		col.Kind = KindNumeric
		col.Nums = make([]float64, len(rows))
		for i, row := range rows {
			col.Nums[i] = cellAt(row, j).Num
		}
	} else {
		col.Kind = KindText
		col.Text = make([]string, len(rows))
		for i, row := range rows {
			col.Text[i] = cellAt(row, j).String()
		}
	}
	return col, len(rows) - present, true
}

func cellAt(row []Cell, j int) Cell {
	if j < len(row) {
		return row[j]
	}
	return Cell{}
}

// headerNames turns the header row into unique column names. Blank header
// cells become "Unnamed: <index>", repeats get ".1", ".2" suffixes.
func headerNames(row []Cell, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	next := make(map[string]int, width)
	for j := 0; j < width; j++ {
		base := norm.NFC.String(strings.TrimSpace(cellAt(row, j).String()))
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(j)
		}
		name := base
		for used[name] {
			next[base]++
			name = base + "." + strconv.Itoa(next[base])
		}
		used[name] = true
		names[j] = name
	}
	return names
}
