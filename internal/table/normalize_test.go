package table

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var na = Cell{}

func tc(s string) Cell   { return TextCell(s) }
func nc(f float64) Cell { return NumberCell(f) }

func raw(rows ...[]Cell) *RawTable { return NewRawTable(rows) }

func TestNormalize_HeaderAfterBlankRows(t *testing.T) {
	in := raw(
		[]Cell{na, na, na},
		[]Cell{na, na, na},
		[]Cell{tc("Date"), tc("RPM"), tc("Fuel")},
		[]Cell{tc("2024-01-01"), nc(80), nc(12.5)},
		[]Cell{na, na, na},
	)
	ct, res := NormalizeRaw(in, DefaultOptions())

	assert.Equal(t, 2, res.HeaderRow)
	assert.False(t, res.Fallback)
	assert.Equal(t, 2, res.PreambleRows)
	assert.Equal(t, 1, res.BlankRows)
	want := []map[string]any{{"Date": "2024-01-01", "RPM": 80.0, "Fuel": 12.5}}
	if diff := cmp.Diff(want, ct.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	col, ok := ct.Column("RPM")
	require.True(t, ok)
	assert.Equal(t, KindNumeric, col.Kind)
	col, _ = ct.Column("Date")
	assert.Equal(t, KindText, col.Kind)
}

func TestNormalize_FallbackToRowZero(t *testing.T) {
	in := raw(
		[]Cell{tc("a"), na},
		[]Cell{na, na},
	)
	ct, res := NormalizeRaw(in, DefaultOptions())

	assert.True(t, res.Fallback)
	assert.Equal(t, 0, res.HeaderRow)
	assert.Equal(t, 0, ct.NumRows())
	assert.Equal(t, 1, res.BlankRows)
	// With no data left, both header columns are entirely missing.
	assert.Equal(t, []string{"a", "Unnamed: 1"}, res.DroppedColumns)
	assert.NotEmpty(t, res.Warnings)
}

func TestNormalize_DropsAllMissingColumn(t *testing.T) {
	in := raw(
		[]Cell{tc("Vessel"), tc("Remarks"), tc("Speed"), tc("Fuel")},
		[]Cell{tc("Aurora"), na, nc(12), nc(20.1)},
		[]Cell{tc("Borealis"), na, nc(13), na},
	)
	ct, res := NormalizeRaw(in, DefaultOptions())

	assert.Equal(t, []string{"Vessel", "Speed", "Fuel"}, ct.Names())
	assert.Equal(t, []string{"Remarks"}, res.DroppedColumns)
	fuel, _ := ct.Column("Fuel")
	assert.Equal(t, []float64{20.1, 0}, fuel.Nums)
	assert.Equal(t, 1, res.FilledCells)
}

func TestNormalize_FirstMatchBeatsFullerRow(t *testing.T) {
	in := raw(
		[]Cell{tc("Noon Report"), na, na, na},
		[]Cell{tc("Date"), tc("RPM"), tc("Fuel"), na},
		[]Cell{tc("2024-01-01"), nc(80), nc(12.5), nc(1)},
	)
	_, res := NormalizeRaw(in, DefaultOptions())
	assert.Equal(t, 1, res.HeaderRow)
}

func TestNormalize_HeaderAtLastScannedRow(t *testing.T) {
	in := raw(
		[]Cell{tc("Fleet report")},
		[]Cell{tc("Vessel:"), tc("Aurora")},
		[]Cell{na},
		[]Cell{tc("Period"), tc("Q1")},
		[]Cell{tc("Date"), tc("RPM"), tc("Fuel")},
		[]Cell{tc("2024-01-01"), nc(80), nc(12.5)},
	)
	ct, res := NormalizeRaw(in, DefaultOptions())
	assert.Equal(t, 4, res.HeaderRow)
	assert.Equal(t, []string{"Date", "RPM", "Fuel"}, ct.Names())
	assert.Equal(t, 1, ct.NumRows())
}

func TestNormalize_QualifyingRowOutsideWindowFallsBack(t *testing.T) {
	rows := [][]Cell{}
	for i := 0; i < 5; i++ {
		rows = append(rows, []Cell{tc("meta"), na, na})
	}
	rows = append(rows, []Cell{tc("Date"), tc("RPM"), tc("Fuel")})
	ct, res := NormalizeRaw(NewRawTable(rows), DefaultOptions())
	assert.True(t, res.Fallback)
	assert.Equal(t, 0, res.HeaderRow)
	assert.Len(t, res.Candidates, 5)
	assert.Equal(t, []string{"meta", "Unnamed: 1", "Unnamed: 2"}, ct.Names())
	assert.Equal(t, 5, ct.NumRows())
}

func TestNormalize_EmptySource(t *testing.T) {
	for _, in := range []*RawTable{nil, raw(), raw([]Cell{}, []Cell{})} {
		ct, res := NormalizeRaw(in, DefaultOptions())
		assert.Equal(t, 0, ct.NumRows())
		assert.Equal(t, 0, ct.NumCols())
		assert.Equal(t, -1, res.HeaderRow)
	}
}

func TestNormalize_MixedColumnIsText(t *testing.T) {
	in := raw(
		[]Cell{tc("Date"), tc("Draft"), tc("Fuel")},
		[]Cell{tc("2024-01-01"), nc(9.5), nc(12)},
		[]Cell{tc("2024-01-02"), tc("n.a."), na},
		[]Cell{tc("2024-01-03"), na, nc(11)},
	)
	ct, _ := NormalizeRaw(in, DefaultOptions())
	draft, _ := ct.Column("Draft")
	assert.Equal(t, KindText, draft.Kind)
	assert.Equal(t, []string{"9.5", "n.a.", ""}, draft.Text)
	fuel, _ := ct.Column("Fuel")
	assert.Equal(t, []float64{12, 0, 11}, fuel.Nums)
}

func TestNormalize_CleanTableIsUnchanged(t *testing.T) {
	in := raw(
		[]Cell{tc("Vessel"), tc("Speed"), tc("Fuel")},
		[]Cell{tc("Aurora"), nc(12), nc(20)},
		[]Cell{tc("Borealis"), nc(13.5), nc(21.25)},
	)
	first, _ := NormalizeRaw(in, DefaultOptions())
	second, res := NormalizeRaw(first.ToRaw(), DefaultOptions())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("renormalized table differs (-first +second):\n%s", diff)
	}
	assert.Zero(t, res.FilledCells)
	assert.Empty(t, res.DroppedColumns)
}

func TestNormalize_NoMissingValuesRemain(t *testing.T) {
	in := raw(
		[]Cell{tc("A"), tc("B"), tc("C"), tc("D")},
		[]Cell{nc(1), na, tc("x"), na},
		[]Cell{na, na, na, na},
		[]Cell{na, tc("y"), na, nc(2)},
	)
	ct, _ := NormalizeRaw(in, DefaultOptions())
	require.Equal(t, 2, ct.NumRows())
	for _, c := range ct.Columns {
		require.Equal(t, 2, c.Len(), c.Name)
	}
	a, _ := ct.Column("A")
	assert.Equal(t, []float64{1, 0}, a.Nums)
	b, _ := ct.Column("B")
	assert.Equal(t, []string{"", "y"}, b.Text)
}

func TestNormalize_RaggedRows(t *testing.T) {
	in := raw(
		[]Cell{tc("Date"), tc("RPM"), tc("Fuel")},
		[]Cell{tc("2024-01-01")},
		[]Cell{tc("2024-01-02"), nc(82), nc(13), tc("extra")},
	)
	ct, _ := NormalizeRaw(in, DefaultOptions())
	assert.Equal(t, []string{"Date", "RPM", "Fuel", "Unnamed: 3"}, ct.Names())
	rpm, _ := ct.Column("RPM")
	assert.Equal(t, []float64{0, 82}, rpm.Nums)
}

func TestHeaderNames_Deduplicates(t *testing.T) {
	got := headerNames([]Cell{tc("Fuel"), tc("Fuel"), na, tc("Fuel"), tc("Fuel.1")}, 5)
	assert.Equal(t, []string{"Fuel", "Fuel.1", "Unnamed: 2", "Fuel.2", "Fuel.1.1"}, got)
}

func TestDetectHeader_CustomThreshold(t *testing.T) {
	in := raw(
		[]Cell{tc("a"), tc("b")},
		[]Cell{tc("a"), tc("b"), tc("c"), tc("d")},
	)
	c, ok := DetectHeader(in, 5, 2)
	require.True(t, ok)
	assert.Equal(t, HeaderCandidate{Row: 0, Score: 2}, c)
	c, ok = DetectHeader(in, 5, 4)
	require.True(t, ok)
	assert.Equal(t, 1, c.Row)
	_, ok = DetectHeader(in, 1, 4)
	assert.False(t, ok)
}

type failingSource struct{}

func (failingSource) Name() string             { return "broken.xlsx" }
func (failingSource) Read() (*RawTable, error) { return nil, errors.New("zip: not a valid zip file") }

func TestNormalize_UnreadableSource(t *testing.T) {
	ct, res, err := Normalize(failingSource{}, DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, ct)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	var sue *SourceUnreadableError
	require.ErrorAs(t, err, &sue)
	assert.Equal(t, "broken.xlsx", sue.Source)
	assert.Contains(t, err.Error(), "not a valid zip")
}

func TestNormalize_SourceNameRecorded(t *testing.T) {
	_, res, err := Normalize(FromRaw("march.csv", raw([]Cell{tc("a"), tc("b"), tc("c")})), Options{})
	require.NoError(t, err)
	assert.Equal(t, "march.csv", res.Source)
}

func TestParseCell(t *testing.T) {
	cases := map[string]Cell{
		"":        na,
		"  ":      na,
		"N/A":     na,
		"NaN":     na,
		"12.5":    nc(12.5),
		" -3 ":    nc(-3),
		"1e3":     nc(1000),
		"Inf":     tc("Inf"),
		"Aurora":  tc("Aurora"),
		"12 kn":   tc("12 kn"),
		"\u00a07": nc(7),
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCell(in), "input %q", in)
	}
}
