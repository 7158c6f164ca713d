// Package chart turns a clean noon report table into Line, Bar, Scatter and
// Pie charts rendered as standalone HTML.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

// VesselColumn splits line series and groups averaged bars.
const VesselColumn = "VesselName"

// Kind is a chart type.
type Kind string

const (
	Line    Kind = "Line"
	Bar     Kind = "Bar"
	Scatter Kind = "Scatter"
	Pie     Kind = "Pie"
)

var (
	ErrUnknownKind   = errors.New("unknown chart kind")
	ErrMissingColumn = errors.New("column not found")
	ErrNoData        = errors.New("no numeric values to plot")
)

type builder func(t *table.CleanTable, s Spec, x, y *table.Column) (*Data, error)

var builders = map[Kind]builder{
	Line:    buildLine,
	Bar:     buildBar,
	Scatter: buildScatter,
	Pie:     buildPie,
}

// Kinds lists the supported kinds in display order.
func Kinds() []Kind { return []Kind{Line, Bar, Scatter, Pie} }

// ParseKind matches s case-insensitively against the supported kinds.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want line, bar, scatter or pie)", ErrUnknownKind, s)
}

// Spec describes one chart request.
type Spec struct {
	Kind Kind
	X, Y string
	// Average groups bars by VesselColumn instead of X.
	Average bool
	// Ungrouped draws a single line even when VesselColumn exists.
	Ungrouped bool
	// Title overrides the default "<Kind> Chart: <y> vs <x>".
	Title string
}

// Point is one plotted value. XNum is set when the x axis is numeric.
type Point struct {
	X    string
	XNum float64
	Y    float64
}

// Series is a named run of points.
type Series struct {
	Name   string
	Points []Point
}

// Data is a chart ready to render.
type Data struct {
	Kind  Kind
	Title string
	XName string
	YName string
	// NumericX selects a value axis; otherwise Categories order the x axis.
	NumericX   bool
	Categories []string
	Series     []Series
}

// Build resolves columns and computes the plotted values.
func Build(t *table.CleanTable, s Spec) (*Data, error) {
	b, ok := builders[s.Kind]
	if !ok {
		k, err := ParseKind(string(s.Kind))
		if err != nil {
			return nil, err
		}
		s.Kind, b = k, builders[k]
	}
	x, ok := t.Column(s.X)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, s.X)
	}
	y, ok := t.Column(s.Y)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, s.Y)
	}
	d, err := b(t, s, x, y)
	if err != nil {
		return nil, err
	}
	d.Kind = s.Kind
	d.XName, d.YName = s.X, s.Y
	d.Title = s.Title
	if d.Title == "" {
		d.Title = fmt.Sprintf("%s Chart: %s vs %s", s.Kind, s.Y, s.X)
	}
	return d, nil
}

func buildLine(t *table.CleanTable, s Spec, x, y *table.Column) (*Data, error) {
	d := &Data{NumericX: x.Kind == table.KindNumeric}
	index := map[string]int{}
	vessel, split := t.Column(VesselColumn)
	split = split && !s.Ungrouped
	for i := 0; i < x.Len(); i++ {
		yv, ok := y.Float(i)
		if !ok {
			continue
		}
		name := s.Y
		if split {
			name = vessel.String(i)
		}
		k, seen := index[name]
		if !seen {
			k = len(d.Series)
			index[name] = k
			d.Series = append(d.Series, Series{Name: name})
		}
		d.Series[k].Points = append(d.Series[k].Points, point(x, i, yv))
	}
	if len(d.Series) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, s.Y)
	}
	if !d.NumericX {
		d.Categories = firstSeen(x)
	}
	return d, nil
}

func buildScatter(_ *table.CleanTable, s Spec, x, y *table.Column) (*Data, error) {
	d := &Data{NumericX: x.Kind == table.KindNumeric}
	ser := Series{Name: s.Y}
	for i := 0; i < x.Len(); i++ {
		if yv, ok := y.Float(i); ok {
			ser.Points = append(ser.Points, point(x, i, yv))
		}
	}
	if len(ser.Points) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, s.Y)
	}
	if !d.NumericX {
		d.Categories = firstSeen(x)
	}
	d.Series = []Series{ser}
	return d, nil
}

func buildBar(t *table.CleanTable, s Spec, x, y *table.Column) (*Data, error) {
	by := x
	if s.Average {
		v, ok := t.Column(VesselColumn)
		if !ok {
			return nil, fmt.Errorf("%w: %q (needed to average by vessel)", ErrMissingColumn, VesselColumn)
		}
		by = v
	}
	return aggregate(s.Y, by, y, stats.Mean)
}

func buildPie(_ *table.CleanTable, s Spec, x, y *table.Column) (*Data, error) {
	return aggregate(s.Y, x, y, stats.Sum)
}

// aggregate groups y by the values of by, sorted like a pandas groupby.
func aggregate(name string, by, y *table.Column, fn func(stats.Float64Data) (float64, error)) (*Data, error) {
	groups := map[string]stats.Float64Data{}
	for i := 0; i < by.Len(); i++ {
		if yv, ok := y.Float(i); ok {
			k := by.String(i)
			groups[k] = append(groups[k], yv)
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, name)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sortKeys(keys, by.Kind == table.KindNumeric)
	ser := Series{Name: name}
	for _, k := range keys {
		v, err := fn(groups[k])
		if err != nil {
			return nil, fmt.Errorf("aggregate %q: %w", k, err)
		}
		ser.Points = append(ser.Points, Point{X: k, Y: v})
	}
	return &Data{Categories: keys, Series: []Series{ser}}, nil
}

func point(x *table.Column, i int, y float64) Point {
	p := Point{X: x.String(i), Y: y}
	if x.Kind == table.KindNumeric {
		p.XNum = x.Nums[i]
	}
	return p
}

func firstSeen(c *table.Column) []string {
	seen := map[string]bool{}
	var out []string
	for i := 0; i < c.Len(); i++ {
		v := c.String(i)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func sortKeys(keys []string, numeric bool) {
	if !numeric {
		sort.Strings(keys)
		return
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseFloat(keys[i], 64)
		b, _ := strconv.ParseFloat(keys[j], 64)
		return a < b
	})
}
