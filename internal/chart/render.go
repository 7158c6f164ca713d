package chart

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

type renderer interface {
	Render(w io.Writer) error
}

// Render builds the chart described by s and writes it to w as HTML.
func Render(w io.Writer, t *table.CleanTable, s Spec) error {
	d, err := Build(t, s)
	if err != nil {
		return err
	}
	return d.Render(w)
}

// WriteFile renders the chart to path, creating parent directories.
func WriteFile(path string, t *table.CleanTable, s Spec) error {
	var buf bytes.Buffer
	if err := Render(&buf, t, s); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// Render writes d as a self-contained echarts page.
func (d *Data) Render(w io.Writer) error {
	var r renderer
	switch d.Kind {
	case Line:
		r = d.line()
	case Bar:
		r = d.bar()
	case Scatter:
		r = d.scatter()
	case Pie:
		r = d.pie()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, d.Kind)
	}
	if err := r.Render(w); err != nil {
		return fmt.Errorf("render %s chart: %w", d.Kind, err)
	}
	return nil
}

func (d *Data) global() []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: d.Title, Width: "1000px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: d.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	}
}

func (d *Data) axes() []charts.GlobalOpts {
	xType := "category"
	if d.NumericX {
		xType = "value"
	}
	return []charts.GlobalOpts{
		charts.WithXAxisOpts(opts.XAxis{Name: d.XName, Type: xType, SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Name: d.YName, Type: "value", SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}),
	}
}

func (p Point) pair(numeric bool) []interface{} {
	if numeric {
		return []interface{}{p.XNum, p.Y}
	}
	return []interface{}{p.X, p.Y}
}

func (d *Data) line() *charts.Line {
	c := charts.NewLine()
	c.SetGlobalOptions(append(d.global(), d.axes()...)...)
	if !d.NumericX {
		c.SetXAxis(d.Categories)
	}
	for _, s := range d.Series {
		items := make([]opts.LineData, len(s.Points))
		for i, p := range s.Points {
			items[i] = opts.LineData{Value: p.pair(d.NumericX)}
		}
		c.AddSeries(s.Name, items)
	}
	return c
}

func (d *Data) scatter() *charts.Scatter {
	c := charts.NewScatter()
	c.SetGlobalOptions(append(d.global(), d.axes()...)...)
	if !d.NumericX {
		c.SetXAxis(d.Categories)
	}
	for _, s := range d.Series {
		items := make([]opts.ScatterData, len(s.Points))
		for i, p := range s.Points {
			items[i] = opts.ScatterData{Value: p.pair(d.NumericX)}
		}
		c.AddSeries(s.Name, items)
	}
	return c
}

func (d *Data) bar() *charts.Bar {
	c := charts.NewBar()
	c.SetGlobalOptions(append(d.global(), d.axes()...)...)
	c.SetXAxis(d.Categories)
	for _, s := range d.Series {
		items := make([]opts.BarData, len(s.Points))
		for i, p := range s.Points {
			items[i] = opts.BarData{Value: p.Y}
		}
		c.AddSeries(s.Name, items)
	}
	return c
}

func (d *Data) pie() *charts.Pie {
	c := charts.NewPie()
	c.SetGlobalOptions(d.global()...)
	for _, s := range d.Series {
		items := make([]opts.PieData, len(s.Points))
		for i, p := range s.Points {
			items[i] = opts.PieData{Name: p.X, Value: p.Y}
		}
		c.AddSeries(s.Name, items).SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
		)
	}
	return c
}
