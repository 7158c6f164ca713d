package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

// Options controls profiling of a clean table.
type Options struct {
	// SampleRows determines how many leading rows to include in the report.
	SampleRows int
	// TopValues caps the categories listed for text columns.
	TopValues int
	// GroupBy computes per-group means for numeric columns, e.g. VesselName.
	GroupBy string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// OutlierThreshold flags values with robust |z| (MAD based) above it; 0 disables.
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for noon report profiling.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopValues:        5,
		Correlations:     true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly profile of a CleanTable.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Groups   []GroupResult
	Corr     []PairCorr
	Warnings []string
}

// ColumnSummary captures kind and statistics per column.
type ColumnSummary struct {
	Name  string
	Unit  string
	Kind  table.Kind
	Blank int // empty strings (text) or zeros (numeric) after filling
	// Numeric stats
	Min, Max, Mean, Median, Std, P95 float64
	Outliers                         int
	// Text stats
	Unique    int
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult holds per-group numeric means.
type GroupResult struct {
	Key   string
	Size  int
	Means map[string]float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Profile computes a Report for t. name labels the dataset in the output.
func Profile(name string, t *table.CleanTable, opt Options) *Report {
	rep := &Report{Name: name, Rows: t.NumRows()}
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	if t.NumCols() == 0 {
		rep.Warnings = append(rep.Warnings, "no columns remain after cleaning")
		return rep
	}
	for _, c := range t.Columns {
		rep.Cols = append(rep.Cols, summarize(c, opt))
	}
	for i := 0; i < t.NumRows() && i < opt.SampleRows; i++ {
		rep.Samples = append(rep.Samples, t.StringRow(i))
	}
	if opt.GroupBy != "" {
		groups, err := groupMeans(t, opt.GroupBy)
		if err != nil {
			rep.Warnings = append(rep.Warnings, err.Error())
		}
		rep.Groups = groups
	}
	if opt.Correlations {
		rep.Corr = correlations(t)
	}
	return rep
}

func summarize(c *table.Column, opt Options) ColumnSummary {
	name, unit := splitUnits(c.Name)
	s := ColumnSummary{Name: name, Unit: unit, Kind: c.Kind}
	if c.Kind == table.KindNumeric {
		data := stats.Float64Data(c.Nums)
		for _, v := range c.Nums {
			if v == 0 {
				s.Blank++
			}
		}
		if data.Len() == 0 {
			return s
		}
		s.Min, _ = data.Min()
		s.Max, _ = data.Max()
		s.Mean, _ = data.Mean()
		s.Median, _ = data.Median()
		s.Std, _ = data.StandardDeviation()
		s.P95, _ = data.Percentile(95)
		if opt.OutlierThreshold > 0 {
			s.Outliers = countOutliers(data, s.Median, opt.OutlierThreshold)
		}
		return s
	}
	counts := map[string]int{}
	for _, v := range c.Text {
		if v == "" {
			s.Blank++
			continue
		}
		counts[v]++
	}
	s.Unique = len(counts)
	for v, n := range counts {
		s.TopValues = append(s.TopValues, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(s.TopValues, func(i, j int) bool {
		if s.TopValues[i].Count == s.TopValues[j].Count {
			return s.TopValues[i].Value < s.TopValues[j].Value
		}
		return s.TopValues[i].Count > s.TopValues[j].Count
	})
	if len(s.TopValues) > opt.TopValues {
		s.TopValues = s.TopValues[:opt.TopValues]
	}
	return s
}

// countOutliers uses the robust z-score 0.6745*(x-median)/MAD.
func countOutliers(data stats.Float64Data, median, threshold float64) int {
	mad, err := stats.MedianAbsoluteDeviation(data)
	if err != nil || mad == 0 {
		return 0
	}
	n := 0
	for _, v := range data {
		if math.Abs(0.6745*(v-median)/mad) > threshold {
			n++
		}
	}
	return n
}

func groupMeans(t *table.CleanTable, key string) ([]GroupResult, error) {
	kc, ok := t.Column(key)
	if !ok {
		return nil, fmt.Errorf("group-by column %q not found", key)
	}
	index := map[string]int{}
	var out []GroupResult
	values := map[string]map[string][]float64{}
	for i := 0; i < t.NumRows(); i++ {
		k := kc.String(i)
		if _, seen := index[k]; !seen {
			index[k] = len(out)
			out = append(out, GroupResult{Key: k, Means: map[string]float64{}})
			values[k] = map[string][]float64{}
		}
		out[index[k]].Size++
		for _, c := range t.Columns {
			if c.Kind != table.KindNumeric || c == kc {
				continue
			}
			values[k][c.Name] = append(values[k][c.Name], c.Nums[i])
		}
	}
	for i := range out {
		for col, vals := range values[out[i].Key] {
			m, err := stats.Mean(vals)
			if err == nil {
				out[i].Means[col] = m
			}
		}
	}
	return out, nil
}

func correlations(t *table.CleanTable) []PairCorr {
	var nums []*table.Column
	for _, c := range t.Columns {
		if c.Kind == table.KindNumeric {
			nums = append(nums, c)
		}
	}
	var pairs []PairCorr
	for i := 0; i < len(nums); i++ {
		for j := i + 1; j < len(nums); j++ {
			r, err := stats.Correlation(nums[i].Nums, nums[j].Nums)
			if err != nil || math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: nums[i].Name, B: nums[j].Name, R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return math.Abs(pairs[i].R) > math.Abs(pairs[j].R) })
	return pairs
}

// Markdown renders the report as compact sections suitable for a prompt or terminal.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Cols)))

	if len(r.Cols) > 0 {
		b.WriteString("\n[SCHEMA]\n")
	}
	for _, c := range r.Cols {
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		b.WriteString(fmt.Sprintf("- %s: %s", name, c.Kind))
		switch c.Kind {
		case table.KindNumeric:
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g, p95 %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std, c.P95))
			if c.Blank > 0 {
				b.WriteString(fmt.Sprintf("; zeros %d", c.Blank))
			}
			if c.Outliers > 0 {
				b.WriteString(fmt.Sprintf("; outliers %d", c.Outliers))
			}
		default:
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
			if c.Blank > 0 {
				b.WriteString(fmt.Sprintf("; blank %d", c.Blank))
			}
		}
		b.WriteString("\n")
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", safeVal(g.Key), g.Size))
			keys := make([]string, 0, len(g.Means))
			for k := range g.Means {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for i, k := range keys {
				if i == 6 {
					break
				}
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g\n", k, g.Means[k]))
			}
		}
	}
	if len(r.Corr) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for i, p := range r.Corr {
			if i == 10 {
				break
			}
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD ROWS]\n| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range r.Cols {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, v := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				if len(v) > 80 {
					v = v[:77] + "..."
				}
				b.WriteString(safeVal(v))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`),  // e.g., Fuel (MT)
	regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), // e.g., Speed [kn]
	regexp.MustCompile(`^(.*?)[_\s-]+(MT|mt|kn|nm|NM|rpm|RPM|kW|°C|%)$`),
}

// splitUnits separates a trailing unit annotation from a column header.
func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, re := range unitPatterns {
		if m := re.FindStringSubmatch(s); len(m) == 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[2])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}
