package chart

import "github.com/KaramelBytes/vesselvision-cli/internal/table"

// Columns the automatic insights look for.
const (
	DateColumn = "Date"
	RPMColumn  = "RPM"
	FuelColumn = "Fuel Consumption"
)

// Insights proposes charts for well-known noon report columns: fuel against
// RPM, and every numeric column as a trend over Date.
func Insights(t *table.CleanTable) []Spec {
	var out []Spec
	_, rpm := t.Column(RPMColumn)
	_, fuel := t.Column(FuelColumn)
	if rpm && fuel {
		out = append(out, Spec{Kind: Scatter, X: RPMColumn, Y: FuelColumn, Title: "Fuel vs RPM"})
	}
	if _, ok := t.Column(DateColumn); !ok {
		return out
	}
	for _, c := range t.Columns {
		if c.Kind != table.KindNumeric || c.Name == DateColumn {
			continue
		}
		out = append(out, Spec{Kind: Line, X: DateColumn, Y: c.Name, Ungrouped: true, Title: "Trend: " + c.Name})
	}
	return out
}
