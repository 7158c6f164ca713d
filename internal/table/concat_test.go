package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat_UnionOfColumns(t *testing.T) {
	a := &CleanTable{Columns: []*Column{
		{Name: "Vessel", Kind: KindText, Text: []string{"Aurora"}},
		{Name: "Fuel", Kind: KindNumeric, Nums: []float64{20}},
	}}
	b := &CleanTable{Columns: []*Column{
		{Name: "Vessel", Kind: KindText, Text: []string{"Borealis", "Cygnus"}},
		{Name: "RPM", Kind: KindNumeric, Nums: []float64{80, 81}},
	}}
	got := Concat(a, b)

	assert.Equal(t, []string{"Vessel", "Fuel", "RPM"}, got.Names())
	assert.Equal(t, 3, got.NumRows())
	fuel, _ := got.Column("Fuel")
	assert.Equal(t, []float64{20, 0, 0}, fuel.Nums)
	rpm, _ := got.Column("RPM")
	assert.Equal(t, []float64{0, 80, 81}, rpm.Nums)
}

func TestConcat_KindConflictBecomesText(t *testing.T) {
	a := &CleanTable{Columns: []*Column{{Name: "Draft", Kind: KindNumeric, Nums: []float64{9.5}}}}
	b := &CleanTable{Columns: []*Column{{Name: "Draft", Kind: KindText, Text: []string{"light"}}}}
	got := Concat(a, b)
	d, _ := got.Column("Draft")
	assert.Equal(t, KindText, d.Kind)
	assert.Equal(t, []string{"9.5", "light"}, d.Text)
}

func TestConcat_Empty(t *testing.T) {
	got := Concat()
	assert.Equal(t, 0, got.NumCols())
	got = Concat(nil, &CleanTable{})
	assert.True(t, got.Empty())
}
