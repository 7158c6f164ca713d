package table

// Concat stacks tables vertically. Columns are the union of all column names
// in first-seen order. A merged column stays numeric only if every table that
// has it holds it as numeric; otherwise numbers are rendered as text. Rows from
// a table lacking a column are filled with 0 or "" by the merged kind.
func Concat(tables ...*CleanTable) *CleanTable {
	type slot struct {
		name    string
		numeric bool
	}
	var order []*slot
	index := map[string]*slot{}
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		total += t.NumRows()
		for _, c := range t.Columns {
			s, ok := index[c.Name]
			if !ok {
				s = &slot{name: c.Name, numeric: true}
				index[c.Name] = s
				order = append(order, s)
			}
			if c.Kind != KindNumeric {
				s.numeric = false
			}
		}
	}

	out := &CleanTable{Columns: make([]*Column, len(order))}
	for j, s := range order {
		col := &Column{Name: s.name, Kind: KindText}
		if s.numeric {
			col.Kind = KindNumeric
			col.Nums = make([]float64, 0, total)
		} else {
			col.Text = make([]string, 0, total)
		}
		for _, t := range tables {
			n := t.NumRows()
			if n == 0 {
				continue
			}
			src, ok := t.Column(s.name)
			for i := 0; i < n; i++ {
				switch {
				case !ok && s.numeric:
					col.Nums = append(col.Nums, 0)
				case !ok:
					col.Text = append(col.Text, "")
				case s.numeric:
					col.Nums = append(col.Nums, src.Nums[i])
				default:
					col.Text = append(col.Text, src.String(i))
				}
			}
		}
		out.Columns[j] = col
	}
	return out
}
