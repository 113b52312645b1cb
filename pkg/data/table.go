package data

import "fmt"

// Kind is the declared type of a column.
type Kind string

const (
	Numeric     Kind = "float"
	Categorical Kind = "category"
)

// Column is one named, typed column. Numeric columns use Num (NaN marks a
// missing value); categorical columns use Cat ("" marks a missing value).
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Cat  []string
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Cat)
	}
	return len(c.Num)
}

// Table is a column-oriented feature table with a fixed column order.
type Table struct {
	Columns []Column
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Validate checks that every column has the same length and a known kind.
func (t *Table) Validate() error {
	n := t.Len()
	for _, c := range t.Columns {
		if c.Kind != Numeric && c.Kind != Categorical {
			return fmt.Errorf("column %q: unknown kind %q", c.Name, c.Kind)
		}
		if c.Len() != n {
			return fmt.Errorf("column %q has %d values, want %d", c.Name, c.Len(), n)
		}
	}
	return nil
}

// Take returns a new table with the rows at idx, in that order.
func (t *Table) Take(idx []int) *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for j, c := range t.Columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Categorical {
			nc.Cat = make([]string, len(idx))
			for i, r := range idx {
				nc.Cat[i] = c.Cat[r]
			}
		} else {
			nc.Num = make([]float64, len(idx))
			for i, r := range idx {
				nc.Num[i] = c.Num[r]
			}
		}
		out.Columns[j] = nc
	}
	return out
}
