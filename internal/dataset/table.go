package dataset

import (
	"fmt"
)

// Table is an ordered, column-named record set held fully in memory.
// Row order is significant and is never changed by table operations.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Cell
}

// NewTable creates an empty table with the given column names.
// Returns an error if a column name is empty or repeated.
func NewTable(columns []string) (*Table, error) {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, name := range columns {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", len(t.columns))
		}
		if _, exists := t.index[name]; exists {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}
	return t, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require returns a *SchemaError naming the first missing column.
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if !t.Has(name) {
			return &SchemaError{Column: name, Row: -1}
		}
	}
	return nil
}

// Append adds a row. The row must have exactly one cell per column.
func (t *Table) Append(row []Cell) error {
	if len(row) != len(t.columns) {
		return &SchemaError{
			Row:    len(t.rows),
			Detail: fmt.Sprintf("row has %d values, expected %d", len(row), len(t.columns)),
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns the cells of row i. The slice is shared with the table.
func (t *Table) Row(i int) []Cell {
	return t.rows[i]
}

// Get returns the value of column name in row i.
func (t *Table) Get(i int, name string) (Cell, error) {
	j, ok := t.index[name]
	if !ok {
		return Cell{}, &SchemaError{Column: name, Row: i}
	}
	return t.rows[i][j], nil
}

// Column returns a copy of every value of the named column, top to bottom.
func (t *Table) Column(name string) ([]Cell, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, &SchemaError{Column: name, Row: -1}
	}
	out := make([]Cell, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// SetColumn replaces every value of the named column.
func (t *Table) SetColumn(name string, values []Cell) error {
	j, ok := t.index[name]
	if !ok {
		return &SchemaError{Column: name, Row: -1}
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q: got %d values for %d rows", name, len(values), len(t.rows))
	}
	for i := range t.rows {
		t.rows[i][j] = values[i]
	}
	return nil
}

// AddColumn appends a new column at the end of the table.
func (t *Table) AddColumn(name string, values []Cell) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if t.Has(name) {
		return fmt.Errorf("duplicate column %q", name)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q: got %d values for %d rows", name, len(values), len(t.rows))
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return nil
}

// DropColumns removes the named columns, keeping the order of the rest.
func (t *Table) DropColumns(names ...string) error {
	if err := t.Require(names...); err != nil {
		return err
	}
	drop := make(map[int]bool, len(names))
	for _, name := range names {
		drop[t.index[name]] = true
	}
	t.rebuild(func(columns []int) []int {
		keep := columns[:0]
		for _, j := range columns {
			if !drop[j] {
				keep = append(keep, j)
			}
		}
		return keep
	})
	return nil
}

// MoveColumn relocates the named column to position pos, shifting the others.
func (t *Table) MoveColumn(name string, pos int) error {
	from, ok := t.index[name]
	if !ok {
		return &SchemaError{Column: name, Row: -1}
	}
	if pos < 0 || pos >= len(t.columns) {
		return fmt.Errorf("column position %d out of range [0,%d)", pos, len(t.columns))
	}
	t.rebuild(func(columns []int) []int {
		rest := make([]int, 0, len(columns)-1)
		for _, j := range columns {
			if j != from {
				rest = append(rest, j)
			}
		}
		out := make([]int, 0, len(columns))
		out = append(out, rest[:pos]...)
		out = append(out, from)
		return append(out, rest[pos:]...)
	})
	return nil
}

// Slice returns a table holding rows [from, to). The rows are shared, not copied.
func (t *Table) Slice(from, to int) *Table {
	return &Table{
		columns: t.columns,
		index:   t.index,
		rows:    t.rows[from:to:to],
	}
}

// rebuild reorders or removes columns. order receives the current column
// positions and returns the positions to keep, in their new order.
func (t *Table) rebuild(order func(columns []int) []int) {
	current := make([]int, len(t.columns))
	for j := range current {
		current[j] = j
	}
	next := order(current)

	columns := make([]string, len(next))
	index := make(map[string]int, len(next))
	for k, j := range next {
		columns[k] = t.columns[j]
		index[columns[k]] = k
	}
	for i, row := range t.rows {
		out := make([]Cell, len(next))
		for k, j := range next {
			out[k] = row[j]
		}
		t.rows[i] = out
	}
	t.columns = columns
	t.index = index
}
