// Package table assembles annotated rows into an ordered table and computes
// derived allele frequency columns over it.
package table

import "github.com/inodb/vibe-annotate/internal/row"

// Table is an ordered collection of rows. A row's index is its position.
type Table struct {
	rows []*row.Row
}

// New creates an empty table.
func New() *Table {
	return &Table{}
}

// Append adds r as the last row.
func (t *Table) Append(r *row.Row) {
	t.rows = append(t.rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the row at index i.
func (t *Table) Row(i int) *row.Row {
	return t.rows[i]
}

// Rows returns all rows in order. The slice must not be modified.
func (t *Table) Rows() []*row.Row {
	return t.rows
}

// Columns returns the union of row keys in order of first appearance.
func (t *Table) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range t.rows {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// Value returns the rendered value of column in row i, or "" if absent.
func (t *Table) Value(i int, column string) string {
	v, _ := t.rows[i].Get(column)
	return row.FormatValue(v)
}
