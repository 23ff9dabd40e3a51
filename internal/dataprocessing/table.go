// Package dataprocessing implements the cleaning stages of the sales
// pipeline: reading spreadsheet files into tables, coercing and enriching
// rows, filtering them against the configured business rules, and
// deduplicating the survivors.
package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is a single record keyed by column name. Cell values are string,
// float64, or nil for missing.
type Row map[string]interface{}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Numeric returns the cell as a float64. The second result is false when the
// cell is missing or not numeric.
func (r Row) Numeric(column string) (float64, bool) {
	v, ok := r[column].(float64)
	return v, ok
}

// String returns the cell rendered as a string; missing cells render empty.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Table is an ordered set of columns with rows. Column order is preserved
// through every pipeline stage so output artifacts stay stable.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the order if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row to the table.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, row.Clone())
	}
	return out
}

// Concat merges tables into one. The column order is the union of the input
// orders, first seen first kept; rows keep nil for columns they never had.
func Concat(tables ...*Table) *Table {
	out := NewTable()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, col := range t.Columns {
			out.AddColumn(col)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// fingerprint renders a row as a stable string over the given column order,
// used for whole-row deduplication.
func fingerprint(row Row, columns []string) string {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v, ok := row[col]
		if !ok || v == nil {
			b.WriteString("\x00")
			continue
		}
		switch tv := v.(type) {
		case float64:
			b.WriteString("f:" + strconv.FormatFloat(tv, 'g', -1, 64))
		case string:
			b.WriteString("s:" + tv)
		default:
			b.WriteString(fmt.Sprintf("x:%v", tv))
		}
	}
	return b.String()
}

// Deduplicate removes duplicate rows, keeping the LAST occurrence of each
// key so re-ingested files refresh earlier data. When keyColumn is non-empty
// and present in the table, the raw cell string is the key; otherwise the
// whole row is compared. Surviving rows keep their relative order. The
// second result is the number of rows removed.
func Deduplicate(t *Table, keyColumn string) (*Table, int) {
	useKey := keyColumn != "" && t.HasColumn(keyColumn)

	keyOf := func(row Row) string {
		if useKey {
			return row.String(keyColumn)
		}
		return fingerprint(row, t.Columns)
	}

	lastIndex := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		lastIndex[keyOf(row)] = i
	}

	out := NewTable(t.Columns...)
	out.Rows = make([]Row, 0, len(lastIndex))
	for i, row := range t.Rows {
		if lastIndex[keyOf(row)] == i {
			out.Rows = append(out.Rows, row)
		}
	}

	return out, t.Len() - out.Len()
}
