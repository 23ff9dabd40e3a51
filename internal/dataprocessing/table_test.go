package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowNumeric(t *testing.T) {
	row := Row{"Quantity": 3.0, "Status": "Completed", "Notes": nil}

	tests := []struct {
		name   string
		column string
		want   float64
		wantOK bool
	}{
		{name: "float cell", column: "Quantity", want: 3.0, wantOK: true},
		{name: "string cell is not numeric", column: "Status", wantOK: false},
		{name: "nil cell", column: "Notes", wantOK: false},
		{name: "absent column", column: "Missing", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := row.Numeric(tt.column)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRowString(t *testing.T) {
	row := Row{"Status": " Completed ", "Quantity": 3.0, "Price": 12.5, "Notes": nil}

	tests := []struct {
		name   string
		column string
		want   string
	}{
		{name: "string passthrough", column: "Status", want: " Completed "},
		{name: "whole float renders without fraction", column: "Quantity", want: "3"},
		{name: "fractional float", column: "Price", want: "12.5"},
		{name: "nil renders empty", column: "Notes", want: ""},
		{name: "absent renders empty", column: "Missing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, row.String(tt.column))
		})
	}
}

func TestRowClone(t *testing.T) {
	orig := Row{"A": "x", "B": 1.0}
	clone := orig.Clone()
	clone["A"] = "changed"
	clone["C"] = "new"

	assert.Equal(t, "x", orig["A"])
	assert.NotContains(t, orig, "C")
}

func TestTableColumns(t *testing.T) {
	table := NewTable("A", "B")

	assert.True(t, table.HasColumn("A"))
	assert.False(t, table.HasColumn("C"))

	table.AddColumn("C")
	table.AddColumn("A")
	assert.Equal(t, []string{"A", "B", "C"}, table.Columns)

	assert.True(t, table.Empty())
	table.Append(Row{"A": "x"})
	assert.Equal(t, 1, table.Len())
	assert.False(t, table.Empty())
}

func TestTableClone(t *testing.T) {
	table := NewTable("A")
	table.Append(Row{"A": "x"})

	clone := table.Clone()
	clone.Rows[0]["A"] = "changed"
	clone.AddColumn("B")

	assert.Equal(t, "x", table.Rows[0]["A"])
	assert.Equal(t, []string{"A"}, table.Columns)
}

func TestConcat(t *testing.T) {
	first := NewTable("A", "B")
	first.Append(Row{"A": "1", "B": "2"})

	second := NewTable("B", "C")
	second.Append(Row{"B": "3", "C": "4"})

	out := Concat(first, nil, second)

	require.Equal(t, []string{"A", "B", "C"}, out.Columns)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "1", out.Rows[0]["A"])
	assert.Equal(t, "4", out.Rows[1]["C"])
	assert.Nil(t, out.Rows[1]["A"])
}

func TestConcatEmpty(t *testing.T) {
	out := Concat()
	assert.True(t, out.Empty())
	assert.Empty(t, out.Columns)
}

func TestDeduplicateByKeyColumn(t *testing.T) {
	table := NewTable("OrderID", "Val")
	table.Append(Row{"OrderID": "A", "Val": 1.0})
	table.Append(Row{"OrderID": "B", "Val": 2.0})
	table.Append(Row{"OrderID": "A", "Val": 3.0})

	out, removed := Deduplicate(table, "OrderID")

	require.Equal(t, 1, removed)
	require.Equal(t, 2, out.Len())
	// Last occurrence wins, relative order preserved.
	assert.Equal(t, 2.0, out.Rows[0]["Val"])
	assert.Equal(t, "A", out.Rows[1]["OrderID"])
	assert.Equal(t, 3.0, out.Rows[1]["Val"])
}

func TestDeduplicateKeyComparesRenderedValue(t *testing.T) {
	// A numeric id and its string form are the same order.
	table := NewTable("OrderID", "Val")
	table.Append(Row{"OrderID": 7.0, "Val": "old"})
	table.Append(Row{"OrderID": "7", "Val": "new"})

	out, removed := Deduplicate(table, "OrderID")

	require.Equal(t, 1, removed)
	assert.Equal(t, "new", out.Rows[0]["Val"])
}

func TestDeduplicateMissingIDsCollapse(t *testing.T) {
	table := NewTable("OrderID", "Val")
	table.Append(Row{"OrderID": nil, "Val": 1.0})
	table.Append(Row{"OrderID": "A", "Val": 2.0})
	table.Append(Row{"OrderID": nil, "Val": 3.0})

	out, removed := Deduplicate(table, "OrderID")

	require.Equal(t, 1, removed)
	assert.Equal(t, 3.0, out.Rows[1]["Val"])
}

func TestDeduplicateWholeRowFallback(t *testing.T) {
	tests := []struct {
		name      string
		keyColumn string
	}{
		{name: "no key configured", keyColumn: ""},
		{name: "key column absent from table", keyColumn: "OrderID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable("A", "B")
			table.Append(Row{"A": "x", "B": "y"})
			table.Append(Row{"A": "x", "B": "z"})
			table.Append(Row{"A": "x", "B": "y"})

			out, removed := Deduplicate(table, tt.keyColumn)

			require.Equal(t, 1, removed)
			require.Equal(t, 2, out.Len())
		})
	}
}

func TestDeduplicateFingerprintTypesDiffer(t *testing.T) {
	// A float cell and its string rendering are different rows.
	table := NewTable("A")
	table.Append(Row{"A": 1.0})
	table.Append(Row{"A": "1"})

	out, removed := Deduplicate(table, "")

	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, out.Len())
}

func TestDeduplicateNoDuplicates(t *testing.T) {
	table := NewTable("OrderID")
	table.Append(Row{"OrderID": "A"})
	table.Append(Row{"OrderID": "B"})

	out, removed := Deduplicate(table, "OrderID")

	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, out.Len())
}
