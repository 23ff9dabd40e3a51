package dataprocessing

import (
	"log/slog"
	"strings"

	"salescli/internal/config"
)

// Derived columns added by the sanitizer.
const (
	ColTotalRevenue = "TotalRevenue"
	ColTotalExpense = "TotalExpense"
	ColSavings      = "Savings"
)

// Sanitizer coerces numeric cells, trims status values, and derives the
// financial columns every downstream stage depends on.
type Sanitizer struct {
	columns config.ColumnsConfig
	logger  *slog.Logger
}

// NewSanitizer creates a sanitizer for the configured column mapping.
func NewSanitizer(columns config.ColumnsConfig, logger *slog.Logger) *Sanitizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sanitizer{columns: columns, logger: logger}
}

// Sanitize returns a cleaned copy of the table; the input is never mutated.
//
// Quantity and unit price cells are coerced to float64, becoming missing when
// unparseable. Status cells are trimmed. The derived columns are recomputed
// even when already present, so re-ingested cleaned output cannot go stale:
//
//	TotalRevenue = quantity * unit price   (missing when either side is)
//	TotalExpense = expense cell, 0 when absent or unparseable
//	Savings      = TotalRevenue - TotalExpense
func (s *Sanitizer) Sanitize(t *Table) *Table {
	out := t.Clone()
	out.AddColumn(ColTotalRevenue)
	out.AddColumn(ColTotalExpense)
	out.AddColumn(ColSavings)

	for _, row := range out.Rows {
		qty, qtyOK := CoerceNumeric(row[s.columns.Quantity])
		if qtyOK {
			row[s.columns.Quantity] = qty
		} else {
			row[s.columns.Quantity] = nil
		}

		price, priceOK := CoerceNumeric(row[s.columns.UnitPrice])
		if priceOK {
			row[s.columns.UnitPrice] = price
		} else {
			row[s.columns.UnitPrice] = nil
		}

		if status, ok := row[s.columns.Status].(string); ok {
			row[s.columns.Status] = strings.TrimSpace(status)
		}

		expense, expenseOK := CoerceNumeric(row[s.columns.Expense])
		if !expenseOK {
			expense = 0
		}
		row[ColTotalExpense] = expense

		if qtyOK && priceOK {
			revenue := qty * price
			row[ColTotalRevenue] = revenue
			row[ColSavings] = revenue - expense
		} else {
			row[ColTotalRevenue] = nil
			row[ColSavings] = nil
		}
	}

	return out
}
