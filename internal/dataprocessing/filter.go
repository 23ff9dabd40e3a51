package dataprocessing

import (
	"log/slog"
	"strings"

	"salescli/internal/config"
)

// Filter applies the configured row acceptance rules.
type Filter struct {
	rules   config.FiltersConfig
	columns config.ColumnsConfig
	logger  *slog.Logger

	exclude map[string]bool
	include map[string]bool
}

// NewFilter creates a filter. Status values in the rule sets are trimmed the
// same way row cells are, so configuration whitespace cannot leak into
// comparisons.
func NewFilter(rules config.FiltersConfig, columns config.ColumnsConfig, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		rules:   rules,
		columns: columns,
		logger:  logger,
		exclude: statusSet(rules.ExcludeStatus),
		include: statusSet(rules.IncludeStatus),
	}
}

func statusSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = true
	}
	return set
}

// Apply returns the rows passing every rule: quantity and unit price present
// and at or above their thresholds, status not excluded, status included.
// The exclusion set wins over the inclusion set.
func (f *Filter) Apply(t *Table) *Table {
	out := NewTable(t.Columns...)
	for _, row := range t.Rows {
		if f.passesThresholds(row) && f.passesStatus(row) {
			out.Append(row)
		}
	}
	return out
}

// ApplyThresholds returns the rows passing only the numeric rules. Used when
// merging previously cleaned output, whose rows already passed status
// filtering under the rules of their own run.
func (f *Filter) ApplyThresholds(t *Table) *Table {
	out := NewTable(t.Columns...)
	for _, row := range t.Rows {
		if f.passesThresholds(row) {
			out.Append(row)
		}
	}
	return out
}

// passesThresholds requires both numeric cells to be present; a row whose
// quantity or price failed coercion never passes.
func (f *Filter) passesThresholds(row Row) bool {
	qty, ok := row.Numeric(f.columns.Quantity)
	if !ok || qty < f.rules.MinQuantity {
		return false
	}
	price, ok := row.Numeric(f.columns.UnitPrice)
	if !ok || price < f.rules.MinUnitPrice {
		return false
	}
	return true
}

func (f *Filter) passesStatus(row Row) bool {
	status := strings.TrimSpace(row.String(f.columns.Status))
	if f.exclude[status] {
		return false
	}
	return f.include[status]
}
