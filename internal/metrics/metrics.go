// Package metrics computes the aggregate financial summaries of a cleaned
// dataset: the overall totals, the per-category and per-region breakdowns,
// and the flat benchmark extract exported to CSV. Money is accumulated with
// decimal arithmetic so large batches do not drift.
package metrics

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"salescli/internal/config"
	"salescli/internal/dataprocessing"
)

// Overall holds the dataset-wide totals.
type Overall struct {
	TotalOrders       int
	TotalEarning      float64
	Expenses          float64
	Savings           float64
	SavingsRate       float64
	AverageOrderValue float64
}

// CategoryRow holds the totals of one category group.
type CategoryRow struct {
	Category      string
	TotalEarning  float64
	Expenses      float64
	Savings       float64
	SavingsRate   float64
	TotalQuantity float64
}

// RegionRow holds the totals of one region group.
type RegionRow struct {
	Region       string
	TotalOrders  int
	TotalEarning float64
	Expenses     float64
	Savings      float64
	SavingsRate  float64
}

// Summary is the full aggregation result. Group slices are sorted ascending
// by key; a missing category or region aggregates under the empty string
// rather than dropping rows.
type Summary struct {
	Overall    Overall
	Categories []CategoryRow
	Regions    []RegionRow
	TotalRows  int
}

// ValueKind tells exporters how a benchmark value should be rendered.
type ValueKind string

const (
	KindCurrency ValueKind = "currency"
	KindRate     ValueKind = "rate"
	KindCount    ValueKind = "count"
)

// Benchmark is one row of the flat metric extract.
type Benchmark struct {
	Metric string
	Value  float64
	Kind   ValueKind
}

// Benchmark metric names, in export order.
const (
	MetricTotalEarning      = "TotalEarning"
	MetricExpenses          = "Expenses"
	MetricSavings           = "Savings"
	MetricSavingsRate       = "SavingsRate"
	MetricAverageOrderValue = "AverageOrderValue"
	MetricTotalOrders       = "TotalOrders"
)

// Benchmarks returns the flat metric extract in its fixed export order.
func (s *Summary) Benchmarks() []Benchmark {
	return []Benchmark{
		{Metric: MetricTotalEarning, Value: s.Overall.TotalEarning, Kind: KindCurrency},
		{Metric: MetricExpenses, Value: s.Overall.Expenses, Kind: KindCurrency},
		{Metric: MetricSavings, Value: s.Overall.Savings, Kind: KindCurrency},
		{Metric: MetricSavingsRate, Value: s.Overall.SavingsRate, Kind: KindRate},
		{Metric: MetricAverageOrderValue, Value: s.Overall.AverageOrderValue, Kind: KindCurrency},
		{Metric: MetricTotalOrders, Value: float64(s.Overall.TotalOrders), Kind: KindCount},
	}
}

// Engine aggregates cleaned datasets.
type Engine struct {
	columns config.ColumnsConfig
	logger  *slog.Logger
}

// NewEngine creates an engine for the configured column mapping.
func NewEngine(columns config.ColumnsConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{columns: columns, logger: logger}
}

// accumulator collects one group's running totals.
type accumulator struct {
	earning  decimal.Decimal
	expenses decimal.Decimal
	savings  decimal.Decimal
	quantity decimal.Decimal
	rows     int
	orderIDs map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{orderIDs: make(map[string]struct{})}
}

func (a *accumulator) add(row dataprocessing.Row, columns config.ColumnsConfig) {
	a.rows++
	if v, ok := row.Numeric(dataprocessing.ColTotalRevenue); ok {
		a.earning = a.earning.Add(decimal.NewFromFloat(v))
	}
	if v, ok := row.Numeric(dataprocessing.ColTotalExpense); ok {
		a.expenses = a.expenses.Add(decimal.NewFromFloat(v))
	}
	if v, ok := row.Numeric(dataprocessing.ColSavings); ok {
		a.savings = a.savings.Add(decimal.NewFromFloat(v))
	}
	if v, ok := row.Numeric(columns.Quantity); ok {
		a.quantity = a.quantity.Add(decimal.NewFromFloat(v))
	}
	if columns.OrderID != "" {
		if id := row.String(columns.OrderID); id != "" {
			a.orderIDs[id] = struct{}{}
		}
	}
}

// orders returns the group's order count: distinct non-empty order ids when
// an id column is usable, otherwise the row count.
func (a *accumulator) orders(useIDs bool) int {
	if useIDs {
		return len(a.orderIDs)
	}
	return a.rows
}

func (a *accumulator) savingsRate() float64 {
	if a.earning.IsZero() {
		return 0
	}
	return a.savings.Div(a.earning).InexactFloat64()
}

// Summarize aggregates the dataset into overall, per-category, and
// per-region summaries. It never fails: an empty dataset yields zeroed
// totals and empty group slices.
func (e *Engine) Summarize(ctx context.Context, dataset *dataprocessing.Table) *Summary {
	useIDs := e.columns.OrderID != "" && dataset.HasColumn(e.columns.OrderID)

	overall := newAccumulator()
	byCategory := make(map[string]*accumulator)
	byRegion := make(map[string]*accumulator)

	for _, row := range dataset.Rows {
		overall.add(row, e.columns)

		category := row.String(e.columns.Category)
		if byCategory[category] == nil {
			byCategory[category] = newAccumulator()
		}
		byCategory[category].add(row, e.columns)

		region := row.String(e.columns.Region)
		if byRegion[region] == nil {
			byRegion[region] = newAccumulator()
		}
		byRegion[region].add(row, e.columns)
	}

	summary := &Summary{
		Overall: Overall{
			TotalOrders:  overall.orders(useIDs),
			TotalEarning: overall.earning.InexactFloat64(),
			Expenses:     overall.expenses.InexactFloat64(),
			Savings:      overall.savings.InexactFloat64(),
			SavingsRate:  overall.savingsRate(),
		},
		TotalRows: dataset.Len(),
	}
	if summary.Overall.TotalOrders > 0 {
		summary.Overall.AverageOrderValue = overall.earning.
			Div(decimal.NewFromInt(int64(summary.Overall.TotalOrders))).
			InexactFloat64()
	}

	for _, key := range sortedKeys(byCategory) {
		acc := byCategory[key]
		summary.Categories = append(summary.Categories, CategoryRow{
			Category:      key,
			TotalEarning:  acc.earning.InexactFloat64(),
			Expenses:      acc.expenses.InexactFloat64(),
			Savings:       acc.savings.InexactFloat64(),
			SavingsRate:   acc.savingsRate(),
			TotalQuantity: acc.quantity.InexactFloat64(),
		})
	}

	for _, key := range sortedKeys(byRegion) {
		acc := byRegion[key]
		summary.Regions = append(summary.Regions, RegionRow{
			Region:       key,
			TotalOrders:  acc.orders(useIDs),
			TotalEarning: acc.earning.InexactFloat64(),
			Expenses:     acc.expenses.InexactFloat64(),
			Savings:      acc.savings.InexactFloat64(),
			SavingsRate:  acc.savingsRate(),
		})
	}

	e.logger.InfoContext(ctx, "dataset summarized",
		slog.Int("rows", summary.TotalRows),
		slog.Int("categories", len(summary.Categories)),
		slog.Int("regions", len(summary.Regions)),
		slog.Float64("total_earning", summary.Overall.TotalEarning))

	return summary
}

func sortedKeys(groups map[string]*accumulator) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
