// Package report renders aggregate summaries into the formatted report
// workbook: the legacy summary sheets, the benchmark sheets, a conditional
// data quality sheet, and the executive dashboard with KPI cards and charts.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"salescli/internal/config"
	"salescli/internal/dataprocessing"
	apperrors "salescli/internal/errors"
	"salescli/internal/metrics"
)

// Workbook sheet names. Downstream consumers read these by name, so they are
// part of the output contract.
const (
	SheetOverallSummary    = "Overall_Summary"
	SheetCategorySummary   = "Category_Summary"
	SheetRegionSummary     = "Region_Summary"
	SheetBenchmarkOverall  = "Benchmark_Overall"
	SheetBenchmarkCategory = "Benchmark_Category"
	SheetBenchmarkRegion   = "Benchmark_Region"
	SheetBenchmarkMetrics  = "Benchmark_Metrics"
	SheetQualityIssues     = "Data_Quality_Issues"
	SheetDashboard         = "Executive_Dashboard"
)

// Builder renders report workbooks.
type Builder struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewBuilder creates a report builder.
func NewBuilder(cfg *config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{cfg: cfg, logger: logger}
}

// Build writes the full report workbook to path, replacing any previous
// file. The quality issues sheet is only added when issues exist.
func (b *Builder) Build(ctx context.Context, path string, summary *metrics.Summary, issues []dataprocessing.QualityIssue) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := b.writeSheets(f, summary, issues); err != nil {
		return apperrors.NewStorageError("failed to write report sheets", err)
	}
	if err := formatWorkbook(f); err != nil {
		return apperrors.NewStorageError("failed to format report workbook", err)
	}
	if err := buildDashboard(f, summary); err != nil {
		return apperrors.NewStorageError("failed to build executive dashboard", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory for %s", path), err)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to save %s", path), err)
	}

	b.logger.InfoContext(ctx, "report workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(f.GetSheetList())),
		slog.Int("quality_issues", len(issues)))

	return nil
}

// writeSheets lays the raw data into the workbook, one sheet per view, in
// the fixed sheet order. Formatting is applied afterwards.
func (b *Builder) writeSheets(f *excelize.File, summary *metrics.Summary, issues []dataprocessing.QualityIssue) error {
	defaultSheet := f.GetSheetName(0)
	o := summary.Overall

	if err := writeSheet(f, SheetOverallSummary,
		[]string{"TotalOrders", "TotalRevenue", "AverageOrderValue"},
		[][]interface{}{{o.TotalOrders, o.TotalEarning, o.AverageOrderValue}}); err != nil {
		return err
	}

	categoryRows := make([][]interface{}, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		categoryRows = append(categoryRows, []interface{}{c.Category, c.TotalEarning, c.TotalQuantity})
	}
	if err := writeSheet(f, SheetCategorySummary,
		[]string{b.cfg.Columns.Category, "TotalRevenue", "TotalQuantity"}, categoryRows); err != nil {
		return err
	}

	regionRows := make([][]interface{}, 0, len(summary.Regions))
	for _, r := range summary.Regions {
		regionRows = append(regionRows, []interface{}{r.Region, r.TotalEarning, r.TotalOrders})
	}
	if err := writeSheet(f, SheetRegionSummary,
		[]string{b.cfg.Columns.Region, "TotalRevenue", "TotalOrders"}, regionRows); err != nil {
		return err
	}

	if err := writeSheet(f, SheetBenchmarkOverall,
		[]string{"TotalOrders", "TotalEarning", "Expenses", "Savings", "SavingsRate", "AverageOrderValue"},
		[][]interface{}{{o.TotalOrders, o.TotalEarning, o.Expenses, o.Savings, o.SavingsRate, o.AverageOrderValue}}); err != nil {
		return err
	}

	benchmarkCategoryRows := make([][]interface{}, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		benchmarkCategoryRows = append(benchmarkCategoryRows,
			[]interface{}{c.Category, c.TotalEarning, c.Expenses, c.Savings, c.SavingsRate, c.TotalQuantity})
	}
	if err := writeSheet(f, SheetBenchmarkCategory,
		[]string{b.cfg.Columns.Category, "TotalEarning", "Expenses", "Savings", "SavingsRate", "TotalQuantity"},
		benchmarkCategoryRows); err != nil {
		return err
	}

	benchmarkRegionRows := make([][]interface{}, 0, len(summary.Regions))
	for _, r := range summary.Regions {
		benchmarkRegionRows = append(benchmarkRegionRows,
			[]interface{}{r.Region, r.TotalOrders, r.TotalEarning, r.Expenses, r.Savings, r.SavingsRate})
	}
	if err := writeSheet(f, SheetBenchmarkRegion,
		[]string{b.cfg.Columns.Region, "TotalOrders", "TotalEarning", "Expenses", "Savings", "SavingsRate"},
		benchmarkRegionRows); err != nil {
		return err
	}

	metricRows := make([][]interface{}, 0, 6)
	for _, bench := range summary.Benchmarks() {
		value := interface{}(bench.Value)
		if bench.Kind == metrics.KindCount {
			value = int(bench.Value)
		}
		metricRows = append(metricRows, []interface{}{bench.Metric, value})
	}
	if err := writeSheet(f, SheetBenchmarkMetrics, []string{"Metric", "Value"}, metricRows); err != nil {
		return err
	}

	if len(issues) > 0 {
		issueRows := make([][]interface{}, 0, len(issues))
		for _, issue := range issues {
			issueRows = append(issueRows, []interface{}{issue.File, issue.Issue})
		}
		if err := writeSheet(f, SheetQualityIssues, []string{"File", "Issue"}, issueRows); err != nil {
			return err
		}
	}

	// Drop the default sheet so the report starts at Overall_Summary.
	return f.DeleteSheet(defaultSheet)
}

// writeSheet creates a sheet and writes its header and rows.
func writeSheet(f *excelize.File, name string, headers []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", name, err)
	}

	for i := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("address row %d of %s: %w", i, name, err)
		}
		if err := f.SetSheetRow(name, start, &rows[i]); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i, name, err)
		}
	}
	return nil
}
