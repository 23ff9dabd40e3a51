package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"salescli/internal/metrics"
)

const dashboardTitle = "Executive Financial Dashboard"

// kpiCard is one labeled value on the dashboard. The value is a live formula
// into the overall benchmark sheet, not a copied literal, so edits to the
// benchmark sheet flow through.
type kpiCard struct {
	label      string
	labelCell  string
	valueCell  string
	sourceCell string
}

var kpiCards = []kpiCard{
	{label: "Total Earning", labelCell: "B3", valueCell: "B4", sourceCell: "B2"},
	{label: "Expenses", labelCell: "D3", valueCell: "D4", sourceCell: "C2"},
	{label: "Savings", labelCell: "F3", valueCell: "F4", sourceCell: "D2"},
	{label: "Savings Rate", labelCell: "B6", valueCell: "B7", sourceCell: "E2"},
	{label: "Average Order Value", labelCell: "D6", valueCell: "D7", sourceCell: "F2"},
	{label: "Total Orders", labelCell: "F6", valueCell: "F7", sourceCell: "A2"},
}

// buildDashboard renders the executive dashboard sheet: a title, six KPI
// cards referencing Benchmark_Overall, and three charts over the benchmark
// sheets. Any prior dashboard sheet is replaced outright, never appended to.
func buildDashboard(f *excelize.File, summary *metrics.Summary) error {
	if idx, err := f.GetSheetIndex(SheetDashboard); err == nil && idx != -1 {
		if err := f.DeleteSheet(SheetDashboard); err != nil {
			return fmt.Errorf("remove prior dashboard: %w", err)
		}
	}
	if _, err := f.NewSheet(SheetDashboard); err != nil {
		return fmt.Errorf("create dashboard sheet: %w", err)
	}

	styles, err := newStyleSet(f)
	if err != nil {
		return err
	}

	if err := f.SetCellValue(SheetDashboard, "B1", dashboardTitle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetDashboard, "B1", "B1", styles.title); err != nil {
		return err
	}

	for _, card := range kpiCards {
		if err := f.SetCellValue(SheetDashboard, card.labelCell, card.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetDashboard, card.labelCell, card.labelCell, styles.kpiLabel); err != nil {
			return err
		}
		if err := f.SetCellFormula(SheetDashboard, card.valueCell,
			fmt.Sprintf("%s!%s", SheetBenchmarkOverall, card.sourceCell)); err != nil {
			return err
		}
		styleID, ok := styles.forValue(kpiMetric(card.sourceCell))
		if !ok {
			continue
		}
		if err := f.SetCellStyle(SheetDashboard, card.valueCell, card.valueCell, styleID); err != nil {
			return err
		}
	}

	if err := addCharts(f, summary); err != nil {
		return err
	}

	return f.SetColWidth(SheetDashboard, "A", "R", 16)
}

// kpiMetric maps an overall-benchmark cell back to its metric name for
// formatting.
func kpiMetric(sourceCell string) string {
	switch sourceCell {
	case "A2":
		return "TotalOrders"
	case "B2":
		return "TotalEarning"
	case "C2":
		return "Expenses"
	case "D2":
		return "Savings"
	case "E2":
		return "SavingsRate"
	default:
		return "AverageOrderValue"
	}
}

func addCharts(f *excelize.File, summary *metrics.Summary) error {
	categories := len(summary.Categories)
	regions := len(summary.Regions)

	// Bar: earnings against expenses per category.
	if err := f.AddChart(SheetDashboard, "B9", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       headerRef(SheetBenchmarkCategory, "B"),
				Categories: dataRange(SheetBenchmarkCategory, "A", categories),
				Values:     dataRange(SheetBenchmarkCategory, "B", categories),
			},
			{
				Name:       headerRef(SheetBenchmarkCategory, "C"),
				Categories: dataRange(SheetBenchmarkCategory, "A", categories),
				Values:     dataRange(SheetBenchmarkCategory, "C", categories),
			},
		},
		Title:     []excelize.RichTextRun{{Text: "Earnings vs Expenses by Category"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 480, Height: 280},
	}); err != nil {
		return fmt.Errorf("add category chart: %w", err)
	}

	// Pie: each region's share of total savings.
	if err := f.AddChart(SheetDashboard, "K9", &excelize.Chart{
		Type: excelize.Pie,
		Series: []excelize.ChartSeries{
			{
				Name:       headerRef(SheetBenchmarkRegion, "E"),
				Categories: dataRange(SheetBenchmarkRegion, "A", regions),
				Values:     dataRange(SheetBenchmarkRegion, "E", regions),
			},
		},
		Title:     []excelize.RichTextRun{{Text: "Savings Share by Region"}},
		PlotArea:  excelize.ChartPlotArea{ShowPercent: true},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 480, Height: 280},
	}); err != nil {
		return fmt.Errorf("add region chart: %w", err)
	}

	// Line: savings rate across categories.
	if err := f.AddChart(SheetDashboard, "B24", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       headerRef(SheetBenchmarkCategory, "E"),
				Categories: dataRange(SheetBenchmarkCategory, "A", categories),
				Values:     dataRange(SheetBenchmarkCategory, "E", categories),
			},
		},
		Title:     []excelize.RichTextRun{{Text: "Savings Rate by Category"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 480, Height: 280},
	}); err != nil {
		return fmt.Errorf("add savings rate chart: %w", err)
	}

	return nil
}

// headerRef returns an absolute reference to a column's header cell, used
// for chart series titles.
func headerRef(sheet, col string) string {
	return fmt.Sprintf("%s!$%s$1", sheet, col)
}

// dataRange returns the absolute range of a column's data rows.
func dataRange(sheet, col string, rows int) string {
	if rows < 1 {
		rows = 1
	}
	return fmt.Sprintf("%s!$%s$2:$%s$%d", sheet, col, col, rows+1)
}
