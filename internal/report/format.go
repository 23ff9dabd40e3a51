package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Number format strings asserted by downstream spreadsheet tooling. Changing
// them breaks report consumers.
const (
	numFmtCurrency = "$#,##0.00"
	numFmtRate     = "0.00%"
	numFmtCount    = "#,##0"
)

// Column width bounds for auto-sizing.
const (
	minColWidth = 10.0
	maxColWidth = 40.0
)

const headerFillColor = "4472C4"

// styleSet holds the style ids registered in one workbook.
type styleSet struct {
	header   int
	currency int
	rate     int
	count    int
	title    int
	kpiLabel int
}

func newStyleSet(f *excelize.File) (*styleSet, error) {
	s := &styleSet{}
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, fmt.Errorf("register header style: %w", err)
	}

	currencyFmt := numFmtCurrency
	if s.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt}); err != nil {
		return nil, fmt.Errorf("register currency style: %w", err)
	}

	rateFmt := numFmtRate
	if s.rate, err = f.NewStyle(&excelize.Style{CustomNumFmt: &rateFmt}); err != nil {
		return nil, fmt.Errorf("register rate style: %w", err)
	}

	countFmt := numFmtCount
	if s.count, err = f.NewStyle(&excelize.Style{CustomNumFmt: &countFmt}); err != nil {
		return nil, fmt.Errorf("register count style: %w", err)
	}

	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	}); err != nil {
		return nil, fmt.Errorf("register title style: %w", err)
	}

	if s.kpiLabel, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFillColor},
	}); err != nil {
		return nil, fmt.Errorf("register kpi label style: %w", err)
	}

	return s, nil
}

// forValue maps a header or metric name to its number-format style.
func (s *styleSet) forValue(name string) (int, bool) {
	switch name {
	case "TotalEarning", "Expenses", "Savings", "TotalRevenue", "AverageOrderValue":
		return s.currency, true
	case "SavingsRate":
		return s.rate, true
	case "TotalOrders", "TotalQuantity":
		return s.count, true
	default:
		return 0, false
	}
}

// formatWorkbook styles every data sheet: bold filled header row, frozen top
// row, number formats chosen by column header, and content-sized column
// widths. The metrics sheet is value-keyed per row instead of per column.
// Running it again yields the same formats, so rebuilding a report in place
// is safe.
func formatWorkbook(f *excelize.File) error {
	styles, err := newStyleSet(f)
	if err != nil {
		return err
	}
	for _, sheet := range f.GetSheetList() {
		if sheet == SheetDashboard {
			continue
		}
		if err := formatSheet(f, sheet, styles); err != nil {
			return fmt.Errorf("format sheet %s: %w", sheet, err)
		}
	}
	return nil
}

func formatSheet(f *excelize.File, sheet string, styles *styleSet) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	headers := rows[0]
	lastRow := len(rows)

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", styles.header); err != nil {
		return err
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if lastRow > 1 {
		if sheet == SheetBenchmarkMetrics {
			if err := formatMetricRows(f, rows, styles); err != nil {
				return err
			}
		} else {
			for i, header := range headers {
				styleID, ok := styles.forValue(header)
				if !ok {
					continue
				}
				col, err := excelize.ColumnNumberToName(i + 1)
				if err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, col+"2", col+strconv.Itoa(lastRow), styleID); err != nil {
					return err
				}
			}
		}
	}

	return sizeColumns(f, sheet, rows)
}

// formatMetricRows styles the Value column of the metrics sheet row by row,
// keyed on the metric name in column A.
func formatMetricRows(f *excelize.File, rows [][]string, styles *styleSet) error {
	for r := 2; r <= len(rows); r++ {
		row := rows[r-1]
		if len(row) == 0 {
			continue
		}
		styleID, ok := styles.forValue(row[0])
		if !ok {
			continue
		}
		cell := "B" + strconv.Itoa(r)
		if err := f.SetCellStyle(SheetBenchmarkMetrics, cell, cell, styleID); err != nil {
			return err
		}
	}
	return nil
}

// sizeColumns widens each column to its longest cell, within bounds.
func sizeColumns(f *excelize.File, sheet string, rows [][]string) error {
	for i := range rows[0] {
		longest := 0
		for _, row := range rows {
			if i < len(row) && len(row[i]) > longest {
				longest = len(row[i])
			}
		}
		width := float64(longest) + 2
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
