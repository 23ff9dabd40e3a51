// Command sampledata writes a small sales workbook into the input directory
// so a fresh checkout can exercise the pipeline end to end. The rows cover
// the interesting cases: zero quantity, zero price, excluded and pending
// statuses.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const sampleFileName = "sales_data_2026-02-06.xlsx"

var sampleHeaders = []string{
	"OrderID", "ClientName", "Product", "Category", "Quantity",
	"UnitPrice", "OrderDate", "Status", "Region",
}

var sampleRows = [][]interface{}{
	{1001, "Acme Corp", "Widget A", "Widgets", 10, 25.0, "2026-02-05", "Completed", "North"},
	{1002, "Beta LLC", "Widget B", "Widgets", 0, 20.0, "2026-02-05", "Completed", "South"},
	{1003, "Cyan Inc", "Gadget X", "Gadgets", 5, 0.0, "2026-02-05", "Completed", "East"},
	{1004, "Delta Co", "Gadget Y", "Gadgets", 3, 40.0, "2026-02-05", "Cancelled", "West"},
	{1005, "Echo Ltd", "Service Plan", "Services", 2, 150.0, "2026-02-06", "Pending", "North"},
	{1006, "Foxtrot GmbH", "Widget A", "Widgets", 7, 25.0, "2026-02-06", "Completed", "North"},
	{1007, "Gamma SA", "Gadget X", "Gadgets", 4, 45.0, "2026-02-06", "Completed", "South"},
	{1008, "Helix PLC", "Service Plan", "Services", 1, 150.0, "2026-02-06", "Completed", "West"},
}

func main() {
	dir := flag.String("dir", "input_data", "directory to write the sample workbook into")
	flag.Parse()

	path, err := writeSampleWorkbook(*dir)
	if err != nil {
		slog.Error("Failed to create sample workbook", "error", err)
		os.Exit(1)
	}
	fmt.Println("Created", path)
}

// writeSampleWorkbook writes the sample rows to dir, creating it as needed,
// and returns the workbook path.
func writeSampleWorkbook(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &sampleHeaders); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}
	for i, row := range sampleRows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	path := filepath.Join(dir, sampleFileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}
