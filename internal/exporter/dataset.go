package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"salescli/internal/dataprocessing"
	apperrors "salescli/internal/errors"
)

// WriteDatasetXLSX writes the cleaned dataset as a single-sheet workbook,
// replacing any previous file. Column order follows the table; missing cells
// stay blank.
func (w *Writer) WriteDatasetXLSX(path string, table *dataprocessing.Table) error {
	w.logger.Info("writing cleaned dataset",
		slog.String("path", path),
		slog.Int("rows", table.Len()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory for %s", path), err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("failed to write dataset header", err)
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, len(table.Columns))
		for j, col := range table.Columns {
			cells[j] = row[col]
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to address dataset row %d", i), err)
		}
		if err := f.SetSheetRow(sheet, start, &cells); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write dataset row %d", i), err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to save %s", path), err)
	}
	return nil
}
