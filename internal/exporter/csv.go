// Package exporter writes the flat output artifacts of a pipeline run: the
// cleaned dataset workbook, the benchmark metric CSV, and the data quality
// issue CSV.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"salescli/internal/dataprocessing"
	apperrors "salescli/internal/errors"
	"salescli/internal/metrics"
)

// Writer exports run artifacts to disk.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a new artifact writer.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes a CSV file, creating parent directories as needed. The
// file is replaced, not appended to.
func (w *Writer) WriteCSV(path string, options WriteOptions) error {
	w.logger.Info("writing CSV file",
		slog.String("path", path),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to create directory for %s", path), err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write BOM to %s", path), err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write headers to %s", path), err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write record %d to %s", i, path), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to flush %s", path), err)
	}
	return nil
}

// WriteBenchmarkCSV writes the flat Metric/Value extract.
func (w *Writer) WriteBenchmarkCSV(path string, benchmarks []metrics.Benchmark) error {
	records := make([][]string, 0, len(benchmarks))
	for _, b := range benchmarks {
		records = append(records, []string{b.Metric, formatValue(b)})
	}
	return w.WriteCSV(path, WriteOptions{
		Headers:   []string{"Metric", "Value"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteQualityCSV writes the per-file quality issues. Callers are expected
// to skip the write when there are no issues.
func (w *Writer) WriteQualityCSV(path string, issues []dataprocessing.QualityIssue) error {
	records := make([][]string, 0, len(issues))
	for _, issue := range issues {
		records = append(records, []string{issue.File, issue.Issue})
	}
	return w.WriteCSV(path, WriteOptions{
		Headers:   []string{"File", "Issue"},
		Records:   records,
		BOMPrefix: true,
	})
}
