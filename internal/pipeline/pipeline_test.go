package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salescli/internal/auth"
	"salescli/internal/config"
	"salescli/internal/dataprocessing"
	apperrors "salescli/internal/errors"
	"salescli/internal/events"
)

var salesHeaders = []string{"OrderID", "Quantity", "UnitPrice", "Status", "Category", "Region", "Expense"}

// testConfig roots every path of the default configuration in a per-test
// temp directory. Notifications are off unless a test opts in.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InputDir = filepath.Join(root, "input")
	cfg.Paths.OutputDir = filepath.Join(root, "output")
	cfg.Paths.LogsDir = filepath.Join(root, "logs")
	cfg.Logging.FilePath = filepath.Join(root, "logs", "app.log")
	cfg.Logging.EventsPath = filepath.Join(root, "logs", "events.jsonl")
	cfg.Notify.Enabled = false
	return cfg
}

func newTestRunner(t *testing.T, cfg *config.Config) (*Runner, *events.Log) {
	t.Helper()

	eventLog, err := events.NewLog(cfg.Logging.EventsPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { eventLog.Close() })

	return NewRunner(cfg, auth.DefaultDirectory(), eventLog, nil), eventLog
}

func writeInputWorkbook(t *testing.T, cfg *config.Config, name string, rows [][]interface{}) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(cfg.Paths.InputDir, 0755))

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &salesHeaders))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(cfg.Paths.InputDir, name)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func eventTypes(log *events.Log) []string {
	all := log.Events()
	types := make([]string, 0, len(all))
	for _, e := range all {
		types = append(types, e.Type)
	}
	return types
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimPrefix(string(data), "\xef\xbb\xbf")
	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunNoInputFiles(t *testing.T) {
	cfg := testConfig(t)
	runner, log := newTestRunner(t, cfg)
	require.NoError(t, os.MkdirAll(cfg.Paths.InputDir, 0755))

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Equal(t, ReasonNoInputFiles, result.Reason)
	assert.Equal(t, 0, result.FilesFound)

	assert.Equal(t, []string{events.TypePipelineSkipped}, eventTypes(log))
	event, _ := log.Last()
	assert.Equal(t, "2", event.UserID)
	assert.Equal(t, ReasonNoInputFiles, event.Payload["reason"])

	// Nothing should be produced on this path.
	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCleansAndAggregates(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "sales.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 4},
		{"A-2", 0, 10, "Completed", "Widgets", "North", 1},
	})

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.FilesFound)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Equal(t, 1, result.RowsWritten)
	assert.Empty(t, result.Issues)

	cleaned, err := dataprocessing.ReadWorkbook(result.CleanedPath)
	require.NoError(t, err)
	require.Equal(t, 1, cleaned.Len())
	assert.Equal(t, "A-1", cleaned.Rows[0].String("OrderID"))
	assert.Equal(t, "20", cleaned.Rows[0].String(dataprocessing.ColTotalRevenue))
	assert.Equal(t, "16", cleaned.Rows[0].String(dataprocessing.ColSavings))

	require.NotNil(t, result.Summary)
	assert.InDelta(t, 20.0, result.Summary.Overall.TotalEarning, 1e-9)
	assert.Equal(t, 1, result.Summary.Overall.TotalOrders)

	assert.FileExists(t, result.ReportPath)
	records := readCSVFile(t, filepath.Join(cfg.Paths.OutputDir, "benchmark_summary.csv"))
	require.Len(t, records, 7)
	assert.Equal(t, []string{"Metric", "Value"}, records[0])
	assert.Equal(t, []string{"TotalEarning", "20.00"}, records[1])

	assert.NoFileExists(t, filepath.Join(cfg.Paths.OutputDir, "data_quality_issues.csv"))
}

func TestRunEventSequence(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notify.Enabled = true
	cfg.Notify.DryRun = true
	runner, log := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "sales.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 4},
	})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		events.TypePipelineStarted,
		events.TypeEmailSent,
		events.TypeDataCleaned,
		events.TypeEmailSent,
		events.TypePipelineCompleted,
		events.TypeEmailSent,
	}, eventTypes(log))

	all := log.Events()
	assert.Equal(t, "2", all[0].UserID)
	assert.Equal(t, 1, all[0].Payload["files_found"])

	assert.Equal(t, 1, all[2].Payload["rows_written"])
	assert.Equal(t, 0, all[2].Payload["duplicates_removed"])
	assert.Equal(t, filepath.Join(cfg.Paths.OutputDir, cfg.Files.CleanedOutput), all[2].Payload["output_file"])

	completed := all[4]
	assert.Equal(t, 1, completed.Payload["files_processed"])
	assert.Equal(t, 1, completed.Payload["total_rows"])
	assert.InDelta(t, 20.0, completed.Payload["total_earning"].(float64), 1e-9)
	assert.InDelta(t, 4.0, completed.Payload["total_expenses"].(float64), 1e-9)
	assert.InDelta(t, 16.0, completed.Payload["total_savings"].(float64), 1e-9)
}

func TestRunUnreadableFileContinues(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "good.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 4},
	})
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.InputDir, "bad.xlsx"), []byte("not a workbook"), 0644))

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 2, result.FilesFound)
	assert.Equal(t, 1, result.FilesProcessed)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "bad.xlsx", result.Issues[0].File)

	cleaned, err := dataprocessing.ReadWorkbook(result.CleanedPath)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned.Len())

	records := readCSVFile(t, filepath.Join(cfg.Paths.OutputDir, "data_quality_issues.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, []string{"File", "Issue"}, records[0])
	assert.Equal(t, "bad.xlsx", records[1][0])

	f, err := excelize.OpenFile(result.ReportPath)
	require.NoError(t, err)
	defer f.Close()
	idx, err := f.GetSheetIndex("Data_Quality_Issues")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, 0)
}

func TestRunMergeReplacesByOrderID(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg)
	first := writeInputWorkbook(t, cfg, "jan.xlsx", [][]interface{}{
		{"X", 5, 10, "Completed", "Widgets", "North", 0},
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)

	require.NoError(t, os.Remove(first))
	writeInputWorkbook(t, cfg, "feb.xlsx", [][]interface{}{
		{"X", 8, 10, "Completed", "Widgets", "North", 0},
	})

	result, err = runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.RowsWritten)
	assert.Equal(t, 1, result.DuplicatesRemoved)

	cleaned, err := dataprocessing.ReadWorkbook(result.CleanedPath)
	require.NoError(t, err)
	require.Equal(t, 1, cleaned.Len())
	assert.Equal(t, "X", cleaned.Rows[0].String("OrderID"))
	assert.Equal(t, "80", cleaned.Rows[0].String(dataprocessing.ColTotalRevenue))
}

func TestRunEmptyCategoryFormsOwnGroup(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "sales.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 0},
		{"A-2", 3, 4, "Completed", "", "North", 0},
	})

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)

	require.Len(t, result.Summary.Categories, 2)
	assert.Equal(t, "", result.Summary.Categories[0].Category)
	assert.InDelta(t, 12.0, result.Summary.Categories[0].TotalEarning, 1e-9)

	f, err := excelize.OpenFile(result.ReportPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Category_Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	category, err := f.GetCellValue("Category_Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "", category)
	revenue, err := f.GetCellValue("Category_Summary", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "12", revenue)
}

func TestRunNoValidRowsSkips(t *testing.T) {
	cfg := testConfig(t)
	runner, log := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "cancelled.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Cancelled", "Widgets", "North", 0},
	})

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Equal(t, ReasonNoValidData, result.Reason)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "no_valid_rows: all rows removed during cleaning", result.Issues[0].Issue)

	assert.Equal(t, []string{
		events.TypePipelineStarted,
		events.TypePipelineSkipped,
	}, eventTypes(log))

	// The quality log is still persisted so the skip can be diagnosed.
	records := readCSVFile(t, filepath.Join(cfg.Paths.OutputDir, "data_quality_issues.csv"))
	assert.Len(t, records, 2)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.OutputDir, cfg.Files.CleanedOutput))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.OutputDir, cfg.Files.ReportOutput))
}

func TestRunAuthorizationDenied(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Actor = "viewer1@example.com"
	runner, log := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "sales.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 0},
	})

	result, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePermission))
	assert.Equal(t, StatusFailed, result.Status)

	assert.Equal(t, []string{events.TypePipelineFailed}, eventTypes(log))
	event, _ := log.Last()
	assert.Equal(t, "system", event.UserID)
	assert.Equal(t, events.LevelError, event.Level)
	assert.Contains(t, event.Payload["error"], "run_pipeline")

	assert.NoFileExists(t, filepath.Join(cfg.Paths.OutputDir, cfg.Files.CleanedOutput))
}

func TestRunUnknownActorFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Actor = "ghost@example.com"
	runner, log := newTestRunner(t, cfg)

	result, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, []string{events.TypePipelineFailed}, eventTypes(log))
}

func TestRunIgnoresLockAndForeignFiles(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "sales.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 0},
	})
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.InputDir, "~$sales.xlsx"), []byte("lock"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.InputDir, "notes.txt"), []byte("text"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Paths.InputDir, "archive.xlsx"), 0755))

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.FilesFound)
	assert.Equal(t, 1, result.FilesProcessed)
	assert.Empty(t, result.Issues)
}

func TestRunNotificationFailureDoesNotFailRun(t *testing.T) {
	cfg := testConfig(t)
	// Live mode with no SMTP settings: every notification errors out.
	cfg.Notify.Enabled = true
	cfg.Notify.DryRun = false
	runner, log := newTestRunner(t, cfg)
	writeInputWorkbook(t, cfg, "sales.xlsx", [][]interface{}{
		{"A-1", 2, 10, "Completed", "Widgets", "North", 0},
	})

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, []string{
		events.TypePipelineStarted,
		events.TypeDataCleaned,
		events.TypePipelineCompleted,
	}, eventTypes(log))
}

func TestRunProcessesFilesInNameOrder(t *testing.T) {
	cfg := testConfig(t)
	runner, _ := newTestRunner(t, cfg)
	// Same order id in both files: the later file must win.
	writeInputWorkbook(t, cfg, "b.xlsx", [][]interface{}{
		{"X", 9, 10, "Completed", "Widgets", "North", 0},
	})
	writeInputWorkbook(t, cfg, "a.xlsx", [][]interface{}{
		{"X", 2, 10, "Completed", "Widgets", "North", 0},
	})

	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.RowsWritten)

	cleaned, err := dataprocessing.ReadWorkbook(result.CleanedPath)
	require.NoError(t, err)
	require.Equal(t, 1, cleaned.Len())
	assert.Equal(t, "90", cleaned.Rows[0].String(dataprocessing.ColTotalRevenue))
}
