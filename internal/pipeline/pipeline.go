// Package pipeline orchestrates one batch run: authorize, load and clean the
// input files, merge with the previously persisted dataset, compute the
// financial summary, and write the report artifacts. The run moves through
// NotStarted, Started and exactly one of Skipped, Completed or Failed, with
// each terminal state recorded in the event log.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"salescli/internal/auth"
	"salescli/internal/config"
	"salescli/internal/dataprocessing"
	"salescli/internal/events"
	"salescli/internal/exporter"
	"salescli/internal/files"
	"salescli/internal/infrastructure"
	"salescli/internal/metrics"
	"salescli/internal/notify"
	"salescli/internal/report"
)

// Status is the terminal (or in-flight) state of a run.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusStarted    Status = "started"
	StatusSkipped    Status = "skipped"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Skip reasons. Both are early terminations, not errors.
const (
	ReasonNoInputFiles = "no input files"
	ReasonNoValidData  = "no valid data"
)

// CSV artifacts written next to the report workbook.
const (
	benchmarkCSVName = "benchmark_summary.csv"
	qualityCSVName   = "data_quality_issues.csv"
)

// Result describes how a run ended and what it produced.
type Result struct {
	Status Status
	// Reason is set for Skipped (which skip condition) and Failed (the
	// error text).
	Reason            string
	FilesFound        int
	FilesProcessed    int
	RowsWritten       int
	DuplicatesRemoved int
	CleanedPath       string
	ReportPath        string
	Summary           *metrics.Summary
	Issues            []dataprocessing.QualityIssue
}

// Runner wires the pipeline stages together for repeated runs over one
// configuration.
type Runner struct {
	cfg       *config.Config
	dir       *auth.Directory
	events    *events.Log
	notifier  *notify.Notifier
	discovery *files.Discovery
	loader    *dataprocessing.Loader
	engine    *metrics.Engine
	builder   *report.Builder
	writer    *exporter.Writer
	logger    *slog.Logger
}

// NewRunner assembles a runner from the shared collaborators. The stage
// components are built here so callers only supply configuration, the user
// directory and the event sink.
func NewRunner(cfg *config.Config, dir *auth.Directory, eventLog *events.Log, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		dir:       dir,
		events:    eventLog,
		notifier:  notify.NewNotifier(cfg.Notify, dir, eventLog, logger),
		discovery: files.NewDiscovery(cfg.Paths.InputDir, cfg.Files.InputExtension),
		loader:    dataprocessing.NewLoader(cfg, logger),
		engine:    metrics.NewEngine(cfg.Columns, logger),
		builder:   report.NewBuilder(cfg, logger),
		writer:    exporter.NewWriter(logger),
		logger:    logger,
	}
}

// Run executes one pipeline pass. The returned Result always describes the
// terminal state; the error is non-nil only for the Failed state and carries
// the failure that was also recorded as a PIPELINE_FAILED event.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	result := &Result{Status: StatusNotStarted}

	actor, err := r.dir.Get(r.cfg.Auth.Actor)
	if err != nil {
		return r.fail(ctx, result, err)
	}
	if err := auth.Authorize(actor, auth.ActionRunPipeline); err != nil {
		return r.fail(ctx, result, err)
	}

	for _, dir := range []string{r.cfg.Paths.InputDir, r.cfg.Paths.OutputDir} {
		if err := files.EnsureDir(dir); err != nil {
			return r.fail(ctx, result, err)
		}
	}

	found, err := r.discovery.Find()
	if err != nil {
		return r.fail(ctx, result, err)
	}
	result.FilesFound = len(found)

	if len(found) == 0 {
		return r.skip(ctx, result, actor, ReasonNoInputFiles)
	}

	paths := make([]string, 0, len(found))
	for _, f := range found {
		paths = append(paths, f.Path)
	}

	result.Status = StatusStarted
	if _, err := r.events.Emit(events.TypePipelineStarted, actor.ID, events.LevelInfo, map[string]interface{}{
		"files_found": len(found),
	}); err != nil {
		return r.fail(ctx, result, err)
	}
	r.degrade(ctx, "pipeline started", r.notifier.PipelineStarted(ctx))

	loaded := r.loader.LoadFiles(ctx, paths)
	result.Issues = loaded.Issues

	if loaded.Dataset.Empty() {
		if err := r.writeQualityCSV(loaded.Issues); err != nil {
			return r.fail(ctx, result, err)
		}
		return r.skip(ctx, result, actor, ReasonNoValidData)
	}

	cleanedPath := filepath.Join(r.cfg.Paths.OutputDir, r.cfg.Files.CleanedOutput)
	merged, mergeRemoved := r.loader.MergeWithCleaned(ctx, loaded.Dataset, cleanedPath)

	if err := r.writer.WriteDatasetXLSX(cleanedPath, merged); err != nil {
		return r.fail(ctx, result, err)
	}
	result.CleanedPath = cleanedPath
	result.RowsWritten = merged.Len()
	result.DuplicatesRemoved = loaded.DuplicatesRemoved + mergeRemoved

	if _, err := r.events.Emit(events.TypeDataCleaned, actor.ID, events.LevelInfo, map[string]interface{}{
		"rows_written":       merged.Len(),
		"duplicates_removed": result.DuplicatesRemoved,
		"output_file":        cleanedPath,
	}); err != nil {
		return r.fail(ctx, result, err)
	}
	r.degrade(ctx, "data cleaned", r.notifier.DataCleaned(ctx, cleanedPath))

	summary := r.engine.Summarize(ctx, merged)
	result.Summary = summary

	reportPath := filepath.Join(r.cfg.Paths.OutputDir, r.cfg.Files.ReportOutput)
	if err := r.builder.Build(ctx, reportPath, summary, loaded.Issues); err != nil {
		return r.fail(ctx, result, err)
	}
	result.ReportPath = reportPath

	benchmarkPath := filepath.Join(r.cfg.Paths.OutputDir, benchmarkCSVName)
	if err := r.writer.WriteBenchmarkCSV(benchmarkPath, summary.Benchmarks()); err != nil {
		return r.fail(ctx, result, err)
	}
	if err := r.writeQualityCSV(loaded.Issues); err != nil {
		return r.fail(ctx, result, err)
	}

	result.Status = StatusCompleted
	result.FilesProcessed = loaded.FilesProcessed
	if _, err := r.events.Emit(events.TypePipelineCompleted, actor.ID, events.LevelInfo, map[string]interface{}{
		"files_processed": loaded.FilesProcessed,
		"total_rows":      merged.Len(),
		"total_earning":   summary.Overall.TotalEarning,
		"total_expenses":  summary.Overall.Expenses,
		"total_savings":   summary.Overall.Savings,
	}); err != nil {
		return r.fail(ctx, result, err)
	}
	r.degrade(ctx, "pipeline completed", r.notifier.PipelineCompleted(ctx, cleanedPath, reportPath))

	r.logger.InfoContext(ctx, "pipeline completed",
		slog.Int("files_processed", loaded.FilesProcessed),
		slog.Int("total_rows", merged.Len()),
		slog.String("cleaned_output", cleanedPath),
		slog.String("report_output", reportPath))

	return result, nil
}

// writeQualityCSV persists the quality issues extract when there is anything
// to report.
func (r *Runner) writeQualityCSV(issues []dataprocessing.QualityIssue) error {
	if len(issues) == 0 {
		return nil
	}
	path := filepath.Join(r.cfg.Paths.OutputDir, qualityCSVName)
	return r.writer.WriteQualityCSV(path, issues)
}

// skip ends the run in the Skipped state and records it.
func (r *Runner) skip(ctx context.Context, result *Result, actor auth.User, reason string) (*Result, error) {
	result.Status = StatusSkipped
	result.Reason = reason

	r.logger.InfoContext(ctx, "pipeline skipped",
		slog.String("reason", reason),
		slog.Int("files_found", result.FilesFound))

	if _, err := r.events.Emit(events.TypePipelineSkipped, actor.ID, events.LevelInfo, map[string]interface{}{
		"reason":      reason,
		"files_found": result.FilesFound,
	}); err != nil {
		return r.fail(ctx, result, err)
	}
	return result, nil
}

// fail ends the run in the Failed state, records the failure, and sends a
// best-effort failure notification.
func (r *Runner) fail(ctx context.Context, result *Result, cause error) (*Result, error) {
	result.Status = StatusFailed
	result.Reason = cause.Error()

	r.logger.ErrorContext(ctx, "pipeline failed", slog.String("error", cause.Error()))

	if _, err := r.events.Emit(events.TypePipelineFailed, "system", events.LevelError, map[string]interface{}{
		"error": cause.Error(),
	}); err != nil {
		r.logger.WarnContext(ctx, "failed to record failure event", slog.String("error", err.Error()))
	}
	r.degrade(ctx, "pipeline failed", r.notifier.PipelineFailed(ctx, cause.Error()))

	return result, cause
}

// degrade downgrades a notification error to a warning. A broken mail setup
// must never change the outcome of a run.
func (r *Runner) degrade(ctx context.Context, notification string, err error) {
	if err == nil {
		return
	}
	r.logger.WarnContext(ctx, "notification failed",
		slog.String("notification", notification),
		slog.String("error", err.Error()))
}
