package dataprocessing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"salescli/internal/config"
	apperrors "salescli/internal/errors"
)

// Loader runs the per-file cleaning sequence and folds the survivors into
// one dataset. File-level problems become quality issues, never errors; a
// bad file must not sink the batch.
type Loader struct {
	cfg       *config.Config
	sanitizer *Sanitizer
	filter    *Filter
	logger    *slog.Logger
}

// LoadResult is the outcome of loading a batch of input files.
type LoadResult struct {
	// Dataset holds the cleaned rows of every contributing file.
	Dataset *Table
	// FilesProcessed counts the files that contributed at least one row.
	FilesProcessed int
	// Issues records the files that contributed nothing and why.
	Issues []QualityIssue
	// DuplicatesRemoved counts rows dropped by per-file deduplication.
	DuplicatesRemoved int
}

// NewLoader creates a loader wired to the configured rules.
func NewLoader(cfg *config.Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		cfg:       cfg,
		sanitizer: NewSanitizer(cfg.Columns, logger),
		filter:    NewFilter(cfg.Filters, cfg.Columns, logger),
		logger:    logger,
	}
}

// requiredColumns are the columns a file must carry to be processable.
func (l *Loader) requiredColumns() []string {
	c := l.cfg.Columns
	return []string{c.Quantity, c.UnitPrice, c.Status, c.Category, c.Region}
}

// LoadFiles cleans each input file and concatenates the results. Paths are
// processed in the order given.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) LoadResult {
	result := LoadResult{Dataset: NewTable()}
	var cleaned []*Table

	for _, path := range paths {
		table, removed, issue := l.processFile(ctx, path)
		if issue != nil {
			result.Issues = append(result.Issues, *issue)
			continue
		}
		cleaned = append(cleaned, table)
		result.FilesProcessed++
		result.DuplicatesRemoved += removed
	}

	if len(cleaned) > 0 {
		result.Dataset = Concat(cleaned...)
	}

	l.logger.InfoContext(ctx, "input files loaded",
		slog.Int("files_processed", result.FilesProcessed),
		slog.Int("files_skipped", len(result.Issues)),
		slog.Int("rows", result.Dataset.Len()))

	return result
}

// processFile reads, sanitizes, filters, and deduplicates one file. A nil
// issue means the returned table contributed rows.
func (l *Loader) processFile(ctx context.Context, path string) (*Table, int, *QualityIssue) {
	name := filepath.Base(path)

	table, err := ReadWorkbook(path)
	if err != nil {
		l.logger.WarnContext(ctx, "skipping unreadable input file",
			slog.String("file", name), slog.String("error", err.Error()))
		issue := NewReadIssue(name, rootCause(err))
		return nil, 0, &issue
	}

	var missing []string
	for _, col := range l.requiredColumns() {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		l.logger.WarnContext(ctx, "skipping input file with missing columns",
			slog.String("file", name), slog.Any("missing", missing))
		issue := NewMissingColumnsIssue(name, missing)
		return nil, 0, &issue
	}

	table = l.filter.Apply(l.sanitizer.Sanitize(table))
	if table.Empty() {
		l.logger.WarnContext(ctx, "no valid rows after cleaning",
			slog.String("file", name))
		issue := NewNoValidRowsIssue(name)
		return nil, 0, &issue
	}

	table, removed := Deduplicate(table, l.cfg.Columns.OrderID)

	l.logger.DebugContext(ctx, "input file cleaned",
		slog.String("file", name),
		slog.Int("rows", table.Len()),
		slog.Int("duplicates_removed", removed))

	return table, removed, nil
}

// MergeWithCleaned folds the new dataset into a previously written cleaned
// output, when one exists. The combined rows are re-enriched and re-checked
// against the numeric thresholds only; status rules are not re-applied to
// rows accepted by an earlier run. Deduplication runs last across the whole
// set, newest rows winning. The second result counts rows the final
// deduplication removed.
//
// A cleaned output that exists but cannot be read is logged and skipped; the
// current batch proceeds unmerged rather than failing the run.
func (l *Loader) MergeWithCleaned(ctx context.Context, dataset *Table, cleanedPath string) (*Table, int) {
	combined := dataset

	if _, err := os.Stat(cleanedPath); err == nil {
		existing, err := ReadWorkbook(cleanedPath)
		if err != nil {
			l.logger.WarnContext(ctx, "failed reading existing cleaned output, proceeding without merge",
				slog.String("path", cleanedPath),
				slog.String("error", err.Error()))
		} else {
			l.logger.InfoContext(ctx, "merging with existing cleaned output",
				slog.String("path", cleanedPath),
				slog.Int("existing_rows", existing.Len()))
			combined = Concat(existing, dataset)
		}
	}

	combined = l.filter.ApplyThresholds(l.sanitizer.Sanitize(combined))
	combined, removed := Deduplicate(combined, l.cfg.Columns.OrderID)

	return combined, removed
}

// rootCause unwraps an AppError so quality issues carry the underlying
// problem, not the wrapper prose.
func rootCause(err error) error {
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.Cause != nil {
		return appErr.Cause
	}
	return err
}
