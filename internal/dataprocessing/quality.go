package dataprocessing

import (
	"fmt"
	"strings"
)

// Issue codes recorded per skipped input file.
const (
	IssueReadError      = "read_error"
	IssueMissingColumns = "missing_columns"
	IssueNoValidRows    = "no_valid_rows"
)

// QualityIssue records why an input file contributed no rows. Issues are
// diagnostics, not errors: the pipeline keeps going and reports them in the
// quality extract.
type QualityIssue struct {
	File  string
	Issue string
}

// NewReadIssue records a file that could not be read.
func NewReadIssue(file string, err error) QualityIssue {
	return QualityIssue{File: file, Issue: fmt.Sprintf("%s: %v", IssueReadError, err)}
}

// NewMissingColumnsIssue records a file lacking required columns.
func NewMissingColumnsIssue(file string, columns []string) QualityIssue {
	return QualityIssue{File: file, Issue: fmt.Sprintf("%s: %s", IssueMissingColumns, strings.Join(columns, ", "))}
}

// NewNoValidRowsIssue records a file whose rows were all removed by cleaning.
func NewNoValidRowsIssue(file string) QualityIssue {
	return QualityIssue{File: file, Issue: fmt.Sprintf("%s: all rows removed during cleaning", IssueNoValidRows)}
}
