package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "salescli/internal/errors"
)

// ReadWorkbook reads the first sheet of an Excel workbook into a Table. The
// first row is the header; duplicate or empty headers get positional names so
// no cell is silently dropped. All cells load as strings; numeric coercion
// happens in the sanitizer.
func ReadWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("workbook %s has no sheets", path), nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %s", sheets[0]), err)
	}

	if len(rows) == 0 {
		return NewTable(), nil
	}

	columns := headerNames(rows[0])
	table := NewTable(columns...)

	for _, raw := range rows[1:] {
		if isBlank(raw) {
			continue
		}
		row := make(Row, len(columns))
		for j, col := range columns {
			if j < len(raw) && raw[j] != "" {
				row[col] = raw[j]
			} else {
				row[col] = nil
			}
		}
		table.Append(row)
	}

	return table, nil
}

// headerNames normalizes a header row: trims whitespace, names blank headers
// by position, and suffixes duplicates.
func headerNames(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

// isBlank reports whether every cell of a raw row is empty or whitespace.
func isBlank(raw []string) bool {
	for _, cell := range raw {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseNumeric converts a cell string to a float64, tolerating surrounding
// whitespace and thousands separators.
func ParseNumeric(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty numeric cell")
	}
	return strconv.ParseFloat(cleaned, 64)
}

// CoerceNumeric converts an arbitrary cell value to a float64. The second
// result is false when the value is missing or unparseable.
func CoerceNumeric(v interface{}) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case string:
		f, err := ParseNumeric(tv)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
