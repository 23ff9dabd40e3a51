package exporter

import (
	"fmt"
	"strconv"

	"salescli/internal/metrics"
)

// formatValue renders a benchmark value for CSV output. Currency values get
// exactly 2 decimal places so 13.4 appears as 13.40, rates get 4, and counts
// render as plain integers.
func formatValue(b metrics.Benchmark) string {
	switch b.Kind {
	case metrics.KindRate:
		return fmt.Sprintf("%.4f", b.Value)
	case metrics.KindCount:
		return strconv.FormatInt(int64(b.Value), 10)
	default:
		return fmt.Sprintf("%.2f", b.Value)
	}
}
