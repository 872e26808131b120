// internal/adapters/output/table.go
package output

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"corpusx/internal/core/domain"
)

// TableWriter escribe el reporte de la ejecución como una tabla de
// texto plano, pensada para terminales y logs.
type TableWriter struct {
	w io.Writer
}

// NewTableWriter crea un writer de tabla sobre w.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

// Write renderiza el reporte completo.
func (t *TableWriter) Write(report *domain.RunReport) error {
	tw := tabwriter.NewWriter(t.w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "RUN\t%s\n", report.RunID)
	fmt.Fprintf(tw, "ROOT\t%s\n", report.DatasetRoot)
	fmt.Fprintf(tw, "DURATION\t%s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ID\tSTAGE\tDURATION\tFETCHED\tDETAIL")

	for _, id := range sortedIDs(report) {
		res := report.Results[id]
		detail := res.Reason
		if detail == "" && len(res.SkippedStages) == 3 {
			detail = "cached"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			res.ID,
			res.Stage,
			res.Duration.Round(time.Millisecond),
			byteCount(res.BytesFetched),
			detail,
		)
	}

	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "OK\t%d\n", len(report.Succeeded()))
	fmt.Fprintf(tw, "FAILED\t%d\n", len(report.Failed()))

	return tw.Flush()
}

// WriteFailureSummary escribe solo los descriptors fallidos, una línea
// por fallo. Pensado para stderr cuando el exit code no es cero.
func WriteFailureSummary(w io.Writer, report *domain.RunReport) {
	failed := report.Failed()
	if len(failed) == 0 {
		return
	}

	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "%d dataset(s) failed:\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(w, "  %s: %s\n", id, failed[id])
	}
}

func sortedIDs(report *domain.RunReport) []string {
	ids := make([]string, 0, len(report.Results))
	for id := range report.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func byteCount(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
