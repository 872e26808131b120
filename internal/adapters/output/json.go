// internal/adapters/output/json.go
package output

import (
	"encoding/json"
	"io"
	"time"

	"corpusx/internal/core/domain"
)

// jsonReport es la vista serializable del RunReport. Los errores se
// aplanan a strings para que el JSON sea estable entre ejecuciones.
type jsonReport struct {
	RunID       string           `json:"run_id"`
	DatasetRoot string           `json:"dataset_root"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Results     []jsonDescriptor `json:"results"`
}

type jsonDescriptor struct {
	ID            string         `json:"id"`
	Stage         domain.Stage   `json:"stage"`
	Reason        string         `json:"reason,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
	BytesFetched  int64          `json:"bytes_fetched"`
	SkippedStages []domain.Stage `json:"skipped_stages,omitempty"`
}

// JSONWriter escribe el reporte en JSON, para consumo por tooling.
type JSONWriter struct {
	w io.Writer
}

// NewJSONWriter crea un writer JSON sobre w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// Write serializa el reporte con los resultados ordenados por id.
func (j *JSONWriter) Write(report *domain.RunReport) error {
	out := jsonReport{
		RunID:       report.RunID,
		DatasetRoot: report.DatasetRoot,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Succeeded:   len(report.Succeeded()),
		Failed:      len(report.Failed()),
	}

	for _, id := range sortedIDs(report) {
		res := report.Results[id]
		reason := res.Reason
		if reason == "" && res.Err != nil {
			reason = res.Err.Error()
		}
		out.Results = append(out.Results, jsonDescriptor{
			ID:            res.ID,
			Stage:         res.Stage,
			Reason:        reason,
			DurationMS:    res.Duration.Milliseconds(),
			BytesFetched:  res.BytesFetched,
			SkippedStages: res.SkippedStages,
		})
	}

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
