// internal/core/domain/report.go
package domain

import (
	"sort"
	"time"
)

// FetchResult describes a locally materialized archive. Produced by the
// fetcher, consumed by the extractor, not retained afterwards.
type FetchResult struct {
	// LocalPath ruta absoluta del archivo descargado
	LocalPath string

	// ByteSize tamaño final del archivo en disco
	ByteSize int64

	// Checksum hex MD5 digest when verification ran, empty otherwise
	Checksum string

	// Cached true si el archivo ya estaba en disco y se reutilizó
	Cached bool

	// Resumed true si la descarga continuó desde un parcial previo
	Resumed bool
}

// DescriptorResult is the per-descriptor outcome of one run.
type DescriptorResult struct {
	ID       string
	Stage    Stage
	Err      error
	Reason   string
	Duration time.Duration

	// BytesFetched bytes transferred this run (0 when fetch was cached)
	BytesFetched int64

	// SkippedStages etapas omitidas por resume/idempotencia
	SkippedStages []Stage
}

// Succeeded reports whether the descriptor reached RELOCATED.
func (r DescriptorResult) Succeeded() bool {
	return r.Err == nil && r.Stage == StageRelocated
}

// RunReport agrega los resultados de todos los descriptors de una
// ejecución. Un descriptor fallido nunca aborta a sus hermanos.
type RunReport struct {
	RunID       string                      `json:"run_id"`
	DatasetRoot string                      `json:"dataset_root"`
	StartedAt   time.Time                   `json:"started_at"`
	FinishedAt  time.Time                   `json:"finished_at"`
	Results     map[string]DescriptorResult `json:"-"`
}

// NewRunReport crea un reporte vacío para una ejecución.
func NewRunReport(runID, datasetRoot string) *RunReport {
	return &RunReport{
		RunID:       runID,
		DatasetRoot: datasetRoot,
		StartedAt:   time.Now().UTC(),
		Results:     make(map[string]DescriptorResult),
	}
}

// Add registra el resultado de un descriptor.
func (r *RunReport) Add(result DescriptorResult) {
	r.Results[result.ID] = result
}

// Finalize sella el reporte.
func (r *RunReport) Finalize() {
	r.FinishedAt = time.Now().UTC()
}

// Succeeded returns the sorted ids that reached RELOCATED.
func (r *RunReport) Succeeded() []string {
	var ids []string
	for id, res := range r.Results {
		if res.Succeeded() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Failed returns id→reason for every descriptor that did not reach
// RELOCATED.
func (r *RunReport) Failed() map[string]string {
	failed := make(map[string]string)
	for id, res := range r.Results {
		if res.Succeeded() {
			continue
		}
		reason := res.Reason
		if reason == "" && res.Err != nil {
			reason = res.Err.Error()
		}
		failed[id] = reason
	}
	return failed
}

// Ok reports whether every descriptor reached RELOCATED.
func (r *RunReport) Ok() bool {
	for _, res := range r.Results {
		if !res.Succeeded() {
			return false
		}
	}
	return true
}

// ExitCode traduce el reporte al exit code del proceso.
func (r *RunReport) ExitCode() int {
	if r.Ok() {
		return 0
	}
	return 1
}

// Duration tiempo total de la ejecución.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
