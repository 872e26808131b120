// internal/platform/ui/presenter.go
package ui

import "time"

// Status es el estado final visible de un descriptor.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Phase labels shown while a descriptor chain progresses.
const (
	PhaseFetch    = "fetching"
	PhaseExtract  = "extracting"
	PhaseRelocate = "relocating"
)

// Presenter define la interfaz para presentar el progreso del
// provisioning de datasets de manera visual e interactiva.
type Presenter interface {
	// Start inicia la presentación con información de la ejecución
	Start(info RunInfo)

	// StartDescriptor notifica el inicio de la cadena de un descriptor
	StartDescriptor(id string)

	// UpdatePhase actualiza la fase visible de un descriptor
	UpdatePhase(id, phase string)

	// UpdateProgress reporta avance de transferencia (total < 0 si es
	// desconocido)
	UpdateProgress(id string, transferred, total int64)

	// FinishDescriptor notifica la finalización de un descriptor
	FinishDescriptor(id string, status Status, duration time.Duration, detail string)

	// Info muestra un mensaje informativo
	Info(msg string)

	// Warning muestra una advertencia
	Warning(msg string)

	// Error muestra un error
	Error(msg string)

	// Finish finaliza la presentación con estadísticas de la ejecución
	Finish(stats RunStats)

	// Close limpia recursos del presenter
	Close() error
}

// RunInfo contiene información inicial de la ejecución.
type RunInfo struct {
	DatasetRoot string
	Manifest    string
	Workers     int
	Descriptors int
	Force       bool
	CheckOnly   bool
}

// RunStats contiene estadísticas finales de la ejecución.
type RunStats struct {
	TotalDuration time.Duration
	Succeeded     int
	Failed        int
	BytesFetched  int64
	FailedIDs     map[string]string
}
