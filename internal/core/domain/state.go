// internal/core/domain/state.go
package domain

import "time"

// Stage representa el estado persistido de un descriptor en el pipeline.
type Stage string

const (
	StageNotStarted Stage = "not_started"
	StageFetched    Stage = "fetched"
	StageExtracted  Stage = "extracted"
	StageRelocated  Stage = "relocated"
	StageFailed     Stage = "failed"
)

// stageOrder define el orden de progresión de las etapas exitosas.
var stageOrder = map[Stage]int{
	StageNotStarted: 0,
	StageFetched:    1,
	StageExtracted:  2,
	StageRelocated:  3,
}

// IsValid verifica que la etapa sea conocida.
func (s Stage) IsValid() bool {
	switch s {
	case StageNotStarted, StageFetched, StageExtracted, StageRelocated, StageFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the stage ends the descriptor's chain for
// this run. StageFailed is terminal for the run but retryable on the
// next invocation from the last successful stage.
func (s Stage) IsTerminal() bool {
	return s == StageRelocated || s == StageFailed
}

// next devuelve la etapa exitosa que sigue a s.
func (s Stage) next() Stage {
	switch s {
	case StageNotStarted:
		return StageFetched
	case StageFetched:
		return StageExtracted
	case StageExtracted:
		return StageRelocated
	default:
		return StageRelocated
	}
}

// CanTransition verifica que la transición de etapas sea legal:
// avance de una etapa exitosa a la siguiente, o a failed desde cualquiera.
func (s Stage) CanTransition(to Stage) bool {
	if !s.IsValid() || !to.IsValid() {
		return false
	}
	if to == StageFailed {
		return s != StageRelocated
	}
	if s == StageFailed {
		// Retries re-enter at any successful stage.
		return to != StageNotStarted
	}
	return stageOrder[to] == stageOrder[s]+1
}

// State es el registro persistido por descriptor. El orchestrator es el
// único que lo muta; los stores solo lo serializan.
type State struct {
	DescriptorID string `json:"descriptor_id"`

	// Stage current stage; StageFailed keeps LastGood for resume.
	Stage Stage `json:"stage"`

	// LastGood última etapa exitosa, solo significativa cuando Stage es failed
	LastGood Stage `json:"last_good,omitempty"`

	// Reason failure reason, empty on successful stages
	Reason string `json:"reason,omitempty"`

	// ArchiveSize bytes of the fetched archive, recorded at StageFetched
	ArchiveSize int64 `json:"archive_size,omitempty"`

	// RunID run that last touched this record
	RunID string `json:"run_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState crea el registro inicial de un descriptor.
func NewState(descriptorID string) State {
	return State{
		DescriptorID: descriptorID,
		Stage:        StageNotStarted,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Advance returns a copy of the state moved to next. Failure keeps the
// last successful stage so the next run resumes instead of restarting.
func (st State) Advance(next Stage, runID, reason string) (State, error) {
	if !st.Stage.CanTransition(next) {
		return st, ErrInvalidTransition
	}

	out := st
	out.Stage = next
	out.RunID = runID
	out.UpdatedAt = time.Now().UTC()

	switch {
	case next == StageFailed:
		if st.Stage != StageFailed {
			out.LastGood = st.Stage
		}
		out.Reason = reason
	default:
		out.LastGood = ""
		out.Reason = ""
	}
	return out, nil
}

// ResumeStage devuelve la próxima etapa pendiente según el estado
// persistido: la que sigue a la última etapa exitosa.
func (st State) ResumeStage() Stage {
	base := st.Stage
	if st.Stage == StageFailed {
		base = st.LastGood
		if !base.IsValid() || base == StageFailed {
			base = StageNotStarted
		}
	}
	if base == StageRelocated {
		return StageRelocated
	}
	return base.next()
}
