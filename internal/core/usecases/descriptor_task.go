// internal/core/usecases/descriptor_task.go
package usecases

import (
	"context"

	"corpusx/internal/core/domain"
	"corpusx/internal/platform/logx"
	"corpusx/internal/platform/ui"
)

// descriptorTask ejecuta la cadena completa de un descriptor dentro del
// worker pool. El resultado queda en el propio task; el orchestrator lo
// recoge después de Submit.
type descriptorTask struct {
	orch   *Orchestrator
	desc   domain.Resolved
	runID  string
	weight int64

	result domain.DescriptorResult
}

func (o *Orchestrator) newTask(desc domain.Resolved, runID string) *descriptorTask {
	t := &descriptorTask{orch: o, desc: desc, runID: runID}

	// El peso viene del tamaño del archive visto en ejecuciones previas;
	// cero cuando nunca se descargó.
	if st, err := o.states.Load(desc.ID); err == nil {
		t.weight = st.ArchiveSize
	}
	return t
}

func (t *descriptorTask) Name() string  { return t.desc.ID }
func (t *descriptorTask) Weight() int64 { return t.weight }

// Execute corre las etapas pendientes del descriptor en orden estricto,
// persistiendo el avance después de cada una. Un fallo persiste la
// última etapa buena para que la próxima ejecución reanude desde ahí.
func (t *descriptorTask) Execute(ctx context.Context) error {
	o := t.orch
	id := t.desc.ID
	logger := o.logger.With("descriptor", id)

	o.presenter.StartDescriptor(id)

	st, err := o.states.Load(id)
	if err != nil {
		logger.Err(err)
		t.fail(err)
		o.presenter.FinishDescriptor(id, ui.StatusError, 0, err.Error())
		return err
	}

	resume := st.ResumeStage()
	if st.Stage == domain.StageRelocated {
		logger.Debug("already relocated, nothing to do")
		t.result = domain.DescriptorResult{
			ID:            id,
			Stage:         domain.StageRelocated,
			SkippedStages: []domain.Stage{domain.StageFetched, domain.StageExtracted, domain.StageRelocated},
		}
		o.presenter.FinishDescriptor(id, ui.StatusSkipped, 0, "already provisioned")
		return nil
	}

	var skipped []domain.Stage
	for _, stage := range []domain.Stage{domain.StageFetched, domain.StageExtracted} {
		if stageBefore(stage, resume) {
			skipped = append(skipped, stage)
		}
	}
	if len(skipped) > 0 {
		logger.Info("resuming", "from", resume, "skipped", len(skipped))
	}

	var bytesFetched int64
	for stage := resume; ; stage = nextPending(stage) {
		if err := ctx.Err(); err != nil {
			cancelErr := domain.ErrRunCanceled
			st = t.persistFailure(st, cancelErr.Error(), logger)
			t.fail(cancelErr)
			t.result.SkippedStages = skipped
			o.presenter.FinishDescriptor(id, ui.StatusWarning, 0, "canceled")
			return cancelErr
		}

		var stageErr error
		switch stage {
		case domain.StageFetched:
			o.presenter.UpdatePhase(id, ui.PhaseFetch)
			var fr domain.FetchResult
			fr, stageErr = o.fetcher.Fetch(ctx, t.desc, func(transferred, total int64) {
				o.presenter.UpdateProgress(id, transferred, total)
			})
			if stageErr == nil {
				if !fr.Cached {
					bytesFetched = fr.ByteSize
				}
				st.ArchiveSize = fr.ByteSize
			}

		case domain.StageExtracted:
			o.presenter.UpdatePhase(id, ui.PhaseExtract)
			_, stageErr = o.extractor.Extract(ctx, t.desc)

		case domain.StageRelocated:
			o.presenter.UpdatePhase(id, ui.PhaseRelocate)
			stageErr = o.relocator.Relocate(ctx, t.desc, o.opts.Force)
		}

		if stageErr != nil {
			logger.Err(stageErr, "stage", stage)
			st = t.persistFailure(st, stageErr.Error(), logger)
			t.fail(stageErr)
			t.result.SkippedStages = skipped
			t.result.BytesFetched = bytesFetched
			o.presenter.FinishDescriptor(id, ui.StatusError, 0, stageErr.Error())
			return stageErr
		}

		next, advErr := st.Advance(stage, t.runID, "")
		if advErr != nil {
			logger.Err(advErr, "stage", stage)
			t.fail(advErr)
			o.presenter.FinishDescriptor(id, ui.StatusError, 0, advErr.Error())
			return advErr
		}
		st = next
		if saveErr := o.states.Save(st); saveErr != nil {
			logger.Err(saveErr, "stage", stage)
			t.fail(saveErr)
			o.presenter.FinishDescriptor(id, ui.StatusError, 0, saveErr.Error())
			return saveErr
		}
		logger.Debug("stage complete", "stage", stage)

		if stage == domain.StageRelocated {
			break
		}
	}

	t.result = domain.DescriptorResult{
		ID:            id,
		Stage:         domain.StageRelocated,
		BytesFetched:  bytesFetched,
		SkippedStages: skipped,
	}
	o.presenter.FinishDescriptor(id, ui.StatusSuccess, 0, "")
	return nil
}

// persistFailure guarda la transición a failed; si ni eso se puede
// escribir, solo queda loggearlo.
func (t *descriptorTask) persistFailure(st domain.State, reason string, logger logx.Logger) domain.State {
	failed, err := st.Advance(domain.StageFailed, t.runID, reason)
	if err != nil {
		return st
	}
	if err := t.orch.states.Save(failed); err != nil {
		logger.Err(err)
	}
	return failed
}

func (t *descriptorTask) fail(err error) {
	t.result = domain.DescriptorResult{
		ID:     t.desc.ID,
		Stage:  domain.StageFailed,
		Err:    err,
		Reason: err.Error(),
	}
}

// stageBefore reports whether a comes strictly before b in the success
// progression.
func stageBefore(a, b domain.Stage) bool {
	order := map[domain.Stage]int{
		domain.StageNotStarted: 0,
		domain.StageFetched:    1,
		domain.StageExtracted:  2,
		domain.StageRelocated:  3,
	}
	return order[a] < order[b]
}

func nextPending(s domain.Stage) domain.Stage {
	switch s {
	case domain.StageFetched:
		return domain.StageExtracted
	default:
		return domain.StageRelocated
	}
}
