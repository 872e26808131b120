// internal/core/usecases/orchestrator.go
package usecases

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"corpusx/internal/core/domain"
	"corpusx/internal/core/ports"
	"corpusx/internal/platform/logx"
	"corpusx/internal/platform/ui"
	"corpusx/internal/platform/workerpool"
)

// ErrMissingDependency indica que al orchestrator le falta una de sus
// dependencias obligatorias (fetcher, extractor, relocator o store).
var ErrMissingDependency = errors.New("missing orchestrator dependency")

// Deps son las dependencias inyectadas al orchestrator. Todas son
// obligatorias salvo Presenter y Logger, que reciben defaults.
type Deps struct {
	Fetcher   ports.Fetcher
	Extractor ports.Extractor
	Relocator ports.Relocator
	States    ports.StateStore
	Presenter ui.Presenter
	Logger    logx.Logger
}

// Options controla el comportamiento de una ejecución.
type Options struct {
	// DatasetRoot raíz canónica donde quedan los datasets
	DatasetRoot string

	// Workers límite de descriptors en vuelo; <=0 usa min(4, n)
	Workers int

	// Force sobreescribe colisiones al relocalizar
	Force bool

	// CheckOnly reporta el estado persistido sin ejecutar nada
	CheckOnly bool

	// Scheduler orden de despacho de las cadenas; nil usa FIFO
	Scheduler workerpool.Scheduler
}

// Orchestrator coordina la cadena fetch → extract → relocate por
// descriptor, persiste el avance por etapa y aísla los fallos: un
// descriptor fallido nunca aborta a sus hermanos.
type Orchestrator struct {
	fetcher   ports.Fetcher
	extractor ports.Extractor
	relocator ports.Relocator
	states    ports.StateStore
	presenter ui.Presenter
	logger    logx.Logger
	opts      Options
}

// NewOrchestrator construye un orchestrator validando las dependencias.
func NewOrchestrator(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Relocator == nil || deps.States == nil {
		return nil, ErrMissingDependency
	}
	if deps.Presenter == nil {
		deps.Presenter = ui.NewNoopPresenter()
	}
	if deps.Logger == nil {
		deps.Logger = logx.New()
	}
	return &Orchestrator{
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		relocator: deps.Relocator,
		states:    deps.States,
		presenter: deps.Presenter,
		logger:    deps.Logger.With("component", "orchestrator"),
		opts:      opts,
	}, nil
}

// Run ejecuta (o reanuda) la cadena de cada descriptor y devuelve el
// reporte agregado. El error de retorno solo refleja entradas
// inválidas; los fallos por descriptor viven dentro del reporte.
func (o *Orchestrator) Run(ctx context.Context, descriptors []domain.Descriptor) (*domain.RunReport, error) {
	if len(descriptors) == 0 {
		return nil, domain.ErrNoDescriptors
	}
	if err := domain.ValidateSet(descriptors); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	report := domain.NewRunReport(runID, o.opts.DatasetRoot)

	resolved := make([]domain.Resolved, 0, len(descriptors))
	for _, desc := range descriptors {
		res, err := desc.Resolve(o.opts.DatasetRoot)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, res)
	}

	if o.opts.CheckOnly {
		return o.check(report, resolved)
	}

	workers := o.opts.Workers
	if workers <= 0 {
		workers = len(resolved)
		if workers > 4 {
			workers = 4
		}
	}

	o.presenter.Start(ui.RunInfo{
		DatasetRoot: o.opts.DatasetRoot,
		Workers:     workers,
		Descriptors: len(resolved),
		Force:       o.opts.Force,
		CheckOnly:   false,
	})

	o.logger.Info("run started",
		"run_id", runID,
		"descriptors", len(resolved),
		"workers", workers,
		"force", o.opts.Force,
	)

	pool := workerpool.New(ctx, workerpool.Config{
		Workers:   workers,
		Scheduler: o.opts.Scheduler,
		Logger:    o.logger,
	})
	pool.Start()

	dtasks := make([]*descriptorTask, 0, len(resolved))
	tasks := make([]workerpool.Task, 0, len(resolved))
	for _, res := range resolved {
		task := o.newTask(res, runID)
		dtasks = append(dtasks, task)
		tasks = append(tasks, task)
	}

	results := pool.Submit(tasks)
	pool.Stop()

	o.collect(report, dtasks, results)

	report.Finalize()
	o.presenter.Finish(ui.RunStats{
		TotalDuration: report.Duration(),
		Succeeded:     len(report.Succeeded()),
		Failed:        len(report.Failed()),
		BytesFetched:  totalBytes(report),
		FailedIDs:     report.Failed(),
	})

	o.logger.Info("run finished",
		"run_id", runID,
		"succeeded", len(report.Succeeded()),
		"failed", len(report.Failed()),
		"duration_ms", report.Duration().Milliseconds(),
	)

	return report, nil
}

// collect vuelca el desenlace de cada task al reporte. El desenlace
// vive en el propio task; los resultados del pool solo aportan la
// duración y pueden venir incompletos tras una cancelación. Solo un
// task que nunca llegó a arrancar (result vacío) recibe la entrada
// sintética de cancelado, con la etapa persistida que tenga.
func (o *Orchestrator) collect(report *domain.RunReport, tasks []*descriptorTask, results []workerpool.TaskResult) {
	durations := make(map[string]time.Duration, len(results))
	for _, tr := range results {
		if task, ok := tr.Task.(*descriptorTask); ok {
			durations[task.desc.ID] = tr.Duration
		}
	}

	for _, task := range tasks {
		if task.result.ID != "" {
			out := task.result
			out.Duration = durations[out.ID]
			report.Add(out)
			continue
		}

		st, err := o.states.Load(task.desc.ID)
		stage := domain.StageNotStarted
		if err == nil {
			stage = st.Stage
		}
		report.Add(domain.DescriptorResult{
			ID:     task.desc.ID,
			Stage:  stage,
			Err:    domain.ErrRunCanceled,
			Reason: "canceled before start",
		})
	}
}

// check reporta el estado persistido de cada descriptor sin mutar nada.
func (o *Orchestrator) check(report *domain.RunReport, resolved []domain.Resolved) (*domain.RunReport, error) {
	for _, res := range resolved {
		st, err := o.states.Load(res.ID)
		if err != nil {
			report.Add(domain.DescriptorResult{
				ID:     res.ID,
				Stage:  domain.StageFailed,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}

		result := domain.DescriptorResult{
			ID:     res.ID,
			Stage:  st.Stage,
			Reason: st.Reason,
		}
		if st.Stage == domain.StageRelocated {
			if _, statErr := os.Stat(res.FinalPath); statErr != nil {
				// State claims done but the tree is gone; report it
				// without rewriting the record.
				result.Reason = "relocated per state but target missing: " + res.FinalPath
			}
		}
		report.Add(result)
	}

	report.Finalize()
	return report, nil
}

func totalBytes(report *domain.RunReport) int64 {
	var total int64
	for _, res := range report.Results {
		total += res.BytesFetched
	}
	return total
}
