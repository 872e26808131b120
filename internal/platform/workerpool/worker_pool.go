// internal/platform/workerpool/worker_pool.go
package workerpool

import (
	"context"
	"sync"
	"time"

	"corpusx/internal/platform/logx"
)

// Task is one unit of work executed by the pool. Descriptor chains in
// the orchestrator implement this interface.
type Task interface {
	// Execute runs the task until completion or context cancellation
	Execute(ctx context.Context) error

	// Name identifies the task in logs and results
	Name() string

	// Weight is the estimated cost of the task (larger = heavier);
	// schedulers may use it to order the queue
	Weight() int64
}

// Scheduler decides the order in which queued tasks are dispatched.
type Scheduler interface {
	// Schedule returns the tasks in dispatch order
	Schedule(tasks []Task) []Task

	// Name identifies the scheduling strategy
	Name() string
}

// TaskResult is the outcome of one executed task.
type TaskResult struct {
	Task     Task
	Error    error
	Duration time.Duration
}

// Pool runs tasks on a bounded set of workers. Within one task execution
// order is sequential; across tasks no ordering is guaranteed.
type Pool struct {
	workers   int
	scheduler Scheduler
	logger    logx.Logger

	taskQueue chan Task
	results   chan TaskResult

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config configures a Pool.
type Config struct {
	Workers   int
	Scheduler Scheduler
	Logger    logx.Logger
}

// New creates a worker pool. The pool inherits cancellation from parent:
// canceling parent stops dispatching queued tasks and interrupts the
// in-flight ones through their task context.
func New(parent context.Context, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewFIFOScheduler()
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.New()
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:   cfg.Workers,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger.With("component", "worker-pool"),
		taskQueue: make(chan Task, cfg.Workers*2),
		results:   make(chan TaskResult, cfg.Workers*2),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.Debug("starting worker pool", "workers", p.workers, "scheduler", p.scheduler.Name())

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.run(id, task)
		}
	}
}

func (p *Pool) run(workerID int, task Task) {
	start := time.Now()

	p.logger.Debug("executing task",
		"worker_id", workerID,
		"task", task.Name(),
		"weight", task.Weight(),
	)

	err := task.Execute(p.ctx)
	duration := time.Since(start)

	p.logger.Debug("task completed",
		"worker_id", workerID,
		"task", task.Name(),
		"duration_ms", duration.Milliseconds(),
		"error", err != nil,
	)

	select {
	case p.results <- TaskResult{Task: task, Error: err, Duration: duration}:
	case <-p.ctx.Done():
		// Pool stopped, discard result
	}
}

// Submit queues tasks in scheduler order and blocks collecting their
// results. A canceled pool returns the results gathered so far; tasks
// that never started simply have no entry. Submit may be called at most
// once per pool: the feeder owns the queue and closes it when done.
func (p *Pool) Submit(tasks []Task) []TaskResult {
	if len(tasks) == 0 {
		return []TaskResult{}
	}

	scheduled := p.scheduler.Schedule(tasks)

	p.logger.Debug("submitting tasks",
		"total", len(scheduled),
		"scheduler", p.scheduler.Name(),
	)

	go func() {
		defer close(p.taskQueue)
		for _, task := range scheduled {
			select {
			case p.taskQueue <- task:
			case <-p.ctx.Done():
				return
			}
		}
	}()

	results := make([]TaskResult, 0, len(tasks))
	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-p.results:
			results = append(results, result)
		case <-p.ctx.Done():
			p.logger.Warn("pool stopped while waiting for results",
				"collected", len(results),
				"expected", len(tasks),
			)
			return results
		}
	}

	return results
}

// Stop cancels outstanding work and waits for the workers to exit. The
// task queue is closed by the Submit feeder, never here: the feeder may
// still be blocked sending when a canceled Submit returns early, and
// closing under it would panic that send.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
	close(p.results)
}
