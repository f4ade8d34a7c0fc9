// internal/app/system/tasks/tasks.go
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a one-shot unit of background work (e.g. sending an invitation
// email after the inviting transaction commits).
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Job is a recurring unit of background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes queued tasks on a single background worker and periodic
// jobs on their own tickers. Tasks are best-effort: a failed task is logged
// and dropped, never retried, and never fails the request that queued it.
type Runner struct {
	logger *zap.Logger
	queue  chan Task
	jobs   []Job

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a Runner with a bounded queue. Enqueue drops work when
// the queue is full rather than blocking request handlers.
func NewRunner(logger *zap.Logger, queueSize int, jobs ...Job) *Runner {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Runner{
		logger: logger,
		queue:  make(chan Task, queueSize),
		jobs:   jobs,
	}
}

// Start launches the worker and job tickers. It is a no-op when called twice.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.drain(ctx)

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.tick(ctx, job)
	}
}

// Stop cancels the workers and waits for in-flight work to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Enqueue submits a task for background execution. It never blocks; when the
// queue is full the task is dropped with a warning.
func (r *Runner) Enqueue(t Task) {
	select {
	case r.queue <- t:
	default:
		r.logger.Warn("task queue full, dropping task", zap.String("task", t.Name))
	}
}

func (r *Runner) drain(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.queue:
			start := time.Now()
			if err := t.Run(ctx); err != nil {
				r.logger.Warn("background task failed",
					zap.String("task", t.Name),
					zap.Duration("took", time.Since(start)),
					zap.Error(err))
				continue
			}
			r.logger.Debug("background task done",
				zap.String("task", t.Name),
				zap.Duration("took", time.Since(start)))
		}
	}
}

func (r *Runner) tick(ctx context.Context, job Job) {
	defer r.wg.Done()
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				r.logger.Warn("periodic job failed",
					zap.String("job", job.Name),
					zap.Error(err))
			}
		}
	}
}
