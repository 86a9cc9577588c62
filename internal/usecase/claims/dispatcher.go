package claims

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"claimdesk/internal/bootstrap/logging"
	"claimdesk/internal/errs"
)

const (
	defaultDispatchWorkers   = 2
	defaultDispatchQueueSize = 256
)

// Task is a side effect that runs after its request has returned.
type Task func(ctx context.Context) error

type dispatchJob struct {
	name string
	ctx  context.Context
	run  Task
}

// Dispatcher runs fire-and-forget tasks (email notifications) on a bounded
// pool. A full queue drops the task; failures are logged, never returned.
type Dispatcher struct {
	queue chan dispatchJob
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(workers int, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = defaultDispatchWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultDispatchQueueSize
	}

	d := &Dispatcher{queue: make(chan dispatchJob, queueSize)}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.queue {
		d.runJob(job)
	}
}

func (d *Dispatcher) runJob(job dispatchJob) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(job.ctx, "dispatch task panicked", slog.String("task", job.name), slog.Any("panic", r))
		}
	}()
	if err := job.run(job.ctx); err != nil {
		logging.Warn(job.ctx, "dispatch task failed", slog.String("task", job.name), slog.Any("err", errs.Loggable(err)))
		return
	}
	logging.Debug(job.ctx, "dispatch task done", slog.String("task", job.name))
}

// Submit enqueues task. The task keeps ctx values but not its cancellation.
// It reports false when the task was dropped.
func (d *Dispatcher) Submit(ctx context.Context, name string, task Task) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	job := dispatchJob{
		name: name,
		ctx:  logging.WithAttrs(context.WithoutCancel(ctx), slog.String("component", "claims.dispatcher")),
		run:  task,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logging.Warn(job.ctx, "dispatcher closed, task dropped", slog.String("task", name))
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		logging.Warn(job.ctx, "dispatch queue full, task dropped", slog.String("task", name))
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "wait dispatcher drain")
	}
}
