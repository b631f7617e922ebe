package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// WorkerQueue runs tasks on a fixed pool of workers. Task failures are logged and
// dropped; a worker never stops because of one.
type WorkerQueue struct {
	log         *slog.Logger
	poolSize    int
	bufferSize  int
	taskTimeout time.Duration

	tasks chan Task
	pool  errgroup.Group

	// sendMu is held shared by enqueuers and exclusively while tasks is closed.
	sendMu   sync.RWMutex
	stopping chan struct{}
	stopOnce sync.Once
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.poolSize = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.bufferSize = n
		}
	}
}

// WithTaskTimeout bounds each task run.
func WithTaskTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.taskTimeout = d
		}
	}
}

// NewWorkerQueue starts the pool. Defaults: 2 workers, 64 buffered tasks, 3 minutes per task.
func NewWorkerQueue(logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerQueue{
		log:         logger.With("component", "worker_queue"),
		poolSize:    2,
		bufferSize:  64,
		taskTimeout: 3 * time.Minute,
		stopping:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.bufferSize)

	for id := 1; id <= q.poolSize; id++ {
		q.pool.Go(func() error {
			for task := range q.tasks {
				q.execute(id, task)
			}
			return nil
		})
	}
	return q
}

func (q *WorkerQueue) execute(workerID int, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.taskTimeout)
	defer cancel()

	log := q.log.With("worker_id", workerID, "task", task.Name, "task_id", task.ID)
	began := time.Now()
	if err := safeRun(ctx, task); err != nil {
		log.Error("task failed", "error", err)
		return
	}
	log.Info("task done",
		"queued_ms", began.Sub(task.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(began).Milliseconds(),
	)
}

func safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task.Run(ctx)
}

// Enqueue hands the task to a worker. When the buffer is full it waits for space,
// for ctx to end, or for Shutdown to begin.
func (q *WorkerQueue) Enqueue(ctx context.Context, task Task) error {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	select {
	case <-q.stopping:
		q.log.Warn("task rejected, queue is shutting down", "task", task.Name)
		return ErrClosed
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		q.log.Warn("queue full, waiting for a worker", "task", task.Name, "buffer", q.bufferSize)
	}

	select {
	case q.tasks <- task:
		return nil
	case <-q.stopping:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits until the queued ones have run or ctx ends.
// Calls after the first only wait.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.stopOnce.Do(func() {
		close(q.stopping)
		q.sendMu.Lock()
		close(q.tasks)
		q.sendMu.Unlock()
	})

	drained := make(chan struct{})
	go func() {
		_ = q.pool.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		q.log.Info("queue drained")
	case <-ctx.Done():
		q.log.Warn("shutdown cut short, tasks still running", "error", ctx.Err())
	}
}
