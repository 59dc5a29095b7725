// Package tasks runs fire-and-forget side work on a bounded worker pool.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single task run.
const DefaultTimeout = 30 * time.Second

// Task is a unit of side work. Tasks must be idempotent: they may run late,
// out of order, or more than once relative to the work that enqueued them.
type Task func(ctx context.Context) error

type Queue interface {
	Enqueue(name string, task Task)
}

// PoolQueue executes tasks on a pond worker pool. Failures are logged and
// never reach the caller that enqueued the task.
type PoolQueue struct {
	pool    pond.Pool
	ctx     context.Context
	logger  *zap.Logger
	timeout time.Duration
	stop    sync.Once
}

var _ Queue = (*PoolQueue)(nil)

func NewPoolQueue(ctx context.Context, workers, queueSize int, logger *zap.Logger) *PoolQueue {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 16 {
		queueSize = 16
	}
	return &PoolQueue{
		pool:    pond.NewPool(workers, pond.WithQueueSize(queueSize)),
		ctx:     ctx,
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

func (q *PoolQueue) Enqueue(name string, task Task) {
	if q.pool.Stopped() {
		q.logger.Warn("Task dropped, queue stopped", zap.String("task", name))
		return
	}

	q.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
		defer cancel()

		start := time.Now()
		if err := task(ctx); err != nil {
			q.logger.Warn("Task failed", zap.String("task", name), zap.Error(err))
			return
		}
		q.logger.Debug("Task finished",
			zap.String("task", name),
			zap.Duration("took", time.Since(start)))
	})
}

// StopAndWait stops accepting tasks and blocks until queued ones finish.
// Later calls return immediately.
func (q *PoolQueue) StopAndWait() {
	q.stop.Do(q.pool.StopAndWait)
}
