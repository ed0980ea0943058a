package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned when work is submitted to a queue that is not running.
var ErrQueueClosed = errors.New("queue not running")

// Task is a unit of work carried through the queue together with its retry state.
type Task[T any] struct {
	ID       string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a task payload. A non-nil error schedules a retry.
type Handler[T any] func(context.Context, T) error

// Config configures worker pool behaviour.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnDrop is called once a task has exhausted its retries or was still
	// pending when the queue stopped. Shutdown drops carry ErrQueueClosed.
	OnDrop func(id string, err error)
}

// Queue dispatches typed tasks to a fixed pool of goroutines and retries failed
// tasks after a delay.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     Config

	tasks   chan Task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// New builds a queue; call Start before Enqueue.
func New[T any](name string, handler Handler[T], cfg Config) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		tasks:   make(chan Task[T], cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	q.running = true
	q.cfg.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop waits for in-flight tasks, then for retry timers, and drops whatever
// is still buffered. Every task accepted by Enqueue is either handled or
// reported through OnDrop.
func (q *Queue[T]) Stop() {
	q.mu.RLock()
	running, cancel := q.running, q.cancel
	q.mu.RUnlock()
	if !running {
		return
	}
	// Cancel before taking the write lock to release pushers blocked on a
	// full buffer.
	cancel()

	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	// Workers may schedule retries until they exit.
	q.workers.Wait()
	q.retries.Wait()

	closed := fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	dropped := 0
	// Nothing reads or writes the buffer any more.
	for len(q.tasks) > 0 {
		q.drop(<-q.tasks, closed)
		dropped++
	}
	q.cfg.Logger.Info("queue stopped", zap.String("queue", q.name), zap.Int("dropped", dropped))
}

// Enqueue submits a payload for asynchronous processing.
func (q *Queue[T]) Enqueue(id string, payload T) error {
	return q.push(Task[T]{ID: id, Payload: payload, Enqueued: time.Now().UTC()})
}

// Pending reports the number of buffered tasks.
func (q *Queue[T]) Pending() int {
	return len(q.tasks)
}

// push holds the read lock across the send so Stop cannot drain the buffer
// while a task is still on its way in.
func (q *Queue[T]) push(task Task[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	}

	select {
	case <-q.ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue[T]) work() {
	defer q.workers.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			if q.ctx.Err() != nil {
				q.drop(task, fmt.Errorf("%s: %w", q.name, ErrQueueClosed))
				return
			}
			if err := q.handler(q.ctx, task.Payload); err != nil {
				q.retry(task, err)
			}
		}
	}
}

func (q *Queue[T]) retry(task Task[T], err error) {
	task.Attempt++
	if task.Attempt > q.cfg.MaxRetries {
		q.drop(task, err)
		return
	}
	if q.ctx.Err() != nil {
		q.cfg.Logger.Warn("task failed during shutdown", zap.String("queue", q.name), zap.String("task_id", task.ID), zap.Error(err))
		q.drop(task, fmt.Errorf("%s: %w", q.name, ErrQueueClosed))
		return
	}
	q.cfg.Logger.Warn("task failed, retrying",
		zap.String("queue", q.name),
		zap.String("task_id", task.ID),
		zap.Int("attempt", task.Attempt),
		zap.Error(err),
	)

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.drop(task, fmt.Errorf("%s: %w", q.name, ErrQueueClosed))
			return
		case <-timer.C:
		}
		if err := q.push(task); err != nil {
			q.drop(task, err)
		}
	}()
}

func (q *Queue[T]) drop(task Task[T], err error) {
	q.cfg.Logger.Error("task dropped",
		zap.String("queue", q.name),
		zap.String("task_id", task.ID),
		zap.Int("attempts", task.Attempt),
		zap.Error(err),
	)
	if q.cfg.OnDrop != nil {
		q.cfg.OnDrop(task.ID, err)
	}
}
