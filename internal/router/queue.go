package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// QueueService is the service name of the shared *KeyedQueue.
const QueueService = "router.queue"

// Task is a unit of work scheduled on a KeyedQueue. The context is the
// queue's base context; it is cancelled only when a graceful shutdown
// times out.
type Task func(ctx context.Context) error

// QueueConfig configures a KeyedQueue.
type QueueConfig struct {
	// OnError receives task errors and recovered panics. Defaults to an
	// error log line.
	OnError func(key string, err error)

	Logger *slog.Logger
}

// KeyedQueue runs tasks one at a time per key, in submission order, while
// tasks for different keys run concurrently.
//
// Design: the map holds, per key, the completion signal of the most recently
// scheduled task. Enqueue swaps in a new tail under the mutex and starts a
// goroutine that waits for the previous tail before running. The mutex only
// guards that swap; no task ever runs while it is held. A key is removed from
// the map when its tail settles with no successor, so idle keys cost nothing.
type KeyedQueue struct {
	mu     sync.Mutex
	tails  map[string]*pending
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	onError func(key string, err error)
	logger  *slog.Logger
}

// pending is the completion signal of one scheduled task.
type pending struct {
	done chan struct{}
}

// NewKeyedQueue creates a ready-to-use KeyedQueue.
func NewKeyedQueue(cfg QueueConfig) *KeyedQueue {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &KeyedQueue{
		tails:   make(map[string]*pending),
		ctx:     ctx,
		cancel:  cancel,
		onError: cfg.OnError,
		logger:  logger,
	}
	if q.onError == nil {
		q.onError = func(key string, err error) {
			q.logger.Error("queue: task failed", "key", key, "error", err)
		}
	}
	return q
}

// Enqueue schedules task under key and returns a channel that is closed once
// the task has settled. It never blocks on task execution. Errors and panics
// from the task are reported to OnError and do not affect later tasks.
func (q *KeyedQueue) Enqueue(key string, task Task) <-chan struct{} {
	next := &pending{done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.onError(key, ErrQueueClosed)
		close(next.done)
		return next.done
	}
	prior := q.tails[key]
	q.tails[key] = next
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(key, prior, next, task)
	return next.done
}

func (q *KeyedQueue) run(key string, prior, next *pending, task Task) {
	defer q.wg.Done()

	if prior != nil {
		<-prior.done
	}

	if err := q.invoke(task); err != nil {
		q.onError(key, err)
	}

	// Remove the key before signalling completion so that a waiter observing
	// the signal also observes the reclaimed entry.
	q.mu.Lock()
	if q.tails[key] == next {
		delete(q.tails, key)
	}
	q.mu.Unlock()

	close(next.done)
}

func (q *KeyedQueue) invoke(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return task(q.ctx)
}

// Len returns the number of keys with outstanding work.
func (q *KeyedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}

// Close stops accepting new tasks and waits for outstanding ones to settle.
// If ctx expires first, the base context handed to tasks is cancelled and
// ctx's error is returned.
func (q *KeyedQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}
