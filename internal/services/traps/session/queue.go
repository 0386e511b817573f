package session

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Do once the queue has stopped.
var ErrQueueClosed = errors.New("host queue closed")

type job struct {
	ctx  context.Context
	fn   func(context.Context)
	done chan struct{}
}

// Queue runs submitted work one item at a time on a single goroutine. Every
// trigger in the host goes through it, so at most one trigger is in flight.
type Queue struct {
	jobs    chan job
	stopped chan struct{}
	once    sync.Once
}

// NewQueue creates a queue holding up to backlog waiting jobs.
func NewQueue(backlog int) *Queue {
	return &Queue{
		jobs:    make(chan job, max(backlog, 0)),
		stopped: make(chan struct{}),
	}
}

// Run processes jobs until ctx is canceled. Jobs still waiting when Run
// returns are dropped and their submitters get ErrQueueClosed.
func (q *Queue) Run(ctx context.Context) error {
	defer q.once.Do(func() { close(q.stopped) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-q.jobs:
			if j.ctx.Err() == nil {
				j.fn(j.ctx)
			}
			close(j.done)
		}
	}
}

// Do runs fn on the queue goroutine and waits for it. fn is skipped when
// ctx ends before its turn.
func (q *Queue) Do(ctx context.Context, fn func(context.Context)) error {
	ran := false
	j := job{ctx: ctx, fn: func(ctx context.Context) {
		ran = true
		fn(ctx)
	}, done: make(chan struct{})}
	select {
	case <-q.stopped:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- j:
	}
	select {
	case <-j.done:
		return skipped(ctx, ran)
	case <-q.stopped:
		select {
		case <-j.done:
			return skipped(ctx, ran)
		default:
			return ErrQueueClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func skipped(ctx context.Context, ran bool) error {
	if ran {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}

// Submit runs fn on q and returns its results.
func Submit[T any](ctx context.Context, q *Queue, fn func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if qErr := q.Do(ctx, func(ctx context.Context) { out, err = fn(ctx) }); qErr != nil {
		var zero T
		return zero, qErr
	}
	return out, err
}
