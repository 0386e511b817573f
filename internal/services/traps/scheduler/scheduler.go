// Package scheduler runs cancellable delayed tasks for the trap host.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Task runs after its delay elapses. The context is canceled when the task
// is canceled or the scheduler closes.
type Task func(ctx context.Context)

// Scheduler owns every pending task until it fires, is canceled, or Close
// is called.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*time.Timer
	closed  bool

	wg sync.WaitGroup
}

// New returns a running scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uint64]*time.Timer),
	}
}

// After schedules task to run once after delay and returns a func that
// cancels it. Canceling a task that already started only cancels its
// context. After on a closed scheduler is a no-op.
func (s *Scheduler) After(delay time.Duration, task Task) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || task == nil {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	taskCtx, taskCancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	timer := time.AfterFunc(max(delay, 0), func() {
		defer s.wg.Done()
		defer taskCancel()
		if !s.take(id) {
			return
		}
		if taskCtx.Err() != nil {
			return
		}
		task(taskCtx)
	})
	s.pending[id] = timer

	return func() {
		taskCancel()
		s.mu.Lock()
		t, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()
		if ok && t.Stop() {
			s.wg.Done()
		}
	}
}

// take removes id from the pending set, reporting whether it was still
// pending.
func (s *Scheduler) take(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

// Pending reports how many tasks have not started yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending task and waits for running ones to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	s.cancel()
	for id, timer := range s.pending {
		delete(s.pending, id)
		if timer.Stop() {
			s.wg.Done()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}
