package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestAfterRunsTask(t *testing.T) {
	s := New()
	defer s.Close()

	done := make(chan struct{})
	s.After(5*time.Millisecond, func(ctx context.Context) {
		if ctx.Err() != nil {
			t.Errorf("task context already canceled: %v", ctx.Err())
		}
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	if got := s.Pending(); got != 0 {
		t.Fatalf("Pending = %d, want 0", got)
	}
}

func TestCancelPreventsTask(t *testing.T) {
	s := New()
	defer s.Close()

	var ran atomic.Bool
	cancel := s.After(50*time.Millisecond, func(context.Context) { ran.Store(true) })
	cancel()
	cancel()

	time.Sleep(100 * time.Millisecond)
	if ran.Load() {
		t.Fatal("canceled task ran")
	}
	if got := s.Pending(); got != 0 {
		t.Fatalf("Pending = %d, want 0", got)
	}
}

func TestCloseCancelsPendingTasks(t *testing.T) {
	s := New()

	var ran atomic.Int32
	for range 3 {
		s.After(time.Hour, func(context.Context) { ran.Add(1) })
	}
	if got := s.Pending(); got != 3 {
		t.Fatalf("Pending = %d, want 3", got)
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on pending tasks")
	}
	if ran.Load() != 0 {
		t.Fatal("pending task ran after Close")
	}

	var late atomic.Bool
	s.After(0, func(context.Context) { late.Store(true) })
	time.Sleep(20 * time.Millisecond)
	if late.Load() {
		t.Fatal("task scheduled after Close ran")
	}
	s.Close()
}

func TestCloseWaitsForRunningTask(t *testing.T) {
	s := New()

	started := make(chan struct{})
	var sawCancel atomic.Bool
	s.After(0, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	})

	<-started
	s.Close()
	if !sawCancel.Load() {
		t.Fatal("Close returned before the running task observed cancellation")
	}
}

func TestNegativeDelayRunsImmediately(t *testing.T) {
	s := New()
	defer s.Close()

	done := make(chan struct{})
	s.After(-time.Second, func(context.Context) { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}
