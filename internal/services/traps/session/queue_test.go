package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func startQueue(t *testing.T) *Queue {
	t.Helper()
	q := NewQueue(16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}

func TestQueueRunsOneJobAtATime(t *testing.T) {
	q := startQueue(t)

	var inflight, peak atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), func(context.Context) {
				n := inflight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				inflight.Add(-1)
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak.Load() != 1 {
		t.Fatalf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestSubmitReturnsResult(t *testing.T) {
	q := startQueue(t)
	got, err := Submit(context.Background(), q, func(context.Context) (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("Submit = %d, %v", got, err)
	}
	boom := errors.New("boom")
	if _, err := Submit(context.Background(), q, func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("Submit err = %v", err)
	}
}

func TestDoAfterStopReturnsClosed(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := q.Do(context.Background(), func(context.Context) {}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Do = %v, want ErrQueueClosed", err)
	}
}

func TestDoSkipsCanceledJob(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	if err := q.Do(ctx, func(context.Context) { ran.Store(true) }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do = %v, want context.Canceled", err)
	}
	if ran.Load() {
		t.Fatal("canceled job ran")
	}
}
