package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrentExecutorExecute(t *testing.T) {
	executor := NewConcurrentExecutor(2)

	var counter int64
	fns := make([]func() error, 10)
	for i := range fns {
		fns[i] = func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		}
	}

	errs := executor.Execute(context.Background(), fns...)
	if len(errs) != 10 {
		t.Fatalf("expected 10 results, got %d", len(errs))
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("function %d returned error: %v", i, err)
		}
	}
	if atomic.LoadInt64(&counter) != 10 {
		t.Errorf("expected all functions to run, got %d", counter)
	}
}

func TestConcurrentExecutorPropagatesErrors(t *testing.T) {
	executor := NewConcurrentExecutor(4)
	sentinel := errors.New("boom")

	errs := executor.Execute(context.Background(),
		func() error { return nil },
		func() error { return sentinel },
	)

	if errs[0] != nil {
		t.Errorf("expected nil error at 0, got %v", errs[0])
	}
	if !errors.Is(errs[1], sentinel) {
		t.Errorf("expected sentinel at 1, got %v", errs[1])
	}
}

func TestConcurrentExecutorRecoversPanics(t *testing.T) {
	executor := NewConcurrentExecutor(1)

	errs := executor.Execute(context.Background(), func() error {
		panic("worker exploded")
	})

	var panicErr *PanicError
	if !errors.As(errs[0], &panicErr) {
		t.Fatalf("expected PanicError, got %v", errs[0])
	}
}

func TestConcurrentExecutorHonorsCancellation(t *testing.T) {
	// One slot, held by a slow function; the second function should see
	// the cancelled context while waiting for the semaphore.
	executor := NewConcurrentExecutor(1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})

	var errs []error
	done := make(chan struct{})
	go func() {
		errs = executor.Execute(ctx,
			func() error {
				close(started)
				<-release
				return nil
			},
			func() error { return nil },
		)
		close(done)
	}()

	<-started
	cancel()
	time.Sleep(10 * time.Millisecond)
	close(release)
	<-done

	cancelled := 0
	for _, err := range errs {
		if errors.Is(err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected at least one function to observe cancellation")
	}
}

func TestWorkerPoolProcessItems(t *testing.T) {
	pool := NewWorkerPool(3, func(ctx context.Context, item string) (int, error) {
		return len(item), nil
	})

	results, errs := pool.ProcessItems(context.Background(), []string{"a", "bb", "ccc"})
	want := []int{1, 2, 3}
	for i := range want {
		if errs[i] != nil {
			t.Errorf("item %d errored: %v", i, errs[i])
		}
		if results[i] != want[i] {
			t.Errorf("item %d: expected %d, got %d", i, want[i], results[i])
		}
	}
}

func TestWorkerPoolEmptyInput(t *testing.T) {
	pool := NewWorkerPool(2, func(ctx context.Context, item int) (int, error) {
		return item, nil
	})
	results, errs := pool.ProcessItems(context.Background(), nil)
	if results != nil || errs != nil {
		t.Errorf("expected nil results for empty input, got %v / %v", results, errs)
	}
}

func TestBatch(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	batches := Batch(items, 2)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 2 || len(batches[1]) != 2 || len(batches[2]) != 1 {
		t.Errorf("unexpected batch sizes: %v", batches)
	}
}
