package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunProcessesEveryItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum int64

	err := Run(context.Background(), items, 2, func(ctx context.Context, i int) error {
		atomic.AddInt64(&sum, int64(i))
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != 15 {
		t.Errorf("sum = %d, want 15", sum)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	items := make([]int, 20)
	var cur, maxSeen int64

	err := Run(context.Background(), items, 3, func(ctx context.Context, i int) error {
		n := atomic.AddInt64(&cur, 1)
		for {
			old := atomic.LoadInt64(&maxSeen)
			if n <= old || atomic.CompareAndSwapInt64(&maxSeen, old, n) {
				break
			}
		}
		atomic.AddInt64(&cur, -1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if maxSeen > 3 {
		t.Errorf("observed concurrency %d, want <= 3", maxSeen)
	}
}

func TestRunReturnsFirstError(t *testing.T) {
	items := []int{1, 2, 3}
	want := errors.New("boom")

	err := Run(context.Background(), items, 3, func(ctx context.Context, i int) error {
		if i == 2 {
			return want
		}
		return nil
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
