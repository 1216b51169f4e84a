package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestProcess(t *testing.T) {
	boom := errors.New("boom")
	cancelled := func() context.Context {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}

	tests := []struct {
		name       string
		ctx        context.Context
		workers    int
		items      []int
		failOn     int
		wantErr    error
		wantCancel bool
		wantSum    int32
	}{
		{name: "processes all items", ctx: context.Background(), workers: 2, items: []int{1, 2, 3, 4}, wantSum: 10},
		{name: "zero workers still runs", ctx: context.Background(), workers: 0, items: []int{5, 6}, wantSum: 11},
		{name: "error cancels", ctx: context.Background(), workers: 3, items: []int{1, 2, 3}, failOn: 2, wantErr: boom, wantCancel: true, wantSum: -1},
		{name: "cancelled context", ctx: cancelled(), workers: 2, items: []int{1, 2}, wantErr: context.Canceled, wantSum: -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var sum, cancels int32
			err := Process(tt.ctx, tt.workers, tt.items, func(_ context.Context, v int) error {
				if v == tt.failOn {
					return boom
				}
				atomic.AddInt32(&sum, int32(v))
				return nil
			}, func() { atomic.AddInt32(&cancels, 1) })

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Process() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantCancel != (cancels == 1) {
				t.Fatalf("unexpected onCancel calls: %d", cancels)
			}
			if tt.wantSum >= 0 && sum != tt.wantSum {
				t.Fatalf("expected sum %d, got %d", tt.wantSum, sum)
			}
		})
	}
}

func TestCollectKeepsOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	got, err := Collect(context.Background(), 3, items, func(_ context.Context, v int) (int, error) {
		time.Sleep(time.Duration(v) * time.Millisecond)
		return v * 10, nil
	})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := []int{50, 40, 30, 20, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestCollectError(t *testing.T) {
	_, err := Collect(context.Background(), 2, []string{"a", "b"}, func(_ context.Context, v string) (string, error) {
		if v == "b" {
			return "", errors.New("bad item")
		}
		return v, nil
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
