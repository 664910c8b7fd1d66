package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockTask struct {
	Task
	run func(ctx context.Context) error
}

func newMockTask(name string, run func(ctx context.Context) error) *mockTask {
	return &mockTask{Task: NewTask(TaskTypeFetchVenue, name), run: run}
}

func (m *mockTask) Execute(ctx context.Context) error {
	return m.run(ctx)
}

func TestPoolRunsAllTasks(t *testing.T) {
	var active, peak atomic.Int32

	var batch []TaskInterface
	for i := 0; i < 10; i++ {
		batch = append(batch, newMockTask("venue", func(ctx context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		}))
	}

	completed := 0
	NewPool(3, time.Second, testLogger()).Run(context.Background(), batch, func(task TaskInterface, err error) {
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		completed++
	})

	if completed != 10 {
		t.Errorf("Expected 10 completed tasks, got %d", completed)
	}
	if peak.Load() > 3 {
		t.Errorf("Expected at most 3 concurrent tasks, got %d", peak.Load())
	}
}

func TestPoolIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")

	batch := []TaskInterface{
		newMockTask("ok-1", func(ctx context.Context) error { return nil }),
		newMockTask("bad", func(ctx context.Context) error { return boom }),
		newMockTask("panics", func(ctx context.Context) error { panic("unexpected") }),
		newMockTask("ok-2", func(ctx context.Context) error { return nil }),
	}

	failed := map[string]error{}
	succeeded := 0
	NewPool(2, time.Second, testLogger()).Run(context.Background(), batch, func(task TaskInterface, err error) {
		if err != nil {
			failed[task.GetVenueName()] = err
			return
		}
		succeeded++
	})

	if succeeded != 2 {
		t.Errorf("Expected 2 successes, got %d", succeeded)
	}
	if !errors.Is(failed["bad"], boom) {
		t.Errorf("Expected boom for 'bad', got %v", failed["bad"])
	}
	if failed["panics"] == nil {
		t.Error("Expected panic to be reported as an error")
	}
}

func TestPoolTaskTimeout(t *testing.T) {
	batch := []TaskInterface{
		newMockTask("slow", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	}

	var got error
	NewPool(1, 10*time.Millisecond, testLogger()).Run(context.Background(), batch, func(task TaskInterface, err error) {
		got = err
	})

	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", got)
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int32
	var batch []TaskInterface
	for i := 0; i < 5; i++ {
		batch = append(batch, newMockTask("venue", func(ctx context.Context) error {
			started.Add(1)
			cancel()
			return ctx.Err()
		}))
	}

	NewPool(1, time.Second, testLogger()).Run(ctx, batch, nil)

	if started.Load() != 1 {
		t.Errorf("Expected only the first task to start, got %d", started.Load())
	}
}

func TestNewTask(t *testing.T) {
	a := NewTask(TaskTypeFetchVenue, "CGV 강남")
	b := NewTask(TaskTypeFetchVenue, "CGV 강남")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique non-empty IDs, got '%s' and '%s'", a.ID, b.ID)
	}
	if a.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}
	a.Start()
	if a.StartedAt == nil {
		t.Error("Expected StartedAt to be set")
	}
}
