package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/screening-comb/app/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRunner struct {
	runs    atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
}

func (m *mockRunner) Run(ctx context.Context) (*monitor.Report, error) {
	m.runs.Add(1)
	m.started <- struct{}{}
	select {
	case <-m.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &monitor.Report{}, m.err
}

func waitStarted(t *testing.T, r *mockRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a run to start")
	}
}

func TestSchedulerInvalidSchedule(t *testing.T) {
	if _, err := New(newMockRunner(), "not a schedule", time.UTC, testLogger()); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestSchedulerRejectsWhilePending(t *testing.T) {
	s, err := New(newMockRunner(), "*/10 * * * *", time.UTC, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Trigger(); err != nil {
		t.Fatalf("Expected first trigger to be queued, got %v", err)
	}
	if err := s.Trigger(); !errors.Is(err, ErrRunPending) {
		t.Errorf("Expected ErrRunPending, got %v", err)
	}
}

func TestSchedulerSerialisesRuns(t *testing.T) {
	runner := newMockRunner()
	s, err := New(runner, "*/10 * * * *", time.UTC, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	s.Start()
	defer s.Stop()

	waitStarted(t, runner)

	// Startup run is in progress, so one more fits in the queue.
	if err := s.Trigger(); err != nil {
		t.Fatalf("Expected trigger during a run to be queued, got %v", err)
	}
	if err := s.Trigger(); !errors.Is(err, ErrRunPending) {
		t.Errorf("Expected ErrRunPending, got %v", err)
	}
	if runner.runs.Load() != 1 {
		t.Errorf("Expected runs not to overlap, got %d", runner.runs.Load())
	}

	runner.release <- struct{}{}
	waitStarted(t, runner)
	if runner.runs.Load() != 2 {
		t.Errorf("Expected the queued run to start, got %d runs", runner.runs.Load())
	}
}

func TestSchedulerStopCancelsRun(t *testing.T) {
	runner := newMockRunner()
	s, err := New(runner, "*/10 * * * *", time.UTC, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	s.Start()
	waitStarted(t, runner)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Stop to cancel the running run")
	}

	if err := s.Trigger(); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected trigger after stop to fail, got %v", err)
	}
}
