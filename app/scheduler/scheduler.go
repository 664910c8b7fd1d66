package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/screening-comb/app/monitor"
)

var ErrRunPending = errors.New("run already pending")

type Runner interface {
	Run(ctx context.Context) (*monitor.Report, error)
}

// Scheduler serialises monitor runs. Cron ticks and manual triggers share a
// queue of capacity one that a single worker drains.
type Scheduler struct {
	runner Runner
	cron   *cron.Cron
	logger *slog.Logger
	queue  chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler for a standard five-field cron expression.
func New(runner Runner, schedule string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		runner: runner,
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
		queue:  make(chan string, 1),
		ctx:    ctx,
		cancel: cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule '%s': %w", schedule, err)
	}

	return s, nil
}

// Start launches the run worker and the cron clock, and queues an initial run.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	if err := s.enqueue("startup"); err != nil {
		s.logger.Warn("Failed to queue startup run", "error", err)
	}
	s.cron.Start()
}

// Stop halts the clock, cancels any run in progress and waits for the worker.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// Trigger queues a run. It fails with ErrRunPending when one is already
// waiting.
func (s *Scheduler) Trigger() error {
	return s.enqueue("manual")
}

func (s *Scheduler) tick() {
	if err := s.enqueue("cron"); err != nil {
		s.logger.Debug("Skipping scheduled run", "error", err)
	}
}

func (s *Scheduler) enqueue(reason string) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.queue <- reason:
		return nil
	default:
		return ErrRunPending
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case reason := <-s.queue:
			s.execute(reason)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) execute(reason string) {
	s.logger.Debug("Run started", "trigger", reason)

	if _, err := s.runner.Run(s.ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("Run cancelled", "trigger", reason)
			return
		}
		s.logger.Error("Run failed", "trigger", reason, "error", err)
	}
}
