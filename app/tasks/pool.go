package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pool runs a batch of tasks on a fixed number of workers. Tasks are never
// retried.
type Pool struct {
	workerCount int
	timeout     time.Duration
	logger      *slog.Logger
}

func NewPool(workerCount int, timeout time.Duration, logger *slog.Logger) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		timeout:     timeout,
		logger:      logger,
	}
}

type outcome struct {
	task TaskInterface
	err  error
}

// Run executes tasks and blocks until every started task has finished.
// onDone is called once per executed task, always from the caller's
// goroutine. After ctx is cancelled no further tasks are started.
func (p *Pool) Run(ctx context.Context, tasks []TaskInterface, onDone func(TaskInterface, error)) {
	if len(tasks) == 0 {
		return
	}

	queue := make(chan TaskInterface)
	done := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < min(p.workerCount, len(tasks)); i++ {
		wg.Add(1)
		go p.worker(ctx, i, queue, done, &wg)
	}

	go func() {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	for o := range done {
		if onDone != nil {
			onDone(o.task, o.err)
		}
	}
}

func (p *Pool) worker(ctx context.Context, id int, queue <-chan TaskInterface, done chan<- outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range queue {
		if ctx.Err() != nil {
			continue
		}
		done <- outcome{task: task, err: p.executeTask(ctx, id, task)}
	}
}

func (p *Pool) executeTask(ctx context.Context, workerID int, task TaskInterface) (err error) {
	task.Start()

	taskCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
		if err != nil {
			p.logger.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "venue", task.GetVenueName(), "duration", task.GetDuration(), "error", err)
		}
	}()

	return task.Execute(taskCtx)
}
