// Package scheduler runs periodic tasks on their own goroutines.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of periodic work. Run is called once per tick and must
// return when ctx is cancelled.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (f TaskFunc) Name() string                  { return f.TaskName }
func (f TaskFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

type job struct {
	task     Task
	interval time.Duration
}

// Scheduler starts every added task immediately and then once per interval.
// A tick that fires while the previous run is still going is dropped, so
// runs of one task never overlap.
type Scheduler struct {
	logger *zap.Logger
	jobs   []job
	wg     sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a task. It must be called before Start.
func (s *Scheduler) Add(task Task, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive, got %s", task.Name(), interval)
	}
	s.jobs = append(s.jobs, job{task: task, interval: interval})
	return nil
}

// Start launches one goroutine per task. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		j := j
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, j)
		}()
	}
}

// Wait blocks until every task loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	s.logger.Info("task scheduled", zap.String("task", j.task.Name()), zap.Duration("interval", j.interval))

	// Run immediately once at startup
	s.runOnce(ctx, j.task)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("task stopped", zap.String("task", j.task.Name()))
			return
		case <-ticker.C:
			s.runOnce(ctx, j.task)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", zap.String("task", task.Name()), zap.Any("panic", r))
		}
	}()

	started := time.Now()
	if err := task.Run(ctx); err != nil {
		s.logger.Error("task failed", zap.String("task", task.Name()), zap.Error(err))
		return
	}
	s.logger.Debug("task finished", zap.String("task", task.Name()), zap.Duration("took", time.Since(started)))
}
