// Package scheduler runs cancellable repeating tasks off an injected clock.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-bakery/utils"

	"go.uber.org/zap"
)

// Func is one run of a task.
type Func func(ctx context.Context) error

// Task calls fn on every tick. Runs are independent: a slow run does not delay
// or block the next one, so fn must tolerate overlapping invocations.
type Task struct {
	name     string
	interval time.Duration
	fn       Func
	clock    utils.Clock
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(name string, interval time.Duration, fn Func, clock utils.Clock, logger *zap.Logger) *Task {
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		clock:    clock,
		logger:   logger.With(zap.String("task", name)),
	}
}

// Start begins ticking until ctx is done or Stop is called. Starting a running
// task is a no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, t.cancel = context.WithCancel(ctx)
	ticker := t.clock.NewTicker(t.interval)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				t.wg.Add(1)
				go func() {
					defer t.wg.Done()
					t.run(ctx)
				}()
			}
		}
	}()

	t.logger.Info("task started", zap.Duration("interval", t.interval))
}

// Stop cancels the task and waits for in-flight runs to return.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	t.wg.Wait()
	t.logger.Info("task stopped")
}

func (t *Task) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("task panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()

	start := t.clock.Now()
	if err := t.fn(ctx); err != nil {
		t.logger.Error("task failed", zap.Error(err))
		return
	}
	t.logger.Debug("task finished", zap.Duration("took", t.clock.Now().Sub(start)))
}
