package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go-bakery/scheduler"
	"go-bakery/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const interval = time.Minute

func newClock() *utils.FakeClock {
	return utils.NewFakeClock(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
}

func TestTask_RunsOncePerTick(t *testing.T) {
	clock := newClock()
	var runs atomic.Int32
	task := scheduler.New("count", interval, func(context.Context) error {
		runs.Add(1)
		return nil
	}, clock, zap.NewNop())

	task.Start(context.Background())
	clock.Advance(interval)
	clock.Advance(interval)
	clock.Advance(30 * time.Second)
	task.Stop()

	assert.Equal(t, int32(2), runs.Load())
}

func TestTask_AdvanceOverSeveralPeriods(t *testing.T) {
	clock := newClock()
	var runs atomic.Int32
	task := scheduler.New("catch-up", interval, func(context.Context) error {
		runs.Add(1)
		return nil
	}, clock, zap.NewNop())

	task.Start(context.Background())
	clock.Advance(3 * interval)
	task.Stop()

	assert.Equal(t, int32(3), runs.Load())
}

func TestTask_RunsOverlap(t *testing.T) {
	clock := newClock()
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	task := scheduler.New("slow", interval, func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}, clock, zap.NewNop())

	task.Start(context.Background())
	clock.Advance(interval)
	clock.Advance(interval)

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d did not start while the previous run was still busy", i+1)
		}
	}
	close(release)
	task.Stop()
}

func TestTask_StopWaitsForInFlightRun(t *testing.T) {
	clock := newClock()
	started := make(chan struct{})
	var finished atomic.Bool
	task := scheduler.New("cancellable", interval, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}, clock, zap.NewNop())

	task.Start(context.Background())
	clock.Advance(interval)
	<-started

	task.Stop()
	assert.True(t, finished.Load())
}

func TestTask_NoRunsAfterStop(t *testing.T) {
	clock := newClock()
	var runs atomic.Int32
	task := scheduler.New("stopped", interval, func(context.Context) error {
		runs.Add(1)
		return nil
	}, clock, zap.NewNop())

	task.Start(context.Background())
	task.Stop()
	clock.Advance(5 * interval)

	assert.Zero(t, runs.Load())
	task.Stop()
}

func TestTask_StartTwiceIsNoop(t *testing.T) {
	clock := newClock()
	var runs atomic.Int32
	task := scheduler.New("twice", interval, func(context.Context) error {
		runs.Add(1)
		return nil
	}, clock, zap.NewNop())

	ctx := context.Background()
	task.Start(ctx)
	task.Start(ctx)
	clock.Advance(interval)
	task.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

func TestTask_SurvivesFailuresAndPanics(t *testing.T) {
	clock := newClock()
	var runs atomic.Int32
	task := scheduler.New("flaky", interval, func(context.Context) error {
		switch runs.Add(1) {
		case 1:
			panic("boom")
		case 2:
			return errors.New("store unavailable")
		}
		return nil
	}, clock, zap.NewNop())

	task.Start(context.Background())
	for i := 0; i < 3; i++ {
		clock.Advance(interval)
	}
	task.Stop()

	require.Equal(t, int32(3), runs.Load())
}

func TestTask_ParentContextStopsTicking(t *testing.T) {
	clock := newClock()
	var runs atomic.Int32
	task := scheduler.New("parent", interval, func(context.Context) error {
		runs.Add(1)
		return nil
	}, clock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	task.Start(ctx)
	cancel()
	task.Stop()
	clock.Advance(interval)

	assert.Zero(t, runs.Load())
}
