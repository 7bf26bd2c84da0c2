package pipeline

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpipe/internal/report"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("stage", "pipeline-test")
}

// scriptedRunner fails each command a scripted number of times before
// succeeding, and records every invocation
type scriptedRunner struct {
	failures map[string]int
	calls    []string
}

func (s *scriptedRunner) Run(ctx context.Context, command string, args ...string) error {
	key := args[0]
	s.calls = append(s.calls, key)
	if s.failures[key] > 0 {
		s.failures[key]--
		return fmt.Errorf("exit status 1")
	}
	return nil
}

func TestRunAllStepsSucceed(t *testing.T) {
	exec := &scriptedRunner{failures: map[string]int{}}
	runner := NewRunner(DefaultSteps("retailpipe"), 1, testLogger()).
		WithExecutor(exec).
		WithSleep(func(time.Duration) { t.Fatal("no retry expected") })

	rep := runner.Run(context.Background())

	assert.Equal(t, report.StatusSuccess, rep.Status)
	require.Len(t, rep.Steps, 5)
	for _, step := range rep.Steps {
		assert.Equal(t, StateSucceeded, step.State)
		assert.Equal(t, 1, step.Attempts)
		assert.Empty(t, step.Error)
	}
	assert.Equal(t, []string{"generate", "ingest", "quality", "transform", "warehouse"}, exec.calls)
	assert.NotEmpty(t, rep.RunID)
	assert.NotEmpty(t, rep.StartTime)
	assert.NotEmpty(t, rep.EndTime)
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	var slept []time.Duration
	exec := &scriptedRunner{failures: map[string]int{"ingest": 2}}

	runner := NewRunner(DefaultSteps("retailpipe"), 2, testLogger()).
		WithExecutor(exec).
		WithSleep(func(d time.Duration) { slept = append(slept, d) })

	rep := runner.Run(context.Background())

	assert.Equal(t, report.StatusSuccess, rep.Status)
	assert.Equal(t, StateSucceeded, rep.Steps[1].State)
	assert.Equal(t, 3, rep.Steps[1].Attempts)
	// The fixed 5s delay elapses between failed attempts
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
	// Later steps still ran
	assert.Equal(t, StateSucceeded, rep.Steps[4].State)
}

func TestRunAbortsOnExhaustedRetries(t *testing.T) {
	exec := &scriptedRunner{failures: map[string]int{"quality": 10}}

	runner := NewRunner(DefaultSteps("retailpipe"), 1, testLogger()).
		WithExecutor(exec).
		WithSleep(func(time.Duration) {})

	rep := runner.Run(context.Background())

	assert.Equal(t, report.StatusFailed, rep.Status)

	assert.Equal(t, StateSucceeded, rep.Steps[0].State)
	assert.Equal(t, StateSucceeded, rep.Steps[1].State)

	assert.Equal(t, StateFailed, rep.Steps[2].State)
	assert.Equal(t, 2, rep.Steps[2].Attempts)
	assert.Contains(t, rep.Steps[2].Error, "quality_checks")

	// The pipeline halted: transform and warehouse never started
	assert.Equal(t, StatePending, rep.Steps[3].State)
	assert.Equal(t, StatePending, rep.Steps[4].State)
	assert.NotContains(t, exec.calls, "transform")
	assert.NotContains(t, exec.calls, "warehouse")
}

func TestRunDelaysOnlyBetweenAttempts(t *testing.T) {
	var slept []time.Duration
	exec := &scriptedRunner{failures: map[string]int{"generate": 10}}

	runner := NewRunner(DefaultSteps("retailpipe"), 2, testLogger()).
		WithExecutor(exec).
		WithSleep(func(d time.Duration) { slept = append(slept, d) })

	rep := runner.Run(context.Background())

	assert.Equal(t, report.StatusFailed, rep.Status)
	assert.Equal(t, StateFailed, rep.Steps[0].State)
	assert.Equal(t, 3, rep.Steps[0].Attempts)
	// Three attempts, two delays: none after the exhausted final attempt
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
}

func TestRunZeroRetriesFailsImmediately(t *testing.T) {
	exec := &scriptedRunner{failures: map[string]int{"generate": 1}}

	runner := NewRunner(DefaultSteps("retailpipe"), 0, testLogger()).
		WithExecutor(exec).
		WithSleep(func(time.Duration) { t.Fatal("no delay expected with zero retries") })

	rep := runner.Run(context.Background())

	assert.Equal(t, report.StatusFailed, rep.Status)
	assert.Equal(t, StateFailed, rep.Steps[0].State)
	assert.Equal(t, 1, rep.Steps[0].Attempts)
	assert.Equal(t, []string{"generate"}, exec.calls)
}

func TestDefaultSteps(t *testing.T) {
	steps := DefaultSteps("retailpipe")

	require.Len(t, steps, 5)
	assert.Equal(t, "data_generation", steps[0].Name)
	assert.Equal(t, []string{"generate"}, steps[0].Args)
	assert.Equal(t, "load_warehouse", steps[4].Name)
	assert.Equal(t, []string{"warehouse"}, steps[4].Args)
	for _, step := range steps {
		assert.Equal(t, "retailpipe", step.Command)
	}
}

func TestSchedulerFiresOncePerDay(t *testing.T) {
	fired := 0
	clock := time.Date(2024, 5, 1, 1, 59, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	scheduler, err := NewScheduler("02:00", func(context.Context) { fired++ }, testLogger())
	require.NoError(t, err)

	ticks := 0
	scheduler.WithClock(
		func() time.Time { return clock },
		func(time.Duration) {
			clock = clock.Add(time.Minute)
			ticks++
			if ticks >= 10 {
				cancel()
			}
		},
	)

	err = scheduler.Start(ctx)
	assert.Equal(t, context.Canceled, err)
	// 02:00 passed exactly once in the simulated window
	assert.Equal(t, 1, fired)
}

func TestSchedulerSkipsDuplicateFiringSameDay(t *testing.T) {
	fired := 0
	// Clock frozen at the firing minute: poll sees 02:00 repeatedly
	clock := time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	scheduler, err := NewScheduler("02:00", func(context.Context) { fired++ }, testLogger())
	require.NoError(t, err)

	ticks := 0
	scheduler.WithClock(
		func() time.Time { return clock },
		func(time.Duration) {
			ticks++
			if ticks >= 5 {
				cancel()
			}
		},
	)

	_ = scheduler.Start(ctx)
	assert.Equal(t, 1, fired)
}

func TestSchedulerFiresWhenPollOvershootsMinute(t *testing.T) {
	fired := 0
	clock := time.Date(2024, 5, 1, 1, 59, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	scheduler, err := NewScheduler("02:00", func(context.Context) { fired++ }, testLogger())
	require.NoError(t, err)

	ticks := 0
	scheduler.WithClock(
		func() time.Time { return clock },
		func(time.Duration) {
			// Polls land on odd minutes and never observe 02:00 exactly
			clock = clock.Add(2 * time.Minute)
			ticks++
			if ticks >= 5 {
				cancel()
			}
		},
	)

	_ = scheduler.Start(ctx)
	assert.Equal(t, 1, fired)
}

func TestSchedulerFiresOnConsecutiveDays(t *testing.T) {
	fired := 0
	clock := time.Date(2024, 5, 1, 1, 59, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())

	scheduler, err := NewScheduler("02:00", func(context.Context) { fired++ }, testLogger())
	require.NoError(t, err)

	ticks := 0
	scheduler.WithClock(
		func() time.Time { return clock },
		func(time.Duration) {
			// Jump a day forward after each firing window
			if clock.Hour() == 2 {
				clock = clock.Add(24*time.Hour - time.Minute)
			} else {
				clock = clock.Add(time.Minute)
			}
			ticks++
			if ticks >= 5 {
				cancel()
			}
		},
	)

	_ = scheduler.Start(ctx)
	assert.Equal(t, 2, fired)
}

func TestNewSchedulerRejectsBadTime(t *testing.T) {
	_, err := NewScheduler("25:99", func(context.Context) {}, testLogger())
	assert.Error(t, err)
}
