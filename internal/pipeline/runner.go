package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"retailpipe/internal/report"
	"retailpipe/pkg/errors"
)

// StepState is a step's position in its lifecycle
type StepState string

const (
	StatePending   StepState = "PENDING"
	StateRunning   StepState = "RUNNING"
	StateSucceeded StepState = "SUCCEEDED"
	StateRetrying  StepState = "RETRYING"
	StateFailed    StepState = "FAILED"
)

// retryDelay is the fixed pause between attempts of a failed step
const retryDelay = 5 * time.Second

// Step binds a pipeline stage name to the command that runs it
type Step struct {
	Name    string
	Command string
	Args    []string
}

// StepResult records how one step ended
type StepResult struct {
	Name     string    `json:"name"`
	State    StepState `json:"state"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
}

// ExecutionReport is the pipeline_execution_report.json payload
type ExecutionReport struct {
	RunID     string       `json:"run_id"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Status    string       `json:"status"`
	Steps     []StepResult `json:"steps"`
}

// CommandRunner executes one external command to completion
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) error
}

// ExecRunner runs commands through os/exec, inheriting stdout/stderr so
// stage output lands in the pipeline log
type ExecRunner struct{}

// Run implements CommandRunner
func (ExecRunner) Run(ctx context.Context, command string, args ...string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// DefaultSteps returns the five pipeline stages in execution order, each
// invoking the given binary
func DefaultSteps(command string) []Step {
	names := []string{"data_generation", "ingestion", "quality_checks", "load_production", "load_warehouse"}
	args := []string{"generate", "ingest", "quality", "transform", "warehouse"}

	steps := make([]Step, len(names))
	for i := range names {
		steps[i] = Step{Name: names[i], Command: command, Args: []string{args[i]}}
	}
	return steps
}

// Runner executes the pipeline steps in order with per-step retry
type Runner struct {
	steps   []Step
	retries int
	exec    CommandRunner
	sleep   func(time.Duration)
	log     *logrus.Entry
}

// NewRunner creates a step runner with the given retry budget per step
func NewRunner(steps []Step, retries int, log *logrus.Entry) *Runner {
	return &Runner{
		steps:   steps,
		retries: retries,
		exec:    ExecRunner{},
		sleep:   time.Sleep,
		log:     log,
	}
}

// WithExecutor replaces the command executor, used by tests
func (r *Runner) WithExecutor(exec CommandRunner) *Runner {
	r.exec = exec
	return r
}

// WithSleep replaces the retry delay function, used by tests
func (r *Runner) WithSleep(sleep func(time.Duration)) *Runner {
	r.sleep = sleep
	return r
}

// Run executes every step in order. A step that exhausts its retry budget
// fails the whole run; later steps never start and stay PENDING.
func (r *Runner) Run(ctx context.Context) *ExecutionReport {
	rep := &ExecutionReport{
		RunID:     uuid.NewString(),
		StartTime: time.Now().UTC().Format(time.RFC3339),
		Status:    report.StatusSuccess,
		Steps:     make([]StepResult, len(r.steps)),
	}

	for i, step := range r.steps {
		rep.Steps[i] = StepResult{Name: step.Name, State: StatePending}
	}

	for i, step := range r.steps {
		result := r.runStep(ctx, step)
		rep.Steps[i] = result

		if result.State == StateFailed {
			r.log.WithFields(logrus.Fields{
				"step":     step.Name,
				"attempts": result.Attempts,
			}).Error("pipeline failed, aborting remaining steps")
			rep.Status = report.StatusFailed
			break
		}

		r.log.WithFields(logrus.Fields{
			"step":     step.Name,
			"attempts": result.Attempts,
		}).Info("step succeeded")
	}

	rep.EndTime = time.Now().UTC().Format(time.RFC3339)
	return rep
}

// runStep drives one step through its state machine:
// PENDING -> RUNNING -> {SUCCEEDED, RETRYING, FAILED}
// The attempt loop and fixed delay come from errors.Retry; the closure
// tracks states and attempt counts on the result.
func (r *Runner) runStep(ctx context.Context, step Step) StepResult {
	result := StepResult{Name: step.Name, State: StatePending}

	retryCfg := errors.DefaultRetryConfig()
	retryCfg.MaxRetries = r.retries
	retryCfg.Delay = retryDelay
	retryCfg.Sleep = r.sleep

	retryErr := errors.Retry(ctx, retryCfg, func(ctx context.Context) error {
		result.State = StateRunning
		result.Attempts++

		r.log.WithFields(logrus.Fields{"step": step.Name, "attempt": result.Attempts}).Info("running step")

		err := r.exec.Run(ctx, step.Command, step.Args...)
		if err == nil {
			result.State = StateSucceeded
			result.Error = ""
			return nil
		}

		stepErr := errors.Wrap(err, errors.ErrCodeStepFailed,
			fmt.Sprintf("Step %s failed on attempt %d", step.Name, result.Attempts)).
			WithContext("step", step.Name)
		result.Error = stepErr.Error()

		if result.Attempts <= r.retries {
			result.State = StateRetrying
			r.log.WithFields(logrus.Fields{
				"step":    step.Name,
				"attempt": result.Attempts,
			}).Warn("step failed, retrying after delay")
		}
		return stepErr
	})

	if retryErr != nil {
		result.State = StateFailed
	}
	return result
}
