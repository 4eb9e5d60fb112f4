package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-saver/internal/platform/logging"
)

// A view mutation runs as validate, perform, verify, archive. Local state is
// only written in archive, so a failure earlier leaves the view unchanged.

// ExecutionStep names one stage of an Operation.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
)

// ExecutionError records the stage an operation stopped at.
type ExecutionError struct {
	Op    string
	Step  ExecutionStep
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Step, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs Operations and logs their stages.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an Executor. A nil logger means slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation is a remote mutation split into stages. I is the captured
// input, P what the remote call returned, V the state change to apply.
// Nil stages are skipped.
type Operation[I, P, V any] struct {
	Name string

	// Validate rejects input before anything leaves the process.
	Validate func(ctx context.Context, in I) error

	// Perform makes the remote call.
	Perform func(ctx context.Context, in I) (P, error)

	// Verify turns the remote result into a state change. It may read the
	// remote store again.
	Verify func(ctx context.Context, in I, performed P) (V, error)

	// Archive applies the state change.
	Archive func(ctx context.Context, in I, verified V) error
}

// Execute runs op on in and returns the applied state change. Any stage
// error is wrapped in an ExecutionError.
func Execute[I, P, V any](ctx context.Context, exec *Executor, op Operation[I, P, V], in I) (V, error) {
	var (
		performed P
		verified  V
		zero      V
	)

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	run := func(step ExecutionStep, fn func() error) error {
		logger.Log(ctx, logging.LevelTrace, "stage started", slog.String("step", string(step)))

		if err := fn(); err != nil {
			level := slog.LevelWarn
			if step == StepValidate {
				level = slog.LevelDebug
			}

			logger.Log(ctx, level, "stage failed", slog.String("step", string(step)), slog.Any("error", err))

			return &ExecutionError{Op: op.Name, Step: step, Cause: err}
		}

		return nil
	}

	stages := []struct {
		step ExecutionStep
		fn   func() error
		skip bool
	}{
		{StepValidate, func() error { return op.Validate(ctx, in) }, op.Validate == nil},
		{StepPerform, func() (err error) { performed, err = op.Perform(ctx, in); return err }, op.Perform == nil},
		{StepVerify, func() (err error) { verified, err = op.Verify(ctx, in, performed); return err }, op.Verify == nil},
		{StepArchive, func() error { return op.Archive(ctx, in, verified) }, op.Archive == nil},
	}

	for _, s := range stages {
		if s.skip {
			continue
		}

		if err := run(s.step, s.fn); err != nil {
			return zero, err
		}
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return verified, nil
}

// Cause returns the error a stage failed with, or err itself when it did
// not come from Execute.
func Cause(err error) error {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Cause
	}

	return err
}

// FailedStep reports the stage err stopped at.
func FailedStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
