// SPDX-License-Identifier: Apache-2.0
// Package executor runs caller-supplied actions against the remote API with
// rate limiting, jittered retry, and per-run deduplication.
//
// Per action the lifecycle is:
//
//	PENDING -> RESERVED -> (ATTEMPTING -> RETRY_WAIT)* -> SUCCEEDED | FAILED
//	PENDING -> SKIPPED
//
// The executor is agnostic to whether callers run sequentially or
// concurrently; one limiter and one dedup store are shared by all callers of
// the same run.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/dedup"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/resilience"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/telemetry"
)

// Action describes one idempotent-intent operation against the remote API.
// Immutable once submitted.
type Action struct {
	// Key deduplicates equivalent actions within the run.
	Key dedup.Key

	// Name labels the action in logs, traces and metrics.
	Name string

	// Invoke performs the remote call. It must honor ctx.
	Invoke func(ctx context.Context) (any, error)
}

// Status is the terminal state of an executed action.
type Status int

const (
	// StatusSucceeded means the action completed and its dedup key is retained.
	StatusSucceeded Status = iota

	// StatusFailed means the action gave up (exhaustion, permanent error, or
	// cancellation) and its dedup key was released.
	StatusFailed

	// StatusSkipped means an equivalent action was already submitted this run.
	StatusSkipped
)

// String returns the status label used in logs and reports.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the uniform terminal outcome of Execute.
type Result struct {
	Status   Status
	Value    any
	Err      error
	Attempts int
}

// Reason renders a human-readable outcome for run reports.
func (r Result) Reason() string {
	switch r.Status {
	case StatusSucceeded:
		return fmt.Sprintf("succeeded after %d attempt(s)", r.Attempts)
	case StatusSkipped:
		return "skipped: duplicate submission in this run"
	case StatusFailed:
		if errors.IsCancelled(r.Err) {
			return fmt.Sprintf("cancelled after %d attempt(s)", r.Attempts)
		}
		return fmt.Sprintf("failed after %d attempt(s): %v", r.Attempts, r.Err)
	default:
		return r.Status.String()
	}
}

// Limiter grants admissions for outbound calls. Satisfied by ratelimit.Limiter.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Executor composes the rate limiter, retry policy and dedup store around a
// single action invocation.
type Executor struct {
	limiter        Limiter
	store          *dedup.Store
	policy         resilience.Policy
	attemptTimeout time.Duration
	clock          Clock
	logger         *slog.Logger
	metrics        *telemetry.ExecutorMetrics
	tracer         trace.Tracer
}

// Option configures the Executor.
type Option func(*Executor)

// WithClock overrides the clock used for retry waits. Tests use a fake.
func WithClock(c Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithLogger sets the structured logger for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics enables executor metric recording.
func WithMetrics(m *telemetry.ExecutorMetrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithAttemptTimeout bounds each individual action invocation. Expiry is
// classified as transient and feeds the retry policy. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Executor) { e.attemptTimeout = d }
}

// New creates an Executor sharing the given limiter and dedup store.
func New(limiter Limiter, store *dedup.Store, policy resilience.Policy, opts ...Option) *Executor {
	e := &Executor{
		limiter: limiter,
		store:   store,
		policy:  policy,
		clock:   SystemClock{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("nexus/executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs action to a terminal Result. It never returns an error for
// expected failure modes; a malformed action (nil Invoke) is a programming
// error and panics.
func (e *Executor) Execute(ctx context.Context, action Action) Result {
	if action.Invoke == nil {
		panic("executor: action has nil Invoke")
	}

	ctx, span := e.tracer.Start(ctx, "executor.execute",
		trace.WithAttributes(
			attribute.String("action.name", action.Name),
			attribute.String("action.key", action.Key.String()),
		))
	defer span.End()

	if !e.store.TryReserve(action.Key) {
		e.logger.InfoContext(ctx, "action skipped, duplicate in run",
			slog.String("action", action.Name),
			slog.String("key", action.Key.String()))
		e.metrics.RecordSkipped(ctx, action.Name)
		span.SetAttributes(attribute.String("outcome", StatusSkipped.String()))
		return Result{Status: StatusSkipped}
	}
	e.logger.DebugContext(ctx, "action reserved",
		slog.String("action", action.Name),
		slog.String("key", action.Key.String()))

	attempts := 0
	for attemptIndex := 0; ; attemptIndex++ {
		waitStart := e.clock.Now()
		if err := e.limiter.Acquire(ctx); err != nil {
			return e.fail(ctx, span, action, attempts,
				errors.New(errors.CodeCancelled, "cancelled while awaiting admission", err))
		}
		e.metrics.RecordRateLimitWait(ctx, e.clock.Now().Sub(waitStart).Seconds())
		e.logger.DebugContext(ctx, "action admitted",
			slog.String("action", action.Name),
			slog.Int("attempt", attemptIndex+1))

		value, err := resilience.WithTimeout(ctx, e.attemptTimeout, action.Invoke)
		attempts++
		if err == nil {
			e.logger.InfoContext(ctx, "action succeeded",
				slog.String("action", action.Name),
				slog.Int("attempts", attempts))
			e.metrics.RecordSucceeded(ctx, action.Name)
			span.SetAttributes(
				attribute.String("outcome", StatusSucceeded.String()),
				attribute.Int("attempts", attempts))
			return Result{Status: StatusSucceeded, Value: value, Attempts: attempts}
		}

		if errors.IsCancelled(err) {
			return e.fail(ctx, span, action, attempts,
				errors.New(errors.CodeCancelled, "cancelled during attempt", err))
		}

		decision := e.policy.Decide(attemptIndex, err)
		e.logger.WarnContext(ctx, "attempt failed",
			slog.String("action", action.Name),
			slog.Int("attempt", attempts),
			slog.String("classification", string(errors.Code(err))),
			slog.Bool("transient", errors.IsTransient(err)),
			slog.Bool("will_retry", decision.Retry),
			slog.Any("error", err))

		if !decision.Retry {
			if errors.IsTransient(err) {
				e.metrics.RecordExhausted(ctx, action.Name)
			}
			return e.fail(ctx, span, action, attempts, err)
		}

		e.metrics.RecordRetry(ctx, string(errors.Code(err)))
		e.logger.DebugContext(ctx, "retry wait",
			slog.String("action", action.Name),
			slog.Duration("after", decision.After))
		if sleepErr := e.clock.Sleep(ctx, decision.After); sleepErr != nil {
			return e.fail(ctx, span, action, attempts,
				errors.New(errors.CodeCancelled, "cancelled during retry wait", sleepErr))
		}
	}
}

// fail releases the dedup reservation so a later distinct submission of the
// same key is not blocked, and returns the terminal failure.
func (e *Executor) fail(ctx context.Context, span trace.Span, action Action, attempts int, err error) Result {
	e.store.Release(action.Key)
	e.logger.WarnContext(ctx, "action gave up",
		slog.String("action", action.Name),
		slog.Int("attempts", attempts),
		slog.Any("error", err))
	e.metrics.RecordFailed(ctx, action.Name, string(errors.Code(err)))
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String("outcome", StatusFailed.String()),
		attribute.Int("attempts", attempts))
	return Result{Status: StatusFailed, Err: err, Attempts: attempts}
}
