// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ExecutorMetrics tracks the action executor's observable behavior: retries,
// exhaustions, created and deduplicated tasks, and time spent waiting on the
// rate limiter. All methods are nil-safe so wiring metrics stays optional.
type ExecutorMetrics struct {
	retries       metric.Int64Counter
	exhausted     metric.Int64Counter
	created       metric.Int64Counter
	skippedDedupe metric.Int64Counter
	failed        metric.Int64Counter
	rateLimitWait metric.Float64Histogram
}

// NewExecutorMetrics creates the executor metric instruments.
func NewExecutorMetrics() (*ExecutorMetrics, error) {
	meter := otel.Meter("nexus/executor")

	retries, err := meter.Int64Counter(
		"nexus.actions.retries",
		metric.WithDescription("Retry attempts by error code"),
	)
	if err != nil {
		return nil, err
	}

	exhausted, err := meter.Int64Counter(
		"nexus.actions.retry_exhausted",
		metric.WithDescription("Actions that gave up after exhausting retries"),
	)
	if err != nil {
		return nil, err
	}

	created, err := meter.Int64Counter(
		"nexus.actions.succeeded",
		metric.WithDescription("Actions completed successfully"),
	)
	if err != nil {
		return nil, err
	}

	skippedDedupe, err := meter.Int64Counter(
		"nexus.actions.skipped_dedupe",
		metric.WithDescription("Actions skipped as in-run duplicates"),
	)
	if err != nil {
		return nil, err
	}

	failed, err := meter.Int64Counter(
		"nexus.actions.failed",
		metric.WithDescription("Actions terminally failed by error code"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitWait, err := meter.Float64Histogram(
		"nexus.ratelimit.wait_seconds",
		metric.WithDescription("Seconds spent waiting for rate limiter admission"),
	)
	if err != nil {
		return nil, err
	}

	return &ExecutorMetrics{
		retries:       retries,
		exhausted:     exhausted,
		created:       created,
		skippedDedupe: skippedDedupe,
		failed:        failed,
		rateLimitWait: rateLimitWait,
	}, nil
}

// RecordRetry counts one retry attempt classified by error code.
func (m *ExecutorMetrics) RecordRetry(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("error.code", code)))
}

// RecordExhausted counts one action that gave up after its final attempt.
func (m *ExecutorMetrics) RecordExhausted(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.exhausted.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordSucceeded counts one successfully completed action.
func (m *ExecutorMetrics) RecordSucceeded(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordSkipped counts one action suppressed by deduplication.
func (m *ExecutorMetrics) RecordSkipped(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.skippedDedupe.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordFailed counts one terminally failed action by error code.
func (m *ExecutorMetrics) RecordFailed(ctx context.Context, action, code string) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("error.code", code),
	))
}

// RecordRateLimitWait records time spent blocked on limiter admission.
func (m *ExecutorMetrics) RecordRateLimitWait(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	m.rateLimitWait.Record(ctx, seconds)
}
