// SPDX-License-Identifier: Apache-2.0
// Package ratelimit paces outbound calls to the remote API.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
)

// MinRate is the lowest configurable admission rate in calls per second.
const MinRate = 0.1

// Limiter grants admissions for outbound calls at a fixed rate. It never
// rejects, only delays: consecutive admissions for the same instance are
// spaced at least 1/rate apart. There is no burst allowance beyond the
// single token needed to admit at all, so an idle limiter still admits at
// most one call immediately.
//
// One instance is shared by every logical caller contending for the same
// remote quota; it is safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
	rps     float64
	logger  *slog.Logger
}

// New creates a Limiter admitting rps calls per second.
func New(rps float64, logger *slog.Logger) (*Limiter, error) {
	if rps < MinRate {
		return nil, errors.New(errors.CodeInvalidInput,
			fmt.Sprintf("rate %.3f below minimum %.1f calls/sec", rps, MinRate), nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
		logger:  logger,
	}, nil
}

// Rate returns the configured admission rate in calls per second.
func (l *Limiter) Rate() float64 {
	return l.rps
}

// Acquire blocks until an admission is granted or ctx is done. A cancelled
// wait is reported as a cancellation error, never as a transient failure.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.New(errors.CodeCancelled, "rate limiter wait aborted", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		l.logger.DebugContext(ctx, "rate limiter admission",
			slog.Duration("waited", waited),
			slog.Float64("rate", l.rps))
	}
	return nil
}
