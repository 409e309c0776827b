// SPDX-License-Identifier: Apache-2.0
// Package resilience provides the retry policy and per-attempt timeout used
// by the action executor. The policy only decides; it never sleeps.
package resilience

import (
	"math"
	"math/rand"
	"time"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
)

// Decision is the outcome of consulting the retry policy after a failed attempt.
type Decision struct {
	// Retry is true when the caller should wait After and resubmit.
	Retry bool

	// After is the backoff delay to enforce before the next attempt.
	// Zero when Retry is false.
	After time.Duration
}

// GiveUp is the terminal decision.
var GiveUp = Decision{}

// Policy controls retry behavior with jittered exponential backoff.
// The zero value is not usable; construct with DefaultPolicy.
type Policy struct {
	// MaxAttempts bounds the total number of attempts (must be in [1,10]).
	MaxAttempts int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff delay.
	MaxDelay time.Duration

	// JitterMin and JitterMax bound the multiplicative jitter band applied
	// to every delay, spreading concurrent callers apart.
	JitterMin float64
	JitterMax float64

	// IsRetryable determines if an error should be retried.
	// If nil, errors.IsTransient is used.
	IsRetryable func(error) bool

	// uniform draws the jitter factor; overridable for deterministic tests.
	uniform func(min, max float64) float64
}

// DefaultPolicy returns the policy used for remote task and listing calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		JitterMin:   0.5,
		JitterMax:   1.5,
		IsRetryable: errors.IsTransient,
	}
}

// WithMaxAttempts returns a new policy with MaxAttempts set, clamped to [1,10].
func (p Policy) WithMaxAttempts(n int) Policy {
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	p.MaxAttempts = n
	return p
}

// WithBaseDelay returns a new policy with BaseDelay set.
func (p Policy) WithBaseDelay(d time.Duration) Policy {
	p.BaseDelay = d
	return p
}

// WithIsRetryable returns a new policy with IsRetryable set.
func (p Policy) WithIsRetryable(fn func(error) bool) Policy {
	p.IsRetryable = fn
	return p
}

// WithUniform returns a new policy drawing jitter from fn. Tests use this to
// pin the jitter factor.
func (p Policy) WithUniform(fn func(min, max float64) float64) Policy {
	p.uniform = fn
	return p
}

// Decide reports whether the attempt at attemptIndex (0-based) that failed
// with err should be retried, and after how long. Cancellation and
// non-transient errors give up immediately regardless of remaining attempts.
func (p Policy) Decide(attemptIndex int, err error) Decision {
	if err == nil {
		return GiveUp
	}
	if errors.IsCancelled(err) {
		return GiveUp
	}
	retryable := p.IsRetryable
	if retryable == nil {
		retryable = errors.IsTransient
	}
	if !retryable(err) {
		return GiveUp
	}
	if attemptIndex+1 >= p.MaxAttempts {
		return GiveUp
	}
	return Decision{Retry: true, After: p.backoff(attemptIndex)}
}

// backoff computes base_delay * 2^attempt * jitter, capped at MaxDelay.
func (p Policy) backoff(attemptIndex int) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attemptIndex)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jmin, jmax := p.JitterMin, p.JitterMax
	if jmax > jmin && jmin >= 0 {
		uniform := p.uniform
		if uniform == nil {
			uniform = func(min, max float64) float64 {
				return min + rand.Float64()*(max-min)
			}
		}
		delay = time.Duration(float64(delay) * uniform(jmin, jmax))
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
