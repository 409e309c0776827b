// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	"time"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
)

// Do executes fn under the policy's retry loop, enforcing the backoff waits
// itself. The action executor runs its own loop because it interleaves rate
// limiter admissions; Do is for simpler callers such as the auth refresh.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attemptIndex := 0; ; attemptIndex++ {
		if err := ctx.Err(); err != nil {
			return errors.New(errors.CodeCancelled, "cancelled before attempt", err).
				WithContext("attempt", attemptIndex+1)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		decision := p.Decide(attemptIndex, err)
		if !decision.Retry {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return errors.New(errors.CodeCancelled, "cancelled during retry wait", ctx.Err()).
				WithContext("attempt", attemptIndex+1)
		case <-time.After(decision.After):
		}
	}
}
