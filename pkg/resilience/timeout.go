// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	"time"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
)

// WithTimeout executes fn with a bounded deadline. A zero duration disables
// the bound. Expiry is reported as a transient timeout error so it feeds the
// retry policy like any other transient failure.
func WithTimeout(ctx context.Context, d time.Duration, fn func(context.Context) (any, error)) (any, error) {
	if d == 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value any
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		if context.Cause(ctx) == context.DeadlineExceeded {
			return nil, errors.New(errors.CodeTimeout, "attempt exceeded timeout", ctx.Err()).
				WithContext("timeout", d.String())
		}
		return nil, errors.New(errors.CodeCancelled, "attempt cancelled", ctx.Err())
	case res := <-done:
		return res.value, res.err
	}
}
