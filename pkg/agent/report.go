// SPDX-License-Identifier: Apache-2.0
package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/dedup"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/executor"
)

// Outcome is the reported result of one submitted action.
type Outcome struct {
	Action   string
	Key      dedup.Key
	Status   executor.Status
	Attempts int
	Reason   string

	startedAt  time.Time
	finishedAt time.Time
}

// Report aggregates the outcomes of one run.
type Report struct {
	RunID    string
	Outcomes []Outcome
}

// Counts returns the number of succeeded, failed, and skipped actions.
func (r *Report) Counts() (succeeded, failed, skipped int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case executor.StatusSucceeded:
			succeeded++
		case executor.StatusFailed:
			failed++
		case executor.StatusSkipped:
			skipped++
		}
	}
	return
}

// HasFailures reports whether any action terminally failed. A run with
// failures exits non-zero even though every independent action was attempted.
func (r *Report) HasFailures() bool {
	_, failed, _ := r.Counts()
	return failed > 0
}

// Summary renders the per-action outcome table for the run.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: ", r.RunID)
	succeeded, failed, skipped := r.Counts()
	fmt.Fprintf(&b, "%d succeeded, %d failed, %d skipped\n", succeeded, failed, skipped)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "  [%s] %s %s: %s\n", o.Status, o.Action, o.Key, o.Reason)
	}
	return b.String()
}
