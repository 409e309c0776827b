// SPDX-License-Identifier: Apache-2.0
package agent

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/config"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/dedup"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/executor"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/journal"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/resilience"
)

type openLimiter struct{}

func (openLimiter) Acquire(ctx context.Context) error { return ctx.Err() }

type stubLister struct {
	docs []Document
	err  error
}

func (s *stubLister) ListDocuments(ctx context.Context) ([]Document, error) {
	return s.docs, s.err
}

type stubCreator struct {
	created []string
	failFor map[string]error
}

func (s *stubCreator) CreateTask(ctx context.Context, title, body string) (string, error) {
	if err, ok := s.failFor[title]; ok {
		return "", err
	}
	s.created = append(s.created, title)
	return "task-1", nil
}

type memJournal struct {
	entries []journal.Entry
}

func (m *memJournal) Record(ctx context.Context, e journal.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func testExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	policy := resilience.DefaultPolicy().
		WithBaseDelay(0).
		WithUniform(func(min, max float64) float64 { return 1.0 })
	return executor.New(openLimiter{}, dedup.NewStore(), policy)
}

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func liveConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := mockConfig(t)
	cfg.Live.Enabled = true
	cfg.Zoho.Portal = "portal-7"
	cfg.Zoho.Project = "project-42"
	cfg.WorkDrive.Folder = "folder123"
	return cfg
}

func TestRunOnceMockPath(t *testing.T) {
	var out bytes.Buffer
	lp := New(mockConfig(t), testExecutor(t), WithOutput(&out))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	// The stub documents contain one issue-bearing entry ("Notes").
	if !strings.Contains(out.String(), "New Email Draft") {
		t.Error("expected at least one email draft")
	}
	succeeded, failed, _ := report.Counts()
	if succeeded == 0 {
		t.Error("stubbed task creation should succeed")
	}
	if failed != 0 {
		t.Errorf("no failures expected in mock path, got %d", failed)
	}
	if report.HasFailures() {
		t.Error("mock run must not report failures")
	}
}

func TestRunOnceLivePath(t *testing.T) {
	var out bytes.Buffer
	creator := &stubCreator{}
	lister := &stubLister{docs: []Document{
		{ID: "1", Name: "Good Document.pdf"},
		{ID: "2", Name: "Bad"}, // no extension, short title
	}}
	lp := New(liveConfig(t), testExecutor(t),
		WithLister(lister),
		WithTaskCreator(creator),
		WithOutput(&out))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(creator.created) != 1 {
		t.Fatalf("expected one created task, got %v", creator.created)
	}
	if creator.created[0] != "Review of your document: Bad" {
		t.Errorf("unexpected task title %q", creator.created[0])
	}
	// list_files + create_task both reported.
	if len(report.Outcomes) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(report.Outcomes))
	}
}

func TestRunOnceLiveWithoutListerFallsBackToStub(t *testing.T) {
	var out bytes.Buffer
	cfg := liveConfig(t)
	cfg.WorkDrive.Folder = ""
	lp := New(cfg, testExecutor(t), WithOutput(&out))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !strings.Contains(out.String(), "New Email Draft") {
		t.Error("fallback stub documents should still produce a draft")
	}
	if report.HasFailures() {
		t.Error("fallback run must not report failures")
	}
}

func TestRunOncePartialFailureIsolation(t *testing.T) {
	var out bytes.Buffer
	creator := &stubCreator{failFor: map[string]error{
		"Review of your document: Bad": errors.New(errors.CodeInvalidInput, "rejected", nil),
	}}
	lister := &stubLister{docs: []Document{
		{ID: "1", Name: "Bad"},
		{ID: "2", Name: "Also"}, // also issue-bearing, must still be attempted
	}}
	lp := New(liveConfig(t), testExecutor(t),
		WithLister(lister),
		WithTaskCreator(creator),
		WithOutput(&out))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	succeeded, failed, _ := report.Counts()
	if failed != 1 {
		t.Errorf("expected 1 failed action, got %d", failed)
	}
	// list_files + the second document's task.
	if succeeded != 2 {
		t.Errorf("expected 2 succeeded actions, got %d", succeeded)
	}
	if !report.HasFailures() {
		t.Error("report must flag the failure for a non-zero exit")
	}
	if len(creator.created) != 1 {
		t.Errorf("the other document's task should still be created, got %v", creator.created)
	}
}

func TestRunOnceListingFailureReported(t *testing.T) {
	var out bytes.Buffer
	lister := &stubLister{err: errors.New(errors.CodeUnauthorized, "token rejected", nil)}
	lp := New(liveConfig(t), testExecutor(t),
		WithLister(lister),
		WithTaskCreator(&stubCreator{}),
		WithOutput(&out))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !report.HasFailures() {
		t.Error("listing failure must be reported")
	}
	if len(report.Outcomes) != 1 {
		t.Errorf("expected only the listing outcome, got %d", len(report.Outcomes))
	}
}

func TestRunOnceDuplicateTitlesSkipped(t *testing.T) {
	var out bytes.Buffer
	creator := &stubCreator{}
	lister := &stubLister{docs: []Document{
		{ID: "1", Name: "Bad"},
		{ID: "2", Name: "Bad"}, // same name, same dedup key
	}}
	lp := New(liveConfig(t), testExecutor(t),
		WithLister(lister),
		WithTaskCreator(creator),
		WithOutput(&out))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(creator.created) != 1 {
		t.Fatalf("duplicate title must create exactly one task, got %v", creator.created)
	}
	_, _, skipped := report.Counts()
	if skipped != 1 {
		t.Errorf("expected 1 skipped outcome, got %d", skipped)
	}
}

func TestRunOnceJournalsOutcomes(t *testing.T) {
	var out bytes.Buffer
	j := &memJournal{}
	lp := New(mockConfig(t), testExecutor(t), WithOutput(&out), WithJournal(j))

	report, err := lp.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(j.entries) != len(report.Outcomes) {
		t.Fatalf("expected %d journal entries, got %d", len(report.Outcomes), len(j.entries))
	}
	for _, e := range j.entries {
		if e.RunID != report.RunID {
			t.Errorf("journal entry carries wrong run id: %s", e.RunID)
		}
	}
}
