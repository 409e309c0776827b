// SPDX-License-Identifier: Apache-2.0
// Package agent runs the document review loop: list project documents,
// assess their quality, and file review tasks through the action executor.
package agent

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/config"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/dedup"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/executor"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/journal"
)

// Lister lists the documents to review.
type Lister interface {
	ListDocuments(ctx context.Context) ([]Document, error)
}

// TaskCreator files a review task in the remote tracker, returning its id.
type TaskCreator interface {
	CreateTask(ctx context.Context, title, body string) (string, error)
}

// Authenticator refreshes remote API credentials before a live run.
type Authenticator interface {
	RefreshAccessToken(ctx context.Context) error
}

// Journal records action outcomes; satisfied by journal.Store.
type Journal interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Loop orchestrates one agent run over the shared executor.
type Loop struct {
	cfg     *config.Config
	exec    *executor.Executor
	lister  Lister
	creator TaskCreator
	auth    Authenticator
	journal Journal
	logger  *slog.Logger
	out     io.Writer
}

// Option configures the Loop.
type Option func(*Loop)

// WithLister sets the live document source. Without one the loop reviews the
// built-in stub documents.
func WithLister(l Lister) Option {
	return func(lp *Loop) { lp.lister = l }
}

// WithTaskCreator sets the live task tracker. Without one, task creation is
// a no-op stub while still exercising dedup, rate limiting, and retries.
func WithTaskCreator(c TaskCreator) Option {
	return func(lp *Loop) { lp.creator = c }
}

// WithAuthenticator sets the credential refresher run before live calls.
func WithAuthenticator(a Authenticator) Option {
	return func(lp *Loop) { lp.auth = a }
}

// WithJournal enables outcome persistence.
func WithJournal(j Journal) Option {
	return func(lp *Loop) { lp.journal = j }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.logger = l }
}

// WithOutput sets the writer receiving email drafts and the run summary.
func WithOutput(w io.Writer) Option {
	return func(lp *Loop) { lp.out = w }
}

// New creates a Loop over the shared executor.
func New(cfg *config.Config, exec *executor.Executor, opts ...Option) *Loop {
	lp := &Loop{
		cfg:    cfg,
		exec:   exec,
		logger: slog.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

// RunOnce executes a single agent iteration: refresh credentials, list
// documents, assess quality, and submit one review task per issue-bearing
// document. One action's failure never aborts the others; the report carries
// every outcome. A credential refresh failure aborts the run since nothing
// else can proceed.
func (lp *Loop) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := lp.logger.With(slog.String("run_id", report.RunID))

	if lp.auth != nil {
		if err := lp.auth.RefreshAccessToken(ctx); err != nil {
			return nil, err
		}
	}

	docs, listOutcome := lp.listDocuments(ctx, logger)
	if listOutcome != nil {
		report.Outcomes = append(report.Outcomes, *listOutcome)
		lp.record(ctx, logger, report.RunID, *listOutcome)
	}

	for _, doc := range docs {
		issues := AssessDocument(doc)
		if len(issues) == 0 {
			logger.InfoContext(ctx, "no issues found", slog.String("document", doc.Name))
			continue
		}
		logger.InfoContext(ctx, "drafting review",
			slog.String("document", doc.Name),
			slog.Int("issues", len(issues)))

		draft := DraftReviewEmail(doc, issues)
		io.WriteString(lp.out, draft.Render())

		outcome := lp.submitTask(ctx, draft)
		report.Outcomes = append(report.Outcomes, outcome)
		lp.record(ctx, logger, report.RunID, outcome)
	}

	io.WriteString(lp.out, report.Summary())
	return report, nil
}

// listDocuments returns the documents to review. Live listing goes through
// the executor like any other remote action; when live APIs are disabled or
// no folder is configured, the stub documents are used.
func (lp *Loop) listDocuments(ctx context.Context, logger *slog.Logger) ([]Document, *Outcome) {
	if !lp.cfg.Live.Enabled {
		return mockDocuments(), nil
	}
	if lp.lister == nil {
		logger.WarnContext(ctx, "live APIs enabled but no document folder configured; using stub documents")
		return mockDocuments(), nil
	}

	started := time.Now()
	action := executor.Action{
		Key:  dedup.Key{Portal: "workdrive", Project: lp.cfg.WorkDrive.Folder, Title: "list"},
		Name: "list_files",
		Invoke: func(ctx context.Context) (any, error) {
			docs, err := lp.lister.ListDocuments(ctx)
			if err != nil {
				return nil, err
			}
			return docs, nil
		},
	}
	res := lp.exec.Execute(ctx, action)
	outcome := &Outcome{
		Action:   action.Name,
		Key:      action.Key,
		Status:   res.Status,
		Attempts: res.Attempts,
		Reason:   res.Reason(),
	}
	outcome.startedAt, outcome.finishedAt = started, time.Now()

	if res.Status != executor.StatusSucceeded {
		return nil, outcome
	}
	docs, _ := res.Value.([]Document)
	logger.InfoContext(ctx, "documents listed", slog.Int("count", len(docs)))
	return docs, outcome
}

// submitTask files the review task for a drafted email through the executor.
func (lp *Loop) submitTask(ctx context.Context, draft Draft) Outcome {
	started := time.Now()
	action := executor.Action{
		Key: dedup.Key{
			Portal:  lp.cfg.Zoho.Portal,
			Project: lp.cfg.Zoho.Project,
			Title:   draft.Subject,
		},
		Name: "create_task",
		Invoke: func(ctx context.Context) (any, error) {
			if lp.creator == nil {
				// Live task creation disabled: the stub still pays
				// admission and dedup costs.
				return "", nil
			}
			return lp.creator.CreateTask(ctx, draft.Subject, draft.Body)
		},
	}
	res := lp.exec.Execute(ctx, action)
	outcome := Outcome{
		Action:   action.Name,
		Key:      action.Key,
		Status:   res.Status,
		Attempts: res.Attempts,
		Reason:   res.Reason(),
	}
	outcome.startedAt, outcome.finishedAt = started, time.Now()
	return outcome
}

// record persists an outcome when a journal is configured.
func (lp *Loop) record(ctx context.Context, logger *slog.Logger, runID string, o Outcome) {
	if lp.journal == nil {
		return
	}
	entry := journal.Entry{
		RunID:      runID,
		Action:     o.Action,
		Portal:     o.Key.Portal,
		Project:    o.Key.Project,
		Title:      o.Key.Title,
		Status:     o.Status.String(),
		Attempts:   o.Attempts,
		StartedAt:  o.startedAt,
		FinishedAt: o.finishedAt,
	}
	if o.Status == executor.StatusFailed {
		entry.Error = o.Reason
	}
	if err := lp.journal.Record(ctx, entry); err != nil {
		logger.WarnContext(ctx, "journal write failed", slog.Any("error", err))
	}
}
