// SPDX-License-Identifier: Apache-2.0
// Command nexus-agent runs one iteration of the document review loop.
// It exits 0 when every submitted action succeeded or was deduplicated,
// 1 when any action failed, and 2 on configuration errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/agent"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/config"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/dedup"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/executor"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/journal"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/ratelimit"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/resilience"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/telemetry"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/zoho"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("nexus-agent " + version)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 2
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.Init("nexus-agent", version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		OTLPInsecure: cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("telemetry init failed", slog.Any("error", err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	metrics, err := telemetry.NewExecutorMetrics()
	if err != nil {
		logger.Error("metrics init failed", slog.Any("error", err))
		return 1
	}

	limiter, err := ratelimit.New(cfg.Rate.RPS, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 2
	}

	policy := resilience.DefaultPolicy().
		WithMaxAttempts(cfg.Retry.Attempts).
		WithBaseDelay(cfg.Retry.BaseDelay())

	exec := executor.New(limiter, dedup.NewStore(), policy,
		executor.WithLogger(logger),
		executor.WithMetrics(metrics),
		executor.WithAttemptTimeout(cfg.Action.AttemptTimeout()))

	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithOutput(os.Stdout),
	}

	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			logger.Error("journal open failed",
				slog.String("path", cfg.Journal.Path),
				slog.Any("error", err))
			return 1
		}
		defer store.Close()
		opts = append(opts, agent.WithJournal(store))
	}

	if cfg.Live.Enabled {
		client := zoho.New(cfg.Zoho.Client, cfg.Zoho.Secret, cfg.Zoho.Refresh,
			zoho.WithAccountsBase(cfg.Zoho.Accounts),
			zoho.WithLogger(logger),
			zoho.WithRefreshPolicy(policy))
		opts = append(opts,
			agent.WithAuthenticator(&agent.ClientAuthenticator{Client: client}),
			agent.WithTaskCreator(&agent.ProjectsTaskCreator{
				Service:   zoho.NewProjectsService(client),
				PortalID:  cfg.Zoho.Portal,
				ProjectID: cfg.Zoho.Project,
			}))
		if cfg.WorkDrive.Folder != "" {
			opts = append(opts, agent.WithLister(&agent.WorkDriveLister{
				Service:  zoho.NewWorkDriveService(client),
				FolderID: cfg.WorkDrive.Folder,
				Limit:    50,
			}))
		}
	}

	loop := agent.New(cfg, exec, opts...)
	report, err := loop.RunOnce(ctx)
	if err != nil {
		logger.Error("run failed", slog.Any("error", err))
		return 1
	}

	if report.HasFailures() {
		return 1
	}
	return 0
}
