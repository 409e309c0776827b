// SPDX-License-Identifier: Apache-2.0
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected default 3 attempts, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.BaseDelay() != 500*time.Millisecond {
		t.Errorf("expected default 500ms base delay, got %v", cfg.Retry.BaseDelay())
	}
	if cfg.Rate.RPS != 2.0 {
		t.Errorf("expected default 2.0 rps, got %g", cfg.Rate.RPS)
	}
	if cfg.Action.AttemptTimeout() != 30*time.Second {
		t.Errorf("expected default 30s action timeout, got %v", cfg.Action.AttemptTimeout())
	}
	if cfg.Live.Enabled {
		t.Error("live mode must default to disabled")
	}
	if cfg.Zoho.Accounts != "https://accounts.zoho.com" {
		t.Errorf("unexpected accounts base: %s", cfg.Zoho.Accounts)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEXUS_RETRY_ATTEMPTS", "5")
	t.Setenv("NEXUS_RATE_RPS", "0.5")
	t.Setenv("NEXUS_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected env override 5 attempts, got %d", cfg.Retry.Attempts)
	}
	if cfg.Rate.RPS != 0.5 {
		t.Errorf("expected env override 0.5 rps, got %g", cfg.Rate.RPS)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %s", cfg.Log.Format)
	}
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	content := []byte("retry:\n  attempts: 7\nrate:\n  rps: 1.5\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NEXUS_RETRY_ATTEMPTS", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.Attempts != 4 {
		t.Errorf("env must override file, got %d", cfg.Retry.Attempts)
	}
	if cfg.Rate.RPS != 1.5 {
		t.Errorf("file value should survive when env absent, got %g", cfg.Rate.RPS)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Setenv("NEXUS_RETRY_ATTEMPTS", "15")
	t.Setenv("NEXUS_RATE_RPS", "0.01")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "retry.attempts") {
		t.Errorf("error should name retry.attempts: %s", msg)
	}
	if !strings.Contains(msg, "rate.rps") {
		t.Errorf("error should name rate.rps: %s", msg)
	}
}

func TestValidateLiveRequiresCredentialsAndTargets(t *testing.T) {
	t.Setenv("NEXUS_LIVE_ENABLED", "true")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation failure for live mode without targets")
	}
	msg := err.Error()
	for _, key := range []string{"zoho.client", "zoho.secret", "zoho.refresh", "zoho.portal", "zoho.project"} {
		if !strings.Contains(msg, key) {
			t.Errorf("error should name %s: %s", key, msg)
		}
	}
}

func TestValidateLiveWithTargets(t *testing.T) {
	t.Setenv("NEXUS_LIVE_ENABLED", "true")
	t.Setenv("NEXUS_ZOHO_CLIENT", "cid")
	t.Setenv("NEXUS_ZOHO_SECRET", "csecret")
	t.Setenv("NEXUS_ZOHO_REFRESH", "rtok")
	t.Setenv("NEXUS_ZOHO_PORTAL", "portal-7")
	t.Setenv("NEXUS_ZOHO_PROJECT", "project-42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Zoho.Portal != "portal-7" || cfg.Zoho.Project != "project-42" {
		t.Errorf("unexpected targets: %s/%s", cfg.Zoho.Portal, cfg.Zoho.Project)
	}
}
