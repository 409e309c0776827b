// SPDX-License-Identifier: Apache-2.0
// Package config loads the agent configuration from an optional YAML file
// and NEXUS_-prefixed environment variables. It is built once at process
// start and passed to the components that need it; nothing else in the
// program reads ambient environment state.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
	"github.com/agpldev/ag-nexus-pm-agent/pkg/ratelimit"
)

// Config is the validated process-wide configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Retry     RetryConfig     `koanf:"retry"`
	Rate      RateConfig      `koanf:"rate"`
	Action    ActionConfig    `koanf:"action"`
	Live      LiveConfig      `koanf:"live"`
	Zoho      ZohoConfig      `koanf:"zoho"`
	WorkDrive WorkDriveConfig `koanf:"workdrive"`
	Journal   JournalConfig   `koanf:"journal"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter string `koanf:"exporter"` // stdout, otlp, none
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
}

type RetryConfig struct {
	// Attempts bounds retry attempts, 1-10.
	Attempts int `koanf:"attempts"`

	// Delay seeds exponential backoff, in milliseconds.
	Delay int `koanf:"delay"`
}

// BaseDelay returns the backoff seed as a duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.Delay) * time.Millisecond
}

type RateConfig struct {
	// RPS is the task creation rate quota in calls per second.
	RPS float64 `koanf:"rps"`
}

type ActionConfig struct {
	// Timeout bounds each individual action invocation, in seconds.
	Timeout int `koanf:"timeout"`
}

// AttemptTimeout returns the per-attempt bound as a duration.
func (a ActionConfig) AttemptTimeout() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

type LiveConfig struct {
	// Enabled drives real remote calls; when false the loop runs against
	// stubbed documents.
	Enabled bool `koanf:"enabled"`
}

type ZohoConfig struct {
	Client   string `koanf:"client"`
	Secret   string `koanf:"secret"`
	Refresh  string `koanf:"refresh"`
	Accounts string `koanf:"accounts"`
	Portal   string `koanf:"portal"`
	Project  string `koanf:"project"`
}

type WorkDriveConfig struct {
	Folder string `koanf:"folder"`
}

type JournalConfig struct {
	// Path of the SQLite run journal. Empty disables journaling.
	Path string `koanf:"path"`
}

// Load reads configuration from the optional YAML file at path, then from
// NEXUS_-prefixed environment variables (NEXUS_RETRY_ATTEMPTS -> retry.attempts),
// and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")
	k.Set("retry.attempts", 3)
	k.Set("retry.delay", 500)
	k.Set("rate.rps", 2.0)
	k.Set("action.timeout", 30)
	k.Set("live.enabled", false)
	k.Set("zoho.accounts", "https://accounts.zoho.com")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("NEXUS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "NEXUS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and cross-field requirements. It reports every
// offending key, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Retry.Attempts < 1 || c.Retry.Attempts > 10 {
		problems = append(problems, fmt.Sprintf("retry.attempts must be in [1,10], got %d", c.Retry.Attempts))
	}
	if c.Retry.Delay <= 0 {
		problems = append(problems, fmt.Sprintf("retry.delay must be positive milliseconds, got %d", c.Retry.Delay))
	}
	if c.Rate.RPS < ratelimit.MinRate {
		problems = append(problems, fmt.Sprintf("rate.rps must be at least %.1f, got %g", ratelimit.MinRate, c.Rate.RPS))
	}
	if c.Action.Timeout < 0 {
		problems = append(problems, fmt.Sprintf("action.timeout must not be negative, got %d", c.Action.Timeout))
	}

	if c.Live.Enabled {
		for _, req := range []struct{ key, val string }{
			{"zoho.client", c.Zoho.Client},
			{"zoho.secret", c.Zoho.Secret},
			{"zoho.refresh", c.Zoho.Refresh},
			{"zoho.portal", c.Zoho.Portal},
			{"zoho.project", c.Zoho.Project},
		} {
			if req.val == "" {
				problems = append(problems, fmt.Sprintf("%s is required when live.enabled is true", req.key))
			}
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeInvalidInput,
			"invalid configuration: "+strings.Join(problems, "; "), nil)
	}
	return nil
}
