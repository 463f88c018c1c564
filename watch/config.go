// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/SladkyCitron/slogcolor"
	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	"github.com/shipit-project/shipit/deploy"
	iu "github.com/shipit-project/shipit/internal/util"
	"github.com/shipit-project/shipit/model"
)

// Config holds the watcher configuration
type Config struct {
	// Interval is the time between repository checks (e.g. "5m", "1h").
	// Must be at least MinInterval. Defaults to DefaultInterval.
	Interval         string `yaml:"interval"`
	intervalDuration time.Duration

	// WorkDir is the repository to watch and deploy from, overrides the
	// workdir in the deploy configuration when set
	WorkDir string `yaml:"workdir"`

	// DeployConfig is the path to the deploy configuration file, when
	// empty the usual discovery order applies
	DeployConfig string `yaml:"deploy_config"`

	// MonitorPort is the port to listen on for accessing Prometheus stats
	MonitorPort int `yaml:"monitor_port"`

	// LogLevel is the log level to use
	// Valid values: debug, info, warn, error
	LogLevel string `yaml:"log_level"`

	// NatsContext is the NATS context used to listen for remote deploy
	// triggers, triggers are disabled when empty
	NatsContext string `yaml:"nats_context"`

	// TriggerSubject is the subject remote deploy triggers arrive on
	TriggerSubject string `yaml:"trigger_subject"`
}

func ParseConfig(c []byte) (*Config, error) {
	cfg := &Config{
		intervalDuration: DefaultInterval,
		LogLevel:         "info",
		TriggerSubject:   DefaultTriggerSubject,
	}

	err := yaml.Unmarshal(c, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Interval != "" {
		cfg.intervalDuration, err = fisk.ParseDuration(cfg.Interval)
		if err != nil {
			return nil, err
		}
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.intervalDuration <= 0 {
		return fmt.Errorf("interval must be set")
	}

	if c.intervalDuration < MinInterval {
		return fmt.Errorf("interval must be at least %v", MinInterval)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

func (c *Config) NewLogger() (model.Logger, error) {
	var level slog.Level

	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	if iu.IsTerminal() {
		return deploy.NewSlogLogger(
			slog.New(
				slogcolor.NewHandler(os.Stdout, &slogcolor.Options{
					Level: level,
				}))), nil
	} else {
		return deploy.NewSlogLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))), nil
	}
}
