// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package watch runs deploys continuously, checking the repository on
// an interval and deploying whenever pending changes are found
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/choria-io/fisk"

	"github.com/shipit-project/shipit/config"
	"github.com/shipit-project/shipit/deploy"
	"github.com/shipit-project/shipit/internal/backoff"
	"github.com/shipit-project/shipit/internal/cmdrunner"
	"github.com/shipit-project/shipit/internal/facts"
	"github.com/shipit-project/shipit/metrics"
	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/notify"
	"github.com/shipit-project/shipit/templates"
)

const DefaultInterval = 5 * time.Minute
const MinInterval = 30 * time.Second
const DefaultMaxFactRefreshTries = 10
const MinFactUpdateInterval = 2 * time.Minute
const DefaultTriggerSubject = "shipit.deploy.trigger"

type Watcher struct {
	cfg               *Config
	log               model.Logger
	started           bool
	refreshTries      int
	previousFacts     map[string]any
	previousFactsTime time.Time
	trigger           chan struct{}
	publisher         *notify.Publisher

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
}

// New creates a new watcher
func New(cfg *Config, opts ...Option) (*Watcher, error) {
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:          cfg,
		log:          logger,
		trigger:      make(chan struct{}, 1),
		refreshTries: DefaultMaxFactRefreshTries,
	}

	for _, opt := range opts {
		err := opt(w)
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) Run(ctx context.Context, wg *sync.WaitGroup) error {
	defer wg.Done()

	w.log.Warn("Starting watcher", "interval", w.cfg.intervalDuration, "workdir", w.cfg.WorkDir)

	if w.cfg.MonitorPort > 0 {
		metrics.RegisterMetrics()
		metrics.ListenAndServe(w.cfg.MonitorPort, w.log)
	}

	w.mu.Lock()

	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("already started")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	defer w.cancel()
	w.started = true

	w.mu.Unlock()

	if w.cfg.NatsContext != "" {
		err := w.subscribeTriggers()
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.cfg.intervalDuration)

	for {
		select {
		case <-w.trigger:
			// remote triggers deploy even when the repository is clean
			metrics.WatchTriggerTotal.WithLabelValues(w.cfg.WorkDir).Inc()
			w.deployCycle(true)

		case <-ticker.C:
			w.deployCycle(false)

		case <-w.ctx.Done():
			w.cancel()

			if w.publisher != nil {
				w.publisher.Close()
			}

			w.log.Warn("Watcher stopped")

			return nil
		}
	}
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cancel()

	w.started = false
	w.ctx = nil
	w.cancel = nil

	return nil
}

func (w *Watcher) deployCycle(force bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := w.getFacts(w.ctx)

	cfg, err := w.loadDeployConfig(f)
	if err != nil {
		w.log.Error("Could not load deploy configuration", "error", err)
		return
	}

	if !force {
		pending, err := w.pendingChanges(cfg)
		if err != nil {
			w.log.Error("Could not check for pending changes", "error", err)
			return
		}

		if !pending {
			w.log.Debug("No pending changes, skipping deploy", "workdir", cfg.WorkDir)
			metrics.WatchSkippedTotal.WithLabelValues(cfg.WorkDir).Inc()
			return
		}
	}

	w.log.Info("Starting deploy", "workdir", cfg.WorkDir, "forced", force)
	metrics.WatchDeployTotal.WithLabelValues(cfg.WorkDir).Inc()

	opts := []deploy.Option{deploy.WithFacts(f)}

	notifier, err := w.notifier(cfg)
	if err != nil {
		w.log.Warn("Could not create event notifier, continuing without", "error", err)
	} else if notifier != nil {
		opts = append(opts, deploy.WithNotifier(notifier))
	}

	d, err := deploy.New(cfg, w.log, w.log, opts...)
	if err != nil {
		w.log.Error("Could not create deployer", "error", err)
		return
	}

	summary, err := d.Run(w.ctx)
	if err != nil {
		w.log.Error("Deploy failed", "error", err)
		return
	}

	w.log.Info("Deploy finished", "duration", summary.TotalDuration.Round(time.Millisecond), "steps", summary.TotalSteps)
}

// loadDeployConfig loads the deploy configuration fresh for every
// cycle so edits are picked up without restarting the watcher
func (w *Watcher) loadDeployConfig(f map[string]any) (*config.Config, error) {
	environ := make(map[string]string)
	for _, line := range os.Environ() {
		key, value, ok := strings.Cut(line, "=")
		if ok {
			environ[key] = value
		}
	}

	env := &templates.Env{Facts: f, Environ: environ}

	var cfg *config.Config
	var err error

	path := config.DiscoverPath(w.cfg.DeployConfig)

	switch {
	case path != "":
		cfg, err = config.Load(path, env)
		if err != nil {
			return nil, err
		}

		if w.cfg.WorkDir != "" {
			cfg.WorkDir = w.cfg.WorkDir
		}

	case w.cfg.WorkDir != "":
		cfg = config.NewDefaultConfig(w.cfg.WorkDir)

	default:
		return nil, fmt.Errorf("%w: no deploy configuration found and no workdir given", model.ErrConfigInvalid)
	}

	return cfg, nil
}

// pendingChanges checks the repository for uncommitted changes, the
// deploy itself is only started when there are some
func (w *Watcher) pendingChanges(cfg *config.Config) (bool, error) {
	runner, err := cmdrunner.NewCommandRunner(cfg.WorkDir, w.log.With("component", "runner"))
	if err != nil {
		return false, err
	}

	timeout, err := fisk.ParseDuration(cfg.Timeouts.Status)
	if err != nil {
		return false, err
	}

	stdout, stderr, exitCode, err := runner.ExecuteWithOptions(w.ctx, model.ExtendedExecOptions{
		Command: "git",
		Args:    []string{"status", "--porcelain"},
		Timeout: timeout,
	})
	if err != nil {
		return false, err
	}
	if exitCode != 0 {
		return false, fmt.Errorf("git status failed with exit code %d: %s", exitCode, bytes.TrimSpace(stderr))
	}

	return len(bytes.TrimSpace(stdout)) > 0, nil
}

func (w *Watcher) notifier(cfg *config.Config) (deploy.Notifier, error) {
	if cfg.Notify.NatsContext == "" {
		return nil, nil
	}

	if w.publisher != nil {
		return w.publisher, nil
	}

	publisher, err := notify.NewPublisher(cfg.Notify.NatsContext, cfg.Notify.Subject, w.log.With("component", "notify"))
	if err != nil {
		return nil, err
	}

	err = publisher.Connect(w.ctx)
	if err != nil {
		return nil, err
	}

	w.publisher = publisher

	return w.publisher, nil
}

// lock must be held before calling
func (w *Watcher) getFacts(ctx context.Context) map[string]any {
	if w.previousFacts != nil && time.Since(w.previousFactsTime) < MinFactUpdateInterval {
		w.log.Debug(fmt.Sprintf("Skipping facts refresh, last refresh was less than %v ago", MinFactUpdateInterval))
		return w.previousFacts
	}

	backoff.Default.For(ctx, func(try int) error {
		log := w.log.With("try", try)

		if try > w.refreshTries && w.previousFacts != nil {
			log.Info("Using previous facts after repeated failures")
			return nil
		}

		log.Info("Refreshing facts")
		f, err := facts.StandardFacts(ctx, w.log)
		if err != nil {
			log.Error("Could not get system facts", "error", err)
			return err
		}

		w.previousFacts = f
		w.previousFactsTime = time.Now()

		return nil
	})

	return w.previousFacts
}
