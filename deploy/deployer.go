// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package deploy runs the fixed deploy pipeline, checking the
// repository, staging and committing pending changes, pushing them and
// finally checking the hosted workflow runs
package deploy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shipit-project/shipit/config"
	"github.com/shipit-project/shipit/internal/backoff"
	"github.com/shipit-project/shipit/internal/cmdrunner"
	"github.com/shipit-project/shipit/internal/facts"
	iu "github.com/shipit-project/shipit/internal/util"
	"github.com/shipit-project/shipit/metrics"
	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/session"
	"github.com/shipit-project/shipit/templates"
)

// Notifier receives every event recorded against the deploy session
type Notifier interface {
	PublishEvent(event model.SessionEvent) error
}

// Deployer sequences the deploy pipeline steps
type Deployer struct {
	cfg      *config.Config
	log      model.Logger
	userLog  model.Logger
	runner   model.CommandRunner
	store    *session.MemorySessionStore
	notifier Notifier
	facts    map[string]any
	noop     bool
}

// New creates a new Deployer for the configured repository
func New(cfg *config.Config, log model.Logger, userLog model.Logger, opts ...Option) (*Deployer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	if !iu.IsDirectory(cfg.WorkDir) {
		return nil, fmt.Errorf("%w: %s", model.ErrWorkDirNotFound, cfg.WorkDir)
	}

	d := &Deployer{
		cfg:     cfg,
		log:     log,
		userLog: userLog,
	}

	for _, opt := range opts {
		err := opt(d)
		if err != nil {
			return nil, err
		}
	}

	if d.runner == nil {
		d.runner, err = cmdrunner.NewCommandRunner(cfg.WorkDir, log.With("component", "runner"))
		if err != nil {
			return nil, err
		}
	}

	if d.store == nil {
		d.store, err = session.NewMemorySessionStore(log.With("component", "session"))
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// TemplateEnvironment builds the template environment from host facts,
// configured data and the process environment
func (d *Deployer) TemplateEnvironment(ctx context.Context) (*templates.Env, error) {
	f := d.facts
	if f == nil {
		to, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		var err error
		f, err = facts.StandardFacts(to, d.log)
		if err != nil {
			return nil, err
		}
	}

	environ := make(map[string]string)
	for _, line := range os.Environ() {
		key, value, ok := strings.Cut(line, "=")
		if ok {
			environ[key] = value
		}
	}

	return &templates.Env{Facts: f, Data: d.cfg.Data, Environ: environ}, nil
}

// Session returns the session store holding the events of the last run
func (d *Deployer) Session() *session.MemorySessionStore {
	return d.store
}

// Run executes the pipeline, the returned summary is valid even when
// err is set.  A fatal step failure aborts all later steps and returns
// ErrDeployFailed, advisory failures only log warnings
func (d *Deployer) Run(ctx context.Context) (*model.DeploySummary, error) {
	timer := prometheus.NewTimer(metrics.DeployRunTime.WithLabelValues(d.cfg.WorkDir))
	defer timer.ObserveDuration()

	env, err := d.TemplateEnvironment(ctx)
	if err != nil {
		return nil, err
	}

	pipeline, err := d.pipeline(env)
	if err != nil {
		return nil, err
	}

	err = d.store.StartSession(d.cfg.WorkDir, len(pipeline))
	if err != nil {
		return nil, err
	}

	d.userLog.Info("Starting deploy", "workdir", d.cfg.WorkDir, "steps", len(pipeline), "noop", d.noop)

	aborted := false

	for _, step := range pipeline {
		event := model.NewStepEvent(step)

		switch {
		case aborted:
			d.log.Debug("Skipping step after fatal failure", "step", step.Name)
			event.Skipped = true

		case d.noop && step.Mutating:
			d.userLog.Info("Would have run step", "step", step.Name, "command", step.Command)
			event.Noop = true
			event.NoopMessage = fmt.Sprintf("Would have run %q", step.Command)

		default:
			d.runStep(ctx, step, event)
		}

		d.record(event)

		if event.Failed && step.Class() == model.StepClassFatal {
			aborted = true
		}
	}

	summary, err := d.store.Summary()
	if err != nil {
		return nil, err
	}

	if !summary.Success {
		return summary, fmt.Errorf("%w: %d fatal step failures", model.ErrDeployFailed, summary.FailedSteps)
	}

	d.userLog.Info("Deploy finished", "duration", summary.TotalDuration.Round(time.Millisecond), "steps", summary.TotalSteps, "advisory_failures", summary.AdvisoryFailures)

	return summary, nil
}

// runStep executes one step and fills in the outcome on event
func (d *Deployer) runStep(ctx context.Context, step *model.StepProperties, event *model.StepEvent) {
	if step.Description != "" {
		d.userLog.Info(step.Description)
	}

	if step.ParsedSettleDelay > 0 {
		d.log.Debug("Settling before step", "step", step.Name, "delay", step.ParsedSettleDelay)

		err := backoff.Default.Sleep(ctx, step.ParsedSettleDelay)
		if err != nil {
			event.Failed = true
			event.Error = err.Error()
			return
		}
	}

	argv, err := step.Argv()
	if err != nil {
		event.Failed = true
		event.Error = err.Error()
		return
	}

	start := time.Now()

	stdout, stderr, exitCode, err := d.runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command:     argv[0],
		Args:        argv[1:],
		Cwd:         step.Cwd,
		Environment: step.Environment,
		Timeout:     step.ParsedTimeout,
	})

	event.Duration = time.Since(start)
	event.Stdout = string(stdout)
	event.Stderr = string(stderr)
	event.ExitCode = &exitCode

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		event.Failed = true
		event.TimedOut = true
		event.Error = err.Error()

	case err != nil:
		event.Failed = true
		event.Error = err.Error()

	case exitCode != 0:
		event.Failed = true
		event.Error = fmt.Sprintf("exit code %d", exitCode)
	}

	d.logOutput(step, stdout, stderr)

	switch {
	case event.Failed && step.Class() == model.StepClassAdvisory:
		d.userLog.Warn("Advisory step failed, continuing", "step", step.Name, "error", event.Error)

	case event.Failed:
		d.userLog.Error("Step failed", "step", step.Name, "error", event.Error)

	default:
		d.log.Info("Step succeeded", "step", step.Name, "duration", event.Duration.Round(time.Millisecond))
	}
}

// logOutput surfaces captured command output to the user line by line
func (d *Deployer) logOutput(step *model.StepProperties, stdout []byte, stderr []byte) {
	log := d.userLog.With("step", step.Name)

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		log.Info(scanner.Text())
	}

	scanner = bufio.NewScanner(bytes.NewReader(stderr))
	for scanner.Scan() {
		log.Warn(scanner.Text())
	}
}

func (d *Deployer) record(event *model.StepEvent) {
	err := d.store.RecordEvent(event)
	if err != nil {
		d.log.Error("Could not record event", "step", event.Step, "error", err)
	}

	if d.notifier == nil {
		return
	}

	err = d.notifier.PublishEvent(event)
	if err != nil {
		d.log.Warn("Could not publish event notification", "step", event.Step, "error", err)
	}
}
