// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/choria-io/fisk"

	"github.com/shipit-project/shipit/deploy"
	iu "github.com/shipit-project/shipit/internal/util"
	"github.com/shipit-project/shipit/metrics"
	"github.com/shipit-project/shipit/notify"
)

type deployCommand struct {
	workDir     string
	configFile  string
	message     string
	pushArgs    string
	natsContext string
	noop        bool
	skipRuns    bool
	readEnv     bool
	report      bool
	monitorPort int
}

func registerDeployCommand(app *fisk.Application) {
	cmd := &deployCommand{}

	dep := app.Command("deploy", "Commit and push pending changes").Action(cmd.deployAction)
	dep.Arg("workdir", "Repository to deploy from").ExistingDirVar(&cmd.workDir)
	dep.Flag("config", "Configuration file to use").ExistingFileVar(&cmd.configFile)
	dep.Flag("message", "Commit message, overrides the configured one").StringVar(&cmd.message)
	dep.Flag("push-args", "Extra arguments for git push").StringVar(&cmd.pushArgs)
	dep.Flag("context", "NATS context to publish deploy events with").StringVar(&cmd.natsContext)
	dep.Flag("noop", "Log mutating steps without running them").UnNegatableBoolVar(&cmd.noop)
	dep.Flag("skip-runs", "Skip the workflow runs check after pushing").UnNegatableBoolVar(&cmd.skipRuns)
	dep.Flag("env", "Read template data from a .env file").UnNegatableBoolVar(&cmd.readEnv)
	dep.Flag("report", "Print a deploy summary").Default("true").BoolVar(&cmd.report)
	dep.Flag("monitor", "Port to serve Prometheus metrics on").IntVar(&cmd.monitorPort)
}

func (c *deployCommand) deployAction(_ *fisk.ParseContext) error {
	logger := newLogger()

	env, err := templateEnv(c.readEnv, logger)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.configFile, c.workDir, env)
	if err != nil {
		return err
	}

	if c.message != "" {
		cfg.CommitMessage = c.message
	}
	if c.pushArgs != "" {
		cfg.PushArgs = c.pushArgs
	}
	if c.skipRuns {
		cfg.SkipRunsCheck = true
	}
	if c.natsContext != "" {
		cfg.Notify.NatsContext = c.natsContext
	}
	if c.monitorPort > 0 {
		cfg.MonitorPort = c.monitorPort
	}

	// fail before the pipeline starts rather than mid-sequence
	tools := []string{"git"}
	if !cfg.SkipRunsCheck {
		tools = append(tools, "gh")
	}
	for _, tool := range tools {
		_, ok, _ := iu.ExecutableInPath(tool)
		if !ok {
			return fmt.Errorf("required command %q was not found in PATH", tool)
		}
	}

	metrics.RegisterMetrics()
	metrics.ListenAndServe(cfg.MonitorPort, logger)

	var opts []deploy.Option

	if c.noop {
		opts = append(opts, deploy.WithNoop())
	}

	if cfg.Notify.NatsContext != "" {
		publisher, err := notify.NewPublisher(cfg.Notify.NatsContext, cfg.Notify.Subject, logger.With("component", "notify"))
		if err != nil {
			return err
		}

		err = publisher.Connect(ctx)
		if err != nil {
			return err
		}
		defer publisher.Close()

		opts = append(opts, deploy.WithNotifier(publisher))
	}

	d, _, err := newDeployer(cfg, env, opts...)
	if err != nil {
		return err
	}

	summary, err := d.Run(ctx)
	if err != nil && summary == nil {
		return err
	}

	if c.report {
		fmt.Println()
		fmt.Println("Deploy Summary")
		fmt.Println()
		fmt.Printf("           Run Time: %v\n", summary.TotalDuration.Round(time.Millisecond))
		fmt.Printf("        Total Steps: %d\n", summary.TotalSteps)
		fmt.Printf("    Succeeded Steps: %d\n", summary.SucceededSteps)
		fmt.Printf("       Failed Steps: %d\n", summary.FailedSteps)
		fmt.Printf("  Advisory Failures: %d\n", summary.AdvisoryFailures)
		fmt.Printf("      Skipped Steps: %d\n", summary.SkippedSteps)
		fmt.Printf("         Noop Steps: %d\n", summary.NoopSteps)
	}

	return err
}
