// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	"github.com/shipit-project/shipit/deploy"
	"github.com/shipit-project/shipit/internal/cmdrunner"
)

type runsCommand struct {
	workDir    string
	configFile string
	limit      int
	yamlFormat bool
}

func registerRunsCommand(app *fisk.Application) {
	cmd := &runsCommand{}

	runs := app.Command("runs", "Shows recent hosted workflow runs").Action(cmd.runsAction)
	runs.Arg("workdir", "Repository to inspect").ExistingDirVar(&cmd.workDir)
	runs.Flag("config", "Configuration file to use").ExistingFileVar(&cmd.configFile)
	runs.Flag("limit", "How many runs to list").IntVar(&cmd.limit)
	runs.Flag("yaml", "Output runs in YAML format").UnNegatableBoolVar(&cmd.yamlFormat)
}

func (c *runsCommand) runsAction(_ *fisk.ParseContext) error {
	logger := newLogger()

	env, err := templateEnv(false, logger)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.configFile, c.workDir, env)
	if err != nil {
		return err
	}

	if c.limit > 0 {
		cfg.RunsLimit = c.limit
	}

	runner, err := cmdrunner.NewCommandRunner(cfg.WorkDir, logger.With("component", "runner"))
	if err != nil {
		return err
	}

	timeout, err := fisk.ParseDuration(cfg.Timeouts.Runs)
	if err != nil {
		return err
	}

	runs, err := deploy.WorkflowRuns(ctx, runner, cfg.RunsLimit, timeout)
	if err != nil {
		return err
	}

	if c.yamlFormat {
		y, err := yaml.Marshal(runs)
		if err != nil {
			return err
		}

		fmt.Println(string(y))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No workflow runs found")
		return nil
	}

	for _, run := range runs {
		state := run.Status
		if run.Conclusion != "" {
			state = run.Conclusion
		}

		fmt.Printf("%12d  %-10s  %-20s  %s (%s)\n", run.ID, state, run.CreatedAt.Format(time.RFC3339), run.Name, run.Branch)
	}

	return nil
}
