// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/choria-io/fisk"

	"github.com/shipit-project/shipit/internal/cmdrunner"
	"github.com/shipit-project/shipit/model"
)

type statusCommand struct {
	workDir    string
	configFile string
}

func registerStatusCommand(app *fisk.Application) {
	cmd := &statusCommand{}

	status := app.Command("status", "Shows pending repository changes").Action(cmd.statusAction)
	status.Arg("workdir", "Repository to inspect").ExistingDirVar(&cmd.workDir)
	status.Flag("config", "Configuration file to use").ExistingFileVar(&cmd.configFile)
}

func (c *statusCommand) statusAction(_ *fisk.ParseContext) error {
	logger := newLogger()

	env, err := templateEnv(false, logger)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.configFile, c.workDir, env)
	if err != nil {
		return err
	}

	runner, err := cmdrunner.NewCommandRunner(cfg.WorkDir, logger.With("component", "runner"))
	if err != nil {
		return err
	}

	timeout, err := fisk.ParseDuration(cfg.Timeouts.Status)
	if err != nil {
		return err
	}

	stdout, stderr, exitCode, err := runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command: "git",
		Args:    []string{"status", "--porcelain"},
		Timeout: timeout,
	})
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("git status failed with exit code %d: %s", exitCode, bytes.TrimSpace(stderr))
	}

	if len(bytes.TrimSpace(stdout)) == 0 {
		fmt.Printf("No pending changes in %s\n", cfg.WorkDir)
		return nil
	}

	fmt.Printf("Pending changes in %s:\n\n", cfg.WorkDir)

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		fmt.Printf("  %s\n", scanner.Text())
	}

	return nil
}
