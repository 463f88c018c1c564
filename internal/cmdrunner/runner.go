// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package cmdrunner executes external commands like git and gh with
// wall clock timeouts, capturing their output and exit status
package cmdrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/shipit-project/shipit/model"
)

// CommandRunner executes system commands and captures their output
type CommandRunner struct {
	workDir string
	logger  model.Logger
}

// NewCommandRunner creates a new CommandRunner, commands run from
// workDir unless an invocation overrides it
func NewCommandRunner(workDir string, log model.Logger) (*CommandRunner, error) {
	if workDir == "" {
		return nil, model.ErrWorkDirRequired
	}

	return &CommandRunner{workDir: workDir, logger: log}, nil
}

func (c *CommandRunner) ExecuteWithOptions(ctx context.Context, opts model.ExtendedExecOptions) ([]byte, []byte, int, error) {
	if opts.Command == "" {
		return nil, nil, -1, errors.New("command not specified")
	}

	logOpts := []any{
		"command", opts.Command, "args", opts.Args,
	}
	if opts.Cwd != "" {
		logOpts = append(logOpts, "cwd", opts.Cwd)
	}

	c.logger.Debug("Running command", logOpts...)

	toCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		toCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(toCtx, opts.Command, opts.Args...)

	// git and gh need the caller environment for credentials and agents,
	// tool output is normalized to the C locale
	cmd.Env = append(os.Environ(), "LANG=C", "LC_ALL=C")
	cmd.Env = append(cmd.Env, opts.Environment...)

	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	} else {
		cmd.Dir = c.workDir
	}

	if opts.Path != "" {
		cmd.Path = opts.Path
	}

	stdout := bytes.NewBuffer([]byte{})
	stderr := bytes.NewBuffer([]byte{})

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if toCtx.Err() != nil && ctx.Err() == nil {
		return stdout.Bytes(), stderr.Bytes(), exitCode, fmt.Errorf("command timed out after %v: %w", opts.Timeout, context.DeadlineExceeded)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// exit codes >0 are not errors, callers branch on the code
		if exitCode > 0 {
			return stdout.Bytes(), stderr.Bytes(), exitCode, nil
		}

		return stdout.Bytes(), stderr.Bytes(), exitCode, err
	}

	if err != nil {
		return stdout.Bytes(), stderr.Bytes(), exitCode, err
	}

	return stdout.Bytes(), stderr.Bytes(), exitCode, nil
}

// Execute runs a command with the given arguments and returns stdout, stderr, exit code, and any error
func (c *CommandRunner) Execute(ctx context.Context, command string, args ...string) ([]byte, []byte, int, error) {
	return c.ExecuteWithOptions(ctx, model.ExtendedExecOptions{Command: command, Args: args})
}
