// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"time"
)

// ExtendedExecOptions control how a single command invocation is performed
type ExtendedExecOptions struct {
	Command     string
	Args        []string
	Cwd         string
	Environment []string
	Path        string
	Timeout     time.Duration
}

// CommandRunner executes external commands, a non zero exit code is not
// an error - callers branch on the returned code.  Errors indicate the
// command could not be run at all or was killed by its timeout
type CommandRunner interface {
	Execute(ctx context.Context, cmd string, args ...string) (stdout []byte, stderr []byte, exitCode int, err error)
	ExecuteWithOptions(ctx context.Context, opts ExtendedExecOptions) ([]byte, []byte, int, error)
}
