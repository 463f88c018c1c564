// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
)

var (
	ErrStepInvalid         = errors.New("invalid step")
	ErrStepNameRequired    = errors.New("name is required")
	ErrStepCommandRequired = errors.New("command is required")
	ErrWorkDirRequired     = errors.New("workdir is required")
	ErrWorkDirNotFound     = errors.New("workdir does not exist")
	ErrNoRunner            = errors.New("no command runner configured")
	ErrDeployFailed        = errors.New("deploy failed")
	ErrConfigInvalid       = errors.New("invalid configuration")
)
