// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"fmt"
	"time"
)

type Option func(w *Watcher) error

func WithInterval(i time.Duration) Option {
	return func(w *Watcher) error {
		if i < MinInterval {
			return fmt.Errorf("watch interval must be at least %v", MinInterval)
		}

		w.cfg.intervalDuration = i
		return nil
	}
}

func WithWorkDir(dir string) Option {
	return func(w *Watcher) error {
		w.cfg.WorkDir = dir
		return nil
	}
}

func WithDeployConfig(path string) Option {
	return func(w *Watcher) error {
		w.cfg.DeployConfig = path
		return nil
	}
}
