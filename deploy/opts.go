// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"github.com/shipit-project/shipit/model"
)

// Option is a functional option for configuring a Deployer
type Option func(*Deployer) error

// WithRunner sets the command runner, mainly used by tests
func WithRunner(runner model.CommandRunner) Option {
	return func(d *Deployer) error {
		if runner == nil {
			return model.ErrNoRunner
		}

		d.runner = runner

		return nil
	}
}

// WithNoop enables noop mode, mutating steps are skipped and reported
func WithNoop() Option {
	return func(d *Deployer) error {
		d.noop = true

		return nil
	}
}

// WithNotifier sets a notifier that receives every recorded session event
func WithNotifier(n Notifier) Option {
	return func(d *Deployer) error {
		d.notifier = n

		return nil
	}
}

// WithFacts overrides fact gathering with a fixed fact set
func WithFacts(facts map[string]any) Option {
	return func(d *Deployer) error {
		d.facts = facts

		return nil
	}
}
