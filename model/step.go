// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"time"

	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"
	"github.com/kballard/go-shellquote"

	"github.com/shipit-project/shipit/templates"
)

const (
	// StepClassFatal marks a step whose failure aborts all later steps
	StepClassFatal = "fatal"
	// StepClassAdvisory marks a step whose failure is logged but does not change the deploy outcome
	StepClassAdvisory = "advisory"
)

// Well known step names for the fixed git sequence
const (
	StepStatus = "status"
	StepStage  = "stage"
	StepCommit = "commit"
	StepPush   = "push"
	StepRuns   = "runs"
)

// StepProperties describes a single external command invocation within
// a deploy pipeline
type StepProperties struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Command     string   `json:"command" yaml:"command"`
	Timeout     string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Advisory    bool     `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	SettleDelay string   `json:"settle_delay,omitempty" yaml:"settle_delay,omitempty"`
	Cwd         string   `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Environment []string `json:"environment,omitempty" yaml:"environment,omitempty"`
	// Mutating steps are skipped in noop mode, read-only steps still run
	Mutating     bool `json:"-" yaml:"-"`
	SkipValidate bool `json:"-" yaml:"-"`

	ParsedTimeout     time.Duration `json:"-" yaml:"-"`
	ParsedSettleDelay time.Duration `json:"-" yaml:"-"`
}

// Class returns the continuation class of the step
func (p *StepProperties) Class() string {
	if p.Advisory {
		return StepClassAdvisory
	}

	return StepClassFatal
}

// Argv splits the step command into a discrete argument vector, commands
// are never passed through a shell
func (p *StepProperties) Argv() ([]string, error) {
	words, err := shellquote.Split(p.Command)
	if err != nil {
		return nil, err
	}

	if len(words) == 0 {
		return nil, ErrStepCommandRequired
	}

	return words, nil
}

// Validate validates the step properties and parses its durations
func (p *StepProperties) Validate() error {
	if p.SkipValidate {
		return nil
	}

	if p.Name == "" {
		return fmt.Errorf("%w: %w", ErrStepInvalid, ErrStepNameRequired)
	}

	if p.Command == "" {
		return fmt.Errorf("%w: %w", ErrStepInvalid, ErrStepCommandRequired)
	}

	_, err := p.Argv()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStepInvalid, err)
	}

	if p.Timeout != "" {
		p.ParsedTimeout, err = fisk.ParseDuration(p.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStepInvalid, err)
		}
	}

	if p.SettleDelay != "" {
		p.ParsedSettleDelay, err = fisk.ParseDuration(p.SettleDelay)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStepInvalid, err)
		}
	}

	return nil
}

// ResolveTemplates resolves {{ expression }} placeholders in the step
// command and environment against the template environment
func (p *StepProperties) ResolveTemplates(env *templates.Env) error {
	val, err := templates.ResolveTemplateString(p.Command, env)
	if err != nil {
		return err
	}
	p.Command = val

	val, err = templates.ResolveTemplateString(p.Cwd, env)
	if err != nil {
		return err
	}
	p.Cwd = val

	for i, e := range p.Environment {
		val, err = templates.ResolveTemplateString(e, env)
		if err != nil {
			return err
		}
		p.Environment[i] = val
	}

	return nil
}

// ToYaml returns the step properties as a yaml document
func (p *StepProperties) ToYaml() (yaml.RawMessage, error) {
	return yaml.Marshal(p)
}
