// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/shipit-project/shipit/model"
	"github.com/shipit-project/shipit/templates"
)

// pipeline builds the step sequence, optional pre steps, the fixed git
// sequence, the workflow runs check and optional post steps.  The
// commit and runs steps are advisory, their failure does not abort the
// deploy
func (d *Deployer) pipeline(env *templates.Env) ([]*model.StepProperties, error) {
	message, err := templates.ResolveTemplateString(d.cfg.CommitMessage, env)
	if err != nil {
		return nil, fmt.Errorf("resolving commit message: %w", err)
	}

	var steps []*model.StepProperties

	for _, step := range d.cfg.PreSteps {
		step.Mutating = true
		steps = append(steps, step)
	}

	pushCommand := "git push"
	if d.cfg.PushArgs != "" {
		pushCommand = strings.TrimSpace(pushCommand + " " + d.cfg.PushArgs)
	}

	steps = append(steps,
		&model.StepProperties{
			Name:        model.StepStatus,
			Description: "Checking repository status",
			Command:     "git status --porcelain",
			Timeout:     d.cfg.Timeouts.Status,
		},
		&model.StepProperties{
			Name:        model.StepStage,
			Description: "Staging pending changes",
			Command:     "git add .",
			Timeout:     d.cfg.Timeouts.Stage,
			Mutating:    true,
		},
		&model.StepProperties{
			Name:        model.StepCommit,
			Description: "Committing staged changes",
			Command:     shellquote.Join("git", "commit", "-m", message),
			Timeout:     d.cfg.Timeouts.Commit,
			// a failed commit is indistinguishable from nothing to
			// commit so it never aborts the deploy
			Advisory: true,
			Mutating: true,
		},
		&model.StepProperties{
			Name:        model.StepPush,
			Description: "Pushing changes to the remote",
			Command:     pushCommand,
			Timeout:     d.cfg.Timeouts.Push,
			Mutating:    true,
		},
	)

	if !d.cfg.SkipRunsCheck {
		steps = append(steps, &model.StepProperties{
			Name:        model.StepRuns,
			Description: "Checking workflow runs",
			Command:     fmt.Sprintf("gh run list --limit %d", d.cfg.RunsLimit),
			Timeout:     d.cfg.Timeouts.Runs,
			SettleDelay: d.cfg.SettleDelay,
			Advisory:    true,
		})
	}

	for _, step := range d.cfg.PostSteps {
		step.Mutating = true
		steps = append(steps, step)
	}

	for _, step := range steps {
		err = step.ResolveTemplates(env)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}

		err = step.Validate()
		if err != nil {
			return nil, err
		}
	}

	return steps, nil
}
