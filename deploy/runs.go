// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/shipit-project/shipit/model"
)

// WorkflowRun is a single hosted workflow run as reported by the gh cli
type WorkflowRun struct {
	ID         int64     `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Status     string    `json:"status" yaml:"status"`
	Conclusion string    `json:"conclusion,omitempty" yaml:"conclusion,omitempty"`
	Branch     string    `json:"branch" yaml:"branch"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

const workflowRunFields = "databaseId,name,status,conclusion,headBranch,createdAt"

// WorkflowRuns lists the most recent workflow runs for the repository
// the runner operates on
func WorkflowRuns(ctx context.Context, runner model.CommandRunner, limit int, timeout time.Duration) ([]WorkflowRun, error) {
	stdout, stderr, exitCode, err := runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command: "gh",
		Args:    []string{"run", "list", "--limit", strconv.Itoa(limit), "--json", workflowRunFields},
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs: %w", err)
	}

	if exitCode != 0 {
		return nil, fmt.Errorf("listing workflow runs: gh exited %d: %s", exitCode, strings.TrimSpace(string(stderr)))
	}

	return parseWorkflowRuns(stdout)
}

func parseWorkflowRuns(jb []byte) ([]WorkflowRun, error) {
	parsed := gjson.ParseBytes(jb)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("unexpected workflow run list output")
	}

	var runs []WorkflowRun

	for _, item := range parsed.Array() {
		run := WorkflowRun{
			ID:         item.Get("databaseId").Int(),
			Name:       item.Get("name").String(),
			Status:     item.Get("status").String(),
			Conclusion: item.Get("conclusion").String(),
			Branch:     item.Get("headBranch").String(),
		}

		created := item.Get("createdAt").String()
		if created != "" {
			t, err := time.Parse(time.RFC3339, created)
			if err == nil {
				run.CreatedAt = t
			}
		}

		runs = append(runs, run)
	}

	return runs, nil
}
