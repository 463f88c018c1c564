// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
)

const StepEventProtocol = "io.shipit.v1.step.event"
const DeployStartEventProtocol = "io.shipit.v1.deploy.start"

// SessionEvent is any event recorded against a deploy session
type SessionEvent interface {
	SessionEventID() string
	String() string
}

// StepEvent represents the outcome of a single step in a deploy session
type StepEvent struct {
	Protocol  string        `json:"protocol" yaml:"protocol"`
	EventID   string        `json:"event_id" yaml:"event_id"`
	TimeStamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Step      string        `json:"step" yaml:"step"`
	Command   string        `json:"command" yaml:"command"`
	Class     string        `json:"class" yaml:"class"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	ExitCode  *int          `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	Stdout    string        `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty" yaml:"stderr,omitempty"`

	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	NoopMessage string `json:"noop_message,omitempty" yaml:"noop_message,omitempty"`
	Failed      bool   `json:"failed" yaml:"failed"`
	Skipped     bool   `json:"skipped" yaml:"skipped"`
	TimedOut    bool   `json:"timed_out" yaml:"timed_out"`
	Noop        bool   `json:"noop" yaml:"noop"`
}

// DeployStartEvent marks the start of a deploy session
type DeployStartEvent struct {
	Protocol  string    `json:"protocol" yaml:"protocol"`
	EventID   string    `json:"event_id" yaml:"event_id"`
	TimeStamp time.Time `json:"timestamp" yaml:"timestamp"`
	WorkDir   string    `json:"workdir" yaml:"workdir"`
	Steps     int       `json:"steps" yaml:"steps"`
}

func NewDeployStartEvent(workDir string, steps int) *DeployStartEvent {
	return &DeployStartEvent{
		Protocol:  DeployStartEventProtocol,
		EventID:   ksuid.New().String(),
		TimeStamp: time.Now().UTC(),
		WorkDir:   workDir,
		Steps:     steps,
	}
}

func (e *DeployStartEvent) SessionEventID() string { return e.EventID }

func (e *DeployStartEvent) String() string {
	return fmt.Sprintf("Deploy session started in %s with %d steps", e.WorkDir, e.Steps)
}

func NewStepEvent(step *StepProperties) *StepEvent {
	return &StepEvent{
		Protocol:  StepEventProtocol,
		EventID:   ksuid.New().String(),
		TimeStamp: time.Now().UTC(),
		Step:      step.Name,
		Command:   step.Command,
		Class:     step.Class(),
	}
}

func (e *StepEvent) SessionEventID() string { return e.EventID }

func (e *StepEvent) String() string {
	switch {
	case e.Skipped:
		return fmt.Sprintf("Step %s skipped", e.Step)
	case e.Noop:
		return fmt.Sprintf("Step %s (noop) %s", e.Step, e.NoopMessage)
	case e.TimedOut:
		return fmt.Sprintf("Step %s timed out after %v", e.Step, e.Duration.Round(time.Millisecond))
	case e.Failed:
		return fmt.Sprintf("Step %s failed", e.Step)
	default:
		return fmt.Sprintf("Step %s succeeded in %v", e.Step, e.Duration.Round(time.Millisecond))
	}
}

// DeploySummary summarises a completed deploy session
type DeploySummary struct {
	TotalDuration    time.Duration `json:"total_duration" yaml:"total_duration"`
	TotalSteps       int           `json:"total_steps" yaml:"total_steps"`
	SucceededSteps   int           `json:"succeeded_steps" yaml:"succeeded_steps"`
	FailedSteps      int           `json:"failed_steps" yaml:"failed_steps"`
	AdvisoryFailures int           `json:"advisory_failures" yaml:"advisory_failures"`
	SkippedSteps     int           `json:"skipped_steps" yaml:"skipped_steps"`
	NoopSteps        int           `json:"noop_steps" yaml:"noop_steps"`
	Success          bool          `json:"success" yaml:"success"`
}

// BuildDeploySummary builds a summary from recorded session events, the
// session succeeded when no fatal step failed
func BuildDeploySummary(events []SessionEvent) *DeploySummary {
	summary := &DeploySummary{Success: true}

	var start time.Time
	var last time.Time

	for _, event := range events {
		switch e := event.(type) {
		case *DeployStartEvent:
			start = e.TimeStamp

		case *StepEvent:
			summary.TotalSteps++
			if e.TimeStamp.After(last) {
				last = e.TimeStamp.Add(e.Duration)
			}

			switch {
			case e.Skipped:
				summary.SkippedSteps++
			case e.Noop:
				summary.NoopSteps++
			case e.Failed && e.Class == StepClassAdvisory:
				summary.AdvisoryFailures++
			case e.Failed:
				summary.FailedSteps++
				summary.Success = false
			default:
				summary.SucceededSteps++
			}
		}
	}

	if !start.IsZero() && last.After(start) {
		summary.TotalDuration = last.Sub(start)
	}

	return summary
}
