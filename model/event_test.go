// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Events", func() {
	Describe("NewStepEvent", func() {
		It("Should copy the step identity and class", func() {
			step := &StepProperties{Name: StepCommit, Command: "git commit -m msg", Advisory: true}

			event := NewStepEvent(step)

			Expect(event.Protocol).To(Equal(StepEventProtocol))
			Expect(event.EventID).ToNot(BeEmpty())
			Expect(event.Step).To(Equal(StepCommit))
			Expect(event.Command).To(Equal("git commit -m msg"))
			Expect(event.Class).To(Equal(StepClassAdvisory))
		})
	})

	Describe("BuildDeploySummary", func() {
		It("Should count outcomes and track overall success", func() {
			start := time.Now().UTC()
			events := []SessionEvent{
				&DeployStartEvent{Protocol: DeployStartEventProtocol, TimeStamp: start, Steps: 5},
				&StepEvent{Step: StepStatus, Class: StepClassFatal, TimeStamp: start, Duration: time.Second},
				&StepEvent{Step: StepStage, Class: StepClassFatal, TimeStamp: start.Add(time.Second), Duration: time.Second},
				&StepEvent{Step: StepCommit, Class: StepClassAdvisory, Failed: true, TimeStamp: start.Add(2 * time.Second), Duration: time.Second},
				&StepEvent{Step: StepPush, Class: StepClassFatal, TimeStamp: start.Add(3 * time.Second), Duration: time.Second},
				&StepEvent{Step: StepRuns, Class: StepClassAdvisory, TimeStamp: start.Add(4 * time.Second), Duration: time.Second},
			}

			summary := BuildDeploySummary(events)

			Expect(summary.TotalSteps).To(Equal(5))
			Expect(summary.SucceededSteps).To(Equal(4))
			Expect(summary.AdvisoryFailures).To(Equal(1))
			Expect(summary.FailedSteps).To(Equal(0))
			Expect(summary.Success).To(BeTrue())
			Expect(summary.TotalDuration).To(Equal(5 * time.Second))
		})

		It("Should fail the deploy on a fatal step failure", func() {
			events := []SessionEvent{
				&StepEvent{Step: StepStatus, Class: StepClassFatal, Failed: true},
				&StepEvent{Step: StepStage, Class: StepClassFatal, Skipped: true},
				&StepEvent{Step: StepCommit, Class: StepClassAdvisory, Skipped: true},
				&StepEvent{Step: StepPush, Class: StepClassFatal, Skipped: true},
				&StepEvent{Step: StepRuns, Class: StepClassAdvisory, Skipped: true},
			}

			summary := BuildDeploySummary(events)

			Expect(summary.FailedSteps).To(Equal(1))
			Expect(summary.SkippedSteps).To(Equal(4))
			Expect(summary.Success).To(BeFalse())
		})

		It("Should count noop steps", func() {
			events := []SessionEvent{
				&StepEvent{Step: StepStage, Class: StepClassFatal, Noop: true},
			}

			summary := BuildDeploySummary(events)

			Expect(summary.NoopSteps).To(Equal(1))
			Expect(summary.Success).To(BeTrue())
		})
	})
})
