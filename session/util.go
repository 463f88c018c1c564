// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"github.com/shipit-project/shipit/metrics"
	"github.com/shipit-project/shipit/model"
)

func updateMetrics(event model.SessionEvent) {
	e, ok := event.(*model.StepEvent)
	if !ok {
		return
	}

	metrics.StepTotal.WithLabelValues(e.Step, e.Class).Inc()

	switch {
	case e.Noop:
		metrics.StepNoop.WithLabelValues(e.Step, e.Class).Inc()
	case e.Skipped:
		metrics.StepSkipped.WithLabelValues(e.Step, e.Class).Inc()
	case e.TimedOut:
		metrics.StepTimedOut.WithLabelValues(e.Step, e.Class).Inc()
		metrics.StepFailed.WithLabelValues(e.Step, e.Class).Inc()
	case e.Failed:
		metrics.StepFailed.WithLabelValues(e.Step, e.Class).Inc()
	}

	if !e.Skipped && !e.Noop {
		metrics.StepRunTime.WithLabelValues(e.Step, e.Class).Observe(e.Duration.Seconds())
	}
}
