// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shipit-project/shipit/model"
)

var (
	NameSpace = "shipit"
	Subsystem = "deploy"

	// DeployRunTime is a summary of the time taken to run an entire deploy pipeline
	DeployRunTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "run_duration_seconds"),
		Help: "Time taken to run an entire deploy pipeline",
	}, []string{"workdir"})

	// StepRunTime is a summary of the time taken by a particular step
	StepRunTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "step_duration_seconds"),
		Help: "Time taken to run a particular step",
	}, []string{"step", "class"})

	// StepTotal counts how many steps were processed
	StepTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "step_total_count"),
		Help: "How many steps were processed",
	}, []string{"step", "class"})

	// StepFailed counts how many steps failed
	StepFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "step_failed_count"),
		Help: "How many steps failed",
	}, []string{"step", "class"})

	// StepSkipped counts how many steps were skipped after a fatal failure
	StepSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "step_skipped_count"),
		Help: "How many steps were skipped",
	}, []string{"step", "class"})

	// StepTimedOut counts how many steps were killed by their timeout
	StepTimedOut = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "step_timeout_count"),
		Help: "How many steps were killed by their timeout",
	}, []string{"step", "class"})

	// StepNoop counts how many steps were skipped in noop mode
	StepNoop = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "step_noop_count"),
		Help: "How many steps were in noop mode",
	}, []string{"step", "class"})

	// FactGatherTime is a summary of the time taken to gather facts
	FactGatherTime = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "facts_gather_duration_seconds"),
		Help: "Time taken to gather facts",
	}, []string{})

	// NotifyPublishFailed counts failed event notifications
	NotifyPublishFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, Subsystem, "notify_publish_error_count"),
		Help: "How many event notifications failed to publish",
	}, []string{"subject"})

	// WatchDeployTotal counts deploys started by the watcher
	WatchDeployTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, "watch", "deploy_count"),
		Help: "How many deploys the watcher started",
	}, []string{"workdir"})

	// WatchSkippedTotal counts watcher cycles skipped on a clean repository
	WatchSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, "watch", "skipped_count"),
		Help: "How many watcher cycles found no pending changes",
	}, []string{"workdir"})

	// WatchTriggerTotal counts deploys started by remote triggers
	WatchTriggerTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prometheus.BuildFQName(NameSpace, "watch", "trigger_count"),
		Help: "How many deploys were started by remote triggers",
	}, []string{"workdir"})
)

func RegisterMetrics() {
	prometheus.MustRegister(DeployRunTime)
	prometheus.MustRegister(StepRunTime)
	prometheus.MustRegister(StepTotal)
	prometheus.MustRegister(StepFailed)
	prometheus.MustRegister(StepSkipped)
	prometheus.MustRegister(StepTimedOut)
	prometheus.MustRegister(StepNoop)
	prometheus.MustRegister(FactGatherTime)
	prometheus.MustRegister(NotifyPublishFailed)
	prometheus.MustRegister(WatchDeployTotal)
	prometheus.MustRegister(WatchSkippedTotal)
	prometheus.MustRegister(WatchTriggerTotal)
}

func ListenAndServe(port int, log model.Logger) {
	if port <= 0 {
		return
	}

	go func() {
		log.Info("Starting monitoring server", "port", port)
		http.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
		if err != nil {
			log.Error("HTTP Listener failed", "error", err)
		}
	}()
}
