// Copyright (c) 2026, The shipit project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package session records the events of a single deploy run
package session

import (
	"sync"
	"time"

	"github.com/shipit-project/shipit/model"
)

// MemorySessionStore stores step events in memory for a deploy session
type MemorySessionStore struct {
	start  time.Time
	events []model.SessionEvent
	log    model.Logger
	mu     sync.Mutex
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore(logger model.Logger) (*MemorySessionStore, error) {
	logger.Debug("Creating new session store")
	return &MemorySessionStore{
		log:    logger,
		events: make([]model.SessionEvent, 0),
	}, nil
}

// StartSession clears the event log and starts a new session
func (s *MemorySessionStore) StartSession(workDir string, steps int) error {
	s.mu.Lock()
	s.events = make([]model.SessionEvent, 0)
	s.mu.Unlock()

	s.log.Info("Creating new session record", "workdir", workDir, "steps", steps)

	start := model.NewDeployStartEvent(workDir, steps)
	s.start = start.TimeStamp

	return s.RecordEvent(start)
}

// RecordEvent adds an event to the session and updates metrics
func (s *MemorySessionStore) RecordEvent(event model.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updateMetrics(event)

	s.events = append(s.events, event)

	return nil
}

// Summary builds the summary of the session so far
func (s *MemorySessionStore) Summary() (*model.DeploySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.BuildDeploySummary(s.events), nil
}

// EventsForStep returns all events recorded for a named step in time order
func (s *MemorySessionStore) EventsForStep(step string) ([]model.StepEvent, error) {
	allEvents, err := s.AllEvents()
	if err != nil {
		return nil, err
	}

	var filtered []model.StepEvent
	for _, event := range allEvents {
		stepEvent, ok := event.(*model.StepEvent)
		if !ok {
			continue
		}

		if stepEvent.Step == step {
			filtered = append(filtered, *stepEvent)
		}
	}

	return filtered, nil
}

// AllEvents returns all recorded events in time order
func (s *MemorySessionStore) AllEvents() ([]model.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]model.SessionEvent, len(s.events))
	copy(events, s.events)

	return events, nil
}
