// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"time"

	"github.com/choria-io/platcheck/model"
)

// MemorySessionStore stores check events in memory for a session
type MemorySessionStore struct {
	start  time.Time
	events []model.SessionEvent
	log    model.Logger
	mu     sync.Mutex
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore(logger model.Logger) (*MemorySessionStore, error) {
	logger.Debug("Creating new session store", "store", "memory")

	return &MemorySessionStore{
		log:    logger,
		events: make([]model.SessionEvent, 0),
	}, nil
}

// StartSession clears the event log and starts a new session for the given checkers
func (s *MemorySessionStore) StartSession(checkers []string) error {
	s.mu.Lock()
	s.events = make([]model.SessionEvent, 0)
	s.mu.Unlock()

	s.log.Info("Creating new session record", "checkers", len(checkers), "store", "memory")
	start := newStartEvent(checkers)
	s.start = start.TimeStamp

	return s.RecordEvent(start)
}

// RecordEvent adds an event to the session
func (s *MemorySessionStore) RecordEvent(event model.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updateMetrics(event)

	s.events = append(s.events, event)

	return nil
}

func (s *MemorySessionStore) StopSession(destroy bool) (*model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := model.BuildSessionSummary(s.events)

	if destroy {
		s.events = make([]model.SessionEvent, 0)
	}

	return summary, nil
}

// EventsForChecker returns all check events recorded by a checker, latest event at the end
func (s *MemorySessionStore) EventsForChecker(checker string) ([]model.CheckEvent, error) {
	allEvents, err := s.AllEvents()
	if err != nil {
		return nil, err
	}

	return filterEvents(allEvents, checker), nil
}

// AllEvents returns all events in the session in time order
func (s *MemorySessionStore) AllEvents() ([]model.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventsCopy := make([]model.SessionEvent, len(s.events))
	copy(eventsCopy, s.events)

	return eventsCopy, nil
}
