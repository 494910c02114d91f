// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/segmentio/ksuid"

	iu "github.com/choria-io/platcheck/internal/util"
	"github.com/choria-io/platcheck/model"
)

// DirectorySessionStore stores check events in a directory of files
type DirectorySessionStore struct {
	directory string
	log       model.Logger
	mu        sync.Mutex
}

// NewDirectorySessionStore creates a new directory of files based session store
func NewDirectorySessionStore(directory string, logger model.Logger) (*DirectorySessionStore, error) {
	if directory == "" {
		return nil, fmt.Errorf("session directory path cannot be empty")
	}

	absDir, err := filepath.Abs(filepath.Clean(directory))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	logger.Debug("Creating new session store", "store", "directory", "directory", absDir)

	return &DirectorySessionStore{
		log:       logger,
		directory: absDir,
	}, nil
}

func (s *DirectorySessionStore) StartSession(checkers []string) error {
	s.log.Info("Creating new session record", "checkers", len(checkers), "store", "directory")

	s.mu.Lock()
	err := os.MkdirAll(s.directory, 0700)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	return s.RecordEvent(newStartEvent(checkers))
}

// EventsForChecker returns all check events for a checker sorted in time order with latest event at the end
func (s *DirectorySessionStore) EventsForChecker(checker string) ([]model.CheckEvent, error) {
	allEvents, err := s.AllEvents()
	if err != nil {
		return nil, err
	}

	return filterEvents(allEvents, checker), nil
}

func (s *DirectorySessionStore) RecordEvent(event model.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ksuids are base62 so a valid id cannot escape the directory
	_, err := ksuid.Parse(event.SessionEventID())
	if err != nil {
		return fmt.Errorf("invalid event ID: %w", err)
	}

	if !iu.IsDirectory(s.directory) {
		return fmt.Errorf("session store %s does not exist", s.directory)
	}

	updateMetrics(event)

	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}

	filename := filepath.Join(s.directory, event.SessionEventID()+".event")
	s.log.Debug("Recording event", "filename", filename)

	return os.WriteFile(filename, data, 0600)
}

func (s *DirectorySessionStore) StopSession(destroy bool) (*model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.allEventsUnlocked()
	if err != nil {
		return nil, err
	}

	summary := model.BuildSessionSummary(events)

	if destroy && iu.IsDirectory(s.directory) {
		err = os.RemoveAll(s.directory)
		if err != nil {
			s.log.Error("Failed to remove session directory", "error", err)
		}
	}

	return summary, nil
}

// AllEvents returns all events in the session sorted by time order (oldest first)
func (s *DirectorySessionStore) AllEvents() ([]model.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allEventsUnlocked()
}

func (s *DirectorySessionStore) allEventsUnlocked() ([]model.SessionEvent, error) {
	var events []model.SessionEvent

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		if os.IsNotExist(err) {
			return events, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".event") {
			continue
		}

		filename := filepath.Join(s.directory, entry.Name())
		data, err := os.ReadFile(filename)
		if err != nil {
			s.log.Error("Failed to read event file", "filename", filename, "error", err)
			continue
		}

		event, err := decodeEvent(data)
		if err != nil {
			s.log.Warn("Skipping invalid event file", "filename", filename, "error", err)
			continue
		}

		events = append(events, event)
	}

	// ksuids are k-sortable so this is time order
	sort.Slice(events, func(i, j int) bool {
		return events[i].SessionEventID() < events[j].SessionEventID()
	})

	return events, nil
}
