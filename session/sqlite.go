// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/choria-io/platcheck/model"
)

// fixed width so stored times sort lexically
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	hostname TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	protocol TEXT NOT NULL,
	checker TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS events_session ON events(session_id);
CREATE INDEX IF NOT EXISTS events_checker ON events(session_id, checker);
`

// HistoryEntry is a past session held in a SQLiteSessionStore
type HistoryEntry struct {
	ID        string                `json:"id"`
	Hostname  string                `json:"hostname,omitempty"`
	StartedAt time.Time             `json:"started_at"`
	Summary   *model.SessionSummary `json:"summary"`
}

// SQLiteSessionStore stores check events in a SQLite database, retaining earlier sessions as history
type SQLiteSessionStore struct {
	db      *sql.DB
	session string
	log     model.Logger
	mu      sync.Mutex
}

// NewSQLiteSessionStore opens or creates the database at path
func NewSQLiteSessionStore(path string, logger model.Logger) (*SQLiteSessionStore, error) {
	if path == "" {
		return nil, fmt.Errorf("session database path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return nil, err
	}

	// pragmas in the dsn apply to every pooled connection
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Debug("Creating new session store", "store", "sqlite", "path", path)

	return &SQLiteSessionStore{db: db, log: logger}, nil
}

// Close closes the database
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) StartSession(checkers []string) error {
	s.log.Info("Creating new session record", "checkers", len(checkers), "store", "sqlite")

	start := newStartEvent(checkers)

	s.mu.Lock()
	_, err := s.db.Exec("INSERT INTO sessions (id, hostname, started_at) VALUES (?, ?, ?)", start.EventID, start.Hostname, start.TimeStamp.Format(sqliteTimeFormat))
	if err == nil {
		s.session = start.EventID
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return s.RecordEvent(start)
}

func (s *SQLiteSessionStore) RecordEvent(event model.SessionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == "" {
		return fmt.Errorf("no session has been started")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var protocol, checker, status string
	switch e := event.(type) {
	case *model.SessionStartEvent:
		protocol = e.Protocol
	case *model.CheckEvent:
		protocol, checker, status = e.Protocol, e.Checker, string(e.Status)
	default:
		return fmt.Errorf("unsupported event %T", event)
	}

	_, err = s.db.Exec("INSERT INTO events (id, session_id, protocol, checker, status, data) VALUES (?, ?, ?, ?, ?, ?)", event.SessionEventID(), s.session, protocol, checker, status, string(data))
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	updateMetrics(event)

	return nil
}

func (s *SQLiteSessionStore) StopSession(destroy bool) (*model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.sessionEvents(s.session)
	if err != nil {
		return nil, err
	}

	summary := model.BuildSessionSummary(events)

	if destroy && s.session != "" {
		_, err = s.db.Exec("DELETE FROM events WHERE session_id = ?", s.session)
		if err == nil {
			_, err = s.db.Exec("DELETE FROM sessions WHERE id = ?", s.session)
		}
		if err != nil {
			s.log.Error("Failed to remove session", "session", s.session, "error", err)
		}
	}

	s.session = ""

	return summary, nil
}

// EventsForChecker returns all check events for a checker in the current session, latest event at the end
func (s *SQLiteSessionStore) EventsForChecker(checker string) ([]model.CheckEvent, error) {
	allEvents, err := s.AllEvents()
	if err != nil {
		return nil, err
	}

	return filterEvents(allEvents, checker), nil
}

// AllEvents returns all events of the current session in time order
func (s *SQLiteSessionStore) AllEvents() ([]model.SessionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionEvents(s.session)
}

// History summarizes the most recent sessions, newest first
func (s *SQLiteSessionStore) History(limit int) ([]*HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query("SELECT id, hostname, started_at FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var history []*HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var started string

		err = rows.Scan(&entry.ID, &entry.Hostname, &started)
		if err != nil {
			rows.Close()
			return nil, err
		}

		entry.StartedAt, _ = time.Parse(sqliteTimeFormat, started)
		history = append(history, &entry)
	}
	rows.Close()

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	for _, entry := range history {
		events, err := s.sessionEvents(entry.ID)
		if err != nil {
			return nil, err
		}

		entry.Summary = model.BuildSessionSummary(events)
	}

	return history, nil
}

func (s *SQLiteSessionStore) sessionEvents(session string) ([]model.SessionEvent, error) {
	events := []model.SessionEvent{}
	if session == "" {
		return events, nil
	}

	rows, err := s.db.Query("SELECT id, data FROM events WHERE session_id = ? ORDER BY rowid", session)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, data string

		err = rows.Scan(&id, &data)
		if err != nil {
			return nil, err
		}

		event, err := decodeEvent([]byte(data))
		if err != nil {
			s.log.Warn("Skipping invalid event", "event", id, "error", err)
			continue
		}

		events = append(events, event)
	}

	return events, rows.Err()
}
