// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/segmentio/ksuid"
)

type SessionEvent interface {
	SessionEventID() string
	String() string
}

type SessionStore interface {
	StartSession(checkers []string) error
	StopSession(destroy bool) (*SessionSummary, error)
	RecordEvent(SessionEvent) error
	EventsForChecker(checker string) ([]CheckEvent, error)
	AllEvents() ([]SessionEvent, error)
}

const CheckEventProtocol = "io.choria.platcheck.v1.check.event"
const SessionStartEventProtocol = "io.choria.platcheck.v1.session.start"

// CheckEvent records the result of a single check in a session
type CheckEvent struct {
	Protocol  string    `json:"protocol" yaml:"protocol"`
	EventID   string    `json:"event_id" yaml:"event_id"`
	TimeStamp time.Time `json:"timestamp" yaml:"timestamp"`

	CheckResult `json:",inline" yaml:",inline"`
}

// SessionStartEvent marks the start of a verification run
type SessionStartEvent struct {
	Protocol  string    `json:"protocol" yaml:"protocol"`
	EventID   string    `json:"event_id" yaml:"event_id"`
	TimeStamp time.Time `json:"timestamp" yaml:"timestamp"`
	Checkers  []string  `json:"checkers,omitempty" yaml:"checkers,omitempty"`
	Hostname  string    `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

func NewSessionStartEvent(checkers []string) *SessionStartEvent {
	return &SessionStartEvent{
		Protocol:  SessionStartEventProtocol,
		EventID:   ksuid.New().String(),
		TimeStamp: time.Now().UTC(),
		Checkers:  checkers,
	}
}

func NewCheckEvent(result *CheckResult) *CheckEvent {
	return &CheckEvent{
		Protocol:    CheckEventProtocol,
		EventID:     ksuid.New().String(),
		TimeStamp:   time.Now().UTC(),
		CheckResult: *result,
	}
}

func (t *SessionStartEvent) SessionEventID() string { return t.EventID }
func (t *SessionStartEvent) String() string {
	return fmt.Sprintf("session %s started %s", t.EventID, t.TimeStamp.Format(time.RFC3339))
}

func (t *CheckEvent) SessionEventID() string { return t.EventID }
func (t *CheckEvent) String() string         { return t.CheckResult.String() }

// LogStatus logs the event at a level matching its status
func (t *CheckEvent) LogStatus(log Logger) {
	args := []any{"runtime", t.Duration.Truncate(time.Millisecond)}

	if t.Trials > 0 {
		args = append(args, "trials", t.Trials)
	}
	if t.Counterexample != "" {
		args = append(args, "counterexample", t.Counterexample)
	}
	if t.Kind != "" && t.Status != CheckPassed {
		args = append(args, "kind", t.Kind)
	}

	name := fmt.Sprintf("%s#%s", t.Checker, t.Check)

	switch t.Status {
	case CheckFailed, CheckError:
		log.Error(fmt.Sprintf("%s %s", name, t.Status), append(args, "message", t.Message)...)
	case CheckSkipped:
		log.Warn(fmt.Sprintf("%s skipped", name), append(args, "reason", t.Message)...)
	default:
		log.Info(fmt.Sprintf("%s passed", name), append(args, "message", t.Message)...)
	}
}

// SessionSummary provides a statistical summary of a verification run
type SessionSummary struct {
	StartTime     time.Time     `json:"start_time" yaml:"start_time"`
	EndTime       time.Time     `json:"end_time" yaml:"end_time"`
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`
	TotalChecks   int           `json:"total_checks" yaml:"total_checks"`
	Checkers      int           `json:"checkers" yaml:"checkers"`
	PassedChecks  int           `json:"passed_checks" yaml:"passed_checks"`
	FailedChecks  int           `json:"failed_checks" yaml:"failed_checks"`
	SkippedChecks int           `json:"skipped_checks" yaml:"skipped_checks"`
	ErroredChecks int           `json:"errored_checks" yaml:"errored_checks"`
	TotalTrials   int           `json:"total_trials" yaml:"total_trials"`
	Problems      []string      `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// BuildSessionSummary creates a summary report from all events in a session
func BuildSessionSummary(events []SessionEvent) *SessionSummary {
	summary := &SessionSummary{}
	var totalTime time.Duration
	var checkers []string

	for _, event := range events {
		if startEvent, ok := event.(*SessionStartEvent); ok {
			summary.StartTime = startEvent.TimeStamp
			continue
		}

		ce, ok := event.(*CheckEvent)
		if !ok {
			continue
		}

		totalTime += ce.Duration
		summary.TotalChecks++
		summary.TotalTrials += ce.Trials

		if !slices.Contains(checkers, ce.Checker) {
			checkers = append(checkers, ce.Checker)
		}

		if ce.TimeStamp.After(summary.EndTime) {
			summary.EndTime = ce.TimeStamp
		}

		switch ce.Status {
		case CheckPassed:
			summary.PassedChecks++
		case CheckSkipped:
			summary.SkippedChecks++
		case CheckFailed:
			summary.FailedChecks++
			summary.Problems = append(summary.Problems, fmt.Sprintf("%s#%s", ce.Checker, ce.Check))
		default:
			summary.ErroredChecks++
			summary.Problems = append(summary.Problems, fmt.Sprintf("%s#%s", ce.Checker, ce.Check))
		}
	}

	summary.Checkers = len(checkers)

	if !summary.StartTime.IsZero() && !summary.EndTime.IsZero() {
		summary.TotalDuration = summary.EndTime.Sub(summary.StartTime)
	} else {
		summary.TotalDuration = totalTime
	}

	return summary
}

// Succeeded is true when no check failed or errored, skipped checks do not count against a run
func (s *SessionSummary) Succeeded() bool {
	return s.FailedChecks == 0 && s.ErroredChecks == 0
}

// String returns a human-readable summary of the session
func (s *SessionSummary) String() string {
	return fmt.Sprintf("Session: %d checks, %d passed, %d failed, %d skipped, %d errors, %d trials, duration=%v",
		s.TotalChecks, s.PassedChecks, s.FailedChecks, s.SkippedChecks, s.ErroredChecks, s.TotalTrials, s.TotalDuration)
}
