// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/choria-io/platcheck/metrics"
	"github.com/choria-io/platcheck/model"
)

func updateMetrics(event model.SessionEvent) {
	ce, ok := event.(*model.CheckEvent)
	if !ok {
		return
	}

	metrics.ObserveResult(&ce.CheckResult)
}

func newStartEvent(checkers []string) *model.SessionStartEvent {
	start := model.NewSessionStartEvent(checkers)
	start.Hostname, _ = os.Hostname()

	return start
}

func filterEvents(allEvents []model.SessionEvent, checker string) []model.CheckEvent {
	var filtered []model.CheckEvent
	for _, event := range allEvents {
		ce, ok := event.(*model.CheckEvent)
		if !ok {
			continue
		}

		if ce.Checker == checker {
			filtered = append(filtered, *ce)
		}
	}

	return filtered
}

// decodeEvent parses a serialized event based on its protocol
func decodeEvent(data []byte) (model.SessionEvent, error) {
	var eventType struct {
		Protocol string `json:"protocol"`
	}

	err := json.Unmarshal(data, &eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event type: %w", err)
	}

	switch eventType.Protocol {
	case model.SessionStartEventProtocol:
		var event model.SessionStartEvent
		err = json.Unmarshal(data, &event)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session start event: %w", err)
		}
		return &event, nil

	case model.CheckEventProtocol:
		var event model.CheckEvent
		err = json.Unmarshal(data, &event)
		if err != nil {
			return nil, fmt.Errorf("failed to parse check event: %w", err)
		}
		return &event, nil

	default:
		return nil, fmt.Errorf("unknown event protocol %q", eventType.Protocol)
	}
}
