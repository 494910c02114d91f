// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/choria-io/fisk"

	"github.com/choria-io/platcheck/manager"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/session"
)

type historyCommand struct {
	session    string
	limit      int
	checker    string
	jsonFormat bool
}

func registerHistoryCommand(app *fisk.Application) {
	cmd := &historyCommand{}

	history := app.Command("history", "Reports on stored runs").Action(cmd.historyAction)
	history.Flag("session", "Run store, a directory or a database prefixed with sqlite:").Envar("PLATCHECK_SESSION").Required().StringVar(&cmd.session)
	history.Flag("limit", "Number of runs to show from a database").Default("10").IntVar(&cmd.limit)
	history.Flag("checker", "Show the results of a single checker stored in a directory").StringVar(&cmd.checker)
	history.Flag("json", "Produce JSON output").UnNegatableBoolVar(&cmd.jsonFormat)
}

func (c *historyCommand) historyAction(_ *fisk.ParseContext) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr, err := newManager(cfg, "", manager.WithSession(c.session))
	if err != nil {
		return err
	}
	defer mgr.Close()

	if db, ok := mgr.Session().(*session.SQLiteSessionStore); ok {
		return c.showHistory(db)
	}

	return c.showSession(mgr.Session())
}

func (c *historyCommand) showHistory(db *session.SQLiteSessionStore) error {
	history, err := db.History(c.limit)
	if err != nil {
		return err
	}

	if c.jsonFormat {
		return printJSON(history)
	}

	if len(history) == 0 {
		fmt.Println("No runs have been stored")
		return nil
	}

	for _, entry := range history {
		state := "passed"
		if !entry.Summary.Succeeded() {
			state = "failed"
		}

		fmt.Printf("%s %s %s on %s\n", entry.StartedAt.Local().Format(time.DateTime), entry.ID, state, entry.Hostname)
		fmt.Printf("    %s\n", entry.Summary)
		if len(entry.Summary.Problems) > 0 {
			fmt.Printf("    Problems: %s\n", strings.Join(entry.Summary.Problems, ", "))
		}
	}

	return nil
}

func (c *historyCommand) showSession(store model.SessionStore) error {
	var events []model.CheckEvent

	all, err := store.AllEvents()
	if err != nil {
		return err
	}

	if c.checker != "" {
		events, err = store.EventsForChecker(c.checker)
		if err != nil {
			return err
		}
	} else {
		for _, e := range all {
			if ce, ok := e.(*model.CheckEvent); ok {
				events = append(events, *ce)
			}
		}
	}

	summary := model.BuildSessionSummary(all)

	if c.jsonFormat {
		return printJSON(runReport{Summary: summary, Results: events})
	}

	for _, e := range events {
		fmt.Printf("%s %s\n", e.TimeStamp.Local().Format(time.DateTime), e.String())
	}

	printSummary(summary)

	return nil
}
