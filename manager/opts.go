// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"maps"
	"strings"

	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/session"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager) error

// SQLitePrefix marks a session location as a SQLite database
const SQLitePrefix = "sqlite:"

// WithSession stores the session in a directory or, when location has the sqlite: prefix, a database
func WithSession(location string) Option {
	if path, ok := strings.CutPrefix(location, SQLitePrefix); ok {
		return WithSQLiteSession(path)
	}

	return WithSessionDirectory(location)
}

// WithSessionDirectory stores the session in a directory of event files
func WithSessionDirectory(path string) Option {
	return func(m *Manager) error {
		log, err := m.Logger("session", "directory", "path", path)
		if err != nil {
			return err
		}

		sess, err := session.NewDirectorySessionStore(path, log)
		if err != nil {
			return err
		}

		m.session = sess

		return nil
	}
}

// WithSQLiteSession stores the session in a SQLite database that retains earlier sessions
func WithSQLiteSession(path string) Option {
	return func(m *Manager) error {
		log, err := m.Logger("session", "sqlite", "path", path)
		if err != nil {
			return err
		}

		sess, err := session.NewSQLiteSessionStore(path, log)
		if err != nil {
			return err
		}

		m.session = sess

		return nil
	}
}

// WithSessionStore uses a previously created session store
func WithSessionStore(store model.SessionStore) Option {
	return func(m *Manager) error {
		m.session = store
		return nil
	}
}

// WithNatsContext publishes check events using the named NATS context, overriding the configuration
func WithNatsContext(context string) Option {
	return func(m *Manager) error {
		m.natsContext = context
		return nil
	}
}

// WithPublisher publishes check events using p
func WithPublisher(p Publisher) Option {
	return func(m *Manager) error {
		m.publisher = p
		return nil
	}
}

// WithEnvironment sets the environment injected into checkers and templates
func WithEnvironment(env map[string]string) Option {
	return func(m *Manager) error {
		if env == nil {
			env = map[string]string{}
		}

		m.environ = maps.Clone(env)

		return nil
	}
}
