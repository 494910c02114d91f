// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/synadia-io/orbit.go/natscontext"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/internal/cmdrunner"
	"github.com/choria-io/platcheck/internal/facts"
	"github.com/choria-io/platcheck/internal/registry"
	"github.com/choria-io/platcheck/metrics"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/session"
	"github.com/choria-io/platcheck/templates"
)

// EventSubjectPrefix is prepended to the checker name to form the subject check events are published to
const EventSubjectPrefix = "platcheck.events."

// Publisher sends check events to a message bus, satisfied by *nats.Conn
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Manager builds checkers, runs them and records every result in the session store
type Manager struct {
	cfg        *config.Config
	session    model.SessionStore
	log        model.Logger
	userLogger model.Logger
	environ    map[string]string

	natsContext string
	publisher   Publisher
	nc          *nats.Conn

	facts map[string]any

	mu sync.Mutex
}

var _ model.Manager = (*Manager)(nil)

// NewManager creates a manager for cfg, log receives diagnostics while userLogger reports check outcomes
func NewManager(cfg *config.Config, log model.Logger, userLogger model.Logger, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	mgr := &Manager{
		cfg:         cfg,
		log:         log,
		userLogger:  userLogger,
		environ:     map[string]string{},
		natsContext: cfg.NatsContext,
	}

	for _, opt := range opts {
		err := opt(mgr)
		if err != nil {
			return nil, err
		}
	}

	if mgr.session == nil && cfg.Session != "" {
		err := WithSession(cfg.Session)(mgr)
		if err != nil {
			return nil, err
		}
	}

	if mgr.session == nil {
		sessionLog, err := mgr.Logger("session", "memory")
		if err != nil {
			return nil, err
		}

		mgr.session, err = session.NewMemorySessionStore(sessionLog)
		if err != nil {
			return nil, err
		}
	}

	return mgr, nil
}

// Config is the configuration checkers are built from
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Environ is the injected environment
func (m *Manager) Environ() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return maps.Clone(m.environ)
}

// Session is the store results are recorded in
func (m *Manager) Session() model.SessionStore {
	return m.session
}

// Facts gathers and caches facts about the host running the checks
func (m *Manager) Facts(ctx context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.facts != nil {
		return m.facts, nil
	}

	log, err := m.Logger("component", "facts")
	if err != nil {
		return nil, err
	}

	to, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	m.facts, err = facts.StandardFacts(to, log)
	if err != nil {
		return nil, err
	}

	return m.facts, nil
}

// FactsRaw returns the host facts as JSON
func (m *Manager) FactsRaw(ctx context.Context) (json.RawMessage, error) {
	f, err := m.Facts(ctx)
	if err != nil {
		return nil, err
	}

	return json.Marshal(f)
}

// TemplateEnvironment is the environment configuration and rule templates are resolved against
func (m *Manager) TemplateEnvironment(ctx context.Context) (*templates.Env, error) {
	f, err := m.Facts(ctx)
	if err != nil {
		return nil, err
	}

	return &templates.Env{
		Facts:   f,
		Data:    m.cfg.Data,
		Environ: m.Environ(),
	}, nil
}

// ResolveConfig replaces template placeholders in the configuration
func (m *Manager) ResolveConfig(ctx context.Context) error {
	env, err := m.TemplateEnvironment(ctx)
	if err != nil {
		return err
	}

	return m.cfg.Resolve(env)
}

// Logger creates a new logger with the provided key-value pairs added to the context
func (m *Manager) Logger(args ...any) (model.Logger, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("invalid logger arguments, must be key value pairs")
	}

	return m.log.With(args...), nil
}

// NewRunner creates a runner for commands on the host running the checks
func (m *Manager) NewRunner() (model.CommandRunner, error) {
	log, err := m.Logger("component", "runner")
	if err != nil {
		return nil, err
	}

	return cmdrunner.NewCommandRunner(log)
}

// NewRemoteRunner creates a runner for commands on the operator host, local when no host is configured
func (m *Manager) NewRemoteRunner() (model.CommandRunner, error) {
	local, err := m.NewRunner()
	if err != nil {
		return nil, err
	}

	log, err := m.Logger("component", "remote_runner", "host", m.cfg.Resilience.Host)
	if err != nil {
		return nil, err
	}

	return cmdrunner.NewRemoteCommandRunner(local, m.cfg.Resilience, log)
}

// RecordResult stores a check result in the session, reports it and publishes it when a NATS context is set
func (m *Manager) RecordResult(result *model.CheckResult) error {
	event := model.NewCheckEvent(result)

	err := m.session.RecordEvent(event)
	if err != nil {
		return err
	}

	event.LogStatus(m.userLogger)

	m.publish(event)

	return nil
}

func (m *Manager) publish(event *model.CheckEvent) {
	pub, err := m.eventPublisher()
	if err != nil {
		m.log.Warn("Could not connect to NATS, check events will not be published", "error", err)
		metrics.EventPublishFailureCount.WithLabelValues(event.Checker).Inc()
		return
	}
	if pub == nil {
		return
	}

	data, err := json.Marshal(event)
	if err == nil {
		err = pub.Publish(EventSubjectPrefix+event.Checker, data)
	}
	if err != nil {
		m.log.Warn("Could not publish check event", "checker", event.Checker, "error", err)
		metrics.EventPublishFailureCount.WithLabelValues(event.Checker).Inc()
	}
}

// eventPublisher connects on first use, nil without a NATS context
func (m *Manager) eventPublisher() (Publisher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publisher != nil {
		return m.publisher, nil
	}

	if m.natsContext == "" {
		return nil, nil
	}

	nc, _, err := natscontext.Connect(m.natsContext, nats.Name("platcheck"), nats.MaxReconnects(-1))
	if err != nil {
		// avoid retrying the connection for every result
		m.natsContext = ""
		return nil, err
	}

	m.nc = nc
	m.publisher = nc

	return nc, nil
}

// RunChecks runs the wanted checkers, or those in the configuration when none are given, and summarizes the session
func (m *Manager) RunChecks(ctx context.Context, wanted ...string) (*model.SessionSummary, error) {
	if len(wanted) == 0 {
		wanted = m.cfg.Checks
	}

	types, err := registry.Select(wanted)
	if err != nil {
		return nil, err
	}

	err = m.session.StartSession(types)
	if err != nil {
		return nil, err
	}

	timer := prometheus.NewTimer(metrics.RunTime.WithLabelValues())

	for _, t := range types {
		if ctx.Err() != nil {
			break
		}

		m.runChecker(ctx, t)
	}

	timer.ObserveDuration()

	summary, err := m.session.StopSession(false)
	if err != nil {
		return nil, err
	}

	return summary, ctx.Err()
}

func (m *Manager) runChecker(ctx context.Context, t string) {
	log := m.log.With("checker", t)
	timer := prometheus.NewTimer(metrics.CheckerRunTime.WithLabelValues(t))
	defer timer.ObserveDuration()

	checker, err := registry.New(t, m)
	if err != nil {
		log.Error("Could not create checker", "error", err)
		m.recordFailure(t, "setup", err)
		return
	}

	log.Debug("Running checker")
	results, err := checker.Run(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error("Checker failed", "error", err)
		m.recordFailure(t, "run", err)
	}

	log.Debug("Checker completed", "results", len(results))
}

func (m *Manager) recordFailure(checker string, check string, err error) {
	res := model.NewCheckResult(checker, check).FromError(err, "")

	rerr := m.RecordResult(res)
	if rerr != nil {
		m.log.Error("Could not record result", "checker", checker, "error", rerr)
	}
}

// Close flushes published events and releases the session store
func (m *Manager) Close() error {
	m.mu.Lock()
	nc := m.nc
	m.nc = nil
	m.mu.Unlock()

	if nc != nil {
		err := nc.Drain()
		if err != nil {
			m.log.Warn("Could not drain NATS connection", "error", err)
		}
	}

	if c, ok := m.session.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
