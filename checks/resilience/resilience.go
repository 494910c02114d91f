// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/choria-io/platcheck/checks/base"
	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/internal/backoff"
	"github.com/choria-io/platcheck/model"
)

const (
	TypeName = "resilience"

	dockerCommand = "docker"
)

// Container is a running container as reported by docker ps
type Container struct {
	ID    string
	Name  string
	State string
}

// ContainerState is the restart relevant part of docker inspect
type ContainerState struct {
	Name          string
	RestartPolicy string
	Running       bool
	Pid           int64
	RestartCount  int64
	StartedAt     string
}

// Checker verifies that the platform services are configured to recover from unexpected termination
type Checker struct {
	*base.Base

	cfg    config.Resilience
	runner model.CommandRunner
	policy backoff.Policy
}

// Option configures a Checker
type Option func(*Checker) error

// WithPolicy sets the backoff policy used while waiting for recovery
func WithPolicy(p backoff.Policy) Option {
	return func(c *Checker) error {
		c.policy = p
		return nil
	}
}

// New creates a service resilience checker using the remote runner of mgr
func New(mgr model.Manager, opts ...Option) (*Checker, error) {
	b, err := base.New(TypeName, mgr)
	if err != nil {
		return nil, err
	}

	runner, err := mgr.NewRemoteRunner()
	if err != nil {
		return nil, err
	}

	c := &Checker{
		Base:   b,
		cfg:    b.Config.Resilience,
		runner: runner,
		policy: backoff.RecoveryPoll,
	}

	for _, opt := range opts {
		err = opt(c)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Checker) TypeName() string { return TypeName }

// Run checks the restart policy of every service and, when disruption is enabled, that each recovers from being killed
func (c *Checker) Run(ctx context.Context) ([]*model.CheckResult, error) {
	for _, svc := range c.cfg.Services {
		if ctx.Err() != nil {
			break
		}

		var state *ContainerState
		container, resolveErr := c.Resolve(ctx, svc)

		c.Scenario(ctx, "restart_policy:"+svc, func(ctx context.Context, res *model.CheckResult) *model.CheckResult {
			if resolveErr != nil {
				return res.FromError(resolveErr, "")
			}

			var err error
			state, err = c.Inspect(ctx, container.Name)
			if err != nil {
				return res.FromError(err, "")
			}

			err = c.verifyPolicy(svc, state)
			if err != nil {
				return res.FromError(err, "")
			}

			return res.Pass("%s restart policy is %s", state.Name, state.RestartPolicy)
		})

		c.Scenario(ctx, "recovery:"+svc, func(ctx context.Context, res *model.CheckResult) *model.CheckResult {
			switch {
			case !c.cfg.Disruption:
				return res.Skip("live disruption is disabled")
			case resolveErr != nil:
				return res.FromError(resolveErr, "")
			case state == nil:
				return res.Skip("state of %s is unknown", container.Name)
			}

			err := c.verifyPolicy(svc, state)
			if err != nil {
				return res.FromError(err, "")
			}

			took, err := c.verifyRecovery(ctx, state)
			if err != nil {
				return res.FromError(err, "")
			}

			return res.Pass("%s recovered %v after being killed", state.Name, took.Round(time.Second))
		})
	}

	return c.Finish(ctx)
}

func (c *Checker) verifyPolicy(svc string, state *ContainerState) error {
	if !slices.Contains(c.cfg.AllowedPolicies, state.RestartPolicy) {
		policy := state.RestartPolicy
		if policy == "" {
			policy = "no"
		}

		return fmt.Errorf("%w: %s (%s) has restart policy %q, expected one of %s", model.ErrRestartPolicyMisconfigured, svc, state.Name, policy, strings.Join(c.cfg.AllowedPolicies, ", "))
	}

	return nil
}

func (c *Checker) docker(ctx context.Context, args ...string) ([]byte, error) {
	stdout, stderr, code, err := c.runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command: dockerCommand,
		Args:    args,
		Timeout: c.cfg.ParsedTimeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || model.IsEnvironmental(err) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", model.ErrEnvironmentUnavailable, err)
	}

	if code != 0 {
		return nil, fmt.Errorf("%w: docker %s failed with exit code %d: %s", model.ErrEnvironmentUnavailable, args[0], code, strings.TrimSpace(string(stderr)))
	}

	return stdout, nil
}

// ParseContainers parses docker ps output formatted as one json document per line
func ParseContainers(out []byte) []Container {
	var containers []Container

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}

		res := gjson.GetMany(line, "ID", "Names", "State")
		if res[1].String() == "" {
			continue
		}

		containers = append(containers, Container{ID: res[0].String(), Name: res[1].String(), State: res[2].String()})
	}

	return containers
}

// SelectContainer prefers containers whose name does not contain marker, falling back to the first
func SelectContainer(containers []Container, marker string) (Container, bool) {
	if len(containers) == 0 {
		return Container{}, false
	}

	marker = strings.ToLower(marker)
	for _, ctr := range containers {
		if marker == "" || !strings.Contains(strings.ToLower(ctr.Name), marker) {
			return ctr, true
		}
	}

	return containers[0], true
}

// Resolve finds the running container for a service name prefix
func (c *Checker) Resolve(ctx context.Context, svc string) (Container, error) {
	out, err := c.docker(ctx, "ps", "--filter", "name="+svc, "--format", "{{json .}}")
	if err != nil {
		return Container{}, err
	}

	ctr, ok := SelectContainer(ParseContainers(out), c.cfg.HelperMarker)
	if !ok {
		return Container{}, fmt.Errorf("%w: no container matches %s", model.ErrServiceNotRunning, svc)
	}

	return ctr, nil
}

// ParseInspect extracts the state of the first container in docker inspect output
func ParseInspect(out []byte) (*ContainerState, error) {
	if !gjson.ValidBytes(out) {
		return nil, fmt.Errorf("invalid docker inspect output")
	}

	doc := gjson.GetBytes(out, "0")
	if !doc.Exists() {
		return nil, fmt.Errorf("docker inspect returned no containers")
	}

	return &ContainerState{
		Name:          strings.TrimPrefix(doc.Get("Name").String(), "/"),
		RestartPolicy: doc.Get("HostConfig.RestartPolicy.Name").String(),
		Running:       doc.Get("State.Running").Bool(),
		Pid:           doc.Get("State.Pid").Int(),
		RestartCount:  doc.Get("RestartCount").Int(),
		StartedAt:     doc.Get("State.StartedAt").String(),
	}, nil
}

// Inspect retrieves the state of a container
func (c *Checker) Inspect(ctx context.Context, name string) (*ContainerState, error) {
	out, err := c.docker(ctx, "inspect", name)
	if err != nil {
		return nil, err
	}

	state, err := ParseInspect(out)
	if err != nil {
		return nil, err
	}

	if state.Name == "" {
		state.Name = name
	}

	return state, nil
}

// Recovered determines if after shows before was restarted and is running again
func Recovered(before *ContainerState, after *ContainerState) bool {
	if !after.Running {
		return false
	}

	return after.RestartCount > before.RestartCount || after.StartedAt != before.StartedAt
}

// verifyRecovery kills the main process of the container, which the daemon sees as an unexpected exit, and waits for it to be restarted
func (c *Checker) verifyRecovery(ctx context.Context, before *ContainerState) (time.Duration, error) {
	if !before.Running || before.Pid <= 0 {
		return 0, fmt.Errorf("%w: %s is not running", model.ErrServiceNotRunning, before.Name)
	}

	c.Log.Warn("Killing service process to observe recovery", "container", before.Name, "pid", before.Pid)

	stdout, stderr, code, err := c.runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command: "kill",
		Args:    []string{"-KILL", strconv.FormatInt(before.Pid, 10)},
		Timeout: c.cfg.ParsedTimeout,
	})
	if err != nil {
		return 0, err
	}
	if code != 0 {
		return 0, fmt.Errorf("%w: could not kill %s: %s", model.ErrEnvironmentUnavailable, before.Name, strings.TrimSpace(string(stderr)+string(stdout)))
	}

	start := time.Now()
	window := c.cfg.ParsedRecoveryWindow
	if window <= 0 {
		window = config.DefaultRecoveryWindow
	}

	wctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	err = c.policy.For(wctx, func(try int) error {
		after, err := c.Inspect(wctx, before.Name)
		if err != nil {
			c.Log.Debug("Could not inspect container while waiting for recovery", "container", before.Name, "try", try, "error", err)
			return err
		}

		if !Recovered(before, after) {
			return fmt.Errorf("not recovered")
		}

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		return 0, fmt.Errorf("%w: %s did not recover within %v", model.ErrRestartTimeout, before.Name, window)
	}

	return time.Since(start), nil
}
