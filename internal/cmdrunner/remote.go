// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmdrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/model"
)

// sshTransportFailure is the exit code ssh uses for its own failures, remote commands exiting 255 are indistinguishable
const sshTransportFailure = 255

// RemoteCommandRunner runs commands on the operator host over ssh using key based authentication
type RemoteCommandRunner struct {
	local   model.CommandRunner
	host    string
	user    string
	port    int
	keyFile string
	options []string
	sudo    bool
	timeout time.Duration
	log     model.Logger
}

// NewRemoteCommandRunner creates a runner for the host in cfg, without a host commands run through local
func NewRemoteCommandRunner(local model.CommandRunner, cfg config.Resilience, log model.Logger) (*RemoteCommandRunner, error) {
	opts, err := shellquote.Split(cfg.SSHOptions)
	if err != nil {
		return nil, fmt.Errorf("invalid ssh options: %w", err)
	}

	return &RemoteCommandRunner{
		local:   local,
		host:    cfg.Host,
		user:    cfg.User,
		port:    cfg.Port,
		keyFile: cfg.KeyFile,
		options: opts,
		sudo:    cfg.Sudo,
		timeout: cfg.ParsedTimeout,
		log:     log,
	}, nil
}

// Remote determines if commands are sent to a remote host
func (r *RemoteCommandRunner) Remote() bool {
	return r.host != ""
}

func (r *RemoteCommandRunner) target() string {
	if r.user == "" {
		return r.host
	}

	return r.user + "@" + r.host
}

// sshArgs builds the ssh invocation that runs opts on the remote host
func (r *RemoteCommandRunner) sshArgs(opts model.ExtendedExecOptions) []string {
	args := []string{"-o", "BatchMode=yes", "-o", "StrictHostKeyChecking=accept-new"}

	if r.timeout > 0 {
		args = append(args, "-o", "ConnectTimeout="+strconv.Itoa(max(1, int(r.timeout.Seconds()))))
	}
	if r.port > 0 {
		args = append(args, "-p", strconv.Itoa(r.port))
	}
	if r.keyFile != "" {
		args = append(args, "-i", r.keyFile)
	}

	args = append(args, r.options...)
	args = append(args, r.target(), r.remoteCommand(opts))

	return args
}

func (r *RemoteCommandRunner) remoteCommand(opts model.ExtendedExecOptions) string {
	var words []string
	if r.sudo {
		words = append(words, "sudo", "-n")
	}
	words = append(words, opts.Command)
	words = append(words, opts.Args...)

	cmd := shellquote.Join(words...)
	if opts.Cwd != "" {
		cmd = "cd " + shellquote.Join(opts.Cwd) + " && " + cmd
	}

	return cmd
}

func (r *RemoteCommandRunner) ExecuteWithOptions(ctx context.Context, opts model.ExtendedExecOptions) ([]byte, []byte, int, error) {
	if opts.Command == "" {
		return nil, nil, 0, ErrCommandNotSpecified
	}

	if opts.Timeout == 0 {
		opts.Timeout = r.timeout
	}

	if !r.Remote() {
		return r.local.ExecuteWithOptions(ctx, opts)
	}

	r.log.Debug("Running remote command", "host", r.host, "command", opts.Command, "args", opts.Args)

	env := []string{}
	for _, v := range []string{"HOME", "SSH_AUTH_SOCK"} {
		if val, ok := os.LookupEnv(v); ok {
			env = append(env, v+"="+val)
		}
	}

	stdout, stderr, code, err := r.local.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command:     "ssh",
		Args:        r.sshArgs(opts),
		Environment: env,
		Stdin:       opts.Stdin,
		Timeout:     opts.Timeout,
	})

	switch {
	case errors.Is(err, context.Canceled):
		return stdout, stderr, code, err
	case errors.Is(err, context.DeadlineExceeded):
		return stdout, stderr, code, fmt.Errorf("%w: %s did not respond within %v", model.ErrEnvironmentUnavailable, r.host, opts.Timeout)
	case err != nil:
		return stdout, stderr, code, fmt.Errorf("%w: %w", model.ErrEnvironmentUnavailable, err)
	case code == sshTransportFailure:
		return stdout, stderr, code, fmt.Errorf("%w: ssh to %s failed: %s", model.ErrEnvironmentUnavailable, r.host, strings.TrimSpace(string(stderr)))
	}

	return stdout, stderr, code, nil
}

// Execute runs a command with the given arguments on the remote host
func (r *RemoteCommandRunner) Execute(ctx context.Context, command string, args ...string) ([]byte, []byte, int, error) {
	return r.ExecuteWithOptions(ctx, model.ExtendedExecOptions{Command: command, Args: args})
}
