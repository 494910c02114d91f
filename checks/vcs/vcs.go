// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"

	"github.com/choria-io/platcheck/checks/base"
	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/generators"
	"github.com/choria-io/platcheck/internal/workspace"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/property"
)

const (
	TypeName = "vcs"

	identityName  = "Platform Check"
	identityEmail = "platcheck@example.net"
	stagedFile    = "test_file.txt"
)

// WhitespaceMessages are the whitespace only commit messages tried by whitespace_message
var WhitespaceMessages = []string{"   ", "\t\t", "\n\n", "  \t  \n  "}

// Checker verifies repository initialization and commit behavior of the version control tool
type Checker struct {
	*base.Base

	cfg    config.VCS
	root   string
	runner model.CommandRunner
}

// New creates a version control property checker
func New(mgr model.Manager) (*Checker, error) {
	b, err := base.New(TypeName, mgr)
	if err != nil {
		return nil, err
	}

	runner, err := mgr.NewRunner()
	if err != nil {
		return nil, err
	}

	return &Checker{
		Base:   b,
		cfg:    b.Config.VCS,
		root:   b.Config.WorkspaceRoot,
		runner: runner,
	}, nil
}

func (c *Checker) TypeName() string { return TypeName }

// Run evaluates the initialization and commit properties followed by the fixed scenarios
func (c *Checker) Run(ctx context.Context) ([]*model.CheckResult, error) {
	c.Property("init", "initialization creates a valid repository", prop.ForAll(
		func(name string) *gopter.PropResult {
			return property.Verdict(c.withRepo(ctx, name, false, func(r *repo) error {
				return c.verifyLayout(ctx, r)
			}))
		},
		generators.ProjectName(),
	))

	if ctx.Err() != nil {
		return c.Finish(ctx)
	}

	c.Static(ctx, "init_existing_files", "initialization keeps existing files", func(ctx context.Context) error {
		return c.withWorkspace(func(ws *workspace.Workspace) error {
			return c.initExistingFiles(ctx, ws)
		})
	})

	c.Static(ctx, "init_idempotent", "initialization is idempotent", func(ctx context.Context) error {
		return c.withRepo(ctx, "idempotent-test", false, func(r *repo) error {
			return c.initIdempotent(ctx, r)
		})
	})

	if ctx.Err() != nil {
		return c.Finish(ctx)
	}

	c.Property("commit", "commits keep descriptive messages", prop.ForAll(
		func(name string, content string, msg string) *gopter.PropResult {
			return property.Verdict(c.withRepo(ctx, name, true, func(r *repo) error {
				return c.verifyCommit(ctx, r, content, msg)
			}))
		},
		generators.ProjectName(),
		generators.FileContent(1, generators.MaxContentLength),
		generators.CommitMessage(),
	))

	if ctx.Err() != nil {
		return c.Finish(ctx)
	}

	c.Scenario(ctx, "empty_message", func(ctx context.Context, res *model.CheckResult) *model.CheckResult {
		var policy string
		err := c.withRepo(ctx, "test-project", true, func(r *repo) error {
			var err error
			policy, err = c.tryMessagePolicy(ctx, r, []string{""})
			return err
		})
		if err != nil {
			return res.FromError(err, "")
		}

		return res.Pass("empty messages are %s", policy)
	})

	c.Scenario(ctx, "whitespace_message", func(ctx context.Context, res *model.CheckResult) *model.CheckResult {
		var policy string
		err := c.withRepo(ctx, "test-project", true, func(r *repo) error {
			var err error
			policy, err = c.tryMessagePolicy(ctx, r, WhitespaceMessages)
			return err
		})
		if err != nil {
			return res.FromError(err, "")
		}

		return res.Pass("whitespace only messages are %s", policy)
	})

	return c.Finish(ctx)
}

// repo is a project directory inside a workspace
type repo struct {
	ws   *workspace.Workspace
	dir  string
	home string
}

func (r *repo) fs() afero.Fs {
	return r.ws.Fs()
}

func (r *repo) path(parts ...string) string {
	return filepath.Join(append([]string{r.dir}, parts...)...)
}

func (c *Checker) withWorkspace(cb func(*workspace.Workspace) error) error {
	return workspace.With(nil, c.root, TypeName, cb)
}

// withRepo creates a project directory in a fresh workspace, optionally initialized with a committer identity
func (c *Checker) withRepo(ctx context.Context, name string, initialize bool, cb func(*repo) error) error {
	return c.withWorkspace(func(ws *workspace.Workspace) error {
		r, err := c.newRepo(ws, name)
		if err != nil {
			return err
		}

		if initialize {
			err = c.initialize(ctx, r)
			if err != nil {
				return err
			}

			err = c.setIdentity(ctx, r)
			if err != nil {
				return err
			}
		}

		return cb(r)
	})
}

func (c *Checker) newRepo(ws *workspace.Workspace, name string) (*repo, error) {
	r := &repo{ws: ws, dir: ws.Join(name), home: ws.Join(".home")}

	for _, dir := range []string{r.dir, r.home} {
		err := ws.Fs().MkdirAll(dir, 0700)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

type gitResult struct {
	stdout string
	stderr string
	code   int
}

func (g gitResult) output() string {
	return strings.TrimSpace(g.stdout + " " + g.stderr)
}

// git runs the tool isolated from the user and system configuration
func (c *Checker) git(ctx context.Context, r *repo, stdin []byte, args ...string) (gitResult, error) {
	stdout, stderr, code, err := c.runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command: c.cfg.Command,
		Args:    args,
		Cwd:     r.dir,
		Environment: []string{
			"HOME=" + r.home,
			"XDG_CONFIG_HOME=" + filepath.Join(r.home, ".config"),
			"GIT_CONFIG_NOSYSTEM=1",
			"GIT_TERMINAL_PROMPT=0",
		},
		Stdin:   stdin,
		Timeout: c.cfg.ParsedTimeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return gitResult{}, err
		}

		return gitResult{}, fmt.Errorf("%w: could not run %s: %w", model.ErrEnvironmentUnavailable, c.cfg.Command, err)
	}

	return gitResult{stdout: string(stdout), stderr: string(stderr), code: code}, nil
}

// mustGit runs a supporting command that is expected to succeed
func (c *Checker) mustGit(ctx context.Context, r *repo, args ...string) (string, error) {
	res, err := c.git(ctx, r, nil, args...)
	if err != nil {
		return "", err
	}

	if res.code != 0 {
		return "", fmt.Errorf("%s %s failed with exit code %d: %s", c.cfg.Command, strings.Join(args, " "), res.code, res.output())
	}

	return strings.TrimSpace(res.stdout), nil
}

func violation(format string, a ...any) error {
	return fmt.Errorf("%w: %s", model.ErrPropertyViolation, fmt.Sprintf(format, a...))
}

func (c *Checker) initialize(ctx context.Context, r *repo) error {
	res, err := c.git(ctx, r, nil, "init", "-q")
	if err != nil {
		return err
	}

	if res.code != 0 {
		return violation("init failed with exit code %d: %s", res.code, res.output())
	}

	return nil
}

func (c *Checker) setIdentity(ctx context.Context, r *repo) error {
	_, err := c.mustGit(ctx, r, "config", "user.name", identityName)
	if err != nil {
		return err
	}

	_, err = c.mustGit(ctx, r, "config", "user.email", identityEmail)

	return err
}

func (c *Checker) verifyDir(r *repo, parts ...string) error {
	isDir, err := afero.IsDir(r.fs(), r.path(parts...))
	if err != nil || !isDir {
		return violation("%s is not a directory", filepath.Join(parts...))
	}

	return nil
}

func (c *Checker) verifyLayout(ctx context.Context, r *repo) error {
	err := c.initialize(ctx, r)
	if err != nil {
		return err
	}

	for _, dir := range [][]string{{".git"}, {".git", "objects"}, {".git", "refs", "heads"}, {".git", "refs", "tags"}} {
		err = c.verifyDir(r, dir...)
		if err != nil {
			return err
		}
	}

	head, err := afero.ReadFile(r.fs(), r.path(".git", "HEAD"))
	if err != nil {
		return violation("could not read HEAD: %v", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(head), []byte("ref:")) {
		return violation("HEAD does not reference a branch: %q", strings.TrimSpace(string(head)))
	}

	cfg, err := afero.ReadFile(r.fs(), r.path(".git", "config"))
	if err != nil {
		return violation("could not read config: %v", err)
	}
	if len(cfg) == 0 {
		return violation("config is empty")
	}

	bare, err := c.mustGit(ctx, r, "rev-parse", "--is-bare-repository")
	if err != nil {
		return err
	}
	if bare != "false" {
		return violation("repository reports bare %q", bare)
	}

	return nil
}

func (c *Checker) initExistingFiles(ctx context.Context, ws *workspace.Workspace) error {
	r, err := c.newRepo(ws, "existing-project")
	if err != nil {
		return err
	}

	files := map[string]string{
		"README.md":                      "# Existing Project\n",
		filepath.Join("src", "main.py"): "print('hello')\n",
	}

	for name, content := range files {
		err = r.fs().MkdirAll(filepath.Dir(r.path(name)), 0700)
		if err != nil {
			return err
		}

		err = afero.WriteFile(r.fs(), r.path(name), []byte(content), 0644)
		if err != nil {
			return err
		}
	}

	err = c.verifyLayout(ctx, r)
	if err != nil {
		return err
	}

	for name, content := range files {
		actual, err := afero.ReadFile(r.fs(), r.path(name))
		if err != nil {
			return violation("%s is missing after init: %v", name, err)
		}

		if string(actual) != content {
			return violation("%s changed during init", name)
		}
	}

	return nil
}

func (c *Checker) initIdempotent(ctx context.Context, r *repo) error {
	err := c.initialize(ctx, r)
	if err != nil {
		return err
	}

	initial, err := afero.ReadFile(r.fs(), r.path(".git", "HEAD"))
	if err != nil {
		return violation("could not read HEAD: %v", err)
	}

	err = c.verifyLayout(ctx, r)
	if err != nil {
		return err
	}

	final, err := afero.ReadFile(r.fs(), r.path(".git", "HEAD"))
	if err != nil {
		return violation("could not read HEAD: %v", err)
	}

	if !bytes.Equal(initial, final) {
		return violation("HEAD changed from %q to %q", initial, final)
	}

	return nil
}

// CommitMessage extracts the message from a raw commit object
func CommitMessage(raw string) string {
	_, msg, found := strings.Cut(raw, "\n\n")
	if !found {
		return ""
	}

	return msg
}

// MessageMatches determines if stored is supplied with at most the single newline the tool terminates messages with
func MessageMatches(stored string, supplied string) bool {
	return stored == supplied || stored == supplied+"\n"
}

func (c *Checker) commit(ctx context.Context, r *repo, name string, content string, msg string, cleanup string) (gitResult, error) {
	err := afero.WriteFile(r.fs(), r.path(name), []byte(content), 0644)
	if err != nil {
		return gitResult{}, err
	}

	_, err = c.mustGit(ctx, r, "add", name)
	if err != nil {
		return gitResult{}, err
	}

	return c.git(ctx, r, []byte(msg), "commit", "-q", "--cleanup="+cleanup, "-F", "-")
}

func (c *Checker) verifyCommit(ctx context.Context, r *repo, content string, msg string) error {
	res, err := c.commit(ctx, r, stagedFile, content, msg, "verbatim")
	if err != nil {
		return err
	}
	if res.code != 0 {
		return violation("commit failed with exit code %d: %s", res.code, res.output())
	}

	hash, err := c.mustGit(ctx, r, "rev-parse", "HEAD")
	if err != nil {
		return err
	}

	// read untrimmed, trailing whitespace is part of the message
	res, err = c.git(ctx, r, nil, "cat-file", "commit", hash)
	if err != nil {
		return err
	}
	if res.code != 0 {
		return violation("commit %s cannot be read: %s", hash, res.output())
	}

	stored := CommitMessage(res.stdout)
	if !MessageMatches(stored, msg) {
		return violation("stored message %q differs from %q", stored, msg)
	}

	if len(strings.Fields(stored)) < generators.MinCommitWords {
		return violation("stored message %q has fewer than %d words", stored, generators.MinCommitWords)
	}

	stats, err := c.mustGit(ctx, r, "show", "--numstat", "--format=", hash)
	if err != nil {
		return err
	}

	listed := false
	for _, line := range strings.Split(stats, "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) == 3 && fields[2] == stagedFile {
			listed = true
			break
		}
	}
	if !listed {
		return violation("commit %s does not list %s", hash, stagedFile)
	}

	verified, err := c.mustGit(ctx, r, "rev-parse", "--verify", hash+"^{commit}")
	if err != nil {
		return violation("commit %s cannot be retrieved: %v", hash, err)
	}
	if verified != hash {
		return violation("commit %s resolved to %s", hash, verified)
	}

	user, err := c.mustGit(ctx, r, "config", "user.name")
	if err != nil {
		return err
	}
	if user != identityName {
		return violation("committer name read back as %q", user)
	}

	return nil
}

// tryMessagePolicy commits each message and reports whether the tool rejected or accepted them
func (c *Checker) tryMessagePolicy(ctx context.Context, r *repo, messages []string) (string, error) {
	policies := map[string]bool{}

	for i, msg := range messages {
		res, err := c.commit(ctx, r, fmt.Sprintf("test_%d.txt", i), "test content", msg, "default")
		if err != nil {
			return "", err
		}

		if res.code != 0 {
			if !strings.Contains(strings.ToLower(res.output()), "message") {
				return "", violation("commit of %q failed without mentioning the message: %s", msg, res.output())
			}

			policies["rejected"] = true
			continue
		}

		raw, err := c.git(ctx, r, nil, "cat-file", "commit", "HEAD")
		if err != nil {
			return "", err
		}

		stored := CommitMessage(raw.stdout)
		if strings.TrimSpace(stored) != "" {
			return "", violation("commit of %q was stored with message %q", msg, stored)
		}

		policies["accepted as empty"] = true
	}

	switch len(policies) {
	case 0:
		return "not tried", nil
	case 1:
		for p := range policies {
			return p, nil
		}
	}

	return "rejected or accepted as empty", nil
}
