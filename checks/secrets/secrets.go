// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package secrets

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/choria-io/platcheck/checks/base"
	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/model"
)

const TypeName = "secrets"

// Checker verifies that credential material cannot leak through version control
type Checker struct {
	*base.Base

	cfg     config.Secrets
	vcs     config.VCS
	environ map[string]string
	runner  model.CommandRunner
	fs      afero.Fs
}

// Option configures a Checker
type Option func(*Checker) error

// WithFs reads files from fs rather than the operating system
func WithFs(fs afero.Fs) Option {
	return func(c *Checker) error {
		c.fs = fs
		return nil
	}
}

// New creates a secret hygiene checker using the manager configuration, environment and command runner
func New(mgr model.Manager, opts ...Option) (*Checker, error) {
	b, err := base.New(TypeName, mgr)
	if err != nil {
		return nil, err
	}

	runner, err := mgr.NewRunner()
	if err != nil {
		return nil, err
	}

	c := &Checker{
		Base:    b,
		cfg:     b.Config.Secrets,
		vcs:     b.Config.VCS,
		environ: mgr.Environ(),
		runner:  runner,
		fs:      afero.NewOsFs(),
	}

	for _, opt := range opts {
		err = opt(c)
		if err != nil {
			return nil, err
		}
	}

	if c.cfg.RepositoryDir == "" {
		c.cfg.RepositoryDir = "."
	}

	return c, nil
}

func (c *Checker) TypeName() string { return TypeName }

// Run performs every secret hygiene check
func (c *Checker) Run(ctx context.Context) ([]*model.CheckResult, error) {
	c.Static(ctx, "ignore_rule", fmt.Sprintf("%s is ignored by version control", c.cfg.SecretsFile), c.checkIgnoreRule)
	c.Static(ctx, "template_present", fmt.Sprintf("%s documents %d required variables", c.cfg.TemplateFile, len(c.cfg.RequiredVariables)), c.checkTemplatePresent)
	c.Static(ctx, "template_clean", fmt.Sprintf("%s contains no live credentials", c.cfg.TemplateFile), c.checkTemplateClean)
	c.Static(ctx, "credential_format", c.credentialPassMessage(), c.checkCredentialFormat)
	c.Static(ctx, "history_scan", fmt.Sprintf("no history matches %d secret patterns", len(c.cfg.HistoryPatterns)), c.checkHistory)
	c.Static(ctx, "documentation", fmt.Sprintf("%s covers %d topics", c.cfg.DocumentationFile, len(c.cfg.DocumentationTopics)), c.checkDocumentation)

	return c.Finish(ctx)
}

func (c *Checker) repoPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(c.cfg.RepositoryDir, name)
}

func (c *Checker) readFile(name string) ([]byte, error) {
	return afero.ReadFile(c.fs, c.repoPath(name))
}

func (c *Checker) git(ctx context.Context, args ...string) ([]byte, []byte, int, error) {
	var env []string
	if home, ok := os.LookupEnv("HOME"); ok {
		env = append(env, "HOME="+home)
	}

	stdout, stderr, code, err := c.runner.ExecuteWithOptions(ctx, model.ExtendedExecOptions{
		Command:     c.vcs.Command,
		Args:        args,
		Cwd:         c.cfg.RepositoryDir,
		Environment: env,
		Timeout:     c.vcs.ParsedTimeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, code, err
		}

		return nil, nil, code, fmt.Errorf("%w: could not run %s: %w", model.ErrEnvironmentUnavailable, c.vcs.Command, err)
	}

	return stdout, stderr, code, nil
}

// IgnorePatternMatches determines if a single ignore file line excludes name, a slash separated path relative to the repository root.
// Patterns without a slash match at any depth, patterns ending in a slash only match directories above name.
func IgnorePatternMatches(line string, name string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return false
	}

	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")

	anyDepth := strings.HasPrefix(line, "**/")
	line = strings.TrimPrefix(line, "**/")
	anchored := !anyDepth && strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return false
	}

	parts := strings.Split(path.Clean(name), "/")
	for end := len(parts); end > 0; end-- {
		if dirOnly && end == len(parts) {
			continue
		}

		for start := 0; start < end; start++ {
			if anchored && start > 0 {
				break
			}

			ok, err := path.Match(line, strings.Join(parts[start:end], "/"))
			if err == nil && ok {
				return true
			}
		}
	}

	return false
}

func (c *Checker) checkIgnoreRule(ctx context.Context) error {
	ignore, err := c.readFile(".gitignore")
	if err != nil {
		return fmt.Errorf("%w: could not read .gitignore: %w", model.ErrIgnoreRuleMissing, err)
	}

	name := filepath.ToSlash(c.cfg.SecretsFile)
	listed := false
	scanner := bufio.NewScanner(bytes.NewReader(ignore))
	for scanner.Scan() {
		if IgnorePatternMatches(scanner.Text(), name) {
			listed = true
			break
		}
	}

	if !listed {
		return fmt.Errorf("%w: no pattern in .gitignore matches %s", model.ErrIgnoreRuleMissing, name)
	}

	_, stderr, code, err := c.git(ctx, "check-ignore", "-q", name)
	switch {
	case err != nil:
		return err
	case code == 0:
		return nil
	case code == 1:
		return fmt.Errorf("%w: git check-ignore does not exclude %s", model.ErrIgnoreNotEffective, name)
	default:
		return fmt.Errorf("%w: git check-ignore failed with exit code %d: %s", model.ErrEnvironmentUnavailable, code, strings.TrimSpace(string(stderr)))
	}
}

func (c *Checker) checkTemplatePresent(_ context.Context) error {
	tmpl, err := c.readFile(c.cfg.TemplateFile)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrTemplateMissing, c.cfg.TemplateFile, err)
	}

	var missing []string
	for _, v := range c.cfg.RequiredVariables {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(v) + `\b`)
		if err != nil {
			return err
		}

		if !re.Match(tmpl) {
			missing = append(missing, v)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s does not mention %s", model.ErrTemplateIncomplete, c.cfg.TemplateFile, strings.Join(missing, ", "))
	}

	return nil
}

func (c *Checker) checkTemplateClean(_ context.Context) error {
	tmpl, err := c.readFile(c.cfg.TemplateFile)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrTemplateMissing, c.cfg.TemplateFile, err)
	}

	for _, prefix := range c.cfg.ForbiddenPrefixes {
		if bytes.Contains(tmpl, []byte(prefix)) {
			return fmt.Errorf("%w: %s contains a value starting with %s", model.ErrSecretLeakSuspected, c.cfg.TemplateFile, prefix)
		}
	}

	return nil
}

func (c *Checker) credentialPassMessage() string {
	if c.environ[c.cfg.CredentialVariable] == "" {
		return fmt.Sprintf("%s is not set", c.cfg.CredentialVariable)
	}

	return fmt.Sprintf("%s is well formed", c.cfg.CredentialVariable)
}

// checkCredentialFormat never includes the credential value in errors
func (c *Checker) checkCredentialFormat(_ context.Context) error {
	token := c.environ[c.cfg.CredentialVariable]
	if token == "" {
		return nil
	}

	valid := false
	for _, p := range c.cfg.CredentialPrefixes {
		if strings.HasPrefix(token, p) {
			valid = true
			break
		}
	}

	if !valid {
		return fmt.Errorf("%w: %s does not start with one of %s", model.ErrMalformedCredential, c.cfg.CredentialVariable, strings.Join(c.cfg.CredentialPrefixes, ", "))
	}

	if len(token) < c.cfg.CredentialMinLength {
		return fmt.Errorf("%w: %s is %d characters, expected at least %d", model.ErrMalformedCredential, c.cfg.CredentialVariable, len(token), c.cfg.CredentialMinLength)
	}

	return nil
}

// checkHistory reports only abbreviated commit ids, never the matched text
func (c *Checker) checkHistory(ctx context.Context) error {
	var leaks []string

	for _, pattern := range c.cfg.HistoryPatterns {
		_, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid history pattern %q: %w", pattern, err)
		}

		stdout, stderr, code, err := c.git(ctx, "log", "--all", "--format=%h", "-G", pattern)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("%w: git log failed with exit code %d: %s", model.ErrEnvironmentUnavailable, code, strings.TrimSpace(string(stderr)))
		}

		commits := strings.Fields(string(stdout))
		if len(commits) > 0 {
			leaks = append(leaks, fmt.Sprintf("%s in %s", pattern, strings.Join(commits, ", ")))
		}
	}

	if len(leaks) > 0 {
		return fmt.Errorf("%w: %s", model.ErrHistoricalSecretLeak, strings.Join(leaks, "; "))
	}

	return nil
}

func (c *Checker) checkDocumentation(_ context.Context) error {
	doc, err := c.readFile(c.cfg.DocumentationFile)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrDocumentationIncomplete, c.cfg.DocumentationFile, err)
	}

	content := strings.ToLower(string(doc))
	var missing []string
	for _, topic := range c.cfg.DocumentationTopics {
		if !strings.Contains(content, strings.ToLower(topic)) {
			missing = append(missing, topic)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s does not cover %s", model.ErrDocumentationIncomplete, c.cfg.DocumentationFile, strings.Join(missing, ", "))
	}

	return nil
}
