// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/choria-io/fisk"
	"github.com/goccy/go-yaml"

	"github.com/choria-io/platcheck/templates"
)

const (
	DefaultTrials         = 100
	DefaultMaxShrinks     = 1000
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultRemoteTimeout  = 15 * time.Second
	DefaultRecoveryWindow = 60 * time.Second
)

// Config is the complete harness configuration
type Config struct {
	// Checks limits the run to these checker types, all registered checkers run when empty
	Checks []string `json:"checks,omitempty" yaml:"checks,omitempty"`

	// Trials is how many generated inputs each property is evaluated against
	Trials int `json:"trials" yaml:"trials"`

	// MaxShrinks bounds the attempts made to minimise a failing input
	MaxShrinks int `json:"max_shrinks" yaml:"max_shrinks"`

	// Seed makes generated inputs reproducible, 0 picks a random seed
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// WorkspaceRoot is where ephemeral workspaces are created, defaults to the system temporary directory
	WorkspaceRoot string `json:"workspace_root,omitempty" yaml:"workspace_root,omitempty"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	// MonitorPort is the port to listen on for accessing Prometheus stats
	MonitorPort int `json:"monitor_port,omitempty" yaml:"monitor_port,omitempty"`

	// NatsContext publishes check events to NATS using the named context
	NatsContext string `json:"nats_context,omitempty" yaml:"nats_context,omitempty"`

	// Session stores the run either in a directory or, prefixed with sqlite:, in a database file
	Session string `json:"session,omitempty" yaml:"session,omitempty"`

	// Data is arbitrary data made available to templates using lookup("data.key")
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	Secrets    Secrets    `json:"secrets" yaml:"secrets"`
	Filesystem Filesystem `json:"filesystem" yaml:"filesystem"`
	VCS        VCS        `json:"vcs" yaml:"vcs"`
	HTTPS      HTTPS      `json:"https" yaml:"https"`
	Resilience Resilience `json:"resilience" yaml:"resilience"`
	Goss       Goss       `json:"goss" yaml:"goss"`
}

// Secrets configures the secret-hygiene checker
type Secrets struct {
	RepositoryDir       string   `json:"repository_dir" yaml:"repository_dir"`
	SecretsFile         string   `json:"secrets_file" yaml:"secrets_file"`
	TemplateFile        string   `json:"template_file" yaml:"template_file"`
	RequiredVariables   []string `json:"required_variables" yaml:"required_variables"`
	ForbiddenPrefixes   []string `json:"forbidden_prefixes" yaml:"forbidden_prefixes"`
	CredentialVariable  string   `json:"credential_variable" yaml:"credential_variable"`
	CredentialPrefixes  []string `json:"credential_prefixes" yaml:"credential_prefixes"`
	CredentialMinLength int      `json:"credential_min_length" yaml:"credential_min_length"`
	HistoryPatterns     []string `json:"history_patterns" yaml:"history_patterns"`
	DocumentationFile   string   `json:"documentation_file" yaml:"documentation_file"`
	DocumentationTopics []string `json:"documentation_topics" yaml:"documentation_topics"`
}

// Filesystem configures the filesystem property checker
type Filesystem struct {
	// ReservedNames are path component stems never generated, compared case-insensitively
	ReservedNames []string `json:"reserved_names" yaml:"reserved_names"`
}

// VCS configures the version-control property checker
type VCS struct {
	Command       string        `json:"command" yaml:"command"`
	Timeout       string        `json:"timeout" yaml:"timeout"`
	ParsedTimeout time.Duration `json:"-" yaml:"-"`
}

// HTTPS configures the HTTPS-enforcement checker
type HTTPS struct {
	// Domain is the public domain of the platform, used when HTTPURL and HTTPSURL are not set
	Domain   string `json:"domain" yaml:"domain"`
	HTTPURL  string `json:"http_url,omitempty" yaml:"http_url,omitempty"`
	HTTPSURL string `json:"https_url,omitempty" yaml:"https_url,omitempty"`

	// CAFile is a PEM bundle trusted in addition to the system roots
	CAFile string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`

	Paths         []string      `json:"paths" yaml:"paths"`
	Queries       []string      `json:"queries" yaml:"queries"`
	ExplicitPort  int           `json:"explicit_port" yaml:"explicit_port"`
	Timeout       string        `json:"timeout" yaml:"timeout"`
	ParsedTimeout time.Duration `json:"-" yaml:"-"`
}

// Resilience configures the service-resilience checker
type Resilience struct {
	// Host is the operator host running the services, commands run locally when empty
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	User       string `json:"user,omitempty" yaml:"user,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	KeyFile    string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	SSHOptions string `json:"ssh_options,omitempty" yaml:"ssh_options,omitempty"`
	Sudo       bool   `json:"sudo" yaml:"sudo"`

	Services        []string `json:"services" yaml:"services"`
	HelperMarker    string   `json:"helper_marker" yaml:"helper_marker"`
	AllowedPolicies []string `json:"allowed_policies" yaml:"allowed_policies"`

	// Disruption enables killing the service to observe recovery, never enable against a system serving users
	Disruption bool `json:"disruption" yaml:"disruption"`

	Timeout              string        `json:"timeout" yaml:"timeout"`
	ParsedTimeout        time.Duration `json:"-" yaml:"-"`
	RecoveryWindow       string        `json:"recovery_window" yaml:"recovery_window"`
	ParsedRecoveryWindow time.Duration `json:"-" yaml:"-"`
}

// Goss configures supplementary operator assertions
type Goss struct {
	RulesFile string `json:"rules_file,omitempty" yaml:"rules_file,omitempty"`
}

// Default creates a configuration with every default applied
func Default() *Config {
	return &Config{
		Trials:     DefaultTrials,
		MaxShrinks: DefaultMaxShrinks,
		LogLevel:   "warn",
		LogFormat:  "text",
		Data:       map[string]any{},
		Secrets: Secrets{
			RepositoryDir:       ".",
			SecretsFile:         ".env",
			TemplateFile:        ".env.example",
			RequiredVariables:   []string{"GITHUB_TOKEN", "OLLAMA_HOST", "LLM_MODEL"},
			ForbiddenPrefixes:   []string{"ghp_", "gho_", "ghs_"},
			CredentialVariable:  "GITHUB_TOKEN",
			CredentialPrefixes:  []string{"ghp_", "gho_", "ghs_", "github_pat_"},
			CredentialMinLength: 40,
			HistoryPatterns:     []string{`ghp_[a-zA-Z0-9]{36}`, `gho_[a-zA-Z0-9]{36}`},
			DocumentationFile:   "docs/SECRETS_MANAGEMENT.md",
			DocumentationTopics: []string{"GitHub", "token", "rotation", "security", ".env"},
		},
		Filesystem: Filesystem{
			ReservedNames: []string{
				"CON", "PRN", "AUX", "NUL",
				"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
				"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
			},
		},
		VCS: VCS{
			Command:       "git",
			Timeout:       "30s",
			ParsedTimeout: 30 * time.Second,
		},
		HTTPS: HTTPS{
			Paths:         []string{"/", "/api", "/health", "/status", "/docs", "/settings"},
			Queries:       []string{"", "?test=1", "?page=1&limit=10", "?redirect=true"},
			ExplicitPort:  80,
			Timeout:       "10s",
			ParsedTimeout: DefaultHTTPTimeout,
		},
		Resilience: Resilience{
			Port:                 22,
			Sudo:                 true,
			Services:             []string{"ollama", "openhands"},
			HelperMarker:         "runtime",
			AllowedPolicies:      []string{"unless-stopped", "always"},
			Timeout:              "15s",
			ParsedTimeout:        DefaultRemoteTimeout,
			RecoveryWindow:       "60s",
			ParsedRecoveryWindow: DefaultRecoveryWindow,
		},
	}
}

// DefaultFile is the configuration file used when none is given, the user file is preferred over the system one
func DefaultFile() string {
	userFile := filepath.Join(xdg.ConfigHome, "choria", "platcheck", "config.yaml")
	systemFile := "/etc/choria/platcheck/config.yaml"

	for _, f := range []string{userFile, systemFile} {
		if _, err := os.Stat(f); err == nil {
			return f
		}
	}

	return ""
}

// Load reads and parses the configuration in file, an empty file name yields the defaults
func Load(file string) (*Config, error) {
	if file == "" {
		return Default(), nil
	}

	cb, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(cb)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", file, err)
	}

	return cfg, nil
}

// ParseConfig validates c against the configuration schema and parses it over the defaults
func ParseConfig(c []byte) (*Config, error) {
	err := validateSchema(c)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	err = yaml.Unmarshal(c, cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.parseDurations()
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) parseDurations() error {
	var err error

	c.VCS.ParsedTimeout, err = parseDuration("vcs.timeout", c.VCS.Timeout)
	if err != nil {
		return err
	}

	c.HTTPS.ParsedTimeout, err = parseDuration("https.timeout", c.HTTPS.Timeout)
	if err != nil {
		return err
	}

	c.Resilience.ParsedTimeout, err = parseDuration("resilience.timeout", c.Resilience.Timeout)
	if err != nil {
		return err
	}

	c.Resilience.ParsedRecoveryWindow, err = parseDuration("resilience.recovery_window", c.Resilience.RecoveryWindow)
	if err != nil {
		return err
	}

	return nil
}

func parseDuration(name string, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}

	d, err := fisk.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", name, v, err)
	}

	return d, nil
}

// Validate checks the parsed configuration for values the schema cannot express
func (c *Config) Validate() error {
	if c.Trials < 1 {
		return fmt.Errorf("trials must be at least 1")
	}

	if c.MaxShrinks < 0 {
		return fmt.Errorf("max_shrinks cannot be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be one of: text, json")
	}

	if c.HTTPS.ParsedTimeout <= 0 {
		return fmt.Errorf("https.timeout must be positive")
	}

	if c.Resilience.ParsedTimeout <= 0 {
		return fmt.Errorf("resilience.timeout must be positive")
	}

	if c.Resilience.Disruption && c.Resilience.ParsedRecoveryWindow <= 0 {
		return fmt.Errorf("resilience.recovery_window must be positive when disruption is enabled")
	}

	if c.Secrets.CredentialMinLength < 0 {
		return fmt.Errorf("secrets.credential_min_length cannot be negative")
	}

	return nil
}

// Resolve replaces {{ expression }} placeholders in the deployment specific settings using env
func (c *Config) Resolve(env *templates.Env) error {
	if env.Data == nil {
		env.Data = c.Data
	}

	return templates.ResolveAll(env,
		&c.WorkspaceRoot,
		&c.Session,
		&c.NatsContext,
		&c.Secrets.RepositoryDir,
		&c.HTTPS.Domain,
		&c.HTTPS.HTTPURL,
		&c.HTTPS.HTTPSURL,
		&c.HTTPS.CAFile,
		&c.Resilience.Host,
		&c.Resilience.User,
		&c.Resilience.KeyFile,
		&c.Goss.RulesFile,
	)
}
