// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/templates"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config")
}

var _ = Describe("Config", func() {
	Describe("Default", func() {
		It("Should carry the platform defaults", func() {
			cfg := config.Default()
			Expect(cfg.Trials).To(Equal(100))
			Expect(cfg.Secrets.SecretsFile).To(Equal(".env"))
			Expect(cfg.Secrets.RequiredVariables).To(ConsistOf("GITHUB_TOKEN", "OLLAMA_HOST", "LLM_MODEL"))
			Expect(cfg.HTTPS.ParsedTimeout).To(Equal(10 * time.Second))
			Expect(cfg.HTTPS.Paths).To(ContainElement("/api"))
			Expect(cfg.Resilience.Services).To(Equal([]string{"ollama", "openhands"}))
			Expect(cfg.Resilience.AllowedPolicies).To(Equal([]string{"unless-stopped", "always"}))
			Expect(cfg.Resilience.Disruption).To(BeFalse())
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("ParseConfig", func() {
		It("Should accept an empty document", func() {
			cfg, err := config.ParseConfig([]byte(""))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Trials).To(Equal(config.DefaultTrials))
		})

		It("Should override defaults", func() {
			cfg, err := config.ParseConfig([]byte(`
trials: 25
seed: 42
checks: [https, resilience]
https:
  domain: code.example.net
  timeout: 3s
  paths: [/, /api]
resilience:
  host: 10.0.0.5
  user: ops
  recovery_window: 2m
  disruption: true
`))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Trials).To(Equal(25))
			Expect(cfg.Seed).To(Equal(int64(42)))
			Expect(cfg.Checks).To(Equal([]string{"https", "resilience"}))
			Expect(cfg.HTTPS.Domain).To(Equal("code.example.net"))
			Expect(cfg.HTTPS.ParsedTimeout).To(Equal(3 * time.Second))
			Expect(cfg.HTTPS.Paths).To(Equal([]string{"/", "/api"}))
			Expect(cfg.HTTPS.Queries).To(ContainElement("?page=1&limit=10"))
			Expect(cfg.Resilience.Host).To(Equal("10.0.0.5"))
			Expect(cfg.Resilience.ParsedRecoveryWindow).To(Equal(2 * time.Minute))
			Expect(cfg.Resilience.Disruption).To(BeTrue())
			Expect(cfg.Resilience.Sudo).To(BeTrue())
		})

		DescribeTable("parses durations with fisk",
			func(input string, expected time.Duration, expectError bool) {
				cfg, err := config.ParseConfig([]byte("vcs:\n  timeout: " + input + "\n"))
				if expectError {
					Expect(err).To(HaveOccurred())
					return
				}

				Expect(err).ToNot(HaveOccurred())
				Expect(cfg.VCS.ParsedTimeout).To(Equal(expected))
			},

			Entry("seconds", "30s", 30*time.Second, false),
			Entry("minutes", "5m", 5*time.Minute, false),
			Entry("combined", "1h30m", time.Hour+30*time.Minute, false),
			Entry("days", "1d", 24*time.Hour, false),
			Entry("weeks", "1w", 7*24*time.Hour, false),
			Entry("invalid", "1x", time.Duration(0), true),
		)

		DescribeTable("rejects invalid documents",
			func(doc string, msg string) {
				_, err := config.ParseConfig([]byte(doc))
				Expect(err).To(MatchError(ContainSubstring(msg)))
			},

			Entry("unknown key", "trails: 10\n", "schema validation failed"),
			Entry("unknown checker", "checks: [dns]\n", "schema validation failed"),
			Entry("zero trials", "trials: 0\n", "schema validation failed"),
			Entry("relative path", "https:\n  paths: [api]\n", "schema validation failed"),
			Entry("bad query", "https:\n  queries: [page=1]\n", "schema validation failed"),
			Entry("unknown policy", "resilience:\n  allowed_policies: [sometimes]\n", "schema validation failed"),
			Entry("bad log level", "log_level: chatty\n", "schema validation failed"),
			Entry("wrong type", "secrets:\n  credential_min_length: long\n", "schema validation failed"),
		)
	})

	Describe("Load", func() {
		It("Should use defaults without a file", func() {
			cfg, err := config.Load("")
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg).To(Equal(config.Default()))
		})

		It("Should read the file", func() {
			f := filepath.Join(GinkgoT().TempDir(), "config.yaml")
			Expect(os.WriteFile(f, []byte("trials: 7\n"), 0600)).To(Succeed())

			cfg, err := config.Load(f)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Trials).To(Equal(7))
		})

		It("Should name the file on errors", func() {
			f := filepath.Join(GinkgoT().TempDir(), "config.yaml")
			Expect(os.WriteFile(f, []byte("trials: -1\n"), 0600)).To(Succeed())

			_, err := config.Load(f)
			Expect(err).To(MatchError(ContainSubstring(f)))
		})
	})

	Describe("Validate", func() {
		It("Should require a recovery window when disruption is enabled", func() {
			cfg := config.Default()
			cfg.Resilience.Disruption = true
			cfg.Resilience.ParsedRecoveryWindow = 0
			Expect(cfg.Validate()).To(MatchError(ContainSubstring("recovery_window")))
		})
	})

	Describe("Resolve", func() {
		It("Should resolve deployment settings from the environment and data", func() {
			cfg, err := config.ParseConfig([]byte(`
data:
  host: 10.1.1.1
https:
  domain: "{{ Environ.PLATFORM_DOMAIN }}"
resilience:
  host: "{{ lookup('data.host') }}"
  key_file: "{{ lookup('environ.SSH_KEY', '/root/.ssh/id_rsa') }}"
`))
			Expect(err).ToNot(HaveOccurred())

			err = cfg.Resolve(&templates.Env{Environ: map[string]string{"PLATFORM_DOMAIN": "code.example.net"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.HTTPS.Domain).To(Equal("code.example.net"))
			Expect(cfg.Resilience.Host).To(Equal("10.1.1.1"))
			Expect(cfg.Resilience.KeyFile).To(Equal("/root/.ssh/id_rsa"))
		})
	})
})
