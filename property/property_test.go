// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package property

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/generators"
	"github.com/choria-io/platcheck/model"
)

func TestProperty(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Property")
}

var _ = Describe("Property", func() {
	var params Parameters

	BeforeEach(func() {
		params = DefaultParameters()
		params.Seed = 1
	})

	Describe("FromConfig", func() {
		It("Should use the configured trials and seed", func() {
			cfg := config.Default()
			cfg.Trials = 12
			cfg.Seed = 99
			cfg.MaxShrinks = 3

			p := FromConfig(cfg)
			Expect(p.Trials).To(Equal(12))
			Expect(p.Seed).To(Equal(int64(99)))
			Expect(p.MaxShrinks).To(Equal(3))
			Expect(FromConfig(nil)).To(Equal(DefaultParameters()))
		})

		It("Should only lower trials", func() {
			Expect(params.WithTrials(10).Trials).To(Equal(10))
			Expect(params.WithTrials(1000).Trials).To(Equal(100))
			Expect(params.WithTrials(0).Trials).To(Equal(100))
		})
	})

	Describe("Verdict", func() {
		It("Should classify trial errors", func() {
			Expect(Verdict(nil).Status).To(Equal(gopter.PropTrue))

			v := Verdict(fmt.Errorf("%w: content differs", model.ErrPropertyViolation))
			Expect(v.Status).To(Equal(gopter.PropFalse))
			Expect(v.Labels).To(ConsistOf("property violated: content differs"))

			Expect(Verdict(model.ErrTemplateMissing).Status).To(Equal(gopter.PropFalse))

			e := Verdict(errors.New("disk full"))
			Expect(e.Status).To(Equal(gopter.PropError))
			Expect(e.Error).To(MatchError("disk full"))
		})
	})

	Describe("Check", func() {
		It("Should pass properties that hold", func() {
			calls := 0
			p := prop.ForAll(func(s string) *gopter.PropResult {
				calls++
				return Verdict(nil)
			}, generators.ProjectName())

			res := Check(params, "vcs", "init", "repository layout", p)
			Expect(res.Status).To(Equal(model.CheckPassed))
			Expect(res.Trials).To(Equal(100))
			Expect(calls).To(Equal(100))
			Expect(res.Message).To(Equal("repository layout held for 100 trials"))
			Expect(res.Duration).To(BeNumerically(">", 0))
		})

		It("Should report shrunk counterexamples", func() {
			p := prop.ForAll(func(s string) *gopter.PropResult {
				if len(s) > 3 {
					return Verdict(fmt.Errorf("%w: %q is too long", model.ErrPropertyViolation, s))
				}
				return Verdict(nil)
			}, generators.ProjectName())

			res := Check(params, "vcs", "init", "short names", p)
			Expect(res.Status).To(Equal(model.CheckFailed))
			Expect(res.Kind).To(Equal(model.ViolationFailure))
			Expect(res.Counterexample).To(Equal(`"aaaa"`))
			Expect(res.Shrinks).To(BeNumerically(">", 0))
			Expect(res.Message).To(HavePrefix("short names: property violated"))
			Expect(res.Message).To(ContainSubstring("(seed 1)"))
		})

		It("Should report every argument of a counterexample", func() {
			p := prop.ForAll(func(path []string, content string) *gopter.PropResult {
				return Verdict(fmt.Errorf("%w: always", model.ErrPropertyViolation))
			}, generators.RelativePath(), generators.FileContent(0, 10))

			res := Check(params.WithTrials(5), "filesystem", "structure", "structure", p)
			Expect(res.Status).To(Equal(model.CheckFailed))
			Expect(res.Trials).To(Equal(1))
			Expect(strings.Split(res.Counterexample, ", ")).To(HaveLen(2))
		})

		It("Should skip when the environment is unavailable", func() {
			p := prop.ForAll(func(s string) *gopter.PropResult {
				return Verdict(fmt.Errorf("%w: git not found", model.ErrEnvironmentUnavailable))
			}, generators.ProjectName())

			res := Check(params, "vcs", "init", "layout", p)
			Expect(res.Status).To(Equal(model.CheckSkipped))
			Expect(res.Kind).To(Equal(model.EnvironmentFailure))
			Expect(res.Message).To(ContainSubstring("git not found"))
			Expect(res.Counterexample).To(BeEmpty())
		})

		It("Should report infrastructure errors", func() {
			p := prop.ForAll(func(s string) *gopter.PropResult {
				return Verdict(errors.New("permission denied"))
			}, generators.ProjectName())

			res := Check(params, "filesystem", "permissions", "permissions", p)
			Expect(res.Status).To(Equal(model.CheckError))
			Expect(res.Kind).To(Equal(model.InfrastructureFailure))
			Expect(res.Message).To(Equal("permission denied"))
		})

		It("Should report exhausted generators as harness errors", func() {
			impossible := generators.ProjectName().SuchThat(func(s string) bool { return false })
			p := prop.ForAll(func(s string) *gopter.PropResult {
				return Verdict(nil)
			}, impossible)

			res := Check(params, "vcs", "init", "layout", p)
			Expect(res.Status).To(Equal(model.CheckError))
			Expect(res.Kind).To(Equal(model.GeneratorFailure))
			Expect(res.Message).To(ContainSubstring("generator exhausted"))
		})
	})
})
