// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package base

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/generators"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/model/modelmocks"
	"github.com/choria-io/platcheck/property"
)

func TestBase(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Checks/Base")
}

var _ = Describe("Base", func() {
	var (
		mockctl  *gomock.Controller
		mgr      *modelmocks.MockManager
		b        *Base
		recorded []*model.CheckResult
	)

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		cfg := config.Default()
		cfg.Trials = 7
		cfg.Seed = 1

		mgr, _ = modelmocks.NewManager(cfg, nil, mockctl)
		recorded = nil
		mgr.EXPECT().RecordResult(gomock.Any()).DoAndReturn(func(r *model.CheckResult) error {
			recorded = append(recorded, r)
			return nil
		}).AnyTimes()

		var err error
		b, err = New("example", mgr)
		Expect(err).ToNot(HaveOccurred())
	})

	It("Should require a manager", func() {
		_, err := New("example", nil)
		Expect(err).To(MatchError("example checker requires a manager"))
	})

	It("Should configure properties from the manager configuration", func() {
		Expect(b.Params.Trials).To(Equal(7))
		Expect(b.Params.Seed).To(Equal(int64(1)))
	})

	Describe("Static", func() {
		It("Should record passing and failing checks", func(ctx context.Context) {
			pass := b.Static(ctx, "ok", "all good", func(context.Context) error { return nil })
			Expect(pass.Status).To(Equal(model.CheckPassed))
			Expect(pass.Message).To(Equal("all good"))
			Expect(pass.Checker).To(Equal("example"))

			fail := b.Static(ctx, "template", "", func(context.Context) error {
				return fmt.Errorf("%w: .env.example", model.ErrTemplateMissing)
			})
			Expect(fail.Status).To(Equal(model.CheckFailed))
			Expect(fail.Kind).To(Equal(model.MisconfigurationFailure))

			skip := b.Static(ctx, "remote", "", func(context.Context) error { return model.ErrEnvironmentUnavailable })
			Expect(skip.Status).To(Equal(model.CheckSkipped))

			Expect(recorded).To(HaveLen(3))
			Expect(b.Results()).To(Equal(recorded))
		})
	})

	Describe("Scenario", func() {
		It("Should record the produced result with timing", func(ctx context.Context) {
			res := b.Scenario(ctx, "nested", func(_ context.Context, r *model.CheckResult) *model.CheckResult {
				return r.Skip("not applicable")
			})
			Expect(res.Check).To(Equal("nested"))
			Expect(res.Status).To(Equal(model.CheckSkipped))
			Expect(recorded).To(ConsistOf(res))
		})
	})

	Describe("Property", func() {
		It("Should evaluate with the configured trials", func() {
			calls := 0
			res := b.Property("names", "names are valid", prop.ForAll(func(s string) *gopter.PropResult {
				calls++
				return property.Verdict(nil)
			}, generators.ProjectName()))

			Expect(res.Status).To(Equal(model.CheckPassed))
			Expect(res.Trials).To(Equal(7))
			Expect(calls).To(Equal(7))
			Expect(recorded).To(HaveLen(1))
		})
	})

	Describe("Record", func() {
		It("Should warn when the manager cannot record", func() {
			mockctl = gomock.NewController(GinkgoT())
			mgr, _ = modelmocks.NewManager(nil, nil, mockctl)
			mgr.EXPECT().RecordResult(gomock.Any()).Return(errors.New("store closed"))

			var err error
			b, err = New("example", mgr)
			Expect(err).ToNot(HaveOccurred())

			res := b.Record(model.NewCheckResult("", "x").Pass("ok"))
			Expect(res.Checker).To(Equal("example"))
			Expect(b.Results()).To(HaveLen(1))
		})
	})

	Describe("Finish", func() {
		It("Should report cancellation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			b.Record(model.NewCheckResult("", "x").Pass("ok"))
			cancel()

			res, err := b.Finish(ctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res).To(HaveLen(1))
		})
	})
})
