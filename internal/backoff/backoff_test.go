// Copyright (c) 2017-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package backoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/choria-io/platcheck/internal/backoff"
)

func TestBackoff(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal/Backoff")
}

var _ = Describe("Policy", func() {
	var poll backoff.Policy

	BeforeEach(func() {
		poll = backoff.Policy{Millis: []int{1, 2, 3}}
	})

	Describe("Duration", func() {
		It("Should jitter around the delay of the try", func() {
			p := backoff.Policy{Millis: []int{100}}
			for range 20 {
				Expect(p.Duration(0)).To(BeNumerically("~", 100*time.Millisecond, 50*time.Millisecond))
			}
		})

		It("Should use the last delay for later tries", func() {
			p := backoff.Policy{Millis: []int{0, 40}}
			for range 20 {
				Expect(p.Duration(9)).To(BeNumerically("~", 40*time.Millisecond, 20*time.Millisecond))
			}
			Expect(p.Duration(-1)).To(BeZero())
		})

		It("Should not delay without delays", func() {
			Expect(backoff.Policy{}.Duration(3)).To(BeZero())
			Expect(backoff.RecoveryPoll.Duration(0)).To(BeZero())
		})
	})

	Describe("For", func() {
		It("Should retry until the condition holds", func(ctx context.Context) {
			var tries []int

			err := poll.For(ctx, func(try int) error {
				tries = append(tries, try)
				if try < 4 {
					return errors.New("not yet")
				}
				return nil
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(tries).To(Equal([]int{1, 2, 3, 4}))
		})

		It("Should not retry a condition that holds immediately", func(ctx context.Context) {
			calls := 0
			Expect(poll.For(ctx, func(int) error { calls++; return nil })).To(Succeed())
			Expect(calls).To(Equal(1))
		})

		It("Should stop when the context times out", func(ctx context.Context) {
			tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()

			calls := 0
			start := time.Now()
			err := poll.For(tctx, func(int) error {
				calls++
				return errors.New("never")
			})

			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(calls).To(BeNumerically(">", 1))
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})

		It("Should not call the condition once cancelled", func(ctx context.Context) {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			called := false
			err := poll.For(cctx, func(int) error { called = true; return nil })
			Expect(err).To(MatchError(context.Canceled))
			Expect(called).To(BeFalse())
		})

		It("Should interrupt a long delay when cancelled", func(ctx context.Context) {
			slow := backoff.Policy{Millis: []int{60000}}
			cctx, cancel := context.WithCancel(ctx)

			start := time.Now()
			err := slow.For(cctx, func(int) error {
				cancel()
				return errors.New("failed")
			})

			Expect(err).To(MatchError(context.Canceled))
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		})
	})
})
