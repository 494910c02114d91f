// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/model/modelmocks"
)

func TestRegistry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal/Registry")
}

var _ = Describe("Registry", func() {
	var (
		mockctl *gomock.Controller
		https   *modelmocks.MockCheckerFactory
		secrets *modelmocks.MockCheckerFactory
		mgr     *modelmocks.MockManager
	)

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		Clear()

		https = modelmocks.NewMockCheckerFactory(mockctl)
		https.EXPECT().TypeName().Return("https").AnyTimes()

		secrets = modelmocks.NewMockCheckerFactory(mockctl)
		secrets.EXPECT().TypeName().Return("secrets").AnyTimes()

		mgr = modelmocks.NewMockManager(mockctl)
	})

	AfterEach(func() {
		mockctl.Finish()
		Clear()
	})

	Describe("Register", func() {
		It("Should register checker factories", func() {
			Expect(Register(https)).To(Succeed())
			Expect(Register(secrets)).To(Succeed())
			Expect(Types()).To(Equal([]string{"https", "secrets"}))
		})

		It("Should reject duplicates", func() {
			Expect(Register(https)).To(Succeed())
			Expect(Register(https)).To(MatchError(model.ErrDuplicateChecker))
		})

		It("Should reject unknown plugin types", func() {
			Expect(Register("https")).To(MatchError(ContainSubstring("cannot register plugin of type string")))
		})

		It("Should reject factories without a type name", func() {
			unnamed := modelmocks.NewMockCheckerFactory(mockctl)
			unnamed.EXPECT().TypeName().Return("")
			Expect(Register(unnamed)).To(MatchError(ContainSubstring("has no type name")))
		})
	})

	Describe("MustRegister", func() {
		It("Should panic when registration fails", func() {
			Expect(func() { MustRegister(https) }).ToNot(Panic())
			Expect(func() { MustRegister(https) }).To(Panic())
		})
	})

	Describe("Clear", func() {
		It("Should remove all registered factories", func() {
			MustRegister(https)
			MustRegister(secrets)
			Expect(Types()).To(HaveLen(2))

			Clear()
			Expect(Types()).To(BeEmpty())
		})
	})

	Describe("Factory and New", func() {
		It("Should fail for unknown types", func() {
			_, err := Factory("dns")
			Expect(err).To(MatchError(model.ErrUnknownChecker))

			_, err = New("dns", mgr)
			Expect(err).To(MatchError(model.ErrUnknownChecker))
		})

		It("Should create checkers using the factory", func() {
			checker := modelmocks.NewMockChecker(mockctl)
			https.EXPECT().New(mgr).Return(checker, nil)
			MustRegister(https)

			c, err := New("https", mgr)
			Expect(err).ToNot(HaveOccurred())
			Expect(c).To(Equal(checker))
		})

		It("Should return factory errors", func() {
			https.EXPECT().New(mgr).Return(nil, fmt.Errorf("no domain"))
			MustRegister(https)

			_, err := New("https", mgr)
			Expect(err).To(MatchError("no domain"))
		})
	})

	Describe("Select", func() {
		BeforeEach(func() {
			MustRegister(https)
			MustRegister(secrets)
		})

		It("Should select everything by default", func() {
			Expect(Select(nil)).To(Equal([]string{"https", "secrets"}))
		})

		It("Should keep the requested order without duplicates", func() {
			Expect(Select([]string{"secrets", "https", "secrets"})).To(Equal([]string{"secrets", "https"}))
		})

		It("Should fail for unknown types", func() {
			_, err := Select([]string{"https", "dns"})
			Expect(err).To(MatchError(model.ErrUnknownChecker))
			Expect(err).To(MatchError(ContainSubstring("dns")))
		})
	})

	Describe("Thread safety", func() {
		It("Should handle concurrent operations", func() {
			done := make(chan bool, 4)

			go func() {
				defer GinkgoRecover()
				Register(https)
				done <- true
			}()

			go func() {
				defer GinkgoRecover()
				Register(secrets)
				done <- true
			}()

			go func() {
				defer GinkgoRecover()
				Types()
				done <- true
			}()

			go func() {
				defer GinkgoRecover()
				Factory("https")
				done <- true
			}()

			for i := 0; i < 4; i++ {
				<-done
			}

			Expect(Types()).To(HaveLen(2))
		})
	})
})
