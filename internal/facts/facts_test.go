// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package facts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/platcheck/model/modelmocks"
)

func TestFacts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal/Facts")
}

var _ = Describe("Facts", func() {
	var (
		mockctl *gomock.Controller
		logger  *modelmocks.MockLogger
		td      string
	)

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		logger = modelmocks.NewMockLogger(mockctl)
		logger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
		td = GinkgoT().TempDir()
	})

	Describe("StandardFacts", func() {
		It("Should include runtime facts", func(ctx context.Context) {
			f, err := StandardFacts(ctx, logger)
			Expect(err).ToNot(HaveOccurred())
			Expect(f).To(HaveKey("host"))
			Expect(f).To(HaveKey("cpu"))
			Expect(f).To(HaveKey("memory"))
			Expect(f["runtime"]).To(HaveKey("os"))
		})
	})

	Describe("MergeFactsFiles", func() {
		It("Should merge json then yaml", func() {
			Expect(os.WriteFile(filepath.Join(td, "facts.json"), []byte(`{"site":{"name":"lon","rack":1}}`), 0600)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(td, "facts.yaml"), []byte("site:\n  rack: 2\nrole: operator\n"), 0600)).To(Succeed())

			f := MergeFactsFiles(map[string]any{"host": "ops1"}, td, logger)
			Expect(f["host"]).To(Equal("ops1"))
			Expect(f["role"]).To(Equal("operator"))

			site, ok := f["site"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(site["name"]).To(Equal("lon"))
			Expect(site["rack"]).To(BeNumerically("==", 2))
		})

		It("Should skip invalid files", func() {
			logger.EXPECT().Error("Failed to unmarshal facts file", gomock.Any()).Times(1)
			Expect(os.WriteFile(filepath.Join(td, "facts.json"), []byte(`{`), 0600)).To(Succeed())

			f := MergeFactsFiles(map[string]any{"host": "ops1"}, td, logger)
			Expect(f).To(Equal(map[string]any{"host": "ops1"}))
		})

		It("Should ignore missing directories", func() {
			f := MergeFactsFiles(map[string]any{"host": "ops1"}, filepath.Join(td, "missing"), logger)
			Expect(f).To(HaveLen(1))
		})
	})
})
