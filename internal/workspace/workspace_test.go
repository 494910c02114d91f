// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

func TestWorkspace(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Internal/Workspace")
}

var _ = Describe("Workspace", func() {
	var fs afero.Fs

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
	})

	Describe("New", func() {
		It("Should create unique directories below the root", func() {
			a, err := New(fs, "/scratch", "vcs")
			Expect(err).ToNot(HaveOccurred())
			b, err := New(fs, "/scratch", "vcs")
			Expect(err).ToNot(HaveOccurred())

			Expect(a.Path()).ToNot(Equal(b.Path()))
			Expect(filepath.Dir(a.Path())).To(Equal("/scratch"))
			Expect(strings.HasPrefix(filepath.Base(a.Path()), "vcs-")).To(BeTrue())

			isDir, err := afero.IsDir(fs, a.Path())
			Expect(err).ToNot(HaveOccurred())
			Expect(isDir).To(BeTrue())
		})

		It("Should work on the real filesystem", func() {
			ws, err := New(nil, GinkgoT().TempDir(), "")
			Expect(err).ToNot(HaveOccurred())
			Expect(filepath.Base(ws.Path())).To(HavePrefix("platcheck-"))
			Expect(ws.Close()).To(Succeed())
		})
	})

	Describe("Close", func() {
		It("Should remove the workspace and its contents", func() {
			ws, err := New(fs, "/scratch", "fs")
			Expect(err).ToNot(HaveOccurred())

			Expect(fs.MkdirAll(ws.Join("a", "b"), 0700)).To(Succeed())
			Expect(afero.WriteFile(fs, ws.Join("a", "b", "c.txt"), []byte("x"), 0600)).To(Succeed())

			Expect(ws.Close()).To(Succeed())

			exists, err := afero.Exists(fs, ws.Path())
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("Should tolerate a workspace removed by someone else", func() {
			ws, err := New(fs, "/scratch", "fs")
			Expect(err).ToNot(HaveOccurred())

			Expect(fs.RemoveAll(ws.Path())).To(Succeed())
			Expect(ws.Close()).To(Succeed())
			Expect(ws.Close()).To(Succeed())
		})
	})

	Describe("With", func() {
		It("Should clean up after failures", func() {
			var path string
			err := With(fs, "/scratch", "fs", func(ws *Workspace) error {
				path = ws.Path()
				Expect(ws.Fs()).To(Equal(fs))
				return errors.New("trial failed")
			})
			Expect(err).To(MatchError("trial failed"))

			exists, err := afero.Exists(fs, path)
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		})

		It("Should report paths relative to the workspace", func() {
			Expect(With(fs, "/scratch", "fs", func(ws *Workspace) error {
				rel, err := ws.Rel(ws.Join("x", "y.txt"))
				Expect(err).ToNot(HaveOccurred())
				Expect(rel).To(Equal(filepath.Join("x", "y.txt")))
				return nil
			})).To(Succeed())
		})
	})
})
