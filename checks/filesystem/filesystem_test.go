// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"

	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/internal/workspace"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/model/modelmocks"
)

func TestFilesystem(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Checks/Filesystem")
}

// resettingFs loses the file mode whenever an existing file is rewritten
type resettingFs struct {
	afero.Fs
}

func (f *resettingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_TRUNC > 0 && flag&os.O_CREATE == 0 {
		err := f.Fs.Chmod(name, 0666)
		if err != nil {
			return nil, err
		}
	}

	return f.Fs.OpenFile(name, flag, perm)
}

var _ = Describe("Filesystem", func() {
	var (
		mockctl *gomock.Controller
		cfg     *config.Config
		fs      afero.Fs
	)

	run := func(fs afero.Fs) map[string]*model.CheckResult {
		mgr, _ := modelmocks.NewManager(cfg, nil, mockctl)
		mgr.EXPECT().RecordResult(gomock.Any()).Return(nil).AnyTimes()

		c, err := New(mgr, WithFs(fs))
		Expect(err).ToNot(HaveOccurred())

		results, err := c.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(results).To(HaveLen(7))

		found := map[string]*model.CheckResult{}
		for _, r := range results {
			found[r.Check] = r
		}

		return found
	}

	BeforeEach(func() {
		mockctl = gomock.NewController(GinkgoT())
		fs = afero.NewMemMapFs()
		cfg = config.Default()
		cfg.Trials = 20
		cfg.Seed = 10
		cfg.WorkspaceRoot = "/work"
	})

	It("Should pass on a well behaved filesystem and remove every workspace", func() {
		res := run(fs)
		for _, r := range res {
			Expect(r.Status).To(Equal(model.CheckPassed), r.String())
		}

		Expect(res["structure"].Trials).To(Equal(20))
		Expect(res["permissions"].Trials).To(Equal(20))

		entries, err := afero.ReadDir(fs, "/work")
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("Should detect modifications that change permissions", func() {
		res := run(&resettingFs{Fs: fs})

		Expect(res["structure"].Status).To(Equal(model.CheckPassed))
		Expect(res["custom_permissions"].Status).To(Equal(model.CheckPassed))

		Expect(res["permissions"].Status).To(Equal(model.CheckFailed))
		Expect(res["permissions"].Kind).To(Equal(model.ViolationFailure))
		Expect(res["permissions"].Counterexample).ToNot(BeEmpty())
		Expect(res["permissions"].Message).To(ContainSubstring("permissions changed after modification 1"))

		Expect(res["sequential_modifications"].Status).To(Equal(model.CheckFailed))
		Expect(res["empty_roundtrip"].Status).To(Equal(model.CheckFailed))
	})

	It("Should report read only filesystems as infrastructure errors", func() {
		res := run(afero.NewReadOnlyFs(fs))
		Expect(res["structure"].Status).To(Equal(model.CheckError))
		Expect(res["structure"].Kind).To(Equal(model.InfrastructureFailure))
		Expect(res["nested_directories"].Status).To(Equal(model.CheckError))
	})

	Describe("verifyStructure", func() {
		It("Should detect files that already exist", func() {
			mgr, _ := modelmocks.NewManager(cfg, nil, mockctl)
			c, err := New(mgr, WithFs(fs))
			Expect(err).ToNot(HaveOccurred())

			err = workspace.With(fs, "/work", "test", func(ws *workspace.Workspace) error {
				Expect(afero.WriteFile(fs, ws.Join("a", "b.txt"), []byte("x"), 0644)).To(Succeed())
				return c.verifyStructure(ws, []string{"a", "b.txt"}, "y")
			})
			Expect(err).To(MatchError(model.ErrPropertyViolation))
			Expect(err.Error()).To(ContainSubstring("exists before creation"))
		})
	})

	Describe("Snapshot", func() {
		It("Should report unknown ownership for memory filesystems", func() {
			Expect(afero.WriteFile(fs, "/f.txt", []byte("x"), 0640)).To(Succeed())
			snap, err := Snapshot(fs, "/f.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(snap.Mode.Perm()).To(Equal(os.FileMode(0640)))
			Expect(snap.UID).To(Equal(-1))
			Expect(snap.GID).To(Equal(-1))
			Expect(snap.String()).To(Equal("0640 -1:-1"))
		})

		It("Should read ownership from the operating system", func() {
			path := filepath.Join(GinkgoT().TempDir(), "f.txt")
			Expect(os.WriteFile(path, []byte("x"), 0600)).To(Succeed())

			snap, err := Snapshot(afero.NewOsFs(), path)
			Expect(err).ToNot(HaveOccurred())
			Expect(snap.Mode.Perm()).To(Equal(os.FileMode(0600)))
			Expect(snap.UID).To(Equal(os.Getuid()))
		})
	})
})
