// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"

	"github.com/choria-io/platcheck/checks/base"
	"github.com/choria-io/platcheck/generators"
	iu "github.com/choria-io/platcheck/internal/util"
	"github.com/choria-io/platcheck/internal/workspace"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/property"
)

const TypeName = "filesystem"

// PermissionSnapshot is the mode and ownership of a file, ownership is -1 when unknown
type PermissionSnapshot struct {
	Mode os.FileMode
	UID  int
	GID  int
}

func (s PermissionSnapshot) String() string {
	return fmt.Sprintf("%04o %d:%d", s.Mode.Perm(), s.UID, s.GID)
}

// Snapshot captures the permissions of path
func Snapshot(fs afero.Fs, path string) (PermissionSnapshot, error) {
	stat, err := fs.Stat(path)
	if err != nil {
		return PermissionSnapshot{}, err
	}

	uid, gid := fileOwner(stat)

	return PermissionSnapshot{Mode: stat.Mode(), UID: uid, GID: gid}, nil
}

// Checker verifies that file creation and modification in a workspace behave predictably
type Checker struct {
	*base.Base

	fs       afero.Fs
	root     string
	reserved []string
}

// Option configures a Checker
type Option func(*Checker) error

// WithFs creates workspaces on fs rather than the operating system filesystem
func WithFs(fs afero.Fs) Option {
	return func(c *Checker) error {
		c.fs = fs
		return nil
	}
}

// New creates a filesystem property checker
func New(mgr model.Manager, opts ...Option) (*Checker, error) {
	b, err := base.New(TypeName, mgr)
	if err != nil {
		return nil, err
	}

	c := &Checker{
		Base:     b,
		fs:       afero.NewOsFs(),
		root:     b.Config.WorkspaceRoot,
		reserved: b.Config.Filesystem.ReservedNames,
	}

	for _, opt := range opts {
		err = opt(c)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Checker) TypeName() string { return TypeName }

// Run evaluates both properties followed by the fixed scenarios
func (c *Checker) Run(ctx context.Context) ([]*model.CheckResult, error) {
	c.Property("structure", "file creation preserves structure", prop.ForAll(
		func(path []string, content string) *gopter.PropResult {
			return property.Verdict(c.withWorkspace(func(ws *workspace.Workspace) error {
				return c.verifyStructure(ws, path, content)
			}))
		},
		generators.RelativePath(c.reserved...),
		generators.FileContent(0, generators.MaxContentLength),
	))

	if ctx.Err() != nil {
		return c.Finish(ctx)
	}

	c.Property("permissions", "file modification preserves permissions", prop.ForAll(
		func(path []string, initial string, changed string) *gopter.PropResult {
			return property.Verdict(c.withWorkspace(func(ws *workspace.Workspace) error {
				return c.verifyPermissions(ws, path, initial, changed)
			}))
		},
		generators.RelativePath(c.reserved...),
		generators.FileContent(0, generators.MaxContentLength),
		generators.FileContent(0, generators.MaxContentLength),
	))

	scenarios := []struct {
		check string
		msg   string
		cb    func(*workspace.Workspace) error
	}{
		{"nested_directories", "files are created 4 directories deep", c.nestedDirectories},
		{"existing_parents", "files are created below existing directories", c.existingParents},
		{"custom_permissions", "custom permissions survive modification", c.customPermissions},
		{"sequential_modifications", "permissions survive repeated modification", c.sequentialModifications},
		{"empty_roundtrip", "permissions survive emptying a file", c.emptyRoundtrip},
	}

	for _, s := range scenarios {
		if ctx.Err() != nil {
			break
		}

		c.Static(ctx, s.check, s.msg, func(context.Context) error {
			return c.withWorkspace(s.cb)
		})
	}

	return c.Finish(ctx)
}

func (c *Checker) withWorkspace(cb func(*workspace.Workspace) error) error {
	return workspace.With(c.fs, c.root, TypeName, cb)
}

func violation(format string, a ...any) error {
	return fmt.Errorf("%w: %s", model.ErrPropertyViolation, fmt.Sprintf(format, a...))
}

func (c *Checker) createFile(path string, content string) error {
	err := c.fs.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	return afero.WriteFile(c.fs, path, []byte(content), 0644)
}

// modifyFile rewrites an existing file in place, never replacing it
func (c *Checker) modifyFile(path string, content string) error {
	f, err := c.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}

	_, err = f.WriteString(content)

	return errors.Join(err, f.Close())
}

func (c *Checker) verifyContent(path string, expected string) error {
	actual, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return violation("could not read %s: %v", path, err)
	}

	if string(actual) != expected {
		got, _ := iu.Sha256HashReader(bytes.NewReader(actual))
		want, _ := iu.Sha256HashReader(strings.NewReader(expected))

		return violation("content of %s is %d bytes with sha256 %s, expected %d bytes with sha256 %s", path, len(actual), got, len(expected), want)
	}

	return nil
}

func (c *Checker) verifyRegularFile(path string) error {
	stat, err := c.fs.Stat(path)
	if err != nil {
		return violation("%s does not exist: %v", path, err)
	}
	if !stat.Mode().IsRegular() {
		return violation("%s is not a regular file", path)
	}

	return nil
}

func (c *Checker) verifyStructure(ws *workspace.Workspace, components []string, content string) error {
	path := ws.Join(components...)

	exists, err := afero.Exists(c.fs, path)
	if err != nil {
		return err
	}
	if exists {
		return violation("%s exists before creation", path)
	}

	err = c.createFile(path, content)
	if err != nil {
		return err
	}

	err = c.verifyRegularFile(path)
	if err != nil {
		return err
	}

	err = c.verifyContent(path, content)
	if err != nil {
		return err
	}

	for dir := filepath.Dir(path); dir != ws.Path(); dir = filepath.Dir(dir) {
		isDir, err := afero.IsDir(c.fs, dir)
		if err != nil || !isDir {
			return violation("ancestor %s is not a directory", dir)
		}
	}

	rel, err := ws.Rel(path)
	if err != nil {
		return err
	}

	actual := strings.Split(filepath.ToSlash(rel), "/")
	if !slices.Equal(actual, components) {
		return violation("created %v, expected %v", actual, components)
	}

	return nil
}

func (c *Checker) verifyUnchanged(path string, expected PermissionSnapshot, step string) error {
	actual, err := Snapshot(c.fs, path)
	if err != nil {
		return violation("%s disappeared after %s: %v", path, step, err)
	}

	if actual != expected {
		return violation("permissions changed after %s from %s to %s", step, expected, actual)
	}

	return nil
}

func (c *Checker) verifyPermissions(ws *workspace.Workspace, components []string, initial string, changed string) error {
	path := ws.Join(components...)

	err := c.createFile(path, initial)
	if err != nil {
		return err
	}

	original, err := Snapshot(c.fs, path)
	if err != nil {
		return err
	}

	for i, content := range []string{changed, "", initial, changed} {
		err = c.modifyFile(path, content)
		if err != nil {
			return err
		}

		step := fmt.Sprintf("modification %d", i+1)

		err = c.verifyUnchanged(path, original, step)
		if err != nil {
			return err
		}

		err = c.verifyContent(path, content)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Checker) nestedDirectories(ws *workspace.Workspace) error {
	path := ws.Join("level1", "level2", "level3", "level4", "test.txt")

	err := c.createFile(path, "deep content")
	if err != nil {
		return err
	}

	err = c.verifyRegularFile(path)
	if err != nil {
		return err
	}

	for i := 1; i <= 4; i++ {
		parts := make([]string, i)
		for l := range i {
			parts[l] = fmt.Sprintf("level%d", l+1)
		}

		isDir, err := afero.IsDir(c.fs, ws.Join(parts...))
		if err != nil || !isDir {
			return violation("%s is not a directory", filepath.Join(parts...))
		}
	}

	return c.verifyContent(path, "deep content")
}

func (c *Checker) existingParents(ws *workspace.Workspace) error {
	parent := ws.Join("existing", "parent")

	err := c.fs.MkdirAll(parent, 0755)
	if err != nil {
		return err
	}

	path := filepath.Join(parent, "newfile.txt")
	err = c.createFile(path, "content in existing dir")
	if err != nil {
		return err
	}

	err = c.verifyRegularFile(path)
	if err != nil {
		return err
	}

	isDir, err := afero.IsDir(c.fs, parent)
	if err != nil || !isDir {
		return violation("existing parent %s is no longer a directory", parent)
	}

	return nil
}

func (c *Checker) customPermissions(ws *workspace.Workspace) error {
	const custom os.FileMode = 0440

	path := ws.Join("custom_perms.txt")
	err := c.createFile(path, "initial content")
	if err != nil {
		return err
	}

	err = c.fs.Chmod(path, custom)
	if err != nil {
		return err
	}

	err = c.fs.Chmod(path, 0600)
	if err != nil {
		return err
	}

	err = c.modifyFile(path, "modified content")
	if err != nil {
		return err
	}

	err = c.fs.Chmod(path, custom)
	if err != nil {
		return err
	}

	final, err := Snapshot(c.fs, path)
	if err != nil {
		return err
	}

	if final.Mode.Perm() != custom {
		return violation("mode is %04o after restoring %04o", final.Mode.Perm(), custom)
	}

	return c.verifyContent(path, "modified content")
}

func (c *Checker) sequentialModifications(ws *workspace.Workspace) error {
	path := ws.Join("multi_mod.txt")
	err := c.createFile(path, "version 1")
	if err != nil {
		return err
	}

	original, err := Snapshot(c.fs, path)
	if err != nil {
		return err
	}

	for i := 2; i <= 5; i++ {
		err = c.modifyFile(path, fmt.Sprintf("version %d", i))
		if err != nil {
			return err
		}

		err = c.verifyUnchanged(path, original, fmt.Sprintf("version %d", i))
		if err != nil {
			return err
		}
	}

	return c.verifyContent(path, "version 5")
}

func (c *Checker) emptyRoundtrip(ws *workspace.Workspace) error {
	path := ws.Join("empty.txt")
	err := c.createFile(path, "")
	if err != nil {
		return err
	}

	original, err := Snapshot(c.fs, path)
	if err != nil {
		return err
	}

	for _, content := range []string{"now has content", ""} {
		err = c.modifyFile(path, content)
		if err != nil {
			return err
		}

		err = c.verifyUnchanged(path, original, fmt.Sprintf("writing %d bytes", len(content)))
		if err != nil {
			return err
		}
	}

	return c.verifyContent(path, "")
}
