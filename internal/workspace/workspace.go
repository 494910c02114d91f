// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// Workspace is a uniquely named scratch directory removed when closed
type Workspace struct {
	fs     afero.Fs
	path   string
	closed bool
	mu     sync.Mutex
}

// New creates a workspace below root, the system temporary directory is used when root is empty
func New(fs afero.Fs, root string, prefix string) (*Workspace, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if root == "" {
		root = os.TempDir()
	}

	err := fs.MkdirAll(root, 0700)
	if err != nil {
		return nil, fmt.Errorf("could not create workspace root: %w", err)
	}

	if prefix == "" {
		prefix = "platcheck"
	}

	dir, err := afero.TempDir(fs, root, fmt.Sprintf("%s-%s-", prefix, ksuid.New().String()))
	if err != nil {
		return nil, fmt.Errorf("could not create workspace: %w", err)
	}

	return &Workspace{fs: fs, path: dir}, nil
}

// With runs cb in a new workspace that is removed afterwards regardless of the outcome of cb
func With(fs afero.Fs, root string, prefix string, cb func(*Workspace) error) (err error) {
	ws, err := New(fs, root, prefix)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, ws.Close())
	}()

	return cb(ws)
}

// Path is the absolute path of the workspace
func (w *Workspace) Path() string {
	return w.path
}

// Fs is the filesystem the workspace lives on
func (w *Workspace) Fs() afero.Fs {
	return w.fs
}

// Join joins parts onto the workspace path
func (w *Workspace) Join(parts ...string) string {
	return filepath.Join(append([]string{w.path}, parts...)...)
}

// Rel returns path relative to the workspace
func (w *Workspace) Rel(path string) (string, error) {
	return filepath.Rel(w.path, path)
}

// Close removes the workspace and everything in it, a workspace that is already gone is not an error
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	err := w.fs.RemoveAll(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove workspace %s: %w", w.path, err)
	}

	w.closed = true

	return nil
}
