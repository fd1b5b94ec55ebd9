// Package lockfile persists resolved dependency trees.
//
// The lockfile is a JSON object shaped exactly like a [deps.Tree]. It is
// written sorted at every level with 2-space indentation and a trailing
// newline, so two resolutions of the same manifest produce identical
// bytes. When present, it is trusted verbatim: nothing is re-validated
// against the registry.
package lockfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/matzehuels/gpack/pkg/deps"
	"github.com/matzehuels/gpack/pkg/errors"
)

// Manager reads and writes one lockfile.
type Manager struct {
	path string
}

// New returns a Manager for the lockfile at path.
func New(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the lockfile location.
func (m *Manager) Path() string { return m.path }

// Exists reports whether the lockfile is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Load reads the lockfile. A missing file yields (nil, nil).
func (m *Manager) Load() (*deps.Tree, error) {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "read %s", m.path)
	}

	tree := deps.NewTree()
	if err := json.Unmarshal(data, tree); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "parse %s", m.path).
			WithHints("delete " + filepath.Base(m.path) + " and run gpack install to regenerate it")
	}
	return tree, nil
}

// Encode renders tree in lockfile form. tree itself is not reordered.
func Encode(tree *deps.Tree) ([]byte, error) {
	compact, err := json.Marshal(tree.Sorted())
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Save writes tree to the lockfile, replacing it atomically.
func (m *Manager) Save(tree *deps.Tree) error {
	data, err := Encode(tree)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode lockfile")
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".gpack-lock-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", m.path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", m.path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", m.path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", m.path)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", m.path)
	}
	return nil
}
