package bin

import (
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gpack/pkg/deps"
	"github.com/matzehuels/gpack/pkg/errors"
)

// DirName is the name of the link directory inside a modules root.
const DirName = ".bin"

// Dir returns the link directory for modulesRoot.
func Dir(modulesRoot string) string {
	return filepath.Join(modulesRoot, DirName)
}

// Linker creates and removes command links.
type Linker struct {
	logger *log.Logger
}

// NewLinker returns a Linker. A nil logger discards output.
func NewLinker(logger *log.Logger) *Linker {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Linker{logger: logger}
}

// Link creates a link in Dir(modulesRoot) for every command node declares,
// pointing at the command's path inside packageDir. Existing links are
// kept. Each link target is made executable.
func (l *Linker) Link(node *deps.Node, packageDir, modulesRoot string) error {
	if node == nil || len(node.Bin) == 0 {
		return nil
	}

	dir := Dir(modulesRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", dir)
	}

	for _, name := range sortedKeys(node.Bin) {
		rel := node.Bin[name]
		if err := errors.ValidateBinName(name); err != nil {
			return err
		}
		if err := errors.ValidatePath(rel); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "bin %q of %s", name, node.ID())
		}

		target := filepath.Join(packageDir, rel)
		link := filepath.Join(dir, name)

		if _, err := os.Lstat(link); os.IsNotExist(err) {
			if err := os.Symlink(target, link); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "link %s", name)
			}
			l.logger.Debug("linked", "bin", name, "target", target)
		}
		if err := os.Chmod(link, 0o755); err != nil {
			l.logger.Warn("cannot make command executable", "bin", name, "package", node.ID(), "err", err)
		}
	}
	return nil
}

// Unlink removes the links node declares from Dir(modulesRoot). Missing
// links are ignored.
func (l *Linker) Unlink(node *deps.Node, modulesRoot string) error {
	if node == nil {
		return nil
	}
	dir := Dir(modulesRoot)
	for _, name := range sortedKeys(node.Bin) {
		if errors.ValidateBinName(name) != nil {
			continue
		}
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeInternal, err, "remove link %s", name)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
