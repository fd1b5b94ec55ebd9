package bin

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/gpack/pkg/config"
	"github.com/matzehuels/gpack/pkg/errors"
)

// Locator resolves command names to executables.
type Locator struct {
	// LookPath searches the system PATH.
	LookPath func(name string) (string, error)
	// Local is the project's link directory.
	Local string
	// Global is the per-user link directory, created on first lookup.
	Global string
}

// NewLocator returns a Locator for cfg. The system search uses the PATH
// from cfg's environment snapshot, and relative paths are taken from
// cfg.WorkDir, where scripts run.
func NewLocator(cfg *config.Config) *Locator {
	path, _ := cfg.Getenv("PATH")
	return &Locator{
		LookPath: func(name string) (string, error) { return SearchPath(path, cfg.WorkDir, name) },
		Local:    Dir(cfg.ModulesPath()),
		Global:   Dir(cfg.GlobalModulesPath()),
	}
}

// Find returns the executable for name, checking the system PATH, then
// the local link directory, then the global one.
func (l *Locator) Find(name string) (string, error) {
	if name == "" {
		return "", errors.New(errors.ErrCodeInvalidInput, "empty command")
	}

	if l.LookPath != nil {
		if p, err := l.LookPath(name); err == nil {
			return p, nil
		}
	}
	if l.Local != "" {
		if p := filepath.Join(l.Local, name); exists(p) {
			return p, nil
		}
	}
	if l.Global != "" {
		if err := os.MkdirAll(l.Global, 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "create %s", l.Global)
		}
		if p := filepath.Join(l.Global, name); exists(p) {
			return p, nil
		}
	}

	return "", errors.New(errors.ErrCodeCommandNotFound, "command not found: %s", name).WithHints(
		"the package that provides it is not installed (run gpack install)",
		"the package is installed but does not provide a "+name+" command",
		"the project was installed with a different package manager",
	)
}

// SearchPath looks for an executable named name in the directories of
// pathList. Names containing a separator are checked as given. Relative
// names and relative PATH entries are resolved against dir.
func SearchPath(pathList, dir, name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		p := abs(dir, name)
		if isExecutable(p) {
			return p, nil
		}
		return "", os.ErrNotExist
	}
	for _, entry := range filepath.SplitList(pathList) {
		p := filepath.Join(abs(dir, entry), name)
		if isExecutable(p) {
			return p, nil
		}
	}
	return "", os.ErrNotExist
}

func abs(dir, p string) string {
	if filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}
