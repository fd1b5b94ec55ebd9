package bin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/gpack/pkg/config"
	"github.com/matzehuels/gpack/pkg/errors"
)

func TestLocatorOrder(t *testing.T) {
	base := t.TempDir()
	sys := filepath.Join(base, "usr-bin")
	local := filepath.Join(base, "proj", "node_modules", ".bin")
	global := filepath.Join(base, "home", ".gpack", "node_modules", ".bin")

	writeExec(t, filepath.Join(sys, "both"), 0o755)
	writeExec(t, filepath.Join(local, "both"), 0o755)
	writeExec(t, filepath.Join(local, "tsc"), 0o755)
	writeExec(t, filepath.Join(global, "tsc"), 0o755)
	writeExec(t, filepath.Join(global, "serve"), 0o755)

	l := &Locator{
		LookPath: func(name string) (string, error) { return SearchPath(sys, "", name) },
		Local:    local,
		Global:   global,
	}

	tests := []struct {
		cmd  string
		want string
	}{
		{"both", filepath.Join(sys, "both")},
		{"tsc", filepath.Join(local, "tsc")},
		{"serve", filepath.Join(global, "serve")},
	}
	for _, tt := range tests {
		got, err := l.Find(tt.cmd)
		if err != nil {
			t.Fatalf("Find(%q): %v", tt.cmd, err)
		}
		if got != tt.want {
			t.Errorf("Find(%q) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestLocatorNotFound(t *testing.T) {
	global := filepath.Join(t.TempDir(), "g", ".bin")
	l := &Locator{
		LookPath: func(string) (string, error) { return "", os.ErrNotExist },
		Local:    filepath.Join(t.TempDir(), ".bin"),
		Global:   global,
	}

	_, err := l.Find("nope")
	if !errors.Is(err, errors.ErrCodeCommandNotFound) {
		t.Fatalf("error = %v, want %s", err, errors.ErrCodeCommandNotFound)
	}
	if n := len(errors.Hints(err)); n != 3 {
		t.Errorf("hints = %d, want 3", n)
	}
	if fi, err := os.Stat(global); err != nil || !fi.IsDir() {
		t.Error("global link directory was not created")
	}
}

func TestSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeExec(t, filepath.Join(dir, "runme"), 0o755)
	writeExec(t, filepath.Join(dir, "readme"), 0o644)

	if _, err := SearchPath(dir, "", "runme"); err != nil {
		t.Errorf("runme: %v", err)
	}
	if _, err := SearchPath(dir, "", "readme"); err == nil {
		t.Error("non-executable file matched")
	}
	if _, err := SearchPath(dir, "", "missing"); err == nil {
		t.Error("missing file matched")
	}
	if p, err := SearchPath("", "", filepath.Join(dir, "runme")); err != nil || p != filepath.Join(dir, "runme") {
		t.Errorf("explicit path = %q, %v", p, err)
	}
}

func TestSearchPathRelativeToDir(t *testing.T) {
	work := t.TempDir()
	writeExec(t, filepath.Join(work, "scripts", "build.sh"), 0o755)
	writeExec(t, filepath.Join(work, "tools", "lint"), 0o755)

	rel := filepath.Join("scripts", "build.sh")
	p, err := SearchPath("", work, rel)
	if err != nil || p != filepath.Join(work, rel) {
		t.Errorf("SearchPath(%q) = %q, %v", rel, p, err)
	}
	if _, err := SearchPath("", "", rel); err == nil {
		t.Error("relative name resolved against the process directory")
	}
	if p, err := SearchPath("tools", work, "lint"); err != nil || p != filepath.Join(work, "tools", "lint") {
		t.Errorf("relative PATH entry = %q, %v", p, err)
	}
}

func TestNewLocatorUsesWorkDir(t *testing.T) {
	home, work := t.TempDir(), t.TempDir()
	writeExec(t, filepath.Join(work, "bin", "gen"), 0o755)
	cfg, err := config.Load(config.LoadOptions{WorkDir: work, HomeDir: home, Environ: []string{"PATH=/nonexistent"}})
	if err != nil {
		t.Fatal(err)
	}

	p, err := NewLocator(cfg).Find(filepath.Join("bin", "gen"))
	if err != nil || p != filepath.Join(work, "bin", "gen") {
		t.Errorf("Find = %q, %v", p, err)
	}
}

func TestNewLocator(t *testing.T) {
	home, work := t.TempDir(), t.TempDir()
	cfg, err := config.Load(config.LoadOptions{WorkDir: work, HomeDir: home, Environ: []string{"PATH=/nonexistent"}})
	if err != nil {
		t.Fatal(err)
	}
	l := NewLocator(cfg)
	if l.Local != filepath.Join(work, "node_modules", ".bin") {
		t.Errorf("Local = %q", l.Local)
	}
	if l.Global != filepath.Join(home, ".gpack", "node_modules", ".bin") {
		t.Errorf("Global = %q", l.Global)
	}
}
