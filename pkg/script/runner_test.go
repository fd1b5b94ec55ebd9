package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/gpack/pkg/bin"
	"github.com/matzehuels/gpack/pkg/errors"
)

// recorder is a shell script that appends its arguments to a log file.
const recorder = "#!/bin/sh\necho \"$(basename \"$0\") $*\" >> \"$RUN_LOG\"\n"

type fixture struct {
	dir    string
	local  string
	global string
	runLog string
	out    *bytes.Buffer
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		local:  filepath.Join(dir, "node_modules", ".bin"),
		global: filepath.Join(dir, "home", ".gpack", "node_modules", ".bin"),
		runLog: filepath.Join(dir, "run.log"),
		out:    &bytes.Buffer{},
		logs:   &bytes.Buffer{},
	}
	require.NoError(t, os.MkdirAll(f.local, 0o755))
	return f
}

func (f *fixture) command(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755))
}

func (f *fixture) runner(scripts map[string]string, env map[string]string) *Runner {
	if env == nil {
		env = map[string]string{}
	}
	env["RUN_LOG"] = f.runLog
	env["PATH"] = "/usr/bin:/bin"
	return New(Options{
		Scripts: scripts,
		Dir:     f.dir,
		Env:     env,
		Finder: &bin.Locator{
			LookPath: func(name string) (string, error) { return bin.SearchPath(filepath.Join(f.dir, "sys"), f.dir, name) },
			Local:    f.local,
			Global:   f.global,
		},
		Stdin:  strings.NewReader(""),
		Stdout: f.out,
		Stderr: f.out,
		Logger: log.New(f.logs),
	})
}

func (f *fixture) recorded(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.runLog)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"build && echo done", []string{"build", "echo done"}},
		{"a && && b &&", []string{"a", "b"}},
		{"  single  ", []string{"single"}},
		{"&&", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Split(tt.line), "Split(%q)", tt.line)
	}
}

func TestExpand(t *testing.T) {
	env := map[string]string{"HOST": "localhost", "PORT": "8080", "EMPTY": ""}

	got, err := Expand("http://${HOST}:${PORT}/", env)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", got)

	got, err = Expand("x${EMPTY}y", env)
	require.NoError(t, err)
	assert.Equal(t, "xy", got)

	got, err = Expand("$HOST", env)
	require.NoError(t, err)
	assert.Equal(t, "$HOST", got, "only the braced form is substituted")

	_, err = Expand("--token=${TOKEN}", env)
	assert.True(t, errors.Is(err, errors.ErrCodeMissingEnv))
	assert.Contains(t, errors.UserMessage(err), "TOKEN")
}

func TestRunSegmentsInOrder(t *testing.T) {
	f := newFixture(t)
	f.command(t, f.local, "build", recorder)
	f.command(t, f.local, "lint", recorder)

	r := f.runner(map[string]string{"ci": "lint --fix && && build ${MODE}"}, map[string]string{"MODE": "prod"})
	require.NoError(t, r.Run(context.Background(), "ci", []string{"--verbose"}))

	assert.Equal(t, []string{"lint --fix", "build prod --verbose"}, f.recorded(t))
	assert.Equal(t, "$ lint --fix\n$ build ${MODE} --verbose\n", f.out.String())
}

func TestRunMissingEnvBeforeSpawn(t *testing.T) {
	f := newFixture(t)
	f.command(t, f.local, "first", recorder)
	f.command(t, f.local, "second", recorder)

	r := f.runner(map[string]string{"go": "first && second ${UNSET_VAR}"}, nil)
	err := r.Run(context.Background(), "go", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeMissingEnv))
	assert.Empty(t, f.recorded(t), "no segment may run when a placeholder is unset")
	assert.Empty(t, f.out.String())
}

func TestRunResolutionOrder(t *testing.T) {
	f := newFixture(t)
	f.command(t, filepath.Join(f.dir, "sys"), "tool", "#!/bin/sh\necho \"sys $*\" >> \"$RUN_LOG\"\n")
	f.command(t, f.local, "tool", "#!/bin/sh\necho \"local $*\" >> \"$RUN_LOG\"\n")
	f.command(t, f.local, "only-local", "#!/bin/sh\necho \"local $*\" >> \"$RUN_LOG\"\n")
	f.command(t, f.global, "only-global", "#!/bin/sh\necho \"global $*\" >> \"$RUN_LOG\"\n")

	r := f.runner(map[string]string{"all": "tool a && only-local b && only-global c"}, nil)
	require.NoError(t, r.Run(context.Background(), "all", nil))

	assert.Equal(t, []string{"sys a", "local b", "global c"}, f.recorded(t))
}

func TestRunLiteralCommand(t *testing.T) {
	f := newFixture(t)
	f.command(t, f.local, "tsc", recorder)

	r := f.runner(nil, nil)
	require.NoError(t, r.Run(context.Background(), "tsc", []string{"--noEmit"}))
	assert.Equal(t, []string{"tsc --noEmit"}, f.recorded(t))
}

func TestRunScriptNotFound(t *testing.T) {
	f := newFixture(t)
	r := f.runner(map[string]string{"test": "jest", "build": "tsc"}, nil)

	err := r.Run(context.Background(), "deploy", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeScriptNotFound))
	assert.Equal(t, []string{"available scripts: build, test"}, errors.Hints(err))
}

func TestRunCommandNotFound(t *testing.T) {
	f := newFixture(t)
	r := f.runner(map[string]string{"start": "missing-server --port 3000"}, nil)

	err := r.Run(context.Background(), "start", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandNotFound))
	assert.Len(t, errors.Hints(err), 3)
}

func TestRunNonZeroExitContinues(t *testing.T) {
	f := newFixture(t)
	f.command(t, f.local, "fail", "#!/bin/sh\necho fail >> \"$RUN_LOG\"\nexit 3\n")
	f.command(t, f.local, "after", recorder)

	r := f.runner(map[string]string{"seq": "fail && after"}, nil)
	require.NoError(t, r.Run(context.Background(), "seq", nil))

	assert.Equal(t, []string{"fail", "after"}, f.recorded(t))
	assert.Contains(t, f.logs.String(), "status=3")
}

func TestRunEnvironment(t *testing.T) {
	f := newFixture(t)
	f.command(t, f.local, "env-dump", "#!/bin/sh\necho \"$GREETING $(pwd)\" >> \"$RUN_LOG\"\n")

	r := f.runner(map[string]string{"env": "env-dump"}, map[string]string{"GREETING": "hello"})
	require.NoError(t, r.Run(context.Background(), "env", nil))

	wd, err := filepath.EvalSymlinks(f.dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello " + wd}, f.recorded(t))
}

func TestScripts(t *testing.T) {
	r := New(Options{Scripts: map[string]string{"test": "jest", "build": "tsc", "dev": "vite"}})
	var names []string
	for _, s := range r.Scripts() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"build", "dev", "test"}, names)
}
