// Package script runs package.json scripts and installed commands.
//
// A script is a command line whose "&&"-separated segments run one after
// another, each as a direct child process: there is no shell, so pipes,
// redirections and quoting are not interpreted. Arguments may reference
// environment variables as ${NAME}; every placeholder in the whole script
// is substituted before the first segment starts, so a missing variable
// stops the run before anything executes.
package script

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gpack/pkg/errors"
	"github.com/matzehuels/gpack/pkg/observability"
)

// Finder resolves a command name to an executable path.
type Finder interface {
	Find(name string) (string, error)
}

// Script is one entry of the manifest's script table.
type Script struct {
	Name    string
	Command string
}

// Options configures a [Runner].
type Options struct {
	Scripts map[string]string // the manifest's script table
	Dir     string            // working directory for child processes
	Env     map[string]string // environment snapshot
	Finder  Finder            // command resolution
	Stdin   io.Reader         // defaults to os.Stdin
	Stdout  io.Writer         // defaults to os.Stdout
	Stderr  io.Writer         // defaults to os.Stderr
	Logger  *log.Logger
}

// Runner executes scripts.
type Runner struct {
	opts Options
}

// New returns a Runner.
func New(opts Options) *Runner {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Runner{opts: opts}
}

// Scripts returns the script table sorted by name.
func (r *Runner) Scripts() []Script {
	out := make([]Script, 0, len(r.opts.Scripts))
	for name, cmd := range r.opts.Scripts {
		out = append(out, Script{Name: name, Command: cmd})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// segment is one parsed, substituted step of a script.
type segment struct {
	text string
	name string
	args []string
}

// Run executes the script called name with extra appended to its command
// line. If no such script exists, name itself is run as a command,
// provided it can be found.
func (r *Runner) Run(ctx context.Context, name string, extra []string) error {
	line, err := r.commandLine(name, extra)
	if err != nil {
		return err
	}

	segments, err := r.prepare(line)
	if err != nil {
		return err
	}

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.exec(ctx, seg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) commandLine(name string, extra []string) (string, error) {
	line, ok := r.opts.Scripts[name]
	if !ok {
		if _, err := r.opts.Finder.Find(name); err != nil {
			return "", r.scriptNotFound(name)
		}
		line = name
	}
	if len(extra) > 0 {
		line += " " + strings.Join(extra, " ")
	}
	return line, nil
}

func (r *Runner) scriptNotFound(name string) error {
	e := errors.New(errors.ErrCodeScriptNotFound, "script %q not found in package.json", name)
	if scripts := r.Scripts(); len(scripts) > 0 {
		names := make([]string, len(scripts))
		for i, s := range scripts {
			names[i] = s.Name
		}
		e = e.WithHints("available scripts: " + strings.Join(names, ", "))
	}
	return e
}

// Split breaks a command line on "&&" and drops blank segments.
func Split(line string) []string {
	var out []string
	for _, part := range strings.Split(line, "&&") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// prepare splits line and substitutes placeholders in every segment.
func (r *Runner) prepare(line string) ([]segment, error) {
	parts := Split(line)
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		for i, f := range fields {
			v, err := Expand(f, r.opts.Env)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		segments = append(segments, segment{text: part, name: fields[0], args: fields[1:]})
	}
	return segments, nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand replaces every ${NAME} in s with its value from env. An unset
// variable is an error.
func Expand(s string, env map[string]string) (string, error) {
	var missing string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := env[key]
		if !ok && missing == "" {
			missing = key
		}
		return v
	})
	if missing != "" {
		return "", errors.New(errors.ErrCodeMissingEnv, "environment variable %s is not set", missing)
	}
	return out, nil
}

func (r *Runner) exec(ctx context.Context, seg segment) error {
	path, err := r.opts.Finder.Find(seg.name)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.opts.Stdout, "$ %s\n", seg.text)

	cmd := exec.CommandContext(ctx, path, seg.args...)
	cmd.Dir = r.opts.Dir
	if r.opts.Env != nil {
		cmd.Env = environ(r.opts.Env)
	}
	cmd.Stdin = r.opts.Stdin
	cmd.Stdout = r.opts.Stdout
	cmd.Stderr = r.opts.Stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			observability.Install().OnScriptSegment(ctx, seg.text, exitErr.ExitCode(), time.Since(start))
			r.opts.Logger.Warn("command failed", "command", seg.text, "status", exitErr.ExitCode())
			return nil
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "start %s", seg.name)
	}
	observability.Install().OnScriptSegment(ctx, seg.text, 0, time.Since(start))
	return nil
}

func environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
