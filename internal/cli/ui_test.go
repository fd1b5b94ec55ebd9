package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/matzehuels/gpack/pkg/errors"
)

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
		excludes []string
	}{
		{
			name:     "plain error",
			err:      fmt.Errorf("boom"),
			contains: []string{"boom"},
			excludes: []string{"Possible reasons"},
		},
		{
			name:     "coded error drops the code",
			err:      errors.New(errors.ErrCodePackageNotFound, "package not found: left-pad@9.9.9"),
			contains: []string{"package not found: left-pad@9.9.9"},
			excludes: []string{"PACKAGE_NOT_FOUND"},
		},
		{
			name:     "hints are bulleted",
			err:      errors.New(errors.ErrCodeScriptNotFound, `script "tset" not found`).WithHints("available scripts: test"),
			contains: []string{`script "tset" not found`, " - available scripts: test"},
			excludes: []string{"Possible reasons"},
		},
		{
			name:     "command not found explains causes",
			err:      errors.New(errors.ErrCodeCommandNotFound, "command not found: tsc").WithHints("not installed", "wrong package"),
			contains: []string{"command not found: tsc", "Possible reasons for this error:", " - not installed", " - wrong package"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ReportError(&buf, tt.err)
			out := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output %q should contain %q", out, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(out, s) {
					t.Errorf("output %q should not contain %q", out, s)
				}
			}
		})
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "%d package", "%d packages"); got != "1 package" {
		t.Errorf("pluralize(1) = %q", got)
	}
	if got := pluralize(0, "%d package", "%d packages"); got != "0 packages" {
		t.Errorf("pluralize(0) = %q", got)
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	defer func() { stdout = prev }()

	printTable([]string{"Script", "Command"}, [][]string{{"build", "tsc -p ."}})

	out := buf.String()
	for _, s := range []string{"Script", "Command", "build", "tsc -p ."} {
		if !strings.Contains(out, s) {
			t.Errorf("table %q should contain %q", out, s)
		}
	}
}
