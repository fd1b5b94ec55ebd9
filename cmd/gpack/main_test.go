package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/matzehuels/gpack/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"interrupted", context.Canceled, 130},
		{"interrupted wrapped", fmt.Errorf("fetch: %w", context.Canceled), 130},
		{"failure", errors.New(errors.ErrCodePackageNotFound, "package not found"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestVerboseFlag(t *testing.T) {
	root := newRootCommand()
	if root.PersistentFlags().Lookup("verbose") == nil {
		t.Fatal("--verbose not registered")
	}
	if root.PersistentPreRunE == nil {
		t.Fatal("pre-run hook missing")
	}
}
