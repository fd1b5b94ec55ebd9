package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gpack/pkg/observability"
)

// debugHooks logs observability events. It is registered for --verbose.
type debugHooks struct {
	logger *log.Logger
}

// registerDebugHooks routes all observability events to logger.
func registerDebugHooks(logger *log.Logger) {
	h := debugHooks{logger: logger}
	observability.SetInstallHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h debugHooks) OnResolveStart(_ context.Context, roots int) {
	h.logger.Debug("resolving", "roots", roots)
}

func (h debugHooks) OnResolveComplete(_ context.Context, packages int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("resolve failed", "elapsed", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("resolve complete", "packages", packages, "elapsed", d.Round(time.Millisecond))
}

func (h debugHooks) OnPackageInstalled(_ context.Context, pkg string, local bool, d time.Duration, err error) {
	h.logger.Debug("package installed", "package", pkg, "local", local, "elapsed", d.Round(time.Millisecond), "err", err)
}

func (h debugHooks) OnScriptSegment(_ context.Context, command string, exitCode int, d time.Duration) {
	h.logger.Debug("command exited", "command", command, "status", exitCode, "elapsed", d.Round(time.Millisecond))
}

func (h debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "path", path, "status", status, "elapsed", d.Round(time.Millisecond))
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
