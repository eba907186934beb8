package framegraph

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for framegraph and all its sub-packages.
// By default, framegraph produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by framegraph:
//   - [slog.LevelDebug]: per-frame diagnostics (barriers, dispatch sizes, submissions)
//   - [slog.LevelInfo]: lifecycle events (device opened, graph initialized)
//   - [slog.LevelWarn]: recoverable issues (swapchain recreated, fence retries)
//
// The logger is also handed to the wgpu HAL so backend diagnostics end up
// in the same sink.
//
// Example:
//
//	framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	propagateLogger(l)
}

// Logger returns the current logger used by framegraph.
// Sub-packages (graph/, deferred/, recorder/, ...) call this to share the
// same logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// propagateLogger passes the logger on to the HAL.
func propagateLogger(l *slog.Logger) {
	hal.SetLogger(l)
}
