package torrouter

import (
	"log/slog"
	"sync/atomic"
)

var (
	// customLogger holds a caller-provided logger, set via SetLogger.
	customLogger atomic.Pointer[slog.Logger]

	// cachedDefault holds the lazily derived default logger so the With
	// call runs once, not per log site.
	cachedDefault atomic.Pointer[slog.Logger]
)

// Logger returns the logger used by the package: the one provided via
// SetLogger, or slog.Default() with a "component" attribute.
func Logger() *slog.Logger {
	if l := customLogger.Load(); l != nil {
		return l
	}
	if l := cachedDefault.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "tor-router")
	cachedDefault.Store(l)
	return l
}

// SetLogger replaces the package-level logger.
// This allows applications to integrate the pool's logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; no additional attributes are added to it.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next Logger() call and then
// cached. Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// Thread safety: SetLogger is safe to call concurrently with other pool
// operations. Both the custom logger and the cached default are stored as
// atomic pointers, so loads and stores are data-race-free. A concurrent
// Logger call during SetLogger always returns a valid *slog.Logger, though
// it may briefly return the previous logger until both atomic stores
// complete. For a strict happens-before guarantee, call SetLogger before
// starting goroutines that use the pool.
func SetLogger(l *slog.Logger) {
	customLogger.Store(l)
	cachedDefault.Store(nil)
}
