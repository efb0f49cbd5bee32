package torrouter

import (
	"github.com/t4weyhryjtey/tor-router/internal/sentinel"
	"github.com/t4weyhryjtey/tor-router/internal/torproc"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrNotFound is returned when a lookup by name, index, or group
	// position does not match any instance. The pool is left unchanged.
	ErrNotFound = sentinel.Error("instance not found")

	// ErrDuplicateName is returned by CreateInstance (and the batch
	// operations delegating to it) when the requested name is already in
	// use. The error is surfaced before any resource is allocated.
	ErrDuplicateName = sentinel.Error("instance name already in use")

	// ErrInstanceStartup wraps a handle's startup failure during creation.
	// An instance that fails to start is never counted as a pool member.
	ErrInstanceStartup = sentinel.Error("instance startup failed")

	// ErrPoolEmpty is returned by Next when the pool holds no instances.
	ErrPoolEmpty = sentinel.Error("pool is empty")

	// ErrNotStarted is returned by control operations forwarded to an
	// instance whose daemon is not running.
	ErrNotStarted = torproc.ErrNotStarted

	// ErrDataDirLocked is returned during creation when an instance's data
	// directory is already held by another process.
	ErrDataDirLocked = torproc.ErrDataDirLocked
)
