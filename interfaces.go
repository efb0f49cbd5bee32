package torrouter

import (
	"context"
	"log/slog"
	"time"
)

// Handle is the contract between the pool and one running tor daemon. The
// default implementation spawns a tor process and drives its control port
// (see WithHandleFactory for substituting another implementation, e.g. a
// remote daemon or a test fake).
//
// Create and Exit bracket the daemon's lifetime; the remaining methods
// forward control-protocol operations and are only valid between a
// successful Create and the following Exit.
type Handle interface {
	// Create starts the daemon and blocks until it is ready to accept
	// control operations, or until startup fails. Exactly one of the two
	// outcomes occurs: a nil return means the daemon is running, a non-nil
	// return means nothing was left running.
	Create(ctx context.Context) error

	// Exit stops the daemon and releases its resources. Idempotent.
	Exit(ctx context.Context) error

	// NewIdentity requests a switch to clean anonymity circuits.
	NewIdentity(ctx context.Context) error

	// GetConfig reads the current values of a configuration keyword.
	// Keywords may carry multiple values; all are returned.
	GetConfig(ctx context.Context, keyword string) ([]string, error)

	// SetConfig writes a configuration keyword.
	SetConfig(ctx context.Context, keyword, value string) error

	// Signal sends a control signal by name (e.g., "NEWNYM", "RELOAD").
	Signal(ctx context.Context, name string) error
}

// HandleParams carries everything a HandleFactory needs to construct the
// handle for one instance. Config is the effective configuration after
// merging the pool defaults with the instance definition.
type HandleParams struct {
	ID      string
	Name    string
	DataDir string
	TorPath string
	Config  map[string]string

	StartTimeout time.Duration
	StopTimeout  time.Duration

	Logger *slog.Logger
}

// HandleFactory constructs the Handle for a new instance. The returned
// handle must not have been started; the pool calls Create on it.
type HandleFactory func(params HandleParams) (Handle, error)
