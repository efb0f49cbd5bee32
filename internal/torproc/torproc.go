package torproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/t4weyhryjtey/tor-router/internal/control"
	"github.com/t4weyhryjtey/tor-router/internal/fileutil"
	"github.com/t4weyhryjtey/tor-router/internal/netutil"
	"github.com/t4weyhryjtey/tor-router/internal/process"
	"github.com/t4weyhryjtey/tor-router/internal/sentinel"
)

// ErrNotStarted is returned by control operations (GetConfig, SetConfig,
// Signal, NewIdentity) on a process that has not been created or has exited.
const ErrNotStarted = sentinel.Error("tor instance not started")

// ErrDataDirLocked is returned when another process (or another instance)
// already holds the data directory. Tor requires an exclusive DataDirectory,
// so a held lock means the directory is in use.
const ErrDataDirLocked = sentinel.Error("tor data directory is locked by another process")

// lockFileName is the flock file inside the data directory. Tor itself keeps
// a "lock" file there, so a distinct name avoids colliding with it.
const lockFileName = ".tor-router.lock"

// readinessPollInterval is the interval between consecutive TCP connection
// attempts when waiting for the tor control port to accept connections.
const readinessPollInterval = 50 * time.Millisecond

// readinessDialTimeout is the per-attempt timeout for the TCP dial used in
// readiness checks. Generous for a localhost connection; early attempts fail
// immediately with connection-refused until tor binds the port.
const readinessDialTimeout = time.Second

// newnymSignal is the control signal that makes tor switch to clean circuits.
const newnymSignal = "NEWNYM"

// Config holds the configuration for a tor process.
type Config struct {
	Binary  string            // Path to the tor binary (e.g., "tor")
	DataDir string            // Exclusive data directory for this instance
	Torrc   map[string]string // Instance torrc keywords (already merged by the pool)

	// ControlPassword is sent with AUTHENTICATE. Empty means null
	// authentication, acceptable because the control port binds to the
	// loopback interface only.
	ControlPassword string

	// SocksPort and ControlPort, when zero, are allocated from Ports.
	SocksPort   int
	ControlPort int

	StartTimeout time.Duration // Maximum time until the control port is ready
	StopTimeout  time.Duration // Maximum time for graceful shutdown

	Ports  *netutil.PortRegistry // Required: shared port registry
	Logger *slog.Logger          // Optional, defaults to slog.Default()
}

// validate checks that all required Config fields are set and returns an
// error describing every violation found.
func (c Config) validate() error {
	var errs []error
	if c.Binary == "" {
		errs = append(errs, errors.New("binary path must not be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data dir must not be empty"))
	}
	if c.StartTimeout <= 0 {
		errs = append(errs, fmt.Errorf("start timeout must be greater than 0, got %s", c.StartTimeout))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}
	if c.Ports == nil {
		errs = append(errs, errors.New("port registry must not be nil"))
	}
	return errors.Join(errs...)
}

// Process manages one tor daemon and its control session. It implements the
// pool's Handle contract.
//
// All methods are serialized by an internal mutex; the pool may invoke
// control operations on different instances concurrently, but operations on
// one instance are strictly sequential.
type Process struct {
	cfg Config

	mu   sync.Mutex
	base process.BaseProcess
	ctrl *control.Conn
	lock *flock.Flock

	socksPort      int
	controlPort    int
	allocatedSocks bool // whether socksPort came from the registry
	allocatedCtrl  bool // whether controlPort came from the registry
	log            *slog.Logger
}

// New creates a tor Process from the given configuration. New performs no
// I/O; all side effects (directory creation, port allocation, spawning) are
// deferred to Create.
func New(cfg Config) (*Process, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid tor config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Process{
		cfg:  cfg,
		base: process.NewBaseProcess("tor", log, cfg.StopTimeout),
		log:  log,
	}, nil
}

// SocksPort returns the SOCKS port the daemon listens on. Valid after a
// successful Create.
func (p *Process) SocksPort() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.socksPort
}

// ControlPort returns the control port the daemon listens on. Valid after a
// successful Create.
func (p *Process) ControlPort() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.controlPort
}

// Create starts the tor daemon and blocks until its control port accepts an
// authenticated session, or until startup fails. Exactly one of the two
// outcomes occurs: a nil return means the daemon is running and controllable;
// a non-nil return means nothing was left running.
func (p *Process) Create(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.base.IsStarted() {
		return process.ErrAlreadyStarted
	}

	if err := fileutil.EnsureDir(p.cfg.DataDir); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	if err := p.acquireDataDirLock(); err != nil {
		return err
	}

	if err := p.allocatePorts(); err != nil {
		p.releaseDataDirLock()
		return err
	}

	torrcPath := filepath.Join(p.cfg.DataDir, "torrc")
	contents := renderTorrc(p.cfg.DataDir, p.socksPort, p.controlPort, p.cfg.Torrc, p.log)
	if err := writeTorrc(torrcPath, contents); err != nil {
		p.cleanupAfterFailedCreate()
		return err
	}

	cmd := exec.Command(p.cfg.Binary, "-f", torrcPath)
	if err := p.base.SetupAndStart(cmd, p.cfg.DataDir); err != nil {
		p.cleanupAfterFailedCreate()
		return fmt.Errorf("start tor process: %w", err)
	}

	if err := p.waitControlPortReady(ctx); err != nil {
		p.stopForCleanup()
		p.cleanupAfterFailedCreate()
		return fmt.Errorf("tor not ready: %w", err)
	}

	ctrl, err := p.openControlSession(ctx)
	if err != nil {
		p.stopForCleanup()
		p.cleanupAfterFailedCreate()
		return fmt.Errorf("open control session: %w", err)
	}
	p.ctrl = ctrl

	p.log.Debug("tor instance started",
		"socks_port", p.socksPort, "control_port", p.controlPort)
	return nil
}

// Exit stops the daemon and releases all resources held for it (control
// session, ports, data directory lock). Idempotent: calling Exit on a
// stopped instance returns nil.
func (p *Process) Exit(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil {
		if err := p.ctrl.Close(); err != nil {
			p.log.Debug("closing control session", "error", err)
		}
		p.ctrl = nil
	}

	var stopErr error
	if p.base.IsStarted() {
		stopErr = p.base.Stop(p.effectiveStopTimeout(ctx))
		p.base.Close()
	}

	p.releasePorts()
	p.releaseDataDirLock()

	if stopErr != nil {
		return fmt.Errorf("stop tor process: %w", stopErr)
	}
	return nil
}

// NewIdentity asks the daemon to switch to clean circuits (SIGNAL NEWNYM).
func (p *Process) NewIdentity(ctx context.Context) error {
	ctrl, err := p.session()
	if err != nil {
		return err
	}
	return ctrl.Signal(ctx, newnymSignal)
}

// GetConfig reads the current values of a torrc keyword over the control
// session. Keywords may carry multiple values; all are returned.
func (p *Process) GetConfig(ctx context.Context, keyword string) ([]string, error) {
	ctrl, err := p.session()
	if err != nil {
		return nil, err
	}
	return ctrl.GetConf(ctx, keyword)
}

// SetConfig writes a torrc keyword over the control session.
func (p *Process) SetConfig(ctx context.Context, keyword, value string) error {
	ctrl, err := p.session()
	if err != nil {
		return err
	}
	return ctrl.SetConf(ctx, keyword, value)
}

// Signal forwards a control signal by name (e.g., "RELOAD", "DEBUG").
func (p *Process) Signal(ctx context.Context, name string) error {
	ctrl, err := p.session()
	if err != nil {
		return err
	}
	return ctrl.Signal(ctx, name)
}

// session returns the live control session or ErrNotStarted.
func (p *Process) session() (*control.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return nil, ErrNotStarted
	}
	return p.ctrl, nil
}

// acquireDataDirLock takes the exclusive flock guarding the data directory.
// Non-blocking: a held lock means another instance or process owns the
// directory, which is an immediate error rather than something to wait out.
func (p *Process) acquireDataDirLock() error {
	fl := flock.New(filepath.Join(p.cfg.DataDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir %s: %w", p.cfg.DataDir, err)
	}
	if !locked {
		return fmt.Errorf("lock data dir %s: %w", p.cfg.DataDir, ErrDataDirLocked)
	}
	p.lock = fl
	return nil
}

// releaseDataDirLock releases the flock if held. The lock file is
// intentionally left on disk: removing it could invalidate a lock
// concurrently acquired by another process.
func (p *Process) releaseDataDirLock() {
	if p.lock == nil {
		return
	}
	if err := p.lock.Close(); err != nil {
		p.log.Debug("release data dir lock", "path", p.lock.Path(), "error", err)
	}
	p.lock = nil
}

// allocatePorts fills in socksPort and controlPort, drawing from the shared
// registry for any port not fixed by configuration.
func (p *Process) allocatePorts() error {
	p.socksPort = p.cfg.SocksPort
	p.controlPort = p.cfg.ControlPort

	switch {
	case p.socksPort == 0 && p.controlPort == 0:
		s, c, err := p.cfg.Ports.AllocatePortPair()
		if err != nil {
			return fmt.Errorf("allocate ports: %w", err)
		}
		p.socksPort, p.controlPort = s, c
		p.allocatedSocks, p.allocatedCtrl = true, true
	case p.socksPort == 0:
		s, err := p.cfg.Ports.AllocatePort()
		if err != nil {
			return fmt.Errorf("allocate socks port: %w", err)
		}
		p.socksPort = s
		p.allocatedSocks = true
	case p.controlPort == 0:
		c, err := p.cfg.Ports.AllocatePort()
		if err != nil {
			return fmt.Errorf("allocate control port: %w", err)
		}
		p.controlPort = c
		p.allocatedCtrl = true
	}
	return nil
}

// releasePorts returns registry-allocated ports. Fixed (configured) ports are
// not registered and therefore not released.
func (p *Process) releasePorts() {
	if p.allocatedSocks {
		p.cfg.Ports.Release(p.socksPort)
		p.allocatedSocks = false
	}
	if p.allocatedCtrl {
		p.cfg.Ports.Release(p.controlPort)
		p.allocatedCtrl = false
	}
}

// waitControlPortReady polls the control port until tor accepts TCP
// connections, aborting early if the process exits (e.g., on a bad torrc).
func (p *Process) waitControlPortReady(ctx context.Context) error {
	addr := p.controlAddr()
	dialer := &net.Dialer{Timeout: readinessDialTimeout}

	return process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      readinessPollInterval,
		Timeout:       p.cfg.StartTimeout,
		Name:          "tor",
		Port:          p.controlPort,
		Logger:        p.log,
		ProcessExited: p.base.Exited(),
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		conn, err := dialer.DialContext(checkCtx, "tcp", addr)
		if err != nil {
			p.log.Debug("control port not ready", "port", p.controlPort, "attempt", attempt, "error", err)
			return false, nil // Not ready yet
		}
		_ = conn.Close() // best-effort close of readiness check connection
		return true, nil
	})
}

// openControlSession dials the control port and authenticates.
func (p *Process) openControlSession(ctx context.Context) (*control.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.StartTimeout)
	defer cancel()

	ctrl, err := control.Dial(dialCtx, p.controlAddr())
	if err != nil {
		return nil, err
	}
	if err := ctrl.Authenticate(dialCtx, p.cfg.ControlPassword); err != nil {
		_ = ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

// stopForCleanup stops a partially started process during a failed Create.
// Uses the configured stop timeout; the caller's context may already be
// canceled (a common cause of the failure), which must not orphan the daemon.
func (p *Process) stopForCleanup() {
	if !p.base.IsStarted() {
		return
	}
	if err := p.base.Stop(p.cfg.StopTimeout); err != nil {
		p.log.Warn("stop tor process during startup cleanup", "error", err)
	}
	p.base.Close()
}

// cleanupAfterFailedCreate releases ports and the data dir lock after a
// failed Create so a retry starts from scratch.
func (p *Process) cleanupAfterFailedCreate() {
	p.releasePorts()
	p.releaseDataDirLock()
}

// controlAddr returns the loopback address of the control port.
func (p *Process) controlAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", p.controlPort)
}

// effectiveStopTimeout returns the stop timeout to use, choosing the smaller
// of the context's remaining time and the configured StopTimeout. If the
// context has no deadline, the configured StopTimeout is used.
func (p *Process) effectiveStopTimeout(ctx context.Context) time.Duration {
	timeout := p.cfg.StopTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	// A zero or negative timeout would cause immediate SIGKILL escalation
	// with no drain window.
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}
