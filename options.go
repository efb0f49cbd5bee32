package torrouter

import (
	"fmt"
	"maps"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("tor-router: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("tor-router: %s must not be empty", name))
	}
}

// Option configures a Pool during construction via NewPool.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths, non-positive
// durations, unrecognized methods). These panics are intentional: option
// values are typically compile-time constants or package-level variables, so
// an invalid value indicates a programmer error rather than a runtime
// condition. The pattern mirrors [regexp.MustCompile] — fail fast during
// initialization instead of returning errors that would be universally fatal
// anyway.
type Option func(*poolConfig)

// WithTorPath sets the path to the tor binary.
//
// Default: "tor", resolved through PATH.
//
// Panics if binPath is empty.
func WithTorPath(binPath string) Option {
	requireNonEmpty("tor binary path", binPath)
	return func(c *poolConfig) {
		c.TorPath = binPath
	}
}

// WithBaseDataDir sets the base directory under which each instance gets its
// own exclusive data directory. Useful when multiple pools run on one host
// and need isolated data directories to prevent conflicts.
//
// Default: filepath.Join(os.TempDir(), DefaultBaseDataDirName).
//
// Panics if dir is empty.
func WithBaseDataDir(dir string) Option {
	requireNonEmpty("base data directory", dir)
	return func(c *poolConfig) {
		c.BaseDataDir = dir
	}
}

// WithLoadBalanceMethod sets the initial selection strategy used by Next.
// The method can be changed later via [Pool.SetLoadBalanceMethod].
//
// Default: RoundRobin.
//
// Panics if m is not a recognized method.
func WithLoadBalanceMethod(m LoadBalanceMethod) Option {
	if !m.IsValid() {
		panic(fmt.Sprintf("tor-router: invalid load balance method %v", m))
	}
	return func(c *poolConfig) {
		c.Method = m
	}
}

// WithControlPassword sets the password used to authenticate control
// sessions opened by the default handle factory.
//
// Default: empty (null authentication; the control port binds to loopback).
func WithControlPassword(password string) Option {
	return func(c *poolConfig) {
		c.ControlPassword = password
	}
}

// WithDefaultTorConfig sets a static configuration template applied to every
// created instance. Each instance receives an independent copy, extended with
// the keywords from its own definition (definition wins on key conflicts).
//
// Mutually exclusive with WithTorConfigGenerator; setting both fails NewPool.
func WithDefaultTorConfig(conf map[string]string) Option {
	conf = maps.Clone(conf) // detach from the caller's map
	return func(c *poolConfig) {
		c.DefaultTorConfig = conf
	}
}

// WithTorConfigGenerator sets a generator producing the configuration
// template. The generator is invoked once per created instance, so each
// instance can receive an independently computed configuration. Batch
// creation (Add, Create) invokes it from concurrent goroutines; it must be
// safe for concurrent use.
//
// Mutually exclusive with WithDefaultTorConfig; setting both fails NewPool.
//
// Panics if generate is nil.
func WithTorConfigGenerator(generate func() map[string]string) Option {
	if generate == nil {
		panic("tor-router: tor config generator must not be nil")
	}
	return func(c *poolConfig) {
		c.TorConfigGenerator = generate
	}
}

// WithStartTimeout sets the maximum time allowed for an instance's tor
// daemon to start and expose an authenticated control session.
//
// Default: 3 minutes.
//
// Panics if d <= 0.
func WithStartTimeout(d time.Duration) Option {
	requirePositive("start timeout", d)
	return func(c *poolConfig) {
		c.StartTimeout = d
	}
}

// WithStopTimeout sets the maximum time allowed for an instance's tor daemon
// to stop gracefully before it is killed.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *poolConfig) {
		c.StopTimeout = d
	}
}

// WithHandleFactory substitutes the construction of instance handles,
// replacing the built-in tor process factory. Intended for tests and for
// daemons managed elsewhere (e.g., a remote tor reached over its control
// port).
//
// Panics if factory is nil.
func WithHandleFactory(factory HandleFactory) Option {
	if factory == nil {
		panic("tor-router: handle factory must not be nil")
	}
	return func(c *poolConfig) {
		c.HandleFactory = factory
	}
}
