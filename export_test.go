package torrouter

import "time"

// ConfigSnapshot holds a copy of poolConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	TorPath            string
	BaseDataDir        string
	Method             LoadBalanceMethod
	ControlPassword    string
	DefaultTorConfig   map[string]string
	HasConfigGenerator bool
	StartTimeout       time.Duration
	StopTimeout        time.Duration
	HasHandleFactory   bool
}

// ApplyOptionsForTesting creates a default poolConfig, applies the given
// options, and returns a ConfigSnapshot of the result. This tests the option
// closures directly without constructing a pool.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		TorPath:            cfg.TorPath,
		BaseDataDir:        cfg.BaseDataDir,
		Method:             cfg.Method,
		ControlPassword:    cfg.ControlPassword,
		DefaultTorConfig:   cfg.DefaultTorConfig,
		HasConfigGenerator: cfg.TorConfigGenerator != nil,
		StartTimeout:       cfg.StartTimeout,
		StopTimeout:        cfg.StopTimeout,
		HasHandleFactory:   cfg.HandleFactory != nil,
	}
}
