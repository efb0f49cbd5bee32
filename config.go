package torrouter

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"
)

// poolConfig holds the configuration for a Pool, assembled from defaults and
// Option values by NewPool.
type poolConfig struct {
	TorPath     string
	BaseDataDir string
	Method      LoadBalanceMethod

	// ControlPassword is used to authenticate control sessions opened by
	// the default handle factory. Empty means null authentication.
	ControlPassword string

	// DefaultTorConfig and TorConfigGenerator are the pool's configuration
	// template. At most one is set; the generator, when present, is invoked
	// once per created instance.
	DefaultTorConfig   map[string]string
	TorConfigGenerator func() map[string]string

	StartTimeout time.Duration
	StopTimeout  time.Duration

	// HandleFactory constructs instance handles. Nil selects the built-in
	// tor process factory.
	HandleFactory HandleFactory
}

// defaultPoolConfig returns the configuration NewPool starts from before
// applying options.
func defaultPoolConfig() poolConfig {
	return poolConfig{
		TorPath:      DefaultTorPath,
		BaseDataDir:  filepath.Join(os.TempDir(), DefaultBaseDataDirName),
		Method:       DefaultLoadBalanceMethod,
		StartTimeout: DefaultStartTimeout,
		StopTimeout:  DefaultStopTimeout,
	}
}

// validate checks the assembled configuration and returns an error
// describing every violation found. Option constructors already panic on
// individually invalid values; validate catches cross-field problems and
// values set to invalid zero states.
func (c poolConfig) validate() error {
	var errs []error
	if c.TorPath == "" {
		errs = append(errs, errors.New("tor path must not be empty"))
	}
	if c.BaseDataDir == "" {
		errs = append(errs, errors.New("base data directory must not be empty"))
	}
	if !c.Method.IsValid() {
		errs = append(errs, fmt.Errorf("invalid load balance method %v", c.Method))
	}
	if c.StartTimeout <= 0 {
		errs = append(errs, fmt.Errorf("start timeout must be greater than 0, got %s", c.StartTimeout))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}
	if c.DefaultTorConfig != nil && c.TorConfigGenerator != nil {
		errs = append(errs, errors.New("default tor config and tor config generator are mutually exclusive"))
	}
	return errors.Join(errs...)
}

// torConfigTemplate returns one instance's configuration template: the
// generator's output if one is set, otherwise the static default map. The
// caller must not mutate the result; mergeTorConfig copies it.
func (c poolConfig) torConfigTemplate() map[string]string {
	if c.TorConfigGenerator != nil {
		return c.TorConfigGenerator()
	}
	return c.DefaultTorConfig
}

// mergeTorConfig merges an instance's override map over a copy of the pool
// defaults. Override wins key-by-key; neither input map is mutated.
func mergeTorConfig(defaults, override map[string]string) map[string]string {
	merged := maps.Clone(defaults)
	if merged == nil {
		merged = make(map[string]string, len(override))
	}
	maps.Copy(merged, override)
	return merged
}
