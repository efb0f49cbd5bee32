package torrouter_test

import (
	"testing"
	"time"

	torrouter "github.com/t4weyhryjtey/tor-router"
)

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	generate := func() map[string]string { return map[string]string{"A": "1"} }
	factory := func(torrouter.HandleParams) (torrouter.Handle, error) { return nil, nil }

	cfg := torrouter.ApplyOptionsForTesting(
		torrouter.WithTorPath("/opt/tor/bin/tor"),
		torrouter.WithBaseDataDir("/var/lib/tor-pool"),
		torrouter.WithLoadBalanceMethod(torrouter.Weighted),
		torrouter.WithControlPassword("hunter2"),
		torrouter.WithTorConfigGenerator(generate),
		torrouter.WithStartTimeout(time.Minute),
		torrouter.WithStopTimeout(5*time.Second),
		torrouter.WithHandleFactory(factory),
	)

	if cfg.TorPath != "/opt/tor/bin/tor" {
		t.Errorf("TorPath = %q", cfg.TorPath)
	}
	if cfg.BaseDataDir != "/var/lib/tor-pool" {
		t.Errorf("BaseDataDir = %q", cfg.BaseDataDir)
	}
	if cfg.Method != torrouter.Weighted {
		t.Errorf("Method = %v", cfg.Method)
	}
	if cfg.ControlPassword != "hunter2" {
		t.Errorf("ControlPassword = %q", cfg.ControlPassword)
	}
	if !cfg.HasConfigGenerator {
		t.Error("config generator not set")
	}
	if cfg.StartTimeout != time.Minute {
		t.Errorf("StartTimeout = %s", cfg.StartTimeout)
	}
	if cfg.StopTimeout != 5*time.Second {
		t.Errorf("StopTimeout = %s", cfg.StopTimeout)
	}
	if !cfg.HasHandleFactory {
		t.Error("handle factory not set")
	}
}

func TestOptionDefaults(t *testing.T) {
	t.Parallel()

	cfg := torrouter.ApplyOptionsForTesting()

	if cfg.TorPath != torrouter.DefaultTorPath {
		t.Errorf("TorPath = %q, want %q", cfg.TorPath, torrouter.DefaultTorPath)
	}
	if cfg.Method != torrouter.DefaultLoadBalanceMethod {
		t.Errorf("Method = %v, want %v", cfg.Method, torrouter.DefaultLoadBalanceMethod)
	}
	if cfg.StartTimeout != torrouter.DefaultStartTimeout {
		t.Errorf("StartTimeout = %s, want %s", cfg.StartTimeout, torrouter.DefaultStartTimeout)
	}
	if cfg.StopTimeout != torrouter.DefaultStopTimeout {
		t.Errorf("StopTimeout = %s, want %s", cfg.StopTimeout, torrouter.DefaultStopTimeout)
	}
	if cfg.BaseDataDir == "" {
		t.Error("BaseDataDir empty")
	}
	if cfg.HasHandleFactory {
		t.Error("handle factory set by default")
	}
}

func TestWithDefaultTorConfigDetachesFromCaller(t *testing.T) {
	t.Parallel()

	conf := map[string]string{"A": "1"}
	cfg := torrouter.ApplyOptionsForTesting(torrouter.WithDefaultTorConfig(conf))

	conf["A"] = "mutated"
	if cfg.DefaultTorConfig["A"] != "1" {
		t.Errorf("option aliased the caller's map: %v", cfg.DefaultTorConfig)
	}
}

func TestOptionsPanicOnInvalidInput(t *testing.T) {
	t.Parallel()

	tests := map[string]func(){
		"empty tor path":      func() { torrouter.WithTorPath("") },
		"empty base data dir": func() { torrouter.WithBaseDataDir("") },
		"invalid method":      func() { torrouter.WithLoadBalanceMethod(torrouter.LoadBalanceMethod(99)) },
		"nil generator":       func() { torrouter.WithTorConfigGenerator(nil) },
		"zero start timeout":  func() { torrouter.WithStartTimeout(0) },
		"negative stop":       func() { torrouter.WithStopTimeout(-time.Second) },
		"nil factory":         func() { torrouter.WithHandleFactory(nil) },
	}

	for name, fn := range tests {
		fn := fn
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Error("option constructor did not panic")
				}
			}()
			fn()
		})
	}
}
