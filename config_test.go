package torrouter

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

func TestMergeTorConfig(t *testing.T) {
	t.Parallel()

	defaults := map[string]string{"A": "1", "B": "2"}
	override := map[string]string{"B": "override", "C": "3"}

	merged := mergeTorConfig(defaults, override)

	if merged["A"] != "1" || merged["B"] != "override" || merged["C"] != "3" {
		t.Errorf("merged = %v", merged)
	}
	// Neither input is mutated.
	if defaults["B"] != "2" || len(defaults) != 2 {
		t.Errorf("defaults mutated: %v", defaults)
	}
	if len(override) != 2 {
		t.Errorf("override mutated: %v", override)
	}

	// The merged map is independent of the defaults.
	merged["A"] = "changed"
	if defaults["A"] != "1" {
		t.Errorf("defaults aliased by merged map: %v", defaults)
	}
}

func TestMergeTorConfigNilInputs(t *testing.T) {
	t.Parallel()

	if got := mergeTorConfig(nil, map[string]string{"A": "1"}); got["A"] != "1" {
		t.Errorf("merge with nil defaults = %v", got)
	}
	if got := mergeTorConfig(map[string]string{"A": "1"}, nil); got["A"] != "1" {
		t.Errorf("merge with nil override = %v", got)
	}
	if got := mergeTorConfig(nil, nil); len(got) != 0 {
		t.Errorf("merge of nils = %v, want empty", got)
	}
}

func TestDefaultTorConfigNeverMutatedAcrossCreations(t *testing.T) {
	t.Parallel()

	defaults := map[string]string{"ExitNodes": "{de}"}
	pool, fleet := newTestPool(t, WithDefaultTorConfig(defaults))
	ctx := context.Background()

	if _, err := pool.CreateInstance(ctx, Definition{Name: "a", Config: map[string]string{"ExitNodes": "{nl}"}}); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	if _, err := pool.CreateInstance(ctx, Definition{Name: "b"}); err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}

	if defaults["ExitNodes"] != "{de}" {
		t.Errorf("caller map mutated: %v", defaults)
	}
	fleet.mu.Lock()
	defer fleet.mu.Unlock()
	for _, params := range fleet.params {
		want := "{nl}"
		if params.Name == "b" {
			want = "{de}"
		}
		if got := params.Config["ExitNodes"]; got != want {
			t.Errorf("instance %q ExitNodes = %q, want %q", params.Name, got, want)
		}
	}
}

func TestTorConfigGeneratorInvokedPerCreation(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	pool, fleet := newTestPool(t, WithTorConfigGenerator(func() map[string]string {
		n := calls.Add(1)
		return map[string]string{"Token": strconv.FormatInt(n, 10)}
	}))

	if _, err := pool.Create(context.Background(), 3); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("generator invoked %d times, want 3", got)
	}

	fleet.mu.Lock()
	defer fleet.mu.Unlock()
	tokens := map[string]bool{}
	for _, params := range fleet.params {
		tokens[params.Config["Token"]] = true
	}
	if len(tokens) != 3 {
		t.Errorf("instances share generator output: tokens = %v", tokens)
	}
}

func TestNewPoolRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	// Static default config and generator are mutually exclusive.
	_, err := NewPool(
		WithDefaultTorConfig(map[string]string{"A": "1"}),
		WithTorConfigGenerator(func() map[string]string { return nil }),
	)
	if err == nil {
		t.Error("NewPool accepted config with both template forms")
	}
}

func TestPoolConfigValidateCollectsAllViolations(t *testing.T) {
	t.Parallel()

	cfg := poolConfig{} // everything unset
	err := cfg.validate()
	if err == nil {
		t.Fatal("validate on zero config should fail")
	}
	for _, want := range []string{"tor path", "base data directory", "load balance method", "start timeout", "stop timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validate error does not mention %q: %v", want, err)
		}
	}
}
