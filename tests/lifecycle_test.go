//go:build integration

package torrouter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	torrouter "github.com/t4weyhryjtey/tor-router"
)

// newIntegrationPool builds a pool that spawns real tor processes under a
// per-test temp directory. Networking is disabled so instances start fast
// and the tests stay local; the control port works regardless.
func newIntegrationPool(t *testing.T) *torrouter.Pool {
	t.Helper()
	pool, err := torrouter.NewPool(
		torrouter.WithTorPath(torPath),
		torrouter.WithBaseDataDir(t.TempDir()),
		torrouter.WithStartTimeout(2*time.Minute),
		torrouter.WithDefaultTorConfig(map[string]string{
			// Keep startup local: no circuit building needed for the
			// control-port operations these tests exercise.
			"DisableNetwork": "1",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		assert.NoError(t, pool.Exit(ctx))
	})
	return pool
}

func TestLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := newIntegrationPool(t)

	instances, err := pool.Add(ctx, []torrouter.Definition{
		{Name: "first"},
		{Name: "second"},
	})
	require.NoError(t, err)
	require.Len(t, instances, 2)
	require.Equal(t, 2, pool.Len())

	// Selection cycles over both instances.
	a, err := pool.Next()
	require.NoError(t, err)
	b, err := pool.Next()
	require.NoError(t, err)
	assert.NotEqual(t, a.Name(), b.Name())

	// Control-protocol round trip against the live daemon.
	values, err := pool.GetConfigByName(ctx, "first", "DisableNetwork")
	require.NoError(t, err)
	require.NotEmpty(t, values)
	assert.Equal(t, "1", values[0])

	require.NoError(t, pool.SetConfigByName(ctx, "first", "MaxCircuitDirtiness", "600"))
	values, err = pool.GetConfigByName(ctx, "first", "MaxCircuitDirtiness")
	require.NoError(t, err)
	require.NotEmpty(t, values)
	assert.Equal(t, "600", values[0])

	require.NoError(t, pool.RemoveByName(ctx, "second"))
	assert.Equal(t, 1, pool.Len())
}

func TestSignalForwardingToDaemon(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := newIntegrationPool(t)
	_, err := pool.CreateInstance(ctx, torrouter.Definition{Name: "sig"})
	require.NoError(t, err)

	// NEWNYM is accepted even with networking disabled.
	require.NoError(t, pool.NewIdentityByName(ctx, "sig"))
	require.NoError(t, pool.SignalByName(ctx, "sig", "HEARTBEAT"))
}
