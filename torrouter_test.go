package torrouter_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	torrouter "github.com/t4weyhryjtey/tor-router"
)

// stubHandle is a minimal Handle for exercising the public surface.
type stubHandle struct {
	mu     sync.Mutex
	exited bool
}

func (h *stubHandle) Create(ctx context.Context) error { return nil }

func (h *stubHandle) Exit(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exited = true
	return nil
}

func (h *stubHandle) NewIdentity(ctx context.Context) error { return nil }

func (h *stubHandle) GetConfig(ctx context.Context, keyword string) ([]string, error) {
	return []string{keyword}, nil
}

func (h *stubHandle) SetConfig(ctx context.Context, keyword, value string) error { return nil }

func (h *stubHandle) Signal(ctx context.Context, name string) error { return nil }

func TestPoolPublicSurface(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var mu sync.Mutex
	var handles []*stubHandle
	pool, err := torrouter.NewPool(
		torrouter.WithBaseDataDir(t.TempDir()),
		torrouter.WithHandleFactory(func(params torrouter.HandleParams) (torrouter.Handle, error) {
			h := &stubHandle{}
			mu.Lock()
			handles = append(handles, h)
			mu.Unlock()
			return h, nil
		}),
	)
	require.NoError(t, err)

	inst, err := pool.CreateInstance(ctx, torrouter.Definition{
		Name:   "front",
		Weight: 3,
		Groups: []string{"edge"},
	})
	require.NoError(t, err)
	assert.Equal(t, "front", inst.Name())
	assert.NotEmpty(t, inst.ID())
	assert.Equal(t, 3, inst.Weight())
	assert.Equal(t, []string{"edge"}, inst.Groups())

	more, err := pool.Add(ctx, []torrouter.Definition{{Name: "b"}, {Name: "c"}})
	require.NoError(t, err)
	require.Len(t, more, 2)
	assert.Equal(t, 3, pool.Len())

	selected, err := pool.Next()
	require.NoError(t, err)
	assert.NotNil(t, selected)

	values, err := pool.GetConfigByName(ctx, "front", "SocksPort")
	require.NoError(t, err)
	assert.Equal(t, []string{"SocksPort"}, values)

	assert.Equal(t, []string{"edge"}, pool.GroupNames())
	assert.Equal(t, 1, pool.Group("edge").Len())

	require.NoError(t, pool.Exit(ctx))
	assert.Zero(t, pool.Len())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, handles, 3)
	for _, h := range handles {
		h.mu.Lock()
		assert.True(t, h.exited)
		h.mu.Unlock()
	}
}

func TestNewPoolDefaultFactory(t *testing.T) {
	t.Parallel()

	// No options: the built-in tor process factory is selected and no
	// instances are started.
	pool, err := torrouter.NewPool()
	require.NoError(t, err)
	assert.Zero(t, pool.Len())
	assert.Equal(t, torrouter.RoundRobin, pool.LoadBalanceMethod())
}
