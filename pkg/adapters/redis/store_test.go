package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/messagemind/automaton/pkg/adapters/redis"
	"github.com/messagemind/automaton/pkg/domain"
	"github.com/messagemind/automaton/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunGraphRepositoryContract(t, store)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))
	ctx := context.Background()

	g := &domain.Graph{ID: "g1", Name: "Welcome", CreatedAt: time.UnixMilli(1700000000000)}
	require.NoError(t, store.Create(ctx, g))

	assert.True(t, mr.Exists("test:automation:g1"))
	score, err := mr.ZScore("test:index", "g1")
	require.NoError(t, err)
	assert.Equal(t, float64(1700000000000), score)
	assert.Equal(t, "g1", mr.HGet("test:names", "Welcome"))

	require.NoError(t, store.Delete(ctx, "g1"))
	assert.False(t, mr.Exists("test:automation:g1"))
	assert.Empty(t, mr.HGet("test:names", "Welcome"))
}

func TestRedisStore_ListSkipsOrphanedIndexEntries(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Graph{ID: "g1", Name: "One"}))
	_, err := mr.ZAdd("automaton:index", 5, "ghost")
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "g1", all[0].ID)
}

func TestRedisStore_UpdateKeepingName(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	g := &domain.Graph{ID: "g1", Name: "One"}
	require.NoError(t, store.Create(ctx, g))

	g.Edges = []domain.Edge{{ID: "e", Source: "a", Target: "b"}}
	require.NoError(t, store.Update(ctx, g))

	loaded, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, loaded.Edges, 1)
}
