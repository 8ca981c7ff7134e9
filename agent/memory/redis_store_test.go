package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, "test:", nil)
}

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	t.Parallel()

	_, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Save(ctx, "notes:topic", map[string]any{"text": "remember me"}, 0))

	v, err := store.Load(ctx, "notes:topic")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "remember me"}, v)

	require.NoError(t, store.Delete(ctx, "notes:topic"))
	_, err = store.Load(ctx, "notes:topic")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_TTLAndList(t *testing.T) {
	t.Parallel()

	mr, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "notes:a", "a1", time.Minute))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Save(ctx, "notes:b", "b1", 0))
	require.NoError(t, store.Save(ctx, "other:c", "c1", 0))

	items, err := store.List(ctx, "notes:*", 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"b1", "a1"}, items)

	mr.FastForward(2 * time.Minute)
	items, err = store.List(ctx, "notes:*", 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"b1"}, items)

	members, err := mr.ZMembers("test:memory:index")
	require.NoError(t, err)
	assert.NotContains(t, members, "notes:a", "expired key must be pruned from the index")
}
