package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisWithClient(client)
}

func TestNewSelectsNoopWithoutAddress(t *testing.T) {
	store := New("", "")
	_, err := store.Get(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNoopReadsMissAndWritesSucceed(t *testing.T) {
	ctx := context.Background()
	store := NewNoop()

	assert.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	assert.NoError(t, store.LPush(ctx, "list", "a"))
	items, err := store.LRange(ctx, "list", 0, -1)
	assert.NoError(t, err)
	assert.Empty(t, items)

	assert.NoError(t, store.ZIncrBy(ctx, "board", 5, "alice"))
	members, err := store.ZRevRangeWithScores(ctx, "board", 0, 9)
	assert.NoError(t, err)
	assert.Empty(t, members)

	ran := false
	assert.NoError(t, store.Pipelined(ctx, func(b Batch) {
		ran = true
		b.LPush("list", "a")
		b.Expire("list", time.Minute)
	}))
	assert.True(t, ran)
}

func TestRedisGetSet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, store.Del(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisListOps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.LPush(ctx, "list", "a"))
	require.NoError(t, store.LPush(ctx, "list", "b"))
	require.NoError(t, store.LPush(ctx, "list", "c"))

	items, err := store.LRange(ctx, "list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, items)

	require.NoError(t, store.LTrim(ctx, "list", 0, 1))
	items, err = store.LRange(ctx, "list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, items)
}

func TestRedisSetOps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SAdd(ctx, "online", "alice", "bob"))
	require.NoError(t, store.SRem(ctx, "online", "bob"))

	members, err := store.SMembers(ctx, "online")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
}

func TestRedisSortedSetOps(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.ZIncrBy(ctx, "board", 30, "alice"))
	require.NoError(t, store.ZIncrBy(ctx, "board", 50, "bob"))
	require.NoError(t, store.ZIncrBy(ctx, "board", 20, "alice"))

	members, err := store.ZRevRangeWithScores(ctx, "board", 0, 9)
	require.NoError(t, err)
	assert.Equal(t, []Member{{Member: "bob", Score: 50}, {Member: "alice", Score: 50}}, members[:2])
}

func TestRedisPipelined(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Pipelined(ctx, func(b Batch) {
		b.LPush("list", "a", "b", "c")
		b.LTrim("list", 0, 1)
		b.ZAdd("board", 10, "alice")
		b.Expire("board", time.Hour)
	}))

	items, err := store.LRange(ctx, "list", 0, -1)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	members, err := store.ZRevRangeWithScores(ctx, "board", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []Member{{Member: "alice", Score: 10}}, members)
}
