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

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisClientSetGet(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisClient(client)
	ctx := context.Background()

	val, found, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	require.NoError(t, c.Set(ctx, "key", map[string]any{"x": 1}, time.Minute))
	val, found, err = c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]any{"x": float64(1)}, val)

	raw, err := mr.Get("key")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, raw)
	assert.Equal(t, time.Minute, mr.TTL("key"))
}

func TestRedisClientFalsyValueIsHit(t *testing.T) {
	_, client := newTestRedis(t)
	c := NewRedisClient(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "zero", 0, time.Minute))
	val, found, err := c.Get(ctx, "zero")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, float64(0), val)
}

func TestRedisClientExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisClient(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", 2*time.Second))
	ok, err := c.Exists(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, ok)

	// Use miniredis FastForward to simulate time passing.
	mr.FastForward(3 * time.Second)

	_, found, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestRedisClientCounters(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisClient(client)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := c.Incr(ctx, "hits")
		assert.NoError(t, err)
		assert.Equal(t, i, n)
	}
	val, found, err := c.Get(ctx, "hits")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, float64(3), val)

	ok, err := c.Expire(ctx, "hits", 1500*time.Millisecond)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, mr.TTL("hits"))

	ok, err = c.Del(ctx, "hits")
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Del(ctx, "hits")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Expire(ctx, "hits", time.Minute)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisClientMsgpackCodec(t *testing.T) {
	_, client := newTestRedis(t)
	c := NewRedisClient(client, WithRedisCodec(MsgpackCodec{}))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	val, found, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestRedisClientPingAndErrors(t *testing.T) {
	mr, client := newTestRedis(t)
	c := NewRedisClient(client)
	ctx := context.Background()

	assert.NoError(t, c.Ping(ctx))

	mr.SetError("ERR boom")
	assert.Error(t, c.Ping(ctx))
	_, _, err := c.Get(ctx, "key")
	assert.Error(t, err)
	mr.SetError("")

	mr.Close()
	assert.Error(t, c.Ping(ctx))
}

func TestRedisClientClose(t *testing.T) {
	_, client := newTestRedis(t)
	assert.NoError(t, NewRedisClient(client).Close())
	assert.NoError(t, client.Ping(context.Background()).Err(), "borrowed client stays open")

	mr := miniredis.RunT(t)
	owned := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	assert.NoError(t, NewRedisClient(owned, WithOwnedClient()).Close())
	assert.Error(t, owned.Ping(context.Background()).Err())
}

func TestCodecs(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			buf, err := codec.Marshal([]any{"a", true})
			require.NoError(t, err)
			val, err := codec.Unmarshal(buf)
			require.NoError(t, err)
			assert.Equal(t, []any{"a", true}, val)
		})
	}

	val, err := JSONCodec{}.Unmarshal([]byte("plain text"))
	assert.NoError(t, err)
	assert.Equal(t, "plain text", val)

	_, err = JSONCodec{}.Marshal(make(chan int))
	assert.Error(t, err)
}

func TestNewRemote(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("token")

	r, err := NewRemote(Config{URL: "redis://" + mr.Addr(), Token: "token"})
	require.NoError(t, err)
	rc, ok := r.(*RedisClient)
	require.True(t, ok)
	assert.NoError(t, rc.Ping(context.Background()))
	assert.NoError(t, rc.Close())

	r, err = NewRemote(Config{URL: "https://cache.example.com", Token: "token"})
	require.NoError(t, err)
	assert.IsType(t, &RESTClient{}, r)

	_, err = NewRemote(Config{URL: "https://cache.example.com"})
	assert.ErrorIs(t, err, ErrRemoteNotConfigured)

	_, err = NewRemote(Config{URL: "redis://host:notaport/x", Token: "t"})
	assert.Error(t, err)
}
