package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type redisConfig struct {
	codec Codec
	owned bool
}

// RedisOption configures a RedisClient.
type RedisOption func(*redisConfig)

// WithRedisCodec sets the value codec. Defaults to JSONCodec.
func WithRedisCodec(codec Codec) RedisOption {
	return func(c *redisConfig) { c.codec = codec }
}

// WithOwnedClient makes Close also close the underlying redis.Client.
func WithOwnedClient() RedisOption {
	return func(c *redisConfig) { c.owned = true }
}

// RedisClient issues the same commands as RESTClient over the native Redis
// protocol. The caller owns the redis.Client unless WithOwnedClient is given.
type RedisClient struct {
	client *redis.Client
	cfg    redisConfig
}

var _ Remote = (*RedisClient)(nil)

func NewRedisClient(client *redis.Client, opts ...RedisOption) *RedisClient {
	cfg := redisConfig{codec: JSONCodec{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisClient{client: client, cfg: cfg}
}

func (c *RedisClient) Set(ctx context.Context, key string, val any, ttl time.Duration) error {
	data, err := c.cfg.codec.Marshal(val)
	if err != nil {
		return err
	}
	return c.client.SetEx(ctx, key, data, time.Duration(ttlSeconds(ttl))*time.Second).Err()
}

func (c *RedisClient) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := c.cfg.codec.Unmarshal(data)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisClient) Del(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

func (c *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.Expire(ctx, key, time.Duration(ttlSeconds(ttl))*time.Second).Result()
}

func (c *RedisClient) Ping(ctx context.Context) error {
	pong, err := c.client.Ping(ctx).Result()
	if err != nil {
		return err
	}
	if pong != "PONG" {
		return errors.Wrapf(ErrUnexpectedReply, "PING: %q", pong)
	}
	return nil
}

// Close releases the redis.Client when it is owned, otherwise it is a no-op.
func (c *RedisClient) Close() error {
	if !c.cfg.owned {
		return nil
	}
	return c.client.Close()
}
