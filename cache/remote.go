package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Remote is a network-backed key-value service. Every method reports
// failures through its error so the caller can decide on fallback.
type Remote interface {
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	// Get returns found=false only when the service reports the key absent.
	Get(ctx context.Context, key string) (any, bool, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
}

// NewRemote builds the client for cfg.URL: redis:// and rediss:// URLs use the
// native protocol with the token as password, anything else the REST command
// protocol.
func NewRemote(cfg Config, opts ...RESTOption) (Remote, error) {
	if !cfg.RemoteEnabled() {
		return nil, ErrRemoteNotConfigured
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "cache: invalid remote url")
	}
	switch strings.ToLower(u.Scheme) {
	case "redis", "rediss":
		opt, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, "cache: invalid redis url")
		}
		if opt.Password == "" {
			opt.Password = cfg.Token.Text()
		}
		return NewRedisClient(redis.NewClient(opt), WithOwnedClient()), nil
	default:
		return NewRESTClient(cfg.URL, cfg.Token.Text(), opts...), nil
	}
}

// ttlSeconds converts ttl to whole seconds, rounding up, with a minimum of one.
func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return max(1, int64((ttl+time.Second-1)/time.Second))
}

// failingRemote stands in for a remote that could not be constructed.
type failingRemote struct {
	err error
}

func (f failingRemote) Set(context.Context, string, any, time.Duration) error { return f.err }
func (f failingRemote) Get(context.Context, string) (any, bool, error) { return nil, false, f.err }
func (f failingRemote) Del(context.Context, string) (bool, error) { return false, f.err }
func (f failingRemote) Exists(context.Context, string) (bool, error) { return false, f.err }
func (f failingRemote) Incr(context.Context, string) (int64, error) { return 0, f.err }
func (f failingRemote) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, f.err
}
func (f failingRemote) Ping(context.Context) error { return f.err }
