package cache

import (
	"context"
	"io"
	"time"

	"github.com/epochly/go-kvcache/logger"
)

// Fallback is the Cache facade. It prefers the remote tier when one is
// configured and answers from its own LocalStore whenever a remote call
// fails. Successful remote writes are not mirrored locally.
type Fallback struct {
	name          string
	prefix        string
	remote        Remote
	remoteEnabled bool
	local         *LocalStore
	logger        logger.Logger
	metrics       *Metrics
	queryTimeout  time.Duration
}

var _ Cache = (*Fallback)(nil)

// New returns a Fallback configured from cfg. The remote tier is enabled
// when cfg.RemoteEnabled() is true and stays so for the lifetime of the
// Fallback.
func New(cfg Config, opts ...Option) *Fallback {
	c := applyOptions(opts)
	f := newFallback(c)
	if cfg.RemoteEnabled() {
		remote, err := NewRemote(cfg, c.remoteOpts...)
		if err != nil {
			f.logger.Error("cannot build remote client, every call will use the local store: %s", err)
			remote = failingRemote{err: err}
		}
		f.remote = remote
		f.remoteEnabled = true
	}
	f.logger.Info("cache ready (%s)", cfg)
	return f
}

// NewWithRemote returns a Fallback using r as its remote tier. A nil r gives
// a local-only cache.
func NewWithRemote(r Remote, opts ...Option) *Fallback {
	f := newFallback(applyOptions(opts))
	f.remote = r
	f.remoteEnabled = r != nil
	return f
}

func newFallback(c config) *Fallback {
	log := c.logger.WithPrefix("[kvcache]")
	if c.name != "" {
		log = logger.WithKV(log, "namespace", c.name)
	}
	return &Fallback{
		name:         c.name,
		prefix:       c.prefix,
		local:        NewLocalStore(c.maxSize, WithLocalClock(c.now)),
		logger:       log,
		metrics:      c.metrics,
		queryTimeout: c.queryTimeout,
	}
}

func (f *Fallback) key(key string) string {
	if f.prefix == "" {
		return key
	}
	return f.prefix + ":" + key
}

func (f *Fallback) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if f.queryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, f.queryTimeout)
}

// tryRemote runs fn against the remote tier and reports whether it succeeded.
// A failure is logged and counted; the caller then serves from the local store.
func (f *Fallback) tryRemote(ctx context.Context, op, key string, fn func(ctx context.Context) error) bool {
	if !f.remoteEnabled {
		return false
	}
	qctx, cancel := f.queryCtx(ctx)
	defer cancel()
	if err := fn(qctx); err != nil {
		if key == "" {
			f.logger.Warn("remote %s failed, falling back to local store: %s", op, err)
		} else {
			f.logger.Warn("remote %s failed for key %q, falling back to local store: %s", op, key, err)
		}
		f.metrics.remoteFailed(f.name, op)
		return false
	}
	f.metrics.served(f.name, op, tierRemote)
	return true
}

func (f *Fallback) servedLocal(op string) {
	f.metrics.served(f.name, op, tierLocal)
}

func (f *Fallback) Set(ctx context.Context, key string, val any, ttl time.Duration) bool {
	k := f.key(key)
	if f.tryRemote(ctx, "set", key, func(ctx context.Context) error {
		return f.remote.Set(ctx, k, val, ttl)
	}) {
		return true
	}
	f.servedLocal("set")
	return f.local.Set(k, val, ttl)
}

func (f *Fallback) Get(ctx context.Context, key string) (any, bool) {
	k := f.key(key)
	var val any
	var found bool
	if f.tryRemote(ctx, "get", key, func(ctx context.Context) error {
		var err error
		val, found, err = f.remote.Get(ctx, k)
		return err
	}) {
		return val, found
	}
	f.servedLocal("get")
	return f.local.Get(k)
}

func (f *Fallback) Del(ctx context.Context, key string) bool {
	k := f.key(key)
	var existed bool
	if f.tryRemote(ctx, "del", key, func(ctx context.Context) error {
		var err error
		existed, err = f.remote.Del(ctx, k)
		return err
	}) {
		return existed
	}
	f.servedLocal("del")
	return f.local.Del(k)
}

func (f *Fallback) Exists(ctx context.Context, key string) bool {
	k := f.key(key)
	var exists bool
	if f.tryRemote(ctx, "exists", key, func(ctx context.Context) error {
		var err error
		exists, err = f.remote.Exists(ctx, k)
		return err
	}) {
		return exists
	}
	f.servedLocal("exists")
	return f.local.Exists(k)
}

// Increment adds one to the counter at key. On the local store a missing or
// non-numeric value counts as zero and the result is kept for IncrementTTL.
func (f *Fallback) Increment(ctx context.Context, key string) int64 {
	k := f.key(key)
	var n int64
	if f.tryRemote(ctx, "incr", key, func(ctx context.Context) error {
		var err error
		n, err = f.remote.Incr(ctx, k)
		return err
	}) {
		return n
	}
	f.servedLocal("incr")
	return f.local.incr(k, IncrementTTL)
}

// Expire sets a new ttl on key. On the local store the current value is
// re-set with ttl; a missing key reports false.
func (f *Fallback) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	k := f.key(key)
	var ok bool
	if f.tryRemote(ctx, "expire", key, func(ctx context.Context) error {
		var err error
		ok, err = f.remote.Expire(ctx, k, ttl)
		return err
	}) {
		return ok
	}
	f.servedLocal("expire")
	return f.local.touch(k, ttl)
}

// Ping reports true whenever the cache can serve requests, which the local
// store always can.
func (f *Fallback) Ping(ctx context.Context) bool {
	if f.tryRemote(ctx, "ping", "", func(ctx context.Context) error {
		return f.remote.Ping(ctx)
	}) {
		return true
	}
	f.servedLocal("ping")
	return true
}

// Stats reports the configured tier. Size is only present in local-only
// mode. A remote outage does not change the report.
func (f *Fallback) Stats(ctx context.Context) Stats {
	if f.remoteEnabled {
		return Stats{Enabled: true, Type: TypeRedis}
	}
	size := f.local.Size()
	return Stats{Enabled: false, Type: TypeMemory, Size: &size}
}

// Name returns the namespace label given with WithName.
func (f *Fallback) Name() string {
	return f.name
}

// Close releases the remote client when it holds resources.
func (f *Fallback) Close() error {
	if closer, ok := f.remote.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
