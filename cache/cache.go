package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/epochly/go-kvcache/logger"
	cstr "github.com/epochly/go-kvcache/string"
	"golang.org/x/sync/singleflight"
)

// Cache is the facade handed to application code. Implementations never
// return errors: a failing remote tier degrades to the local store.
type Cache interface {
	// Set stores val under key. A ttl <= 0 uses DefaultTTL.
	Set(ctx context.Context, key string, val any, ttl time.Duration) bool
	// Get returns the value and true, or nil and false on a miss.
	Get(ctx context.Context, key string) (any, bool)
	// Del removes key and reports whether it existed.
	Del(ctx context.Context, key string) bool
	// Exists reports whether key holds a live value.
	Exists(ctx context.Context, key string) bool
	// Increment adds one to the counter at key and returns the new value.
	Increment(ctx context.Context, key string) int64
	// Expire resets the ttl of key. It returns false when key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) bool
	// Ping reports whether the cache can serve requests.
	Ping(ctx context.Context) bool
	// Stats describes which tier is authoritative.
	Stats(ctx context.Context) Stats
}

const (
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// Stats is the status report returned by Cache.Stats.
type Stats struct {
	Enabled bool   `json:"enabled"`
	Type    string `json:"type"`
	Size    *int   `json:"size,omitempty"`
}

// DefaultTTL is used when Set is called with ttl <= 0.
const DefaultTTL = time.Hour

// IncrementTTL is the ttl given to counters incremented on the local store.
const IncrementTTL = time.Hour

// DefaultMaxSize is the local store capacity used when none is given.
const DefaultMaxSize = 1000

// DefaultQueryTimeout bounds every remote call made by the fallback orchestrator.
const DefaultQueryTimeout = 5 * time.Second

// Environment variables read by ConfigFromEnv.
const (
	EnvRemoteURL      = "KVCACHE_REMOTE_URL"
	EnvRemoteToken    = "KVCACHE_REMOTE_TOKEN"
	EnvRemoteDisabled = "KVCACHE_REMOTE_DISABLED"

	envLegacyURL   = "UPSTASH_REDIS_REST_URL"
	envLegacyToken = "UPSTASH_REDIS_REST_TOKEN"
)

// Config selects the remote tier. The remote is used only when both URL and
// Token are set and Disabled is false.
type Config struct {
	URL      string            `json:"url" yaml:"url"`
	Token    cstr.MaskedString `json:"token" yaml:"token"`
	Disabled bool              `json:"disabled" yaml:"disabled"`
}

// RemoteEnabled reports whether the configuration selects the remote tier.
func (c Config) RemoteEnabled() bool {
	return c.URL != "" && c.Token != "" && !c.Disabled
}

func (c Config) String() string {
	u := c.URL
	if masked, err := cstr.MaskURL(c.URL); err == nil && c.URL != "" {
		u = masked
	}
	return fmt.Sprintf("url=%s token=%s disabled=%v", u, c.Token, c.Disabled)
}

// ConfigFromEnv reads the remote settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		URL:      lookupEnv(EnvRemoteURL, envLegacyURL),
		Token:    cstr.NewMaskedString(lookupEnv(EnvRemoteToken, envLegacyToken)),
		Disabled: IsTruthy(os.Getenv(EnvRemoteDisabled)),
	}
}

func lookupEnv(names ...string) string {
	for _, name := range names {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return ""
}

// IsTruthy reports whether s is one of 1, true, yes or on (case-insensitive).
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// config holds the resolved configuration for the fallback orchestrator.
type config struct {
	name         string
	prefix       string
	maxSize      int
	queryTimeout time.Duration
	logger       logger.Logger
	metrics      *Metrics
	now          func() time.Time
	remoteOpts   []RESTOption
}

// Option configures a Fallback.
type Option func(*config)

func defaultConfig() config {
	return config{
		name:         "default",
		maxSize:      DefaultMaxSize,
		queryTimeout: DefaultQueryTimeout,
		now:          time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.NewConsoleLogger()
	}
	return cfg
}

// WithName sets the namespace label used in logs and metrics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithPrefix namespaces every key as prefix:key on both tiers.
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithMaxSize sets the local store capacity. Defaults to DefaultMaxSize.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithQueryTimeout sets the per-call timeout for remote operations.
// Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithLogger sets the logger. Defaults to a console logger.
func WithLogger(log logger.Logger) Option {
	return func(c *config) { c.logger = log }
}

// WithMetrics records operation counters on m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithClock replaces the local store clock. Used by tests to simulate time.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithRESTOptions passes options to the REST client built by New.
func WithRESTOptions(opts ...RESTOption) Option {
	return func(c *config) { c.remoteOpts = append(c.remoteOpts, opts...) }
}

// GetAs retrieves a typed value from the cache. Values held by the local
// store are returned by type assertion; values decoded from the remote tier
// are converted to T through JSON.
func GetAs[T any](ctx context.Context, c Cache, key string) (bool, T, error) {
	var zero T
	val, found := c.Get(ctx, key)
	if !found {
		return false, zero, nil
	}
	if typed, ok := val.(T); ok {
		return true, typed, nil
	}
	buf, err := json.Marshal(val)
	if err != nil {
		return false, zero, errors.Wrapf(err, "cache: cannot encode value of type %T", val)
	}
	var result T
	if err := json.Unmarshal(buf, &result); err != nil {
		return false, zero, errors.Wrapf(err, "cache: cannot convert value of type %T to %T", val, zero)
	}
	return true, result, nil
}

// ExecConfig configures the Exec helper.
type ExecConfig struct {
	// Key is the cache key. Required.
	Key string
	// TTL for the cached value. Defaults to DefaultTTL if zero.
	TTL time.Duration
}

// Invoker produces a value of type T. Return false to signal "not found"
// without caching a zero value.
type Invoker[T any] func(ctx context.Context) (T, bool, error)

var execGroup singleflight.Group

// flightKey identifies a cache key across Exec calls. Pointer caches are
// told apart by address; caches of a non-pointer type share flights per type.
func flightKey(c Cache, key string) string {
	if v := reflect.ValueOf(c); v.Kind() == reflect.Pointer {
		return fmt.Sprintf("%T@%x:%s", c, v.Pointer(), key)
	}
	return fmt.Sprintf("%T:%s", c, key)
}

type execResult[T any] struct {
	val   T
	found bool
}

// Exec is a cache-aside helper. On a hit the cached value is returned. On a
// miss invoke produces the value, which is stored when found is true.
// Concurrent misses on the same cache and key share one invocation.
// Invoker errors are returned; a failed store is not.
func Exec[T any](ctx context.Context, c Cache, cfg ExecConfig, invoke Invoker[T]) (bool, T, error) {
	var zero T
	found, val, err := GetAs[T](ctx, c, cfg.Key)
	if err != nil {
		return false, zero, err
	}
	if found {
		return true, val, nil
	}
	v, err, _ := execGroup.Do(flightKey(c, cfg.Key), func() (any, error) {
		result, ok, err := invoke(ctx)
		if err != nil || !ok {
			return execResult[T]{}, err
		}
		c.Set(ctx, cfg.Key, result, cfg.TTL)
		return execResult[T]{val: result, found: true}, nil
	})
	if err != nil {
		return false, zero, err
	}
	res := v.(execResult[T])
	return res.found, res.val, nil
}
