// Package ratelimit implements fixed-window request counters on top of a
// cache namespace.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/epochly/go-kvcache/cache"
)

// KeyPrefix keeps rate-limit counters apart from other keys in a shared
// remote store.
const KeyPrefix = "ratelimit:"

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
)

// Result describes one counted request.
type Result struct {
	Allowed   bool          `json:"allowed"`
	Count     int64         `json:"count"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Window    time.Duration `json:"window"`
	ResetAt   time.Time     `json:"reset_at"`
}

// RetryAfter is the time left until the window resets, rounded up to whole
// seconds.
func (r Result) RetryAfter(now time.Time) int {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Limiter allows at most Limit requests per identity in each Window.
//
// Windows are aligned to multiples of Window since the Unix epoch and each
// one counts under its own key, so a window ends on time whatever TTL the
// cache keeps on the counter.
type Limiter struct {
	cache  cache.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

type Option func(*Limiter)

// WithClock sets the time source used to pick the current window.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a Limiter counting in c. A limit or window <= 0 uses the defaults.
func New(c cache.Cache, limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{cache: c, limit: limit, window: window, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Limit() int { return l.limit }
func (l *Limiter) Window() time.Duration { return l.window }

func (l *Limiter) bucket(now time.Time) int64 {
	return now.UnixNano() / int64(l.window)
}

// Key returns the counter key for id in the window containing now.
func (l *Limiter) Key(id string, now time.Time) string {
	return KeyPrefix + id + ":" + strconv.FormatInt(l.bucket(now), 10)
}

// Allow counts a request for id in the current window. The first request of
// a window sets the counter to expire with the window.
func (l *Limiter) Allow(ctx context.Context, id string) Result {
	now := l.now()
	key := l.Key(id, now)
	n := l.cache.Increment(ctx, key)
	if n == 1 {
		l.cache.Expire(ctx, key, l.window)
	}
	return Result{
		Allowed:   n <= int64(l.limit),
		Count:     n,
		Limit:     l.limit,
		Remaining: max(0, l.limit-int(n)),
		Window:    l.window,
		ResetAt:   time.Unix(0, (l.bucket(now)+1)*int64(l.window)),
	}
}

// Reset clears the counter for id in the current window.
func (l *Limiter) Reset(ctx context.Context, id string) bool {
	return l.cache.Del(ctx, l.Key(id, l.now()))
}
