// Package health reports the state of one or more cache namespaces.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/epochly/go-kvcache/cache"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// HTTPStatus maps the status to a response code. Only unhealthy is an error.
func (s Status) HTTPStatus() int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Report is the result of checking a single cache.
type Report struct {
	Name      string      `json:"name"`
	Status    Status      `json:"status"`
	Stats     cache.Stats `json:"stats"`
	LatencyMS float64     `json:"latency_ms"`
}

// Check pings c and classifies it: unhealthy when the ping fails, degraded
// when it runs on the local store only, healthy otherwise.
func Check(ctx context.Context, name string, c cache.Cache) Report {
	start := time.Now()
	ok := c.Ping(ctx)
	latency := time.Since(start)
	stats := c.Stats(ctx)
	r := Report{
		Name:      name,
		Stats:     stats,
		LatencyMS: float64(latency.Microseconds()) / 1000,
	}
	switch {
	case !ok:
		r.Status = StatusUnhealthy
	case stats.Type == cache.TypeMemory:
		r.Status = StatusDegraded
	default:
		r.Status = StatusHealthy
	}
	return r
}

// Summary combines several reports.
type Summary struct {
	Status     Status    `json:"status"`
	Components []Report  `json:"components"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Aggregate returns the worst status among reports. No reports is healthy.
func Aggregate(reports ...Report) Summary {
	s := Summary{Status: StatusHealthy, Components: reports, CheckedAt: time.Now().UTC()}
	for _, r := range reports {
		if r.Status.rank() > s.Status.rank() {
			s.Status = r.Status
		}
	}
	return s
}

// Checker checks a fixed set of named caches.
type Checker struct {
	mu     sync.RWMutex
	names  []string
	caches map[string]cache.Cache
}

func NewChecker() *Checker {
	return &Checker{caches: make(map[string]cache.Cache)}
}

// Register adds c under name, replacing any cache already registered with it.
func (h *Checker) Register(name string, c cache.Cache) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.caches[name]; !ok {
		h.names = append(h.names, name)
	}
	h.caches[name] = c
}

// Run checks every registered cache concurrently, in registration order.
func (h *Checker) Run(ctx context.Context) Summary {
	h.mu.RLock()
	names := append([]string(nil), h.names...)
	caches := make([]cache.Cache, len(names))
	for i, name := range names {
		caches[i] = h.caches[name]
	}
	h.mu.RUnlock()

	reports := make([]Report, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = Check(ctx, names[i], caches[i])
		}(i)
	}
	wg.Wait()
	return Aggregate(reports...)
}
