package cache

import (
	"container/list"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

type localEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// LocalStore is a bounded in-process store with per-entry expiry. Entries
// are kept in first-insertion order; when the store is full, expired entries
// are dropped first and then the oldest fifth of the remainder.
type LocalStore struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithLocalClock replaces the clock used for expiry.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(s *LocalStore) { s.now = now }
}

// NewLocalStore returns an empty store holding at most maxSize entries.
// A maxSize <= 0 uses DefaultMaxSize.
func NewLocalStore(maxSize int, opts ...LocalOption) *LocalStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	s := &LocalStore{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set stores val under key with the given ttl (DefaultTTL when ttl <= 0).
// It always succeeds: a full store evicts to make room.
func (s *LocalStore) Set(key string, val any, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, val, ttl)
	return true
}

// Get returns the live value for key, dropping it if it has expired.
func (s *LocalStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Del removes key and reports whether it was present.
func (s *LocalStore) Del(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return false
	}
	s.remove(el)
	return true
}

// Exists reports whether key holds a live value.
func (s *LocalStore) Exists(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key) != nil
}

// Size drops every expired entry and returns the number that remain.
func (s *LocalStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpired(s.now())
	return len(s.items)
}

// Clear removes every entry.
func (s *LocalStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*list.Element)
	s.order.Init()
}

// incr adds one to the numeric value at key (absent or non-numeric counts
// as zero) and stores the result with ttl.
func (s *LocalStore) incr(key string, ttl time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if e := s.lookup(key); e != nil {
		n, _ = toInt64(e.value)
	}
	n++
	s.set(key, n, ttl)
	return n
}

// touch re-sets the live value at key with a new ttl.
func (s *LocalStore) touch(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		return false
	}
	s.set(key, e.value, ttl)
	return true
}

func (s *LocalStore) set(key string, val any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	if len(s.items) >= s.maxSize {
		s.evict(now)
	}
	if el, ok := s.items[key]; ok {
		e := el.Value.(*localEntry)
		e.value = val
		e.expiresAt = now.Add(ttl)
		return
	}
	s.items[key] = s.order.PushBack(&localEntry{key: key, value: val, expiresAt: now.Add(ttl)})
}

func (s *LocalStore) lookup(key string) *localEntry {
	el, ok := s.items[key]
	if !ok {
		return nil
	}
	e := el.Value.(*localEntry)
	if s.now().After(e.expiresAt) {
		s.remove(el)
		return nil
	}
	return e
}

func (s *LocalStore) remove(el *list.Element) {
	delete(s.items, el.Value.(*localEntry).key)
	s.order.Remove(el)
}

func (s *LocalStore) purgeExpired(now time.Time) {
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*localEntry).expiresAt) {
			s.remove(el)
		}
		el = next
	}
}

func (s *LocalStore) evict(now time.Time) {
	s.purgeExpired(now)
	if len(s.items) < s.maxSize {
		return
	}
	n := max(1, len(s.items)/5)
	for i := 0; i < n; i++ {
		el := s.order.Front()
		if el == nil {
			return
		}
		s.remove(el)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
