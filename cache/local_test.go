package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLocalStoreSetGet(t *testing.T) {
	s := NewLocalStore(10)

	val, found := s.Get("key")
	assert.False(t, found)
	assert.Nil(t, val)

	assert.True(t, s.Set("key", "value", time.Minute))
	val, found = s.Get("key")
	assert.True(t, found)
	assert.Equal(t, "value", val)
	assert.True(t, s.Exists("key"))
	assert.Equal(t, 1, s.Size())
}

func TestLocalStoreFalsyValues(t *testing.T) {
	s := NewLocalStore(10)
	s.Set("zero", 0, time.Minute)
	s.Set("nil", nil, time.Minute)

	val, found := s.Get("zero")
	assert.True(t, found)
	assert.Equal(t, 0, val)

	val, found = s.Get("nil")
	assert.True(t, found)
	assert.Nil(t, val)
}

func TestLocalStoreExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(10, WithLocalClock(clock.Now))

	s.Set("key", "value", time.Second)
	clock.Advance(time.Second)
	// still live at exactly the expiry instant
	val, found := s.Get("key")
	assert.True(t, found)
	assert.Equal(t, "value", val)

	clock.Advance(time.Millisecond)
	_, found = s.Get("key")
	assert.False(t, found)
	assert.False(t, s.Exists("key"))
	assert.False(t, s.Del("key"), "lazy expiry removed the entry")
}

func TestLocalStoreDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(10, WithLocalClock(clock.Now))

	s.Set("key", "value", 0)
	clock.Advance(DefaultTTL)
	assert.True(t, s.Exists("key"))
	clock.Advance(time.Second)
	assert.False(t, s.Exists("key"))
}

func TestLocalStoreDel(t *testing.T) {
	s := NewLocalStore(10)
	s.Set("key", "value", time.Minute)

	assert.True(t, s.Del("key"))
	assert.False(t, s.Del("key"))
	assert.False(t, s.Exists("key"))
}

func TestLocalStoreSizePurgesExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(10, WithLocalClock(clock.Now))

	s.Set("short", 1, time.Second)
	s.Set("long", 2, time.Hour)
	assert.Equal(t, 2, s.Size())

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, s.Size())
	assert.Len(t, s.items, 1)
	assert.Equal(t, 1, s.order.Len())
}

func TestLocalStoreClear(t *testing.T) {
	s := NewLocalStore(10)
	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}
	s.Clear()
	assert.Equal(t, 0, s.Size())
	_, found := s.Get("k0")
	assert.False(t, found)
}

func TestLocalStoreEvictsOldest(t *testing.T) {
	s := NewLocalStore(5)
	for i := 0; i <= 5; i++ {
		s.Set(fmt.Sprintf("k%d", i), i, time.Hour)
	}

	assert.Equal(t, 5, s.Size())
	assert.False(t, s.Exists("k0"))
	for i := 1; i <= 5; i++ {
		assert.True(t, s.Exists(fmt.Sprintf("k%d", i)))
	}
}

func TestLocalStoreEvictsExpiredFirst(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(5, WithLocalClock(clock.Now))

	s.Set("k0", 0, time.Hour)
	s.Set("k1", 1, time.Second)
	s.Set("k2", 2, time.Second)
	s.Set("k3", 3, time.Hour)
	s.Set("k4", 4, time.Hour)
	clock.Advance(2 * time.Second)

	s.Set("k5", 5, time.Hour)

	assert.True(t, s.Exists("k0"), "expired entries make room before live ones are evicted")
	assert.Equal(t, 4, s.Size())
}

func TestLocalStoreEvictsFifth(t *testing.T) {
	s := NewLocalStore(100)
	for i := 0; i < 100; i++ {
		s.Set(fmt.Sprintf("k%03d", i), i, time.Hour)
	}
	s.Set("new", true, time.Hour)

	assert.Equal(t, 81, s.Size())
	assert.False(t, s.Exists("k019"))
	assert.True(t, s.Exists("k020"))
	assert.True(t, s.Exists("new"))
}

func TestLocalStoreOverwriteKeepsOrder(t *testing.T) {
	s := NewLocalStore(4)
	s.Set("a", 1, time.Hour)
	s.Set("b", 2, time.Hour)
	s.Set("c", 3, time.Hour)

	// below capacity an overwrite updates in place
	s.Set("a", 10, time.Hour)
	s.Set("d", 4, time.Hour)
	assert.Equal(t, 4, s.Size())

	s.Set("e", 5, time.Hour)
	assert.False(t, s.Exists("a"))
	assert.True(t, s.Exists("b"))
	assert.True(t, s.Exists("e"))
}

func TestLocalStoreOverwriteAtCapacityRunsCleanup(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(3, WithLocalClock(clock.Now))
	s.Set("a", 1, time.Hour)
	s.Set("b", 2, time.Second)
	s.Set("c", 3, time.Hour)
	clock.Advance(2 * time.Second)

	s.Set("c", 30, time.Hour)
	assert.Equal(t, 2, len(s.items), "expired entry purged by the write")
	val, _ := s.Get("c")
	assert.Equal(t, 30, val)

	s.Set("d", 4, time.Hour)
	// full with live entries: the oldest goes even though the key is present
	s.Set("d", 40, time.Hour)
	assert.False(t, s.Exists("a"))
	val, found := s.Get("d")
	assert.True(t, found)
	assert.Equal(t, 40, val)
	assert.Equal(t, 2, s.Size())
}

func TestLocalStoreCapacityInvariant(t *testing.T) {
	clock := newFakeClock()
	for _, maxSize := range []int{1, 2, 3, 7, 10, 64} {
		s := NewLocalStore(maxSize, WithLocalClock(clock.Now))
		for i := 0; i < maxSize*5; i++ {
			s.Set(fmt.Sprintf("k%d", i%(maxSize*3)), i, time.Duration(i%4+1)*time.Second)
			clock.Advance(700 * time.Millisecond)
			assert.LessOrEqual(t, len(s.items), maxSize)
			assert.LessOrEqual(t, s.Size(), maxSize)
		}
	}
}

func TestLocalStoreDefaultMaxSize(t *testing.T) {
	assert.Equal(t, DefaultMaxSize, NewLocalStore(0).maxSize)
	assert.Equal(t, DefaultMaxSize, NewLocalStore(-3).maxSize)
}

func TestLocalStoreIncr(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(10, WithLocalClock(clock.Now))

	assert.Equal(t, int64(1), s.incr("n", IncrementTTL))
	assert.Equal(t, int64(2), s.incr("n", IncrementTTL))

	s.Set("f", float64(41), time.Minute)
	assert.Equal(t, int64(42), s.incr("f", IncrementTTL))

	s.Set("s", "9", time.Minute)
	assert.Equal(t, int64(10), s.incr("s", IncrementTTL))

	s.Set("word", "abc", time.Minute)
	assert.Equal(t, int64(1), s.incr("word", IncrementTTL))

	clock.Advance(IncrementTTL + time.Second)
	assert.Equal(t, int64(1), s.incr("n", IncrementTTL))
}

func TestLocalStoreTouch(t *testing.T) {
	clock := newFakeClock()
	s := NewLocalStore(10, WithLocalClock(clock.Now))

	assert.False(t, s.touch("missing", time.Minute))

	s.Set("key", "value", time.Second)
	assert.True(t, s.touch("key", time.Minute))
	clock.Advance(30 * time.Second)
	val, found := s.Get("key")
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestLocalStoreConcurrent(t *testing.T) {
	s := NewLocalStore(50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%120)
				s.Set(key, i, time.Minute)
				s.Get(key)
				s.incr("counter", time.Minute)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Size(), 50)
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in  any
		out int64
		ok  bool
	}{
		{int(3), 3, true},
		{int64(-4), -4, true},
		{uint8(7), 7, true},
		{float64(2), 2, true},
		{float64(2.5), 0, false},
		{" 12 ", 12, true},
		{"x", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T(%v)", tt.in, tt.in), func(t *testing.T) {
			n, ok := toInt64(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.out, n)
		})
	}
}
