package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/core"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache[K comparable, V any](size int, ttl time.Duration) (*LRUCache[K, V], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[K, V](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newTestCache[string, string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key1 is now most recently used
	c.Set("key4", "value4")

	_, found := c.Get("key2")
	assert.False(t, found, "key2 should have been evicted")
	for _, k := range []string{"key1", "key3", "key4"} {
		_, found := c.Get(k)
		assert.True(t, found, "%s should still exist", k)
	}
	assert.Equal(t, 3, c.Size())
}

func TestLRUCacheOverwriteKeepsSize(t *testing.T) {
	c, _ := newTestCache[core.UserID, int](2, time.Hour)
	c.Set(1, 10)
	c.Set(1, 11)
	c.Set(2, 20)

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, 11, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheZeroCapacityHoldsOne(t *testing.T) {
	c, _ := newTestCache[int, int](0, time.Hour)
	c.Set(1, 1)
	c.Set(2, 2)
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get(2)
	assert.True(t, ok)
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	c, clk := newTestCache[core.UserID, core.Summary](10, time.Minute)
	c.Set(1, core.Summary{Balance: decimal.NewFromInt(5)})

	s, found := c.Get(1)
	require.True(t, found, "summary should exist immediately")
	assert.True(t, s.Balance.Equal(decimal.NewFromInt(5)))

	clk.t = clk.t.Add(time.Minute + time.Second)
	_, found = c.Get(1)
	assert.False(t, found, "summary should have expired")
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c, clk := newTestCache[string, string](100, time.Minute)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("key3", "value3")
	clk.t = clk.t.Add(45 * time.Second)

	assert.Equal(t, 2, c.CleanExpired())
	_, found := c.Get("key3")
	assert.True(t, found, "key3 should survive cleanup")
}

func TestLRUCacheDelete(t *testing.T) {
	c, _ := newTestCache[core.UserID, int](10, time.Hour)
	c.Set(7, 1)
	c.Delete(7)
	c.Delete(8)
	_, found := c.Get(7)
	assert.False(t, found, "deleted key should be gone")
}

func TestManagerSweepAndStop(t *testing.T) {
	c, clk := newTestCache[string, int](10, time.Second)
	c.Set("a", 1)
	clk.t = clk.t.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	assert.Equal(t, 1, m.Sweep())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[core.UserID, core.Summary](1000, time.Hour)
	s := core.Summary{Balance: decimal.NewFromInt(42)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			c.Set(1, s)
		} else {
			c.Get(1)
		}
	}
}
