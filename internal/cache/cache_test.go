package cache

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(maxSize int64, ttl time.Duration) (*Cache[string], *fakeClock) {
	c := New[string](maxSize, ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	clk := &fakeClock{t: time.Unix(1000, 0)}
	c.now = clk.Now
	return c, clk
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestSetGetRoundtrip(t *testing.T) {
	c, _ := newTestCache(1000, time.Minute)
	c.Set("k", "hello", 100)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestGetMissOnAbsentKey(t *testing.T) {
	c, _ := newTestCache(1000, time.Minute)
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestOversizedEntryRejected(t *testing.T) {
	c, _ := newTestCache(100, time.Minute)
	c.Set("big", "x", 101)

	_, ok := c.Get("big")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
	assert.Zero(t, c.Len())
}

func TestLRUEvictionOrder(t *testing.T) {
	c, _ := newTestCache(300, time.Minute)
	c.Set("a", "1", 100)
	c.Set("b", "2", 100)
	c.Set("c", "3", 100)

	// Touch "a" so "b" becomes least recently used despite later insertion.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", "4", 100)

	_, ok = c.Get("b")
	assert.False(t, ok, "LRU entry b should have been evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "entry %s should survive", k)
	}
	assert.Equal(t, int64(300), c.Size())
}

func TestEvictionNeverRemovesJustInserted(t *testing.T) {
	c, _ := newTestCache(100, time.Minute)
	c.Set("a", "1", 60)
	c.Set("b", "2", 60)

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestSizeAccountingInvariant(t *testing.T) {
	c, _ := newTestCache(500, time.Minute)
	sizes := map[string]int64{}
	for i := range 20 {
		k := fmt.Sprintf("k%d", i)
		s := int64(50 + i*10)
		c.Set(k, k, s)
		sizes[k] = s
	}
	c.Delete("k19")
	delete(sizes, "k19")

	var want int64
	for k, s := range sizes {
		if _, ok := c.Get(k); ok {
			want += s
		}
	}
	assert.Equal(t, want, c.Size(), "tracked size must equal the sum of live entry sizes")
	assert.LessOrEqual(t, c.Size(), int64(500))
}

func TestTTLMeasuredFromCreationNotAccess(t *testing.T) {
	c, clk := newTestCache(1000, 10*time.Minute)
	c.Set("k", "v", 10)

	// Read just before expiry: hit, and recency refreshed.
	clk.Advance(9 * time.Minute)
	_, ok := c.Get("k")
	require.True(t, ok)

	// Past TTL from creation: miss despite the recent read.
	clk.Advance(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "TTL runs from creation, not last access")
	assert.Zero(t, c.Size())
}

func TestSetReplacesExistingKey(t *testing.T) {
	c, _ := newTestCache(1000, time.Minute)
	c.Set("k", "old", 100)
	c.Set("k", "new", 200)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, int64(200), c.Size())
	assert.Equal(t, 1, c.Len())
}

func TestCleanupRemovesExpiredOnly(t *testing.T) {
	c, clk := newTestCache(1000, 10*time.Minute)
	c.Set("old", "1", 10)
	clk.Advance(11 * time.Minute)
	c.Set("fresh", "2", 10)

	removed := c.Cleanup()
	assert.Equal(t, 1, removed)
	_, ok := c.Get("old")
	assert.False(t, ok)
	_, ok = c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, int64(10), c.Size())
}

func TestDeleteAbsentKeyIsNoop(t *testing.T) {
	c, _ := newTestCache(1000, time.Minute)
	assert.False(t, c.Delete("nope"))
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(1000, time.Minute)
	c.Set("a", "1", 10)
	c.Set("b", "2", 10)
	c.Clear()
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Size())
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(1000, time.Minute)
	c.Set("a", "1", 400)
	st := c.Stats()
	assert.Equal(t, int64(400), st.Size)
	assert.Equal(t, int64(1000), st.MaxSize)
	assert.Equal(t, 1, st.Count)
}

func TestConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(10_000, time.Minute)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 200 {
				k := fmt.Sprintf("k%d", (n+j)%32)
				c.Set(k, k, 100)
				c.Get(k)
				if j%17 == 0 {
					c.Delete(k)
				}
			}
		}(i)
	}
	wg.Wait()

	// Accounting must still be exact after contention.
	var sum int64
	c.mu.Lock()
	for _, el := range c.entries {
		sum += el.Value.(*entry[string]).size
	}
	current := c.currentSize
	c.mu.Unlock()
	assert.Equal(t, sum, current)
	assert.LessOrEqual(t, current, int64(10_000))
}
