package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewWithConfig(CacheConfig[string, int]{Capacity: 2})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	c.Put("b", 2, 1)
	_, _ = c.Get("a")
	c.Put("c", 3, 1)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Weight())
}

func TestLRUExpiresEntries(t *testing.T) {
	c, err := NewWithConfig(CacheConfig[string, int]{Capacity: 4, TTL: time.Millisecond})
	require.NoError(t, err)
	c.Put("a", 1, 1)
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRURequiresALimit(t *testing.T) {
	_, err := NewWithConfig(CacheConfig[string, int]{})
	assert.Error(t, err)
	_, err = NewWithConfig(CacheConfig[string, int]{Capacity: 1, TTL: -time.Second})
	assert.Error(t, err)
}

// fakeClock 是可手动推进的时钟。
type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUFixedTTLIgnoresReads(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c, err := NewWithConfig(CacheConfig[string, int]{Capacity: 4, TTL: 50 * time.Millisecond, Now: clock.Now})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	clock.Advance(30 * time.Millisecond)
	_, ok := c.Get("a")
	require.True(t, ok)
	clock.Advance(30 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUSlidingTTLExtendsOnRead(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c, err := NewWithConfig(CacheConfig[string, int]{Capacity: 4, TTL: 50 * time.Millisecond, Sliding: true, Now: clock.Now})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	for i := 0; i < 5; i++ {
		clock.Advance(30 * time.Millisecond)
		_, ok := c.Get("a")
		require.True(t, ok, "read %d", i)
	}

	clock.Advance(51 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRUTouch(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c, err := NewWithConfig(CacheConfig[string, int]{Capacity: 4, TTL: 50 * time.Millisecond, Now: clock.Now})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	clock.Advance(40 * time.Millisecond)
	require.True(t, c.Touch("a"))
	clock.Advance(40 * time.Millisecond)
	_, ok := c.Get("a")
	assert.True(t, ok)

	assert.False(t, c.Touch("missing"))
}

func TestLRUOnEvict(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var evicted []string
	c, err := NewWithConfig(CacheConfig[string, int]{
		Capacity: 2,
		TTL:      time.Second,
		Now:      clock.Now,
		OnEvict:  func(k string, _ int) { evicted = append(evicted, k) },
	})
	require.NoError(t, err)

	c.Put("a", 1, 1)
	c.Put("b", 2, 1)
	c.Put("c", 3, 1)
	assert.Equal(t, []string{"a"}, evicted)

	c.Remove("b")
	assert.Equal(t, []string{"a"}, evicted)

	clock.Advance(2 * time.Second)
	_, _ = c.Get("c")
	assert.Equal(t, []string{"a", "c"}, evicted)
}

func TestLRUMaxWeight(t *testing.T) {
	c, err := NewWithConfig(CacheConfig[string, int]{MaxWeight: 5})
	require.NoError(t, err)

	c.Put("a", 1, 2)
	c.Put("b", 2, 2)
	c.Put("c", 3, 4)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 4, c.Weight())

	c.Put("c", 3, 1)
	assert.Equal(t, 1, c.Weight())
}
