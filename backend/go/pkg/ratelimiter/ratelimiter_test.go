package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucketRefills(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tb := newTokenBucket(2, 2, clock.now)

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	clock.advance(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestLeakyBucketDrains(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lb := newLeakyBucket(1, 1, clock.now)

	assert.True(t, lb.Allow())
	assert.False(t, lb.Allow())
	clock.advance(time.Second)
	assert.True(t, lb.Allow())
}

func TestKeyedIsolatesClients(t *testing.T) {
	k, err := NewKeyed(func() RateLimiter { return NewTokenBucket(0, 1) }, 2, 0)
	require.NoError(t, err)

	assert.True(t, k.Allow("10.0.0.1"))
	assert.False(t, k.Allow("10.0.0.1"))
	assert.True(t, k.Allow("10.0.0.2"))

	// 第三个客户端挤掉最久未使用的 10.0.0.1，它回来时得到一个新桶
	assert.True(t, k.Allow("10.0.0.3"))
	assert.Equal(t, 2, k.Len())
	assert.True(t, k.Allow("10.0.0.1"))
}

func TestKeyedActiveClientKeepsItsBucket(t *testing.T) {
	k, err := NewKeyed(func() RateLimiter { return NewTokenBucket(0, 1) }, 8, 200*time.Millisecond)
	require.NoError(t, err)

	require.True(t, k.Allow("10.0.0.1"))
	// 持续活跃的客户端不会因空闲过期而拿到新桶
	for i := 0; i < 3; i++ {
		time.Sleep(100 * time.Millisecond)
		assert.False(t, k.Allow("10.0.0.1"), "request %d", i)
	}

	time.Sleep(300 * time.Millisecond)
	assert.True(t, k.Allow("10.0.0.1"))
}
