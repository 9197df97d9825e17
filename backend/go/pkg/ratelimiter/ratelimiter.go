// Package ratelimiter 提供令牌桶与漏桶限流器，以及按客户端分别计数的 Keyed 包装。
package ratelimiter

import (
	"sync"
	"time"

	"Koro/backend/go/pkg/util"
)

// RateLimiter 判断一次请求是否放行。
type RateLimiter interface {
	Allow() bool
}

// Keyed 为每个键（通常是客户端地址）维护独立的限流器。
// 最近最少使用的键会被淘汰，淘汰后重新获得一个满桶。
type Keyed struct {
	mu      sync.Mutex
	limiter *util.LRUCache[string, RateLimiter]
	factory func() RateLimiter
}

// NewKeyed 创建按键限流器。maxKeys 不大于 0 时使用 10000；idle 为 0 表示键不过期。
func NewKeyed(factory func() RateLimiter, maxKeys int, idle time.Duration) (*Keyed, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	cache, err := util.NewWithConfig(util.CacheConfig[string, RateLimiter]{Capacity: maxKeys, TTL: idle, Sliding: true})
	if err != nil {
		return nil, err
	}
	return &Keyed{limiter: cache, factory: factory}, nil
}

// Allow 判断指定键的请求是否放行。
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	l, ok := k.limiter.Get(key)
	if !ok {
		l = k.factory()
		k.limiter.Put(key, l, 1)
	}
	k.mu.Unlock()
	return l.Allow()
}

// Len 返回正在跟踪的键数量。
func (k *Keyed) Len() int {
	return k.limiter.Len()
}
