package util

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// CacheConfig 用于配置LRU缓存的行为。
type CacheConfig[K comparable, V any] struct {
	// Capacity 是缓存的最大元素数量。如果为0，则不限制数量。
	Capacity int
	// MaxWeight 是缓存中所有元素的最大权重总和。如果为0，则不限制权重。
	MaxWeight int
	// TTL 是元素的存活时间。如果为0，则元素永不过期。
	TTL time.Duration
	// Sliding 为 true 时每次命中都会把过期时间顺延一个 TTL，TTL 即为空闲时间。
	Sliding bool
	// OnEvict 在元素因容量、权重或过期被移除时调用，Remove 不触发。调用时不持有锁。
	OnEvict func(key K, value V)
	// Now 是时钟，为 nil 时使用 time.Now。
	Now func() time.Time
}

type entry[K comparable, V any] struct {
	key     K
	value   V
	weight  int
	expires time.Time // 零值表示不过期
}

// LRUCache 是一个支持泛型、可配置且线程安全的LRU缓存。
type LRUCache[K comparable, V any] struct {
	config CacheConfig[K, V]
	now    func() time.Time
	ll     *list.List
	items  map[K]*list.Element
	weight int
	mu     sync.Mutex
}

// NewWithConfig 使用指定的配置创建一个LRU缓存实例。
func NewWithConfig[K comparable, V any](config CacheConfig[K, V]) (*LRUCache[K, V], error) {
	if config.Capacity <= 0 && config.MaxWeight <= 0 {
		return nil, fmt.Errorf("必须设置 Capacity 或 MaxWeight 中的至少一个")
	}
	if config.TTL < 0 {
		return nil, fmt.Errorf("TTL 不能为负数: %s", config.TTL)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &LRUCache[K, V]{
		config: config,
		now:    now,
		ll:     list.New(),
		items:  make(map[K]*list.Element),
	}, nil
}

// Get 返回键对应的值并标记为最近使用。过期的元素在这里被动淘汰。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	var evicted []*entry[K, V]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key, &evicted)
	if !ok {
		var zero V
		return zero, false
	}
	if c.config.Sliding {
		e.expires = c.deadline()
	}
	return e.value, true
}

// Touch 顺延键的过期时间并标记为最近使用，键不存在或已过期时返回 false。
func (c *LRUCache[K, V]) Touch(key K) bool {
	var evicted []*entry[K, V]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key, &evicted)
	if ok {
		e.expires = c.deadline()
	}
	return ok
}

// Put 添加或更新一个键值对并重置其过期时间。
// 如果使用基于容量的淘汰，可以为 weight 传入 1。
func (c *LRUCache[K, V]) Put(key K, value V, weight int) {
	var evicted []*entry[K, V]
	defer func() { c.notify(evicted) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		c.weight += weight - e.weight
		e.weight, e.value, e.expires = weight, value, c.deadline()
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry[K, V]{key: key, value: value, weight: weight, expires: c.deadline()})
		c.items[key] = el
		c.weight += weight
	}

	// 一个大的新元素可能需要淘汰多个旧元素
	for c.overLimit() {
		back := c.ll.Back()
		if back == nil {
			break
		}
		evicted = append(evicted, c.unlink(back))
	}
}

// Remove 删除指定键，返回该键是否存在。
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(el)
	return true
}

// Len 返回当前缓存中的条目数量，包括尚未被动淘汰的过期条目。
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Weight 返回当前缓存中所有元素的总权重。
func (c *LRUCache[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// lookup 查找未过期的元素并移到队首。调用方持有锁。
func (c *LRUCache[K, V]) lookup(key K, evicted *[]*entry[K, V]) (*entry[K, V], bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[K, V])
	if !e.expires.IsZero() && c.now().After(e.expires) {
		*evicted = append(*evicted, c.unlink(el))
		return nil, false
	}
	c.ll.MoveToFront(el)
	return e, true
}

func (c *LRUCache[K, V]) deadline() time.Time {
	if c.config.TTL == 0 {
		return time.Time{}
	}
	return c.now().Add(c.config.TTL)
}

func (c *LRUCache[K, V]) overLimit() bool {
	return (c.config.Capacity > 0 && c.ll.Len() > c.config.Capacity) ||
		(c.config.MaxWeight > 0 && c.weight > c.config.MaxWeight)
}

func (c *LRUCache[K, V]) unlink(el *list.Element) *entry[K, V] {
	c.ll.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.weight -= e.weight
	return e
}

func (c *LRUCache[K, V]) notify(evicted []*entry[K, V]) {
	if c.config.OnEvict == nil {
		return
	}
	for _, e := range evicted {
		c.config.OnEvict(e.key, e.value)
	}
}
