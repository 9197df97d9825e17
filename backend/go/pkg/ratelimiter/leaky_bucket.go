package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket 使用漏桶算法限流，以固定速率放行并平滑突发。
type LeakyBucket struct {
	rate         float64 // 每秒漏出的请求数
	capacity     float64
	waterLevel   float64
	lastLeakTime time.Time
	now          func() time.Time
	mutex        sync.Mutex
}

// NewLeakyBucket 创建一个空桶。
func NewLeakyBucket(rate float64, capacity int) *LeakyBucket {
	return newLeakyBucket(rate, capacity, time.Now)
}

func newLeakyBucket(rate float64, capacity int, now func() time.Time) *LeakyBucket {
	return &LeakyBucket{
		rate:         rate,
		capacity:     float64(capacity),
		lastLeakTime: now(),
		now:          now,
	}
}

// Allow 先按经过的时间漏水，桶未满时加入一滴并放行。
func (lb *LeakyBucket) Allow() bool {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	now := lb.now()
	if leaked := now.Sub(lb.lastLeakTime).Seconds() * lb.rate; leaked > 0 {
		lb.waterLevel -= leaked
		if lb.waterLevel < 0 {
			lb.waterLevel = 0
		}
		lb.lastLeakTime = now
	}

	if lb.waterLevel < lb.capacity {
		lb.waterLevel++
		return true
	}
	return false
}
