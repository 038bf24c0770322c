// Package ratelimiter implements a per-key token bucket with idle-key
// expiry, used for the global per-IP limit and the stricter per-email
// limits on the OTP endpoints.
package ratelimiter

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	rate       float64
	lastRefill time.Time
	mu         sync.Mutex
	timer      *time.Timer
	key        string
	parent     *KeyedLimiter
}

// KeyedLimiter manages one token bucket per key (IP or email). Buckets
// that stay idle for expirationTime are dropped to bound memory.
type KeyedLimiter struct {
	buckets        map[string]*bucket
	mu             sync.RWMutex
	rate           float64 // tokens per second
	capacity       float64
	expirationTime time.Duration
}

func NewKeyedLimiter(rate, capacity float64, expirationTime time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		buckets:        make(map[string]*bucket),
		rate:           rate,
		capacity:       capacity,
		expirationTime: expirationTime,
	}
}

// PerMinute is a convenience constructor taking the config's
// requests-per-minute figure.
func PerMinute(perMinute, burst float64) *KeyedLimiter {
	return NewKeyedLimiter(perMinute/60.0, burst, time.Hour)
}

func (kl *KeyedLimiter) cleanup(key string) {
	kl.mu.Lock()
	delete(kl.buckets, key)
	kl.mu.Unlock()
}

func (b *bucket) resetTimer() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.parent.expirationTime, func() {
		b.parent.cleanup(b.key)
	})
}

func (kl *KeyedLimiter) getBucket(key string) *bucket {
	kl.mu.RLock()
	b, exists := kl.buckets[key]
	kl.mu.RUnlock()

	if exists {
		b.resetTimer()
		return b
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// double-check after acquiring the write lock
	b, exists = kl.buckets[key]
	if exists {
		b.resetTimer()
		return b
	}

	b = &bucket{
		tokens:     kl.capacity,
		capacity:   kl.capacity,
		rate:       kl.rate,
		lastRefill: time.Now(),
		key:        key,
		parent:     kl,
	}
	kl.buckets[key] = b
	b.resetTimer()

	return b
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()

	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Allow reports whether a request under the given key may proceed.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.getBucket(key).allow()
}

// Stop cancels all expiry timers.
func (kl *KeyedLimiter) Stop() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	for _, b := range kl.buckets {
		if b.timer != nil {
			b.timer.Stop()
		}
	}
}
