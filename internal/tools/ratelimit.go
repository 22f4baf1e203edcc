package tools

import (
	"sync"
	"time"
)

// bucket - состояние token bucket одного инструмента
type bucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter реализует token bucket на каждый инструмент.
// Ёмкость = burst, пополнение perMin/60 токенов в секунду,
// вычисляется лениво в момент вызова. Отказы считает Gateway
// (outcome rate_limited).
type RateLimiter struct {
	perMin  int
	burst   int
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter создает rate limiter. perMin <= 0 или burst <= 0 отключает лимит.
func NewRateLimiter(perMin, burst int) *RateLimiter {
	return &RateLimiter{
		perMin:  perMin,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Enabled reports whether calls are limited at all.
func (r *RateLimiter) Enabled() bool {
	return r != nil && r.perMin > 0 && r.burst > 0
}

// Allow пытается взять токен для инструмента name.
func (r *RateLimiter) Allow(name string) bool {
	if !r.Enabled() {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	capacity := float64(r.burst)
	b, ok := r.buckets[name]
	if !ok {
		b = &bucket{tokens: capacity, last: now}
		r.buckets[name] = b
	}

	// Пополнение на основе прошедшего времени; часы назад не пополняют
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * float64(r.perMin) / 60.0
		if b.tokens > capacity {
			b.tokens = capacity
		}
	}
	b.last = now

	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}
