package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/smallbiznis/tradieapp/internal/clock"
)

type memoryState struct {
	tokens  float64
	updated time.Time
}

// MemoryBucket is a process-local token bucket used when redis is not configured.
type MemoryBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*memoryState
	sweepAt time.Time
}

func NewMemoryBucket(clk clock.Clock) *MemoryBucket {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &MemoryBucket{
		clock:   clk,
		buckets: make(map[string]*memoryState),
	}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, rate float64, burst int) (*Result, error) {
	if err := validate(key, rate, burst); err != nil {
		return &Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.sweep(now, bucketTTL(rate, burst))

	state, ok := m.buckets[key]
	if !ok {
		state = &memoryState{tokens: float64(burst), updated: now}
		m.buckets[key] = state
	} else {
		elapsed := now.Sub(state.updated).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
		state.updated = now
	}

	allowed := false
	if state.tokens >= 1 {
		allowed = true
		state.tokens--
	}
	return newResult(allowed, state.tokens, rate, burst), nil
}

// sweep drops idle buckets at most once per ttl.
func (m *MemoryBucket) sweep(now time.Time, ttl time.Duration) {
	if now.Before(m.sweepAt) {
		return
	}
	for key, state := range m.buckets {
		if now.Sub(state.updated) > ttl {
			delete(m.buckets, key)
		}
	}
	m.sweepAt = now.Add(ttl)
}
