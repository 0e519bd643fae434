package httpx

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// WindowStore counts hits per key in fixed windows. Increment adds one hit
// to the window containing now and returns the window's count and its end.
type WindowStore interface {
	Increment(ctx context.Context, key string, now time.Time) (count int64, reset time.Time, err error)
}

// WindowResult is the outcome of WindowLimiter.Allow.
type WindowResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// WindowLimiter is a fixed-window counter: at most Limit hits per key in
// each window. Unlike the token bucket in ratelimit.go it can be shared
// between replicas through a RedisWindowStore.
type WindowLimiter struct {
	Store WindowStore
	Limit int
	Now   func() time.Time
}

// NewWindowLimiter returns a limiter of limit hits per window backed by store.
func NewWindowLimiter(store WindowStore, limit int) *WindowLimiter {
	return &WindowLimiter{Store: store, Limit: limit}
}

// Allow records one hit for key. A failing store allows the request.
func (l *WindowLimiter) Allow(ctx context.Context, key string) WindowResult {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}

	count, reset, err := l.Store.Increment(ctx, key, now)
	if err != nil {
		slogx.FromContext(ctx).Warn("rate limit store unavailable, allowing request", "error", err)
		return WindowResult{Allowed: true, Limit: l.Limit, Remaining: l.Limit, Reset: reset}
	}

	remaining := max(int64(l.Limit)-count, 0)
	return WindowResult{
		Allowed:   count <= int64(l.Limit),
		Limit:     l.Limit,
		Remaining: int(remaining),
		Reset:     reset,
	}
}

// WriteRateLimitHeaders sets the X-RateLimit-* headers for res, and
// Retry-After when the request was rejected.
func WriteRateLimitHeaders(w http.ResponseWriter, res WindowResult, now time.Time) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
	if !res.Allowed {
		retry := int(math.Ceil(res.Reset.Sub(now).Seconds()))
		h.Set("Retry-After", strconv.Itoa(max(retry, 1)))
	}
}

// windowBounds returns the index of the window holding now and when it ends.
func windowBounds(now time.Time, window time.Duration) (int64, time.Time) {
	idx := now.UnixNano() / int64(window)
	return idx, time.Unix(0, (idx+1)*int64(window))
}

// MemoryWindowStore keeps counters in process. Each key holds one word:
// the low 32 bits of the window index in the upper half and the hit count in
// the lower half, updated with compare-and-swap. Sweep retires a word by
// swapping in sweptWord before removing it, so an Increment racing with it
// either lands first (and the word survives) or starts a new word.
type MemoryWindowStore struct {
	window   time.Duration
	counters sync.Map // map[string]*atomic.Uint64
}

const sweptWord = math.MaxUint64

func NewMemoryWindowStore(window time.Duration) *MemoryWindowStore {
	return &MemoryWindowStore{window: window}
}

func (s *MemoryWindowStore) Increment(_ context.Context, key string, now time.Time) (int64, time.Time, error) {
	idx, reset := windowBounds(now, s.window)
	tag := uint32(idx)

	for {
		v, _ := s.counters.LoadOrStore(key, new(atomic.Uint64))
		if count, ok := bump(v.(*atomic.Uint64), tag); ok {
			return int64(count), reset, nil
		}
		s.counters.CompareAndDelete(key, v)
	}
}

// bump adds a hit to word for window tag. It fails once word is swept.
func bump(word *atomic.Uint64, tag uint32) (uint32, bool) {
	for {
		old := word.Load()
		if old == sweptWord {
			return 0, false
		}
		count := uint32(old)
		if uint32(old>>32) != tag {
			count = 0
		}
		if count < math.MaxUint32-1 {
			count++
		}
		if word.CompareAndSwap(old, uint64(tag)<<32|uint64(count)) {
			return count, true
		}
	}
}

// Sweep drops counters that belong to an earlier window than now's and
// reports how many were dropped. A counter hit while it is being swept is
// kept.
func (s *MemoryWindowStore) Sweep(now time.Time) int {
	idx, _ := windowBounds(now, s.window)
	tag := uint32(idx)

	n := 0
	s.counters.Range(func(key, v any) bool {
		word := v.(*atomic.Uint64)
		old := word.Load()
		if old != sweptWord && uint32(old>>32) == tag {
			return true
		}
		if old != sweptWord && !word.CompareAndSwap(old, sweptWord) {
			return true
		}
		if s.counters.CompareAndDelete(key, v) {
			n++
		}
		return true
	})
	return n
}

// RedisWindowStore shares counters between replicas. Each window is its own
// key, incremented and given an expiry in a single MULTI.
type RedisWindowStore struct {
	client redis.UniversalClient
	prefix string
	window time.Duration
}

func NewRedisWindowStore(client redis.UniversalClient, prefix string, window time.Duration) *RedisWindowStore {
	return &RedisWindowStore{client: client, prefix: prefix, window: window}
}

func (s *RedisWindowStore) Increment(ctx context.Context, key string, now time.Time) (int64, time.Time, error) {
	idx, reset := windowBounds(now, s.window)
	k := s.prefix + key + ":" + strconv.FormatInt(idx, 10)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.PExpire(ctx, k, s.window)
		return nil
	})
	if err != nil {
		return 0, reset, fmt.Errorf("redis window increment: %w", err)
	}
	return incr.Val(), reset, nil
}
