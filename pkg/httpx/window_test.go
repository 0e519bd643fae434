package httpx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Time) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestWindowLimiterMemory(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("rejects after threshold within window", func(t *testing.T) {
		l := httpx.NewWindowLimiter(httpx.NewMemoryWindowStore(time.Minute), 3)
		l.Now = fixedNow(start)

		for i := range 3 {
			res := l.Allow(t.Context(), "user:a")
			require.True(t, res.Allowed, "hit %d", i+1)
			require.Equal(t, 2-i, res.Remaining)
		}

		res := l.Allow(t.Context(), "user:a")
		require.False(t, res.Allowed)
		require.Equal(t, 0, res.Remaining)
		require.Equal(t, start.Add(time.Minute), res.Reset.UTC())
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := httpx.NewWindowLimiter(httpx.NewMemoryWindowStore(time.Minute), 1)
		l.Now = fixedNow(start)

		require.True(t, l.Allow(t.Context(), "user:a").Allowed)
		require.False(t, l.Allow(t.Context(), "user:a").Allowed)
		require.True(t, l.Allow(t.Context(), "user:b").Allowed)
	})

	t.Run("next window starts from zero", func(t *testing.T) {
		now := start
		l := httpx.NewWindowLimiter(httpx.NewMemoryWindowStore(time.Minute), 1)
		l.Now = func() time.Time { return now }

		require.True(t, l.Allow(t.Context(), "user:a").Allowed)
		require.False(t, l.Allow(t.Context(), "user:a").Allowed)

		now = now.Add(time.Minute)
		require.True(t, l.Allow(t.Context(), "user:a").Allowed)
	})

	t.Run("concurrent hits never exceed threshold", func(t *testing.T) {
		const limit = 50
		l := httpx.NewWindowLimiter(httpx.NewMemoryWindowStore(time.Minute), limit)
		l.Now = fixedNow(start)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if l.Allow(context.Background(), "user:a").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, limit, allowed)
	})

	t.Run("store failure fails open", func(t *testing.T) {
		l := httpx.NewWindowLimiter(failingStore{}, 1)
		for range 3 {
			require.True(t, l.Allow(t.Context(), "user:a").Allowed)
		}
	})
}

func TestMemoryWindowStoreSweep(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := httpx.NewMemoryWindowStore(time.Minute)

	_, _, err := s.Increment(t.Context(), "user:a", start)
	require.NoError(t, err)
	_, _, err = s.Increment(t.Context(), "user:b", start.Add(time.Minute))
	require.NoError(t, err)

	require.Equal(t, 1, s.Sweep(start.Add(time.Minute)))
	require.Equal(t, 0, s.Sweep(start.Add(time.Minute)))

	count, _, err := s.Increment(t.Context(), "user:b", start.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestMemoryWindowStoreSweepKeepsConcurrentHits(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next := start.Add(time.Minute)
	s := httpx.NewMemoryWindowStore(time.Minute)

	const keys, hits = 8, 500
	for k := range keys {
		_, _, err := s.Increment(t.Context(), fmt.Sprintf("user:%d", k), start)
		require.NoError(t, err)
	}

	// Every key rolls into the next window while Sweep retires the old one.
	var wg sync.WaitGroup
	for k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range hits {
				_, _, _ = s.Increment(context.Background(), fmt.Sprintf("user:%d", k), next)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 200 {
			s.Sweep(next)
		}
	}()
	wg.Wait()

	for k := range keys {
		count, _, err := s.Increment(t.Context(), fmt.Sprintf("user:%d", k), next)
		require.NoError(t, err)
		require.EqualValues(t, hits+1, count, "user:%d", k)
	}
}

func TestWriteRateLimitHeaders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	reset := now.Add(30 * time.Second)

	rec := httptest.NewRecorder()
	httpx.WriteRateLimitHeaders(rec, httpx.WindowResult{Allowed: false, Limit: 10, Remaining: 0, Reset: reset}, now)

	require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, fmt.Sprint(reset.Unix()), rec.Header().Get("X-RateLimit-Reset"))
	require.Equal(t, "30", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	httpx.WriteRateLimitHeaders(rec, httpx.WindowResult{Allowed: true, Limit: 10, Remaining: 9, Reset: reset}, now)
	require.Empty(t, rec.Header().Get("Retry-After"))
}

func TestWindowLimiterRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := httpx.NewRedisWindowStore(client, "test:ratelimit:", time.Minute)

	l := httpx.NewWindowLimiter(store, 2)
	l.Now = fixedNow(start)

	require.True(t, l.Allow(ctx, "user:a").Allowed)
	require.True(t, l.Allow(ctx, "user:a").Allowed)
	require.False(t, l.Allow(ctx, "user:a").Allowed)
	require.True(t, l.Allow(ctx, "user:b").Allowed)

	// A second limiter on the same store shares the counters.
	other := httpx.NewWindowLimiter(store, 2)
	other.Now = fixedNow(start)
	require.False(t, other.Allow(ctx, "user:a").Allowed)

	ttl, err := client.PTTL(ctx, fmt.Sprintf("test:ratelimit:user:a:%d", start.UnixNano()/int64(time.Minute))).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}
