package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct{ calls int }

func (s *countingSweeper) Sweep(time.Time) int {
	s.calls++
	return 3
}

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := h.clock.Now()

	require.NoError(t, h.store.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		JTI: "gone", Subject: "u1", ExpiresAt: now.Add(-time.Minute), RevokedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, h.store.RevokedTokens().RevokeToken(ctx, domain.RevokedToken{
		JTI: "live", Subject: "u1", ExpiresAt: now.Add(time.Hour), RevokedAt: now,
	}))

	sweeper := &countingSweeper{}
	hk := NewHousekeepingService(h.store, h.km, sweeper, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	hk.Now = h.clock.Now
	hk.Cleanup(ctx)

	gone, err := h.store.RevokedTokens().IsTokenRevoked(ctx, "gone")
	require.NoError(t, err)
	require.False(t, gone)

	live, err := h.store.RevokedTokens().IsTokenRevoked(ctx, "live")
	require.NoError(t, err)
	require.True(t, live)
	require.Equal(t, 1, sweeper.calls)
}

func TestHousekeepingStartStop(t *testing.T) {
	h := newHarness(t)
	hk := NewHousekeepingService(h.store, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour)
	hk.Start()
	hk.Stop()
}

func TestSweepersSumsAndSkipsNil(t *testing.T) {
	a, b := &countingSweeper{}, &countingSweeper{}
	n := Sweepers{a, nil, b}.Sweep(time.Now())
	require.Equal(t, 6, n)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
}
