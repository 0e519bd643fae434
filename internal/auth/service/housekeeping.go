package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// Sweeper drops idle state. The in-memory rate limiters implement it.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Sweepers sweeps each non-nil member and sums the results.
type Sweepers []Sweeper

func (ss Sweepers) Sweep(now time.Time) int {
	n := 0
	for _, s := range ss {
		if s != nil {
			n += s.Sweep(now)
		}
	}
	return n
}

// HousekeepingService periodically removes state that can no longer matter:
// revocations of tokens that have expired anyway, signing keys past their
// grace window, and idle rate-limit windows.
type HousekeepingService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Limiter    Sweeper // optional
	Logger     *slog.Logger
	Interval   time.Duration
	Now        func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, km *jwtx.KeyManager, limiter Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:      store,
		KeyManager: km,
		Limiter:    limiter,
		Logger:     logger,
		Interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure is logged and
// the remaining steps still run.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := clock(s.Now)

	revocations, err := s.Store.RevokedTokens().DeleteExpiredRevocations(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired revocations", "error", err)
	}

	keys, err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired signing keys", "error", err)
	}

	var pruned []string
	if s.KeyManager != nil {
		pruned = s.KeyManager.PruneExpired()
	}

	var windows int
	if s.Limiter != nil {
		windows = s.Limiter.Sweep(now)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"revocations_deleted", revocations,
		"signing_keys_deleted", keys,
		"verification_keys_pruned", len(pruned),
		"rate_limit_windows_swept", windows,
	)
}
