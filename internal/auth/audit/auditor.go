// Package audit records security relevant events off the request path.
//
// Record never blocks: events go into a bounded buffer drained by a single
// worker that hands batches to every configured Sink. When the buffer is
// full the event is dropped, counted and logged. Sink failures are logged and
// counted but never reach the request that produced the event.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/metrics"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// Sink persists a batch of events. It returns how many were written; each
// event is written by a single insert, so an event is either fully stored
// or not at all.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []domain.AuditEvent) (int, error)
}

type Config struct {
	BufferSize    int           // default 1024
	BatchSize     int           // default 64
	FlushInterval time.Duration // default 1s
	WriteTimeout  time.Duration // per flush, default 10s
	Logger        *slog.Logger
	Now           func() time.Time
}

func (c *Config) defaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Auditor is the asynchronous audit recorder.
type Auditor struct {
	cfg    Config
	sinks  []Sink
	buffer chan domain.AuditEvent
	done   chan struct{}

	mu     sync.RWMutex // guards closed against sends on a closed buffer
	closed bool

	dropped atomic.Int64
}

// New starts the worker. Call Close to flush and stop it.
func New(cfg Config, sinks ...Sink) *Auditor {
	cfg.defaults()

	a := &Auditor{
		cfg:    cfg,
		sinks:  sinks,
		buffer: make(chan domain.AuditEvent, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	go a.worker()
	return a
}

// Record enqueues e. Events recorded on an already cancelled context are
// discarded, as are events recorded after Close.
func (a *Auditor) Record(ctx context.Context, e domain.AuditEvent) {
	if ctx.Err() != nil {
		return
	}

	if e.ID == "" {
		e.ID = idx.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = a.cfg.Now().UTC()
	}
	if e.RequestID == "" {
		e.RequestID = slogx.RequestIDFromContext(ctx)
	}
	if e.RemoteAddr == "" {
		e.RemoteAddr = slogx.RemoteAddrFromContext(ctx)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.buffer <- e:
	default:
		a.dropped.Add(1)
		metrics.AuditDropped.Inc()
		slogx.FromContext(ctx).Warn("audit buffer full, event dropped",
			slog.String("action", e.Action),
			slog.String("outcome", string(e.Outcome)),
		)
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (a *Auditor) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting events and waits until the buffered ones are flushed
// or ctx is done.
func (a *Auditor) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.buffer)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Auditor) worker() {
	defer close(a.done)

	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]domain.AuditEvent, 0, a.cfg.BatchSize)
	for {
		select {
		case e, ok := <-a.buffer:
			if !ok {
				a.flush(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= a.cfg.BatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			a.flush(batch)
			batch = batch[:0]
		}
	}
}

func (a *Auditor) flush(batch []domain.AuditEvent) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.WriteTimeout)
	defer cancel()

	for _, s := range a.sinks {
		n, err := s.Write(ctx, batch)
		metrics.AuditWritten.WithLabelValues(s.Name()).Add(float64(n))
		if err != nil {
			metrics.AuditSinkErrors.WithLabelValues(s.Name()).Add(float64(len(batch) - n))
			a.cfg.Logger.Error("audit sink write failed",
				slog.String("sink", s.Name()),
				slog.Int("events", len(batch)),
				slog.Int("written", n),
				slog.Any("error", err),
			)
		}
	}
}
