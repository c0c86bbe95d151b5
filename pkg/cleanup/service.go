// Package cleanup provides data retention for persisted sessions.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/conclave-ai/conclave/pkg/session"
)

// Config holds the retention policy.
type Config struct {
	// Sessions idle longer than this are removed, with their messages and
	// run results.
	SessionRetentionDays int

	// How often the cleanup loop runs.
	Interval time.Duration
}

// DefaultConfig returns the retention defaults: one year, checked every six
// hours.
func DefaultConfig() Config {
	return Config{
		SessionRetentionDays: 365,
		Interval:             6 * time.Hour,
	}
}

// Service periodically enforces the retention policy. Deletions are
// idempotent and safe to run from multiple replicas.
type Service struct {
	config Config
	store  *session.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a cleanup service over the session store.
func NewService(cfg Config, store *session.Store) *Service {
	return &Service{config: cfg, store: store}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"session_retention_days", s.config.SessionRetentionDays,
		"interval", s.config.Interval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	count, err := s.store.DeleteOldSessions(ctx, s.config.SessionRetentionDays)
	if err != nil {
		slog.Error("Retention: session cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: removed old sessions", "count", count)
	}
}
