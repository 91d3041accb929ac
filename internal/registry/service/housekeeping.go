package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hivecert/hivecert/internal/registry/metrics"
	"github.com/hivecert/hivecert/internal/registry/store"
)

// HousekeepingService deletes expired verification codes and unused
// confirmation tokens so the global tables do not grow without bound.
type HousekeepingService struct {
	Store   store.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Run performs one cleanup pass. Each deletion is independent; a failure in
// one does not stop the others.
func (s *HousekeepingService) Run(ctx context.Context) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	s.Logger.Info("starting housekeeping cleanup")

	var ok int

	// Codes still linked to an administrator are kept; rollback owns those.
	if n, err := s.Store.VerificationCodes().DeleteExpiredVerificationCodes(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired verification codes", "error", err)
	} else {
		s.Logger.Debug("deleted expired verification codes", "count", n)
		s.Metrics.ObserveDeleted("verification_codes", n)
		ok++
	}

	if n, err := s.Store.ConfirmationTokens().DeleteExpiredConfirmationTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired confirmation tokens", "error", err)
	} else {
		s.Logger.Debug("deleted expired confirmation tokens", "count", n)
		s.Metrics.ObserveDeleted("confirmation_tokens", n)
		ok++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", ok)
}
