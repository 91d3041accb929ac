package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hivecert/hivecert/internal/registry/lock"
	"github.com/hivecert/hivecert/internal/registry/service"
)

// Job names, also used as distributed lock keys.
const (
	jobHousekeeping = "housekeeping"
	jobReconcile    = "reconcile"
)

// jobLockTTL bounds how long one instance may hold a job. Runs are much
// shorter; the lock only has to outlive them.
const jobLockTTL = 10 * time.Minute

// JobsConfig selects which background jobs run and how often.
type JobsConfig struct {
	Housekeeping         *service.HousekeepingService
	HousekeepingInterval time.Duration

	Reconciliation    *service.ReconciliationService
	ReconcileInterval time.Duration // 0 disables

	// Locker, when set, makes each run exclusive across instances.
	Locker lock.Locker
	Logger *slog.Logger
}

// NewScheduler registers the maintenance jobs on a gocron scheduler. The
// scheduler is not started.
func NewScheduler(cfg JobsConfig) (gocron.Scheduler, error) {
	opts := []gocron.SchedulerOption{
		gocron.WithLogger(cfg.Logger),
		gocron.WithStopTimeout(30 * time.Second),
	}
	if cfg.Locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(jobLocker{locker: cfg.Locker, ttl: jobLockTTL}))
	}

	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if cfg.Housekeeping != nil && cfg.HousekeepingInterval > 0 {
		_, err := s.NewJob(
			gocron.DurationJob(cfg.HousekeepingInterval),
			gocron.NewTask(cfg.Housekeeping.Run),
			gocron.WithName(jobHousekeeping),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("register %s job: %w", jobHousekeeping, err)
		}
	}

	if cfg.Reconciliation != nil && cfg.ReconcileInterval > 0 {
		_, err := s.NewJob(
			gocron.DurationJob(cfg.ReconcileInterval),
			gocron.NewTask(runReconcile(cfg.Reconciliation, cfg.Logger)),
			gocron.WithName(jobReconcile),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("register %s job: %w", jobReconcile, err)
		}
	}

	cfg.Logger.Info("background jobs registered", "count", len(s.Jobs()))
	return s, nil
}

func runReconcile(svc *service.ReconciliationService, logger *slog.Logger) func(context.Context) {
	return func(ctx context.Context) {
		if _, err := svc.Run(ctx); err != nil {
			logger.Error("reconciliation failed", "error", err)
		}
	}
}

// jobLocker lets gocron take a lock.Locker lock around each run so only
// one instance executes a job at a time.
type jobLocker struct {
	locker lock.Locker
	ttl    time.Duration
}

func (l jobLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	release, err := l.locker.Acquire(ctx, "job:"+key, l.ttl)
	if err != nil {
		return nil, err
	}
	return unlockFunc(release), nil
}

type unlockFunc func(context.Context) error

func (f unlockFunc) Unlock(ctx context.Context) error { return f(ctx) }
