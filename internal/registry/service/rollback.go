package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hivecert/hivecert/internal/registry/metrics"
)

// DefaultRollbackTimeout bounds the whole compensation run.
const DefaultRollbackTimeout = 30 * time.Second

// compensation undoes one completed provisioning step.
type compensation struct {
	action string
	undo   func(ctx context.Context) error
}

// rollback records compensations in completion order and runs them in
// reverse. Every action is attempted; failures are logged, never returned.
type rollback struct {
	actions []compensation
}

func (r *rollback) push(action string, undo func(ctx context.Context) error) {
	r.actions = append(r.actions, compensation{action: action, undo: undo})
}

// run executes the compensations on a context detached from the caller's
// cancellation so an aborted request still cleans up.
func (r *rollback) run(ctx context.Context, timeout time.Duration, l *slog.Logger, m *metrics.Metrics) {
	if len(r.actions) == 0 {
		return
	}
	if timeout <= 0 {
		timeout = DefaultRollbackTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	l.Warn("rolling back provisioning", slog.Int("actions", len(r.actions)))
	for i := len(r.actions) - 1; i >= 0; i-- {
		c := r.actions[i]
		err := safeUndo(ctx, c.undo)
		m.ObserveRollback(c.action, err)
		if err != nil {
			l.Error("rollback action failed",
				slog.String("action", c.action),
				slog.Any("error", err),
			)
			continue
		}
		l.Info("rollback action completed", slog.String("action", c.action))
	}
	r.actions = nil
}

// safeUndo keeps a panicking compensation from skipping the rest.
func safeUndo(ctx context.Context, undo func(context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during rollback: %v", rec)
		}
	}()
	return undo(ctx)
}
