package tenantschema

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single structure application.
const DefaultTimeout = 45 * time.Second

var (
	// ErrTimeout means the structure was not applied within the deadline.
	ErrTimeout = errors.New("tenantschema: structure application timed out")

	// ErrFailed means the tool ran and reported failure.
	ErrFailed = errors.New("tenantschema: structure application failed")
)

// Applier applies the tenant table layout to a namespace.
type Applier interface {
	Apply(ctx context.Context, schema string) error
}

// withDeadline derives the context an applier runs under. The caller's
// deadline wins when it is earlier.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// classify maps a context failure onto ErrTimeout.
func classify(ctx context.Context, schema string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: schema %q", ErrTimeout, schema)
		}
		return fmt.Errorf("apply structure to %q: %w", schema, ctxErr)
	}
	return err
}
