// Package lock provides short lived named locks used to serialise
// provisioning of the same namespace across instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hivecert/hivecert/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("lock: held by another owner")

// Locker hands out locks keyed by name.
type Locker interface {
	// Acquire takes the lock for ttl. The returned release func is safe to
	// call more than once and never releases a lock taken over by someone
	// else after expiry.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Noop never contends. Used when no Redis is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// Delete the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements Locker with SET NX PX.
type Redis struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedis returns a Locker using keys "<prefix>:<name>".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "hivecert:lock"
	}
	return &Redis{Client: client, Prefix: prefix}
}

func (l *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	key := l.Prefix + ":" + name
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %q: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, name)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %q: %w", name, err)
		}
		return nil
	}, nil
}
