package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lockout counts failed attempts per identifier in a fixed window. Once the
// count reaches Max the identifier is refused until the window expires.
type Lockout struct {
	redis  redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

// NewLockout returns a Lockout. A max of zero disables it.
func NewLockout(rdb redis.UniversalClient, prefix string, max int, window time.Duration) *Lockout {
	return &Lockout{redis: rdb, prefix: prefix, max: max, window: window}
}

func (l *Lockout) key(id string) string {
	return l.prefix + ":lockout:" + id
}

// Enabled reports whether the lockout enforces anything.
func (l *Lockout) Enabled() bool { return l != nil && l.max > 0 }

// Check returns ErrRateLimited once id has used up its failures.
func (l *Lockout) Check(ctx context.Context, id string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(id)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.max) {
		return ErrRateLimited
	}
	return nil
}

// Fail records a failure and returns the count in the current window.
func (l *Lockout) Fail(ctx context.Context, id string) (int64, error) {
	if !l.Enabled() {
		return 0, nil
	}
	count, err := l.redis.Incr(ctx, l.key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(id), l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

// Reset clears the counter after a successful attempt.
func (l *Lockout) Reset(ctx context.Context, id string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
