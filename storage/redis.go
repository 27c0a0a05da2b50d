package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis backend.
var ErrRedisUnavailable = errors.New("storage: redis unavailable")

// Redis stores values as plain string keys of the form
// "<prefix>:<instance>:<key>". The instance segment scopes the session to one
// client installation so several clients can share a Redis deployment.
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	instance string
}

// NewRedis returns a Redis backend. prefix and instance must be non-empty and
// must not contain ':'.
func NewRedis(client redis.UniversalClient, prefix, instance string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("storage: redis client required")
	}
	for name, v := range map[string]string{"prefix": prefix, "instance": instance} {
		if v == "" || strings.Contains(v, ":") {
			return nil, fmt.Errorf("storage: invalid redis %s %q", name, v)
		}
	}
	return &Redis{client: client, prefix: prefix, instance: instance}, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + ":" + r.instance + ":" + key
}

func (r *Redis) Load(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, true, nil
}

func (r *Redis) Save(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
