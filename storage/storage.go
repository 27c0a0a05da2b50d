package storage

import (
	"context"
	"errors"
)

// ErrInvalidKey is returned when a backend is asked to operate on an empty key.
var ErrInvalidKey = errors.New("storage: invalid key")

// Backend persists string values under string keys.
//
// Load reports found=false (and a nil error) when the key holds no value.
// Clear on a missing key is not an error.
type Backend interface {
	Load(ctx context.Context, key string) (value string, found bool, err error)
	Save(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
