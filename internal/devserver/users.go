package devserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrUserExists is returned by Create for a taken username.
	ErrUserExists = errors.New("devserver: username already registered")
	// ErrUserNotFound is returned by Get for an unknown username.
	ErrUserNotFound = errors.New("devserver: user not found")
)

// User is a stored account. HashedPassword never leaves the server.
type User struct {
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	Disabled       bool   `json:"disabled"`
	Role           string `json:"role"`
	HashedPassword string `json:"-"`
}

// UserStore keeps users in Redis. Each user is one hash at
// <prefix>:user:<username>; the set <prefix>:users indexes usernames.
type UserStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewUserStore returns a store using keys under prefix.
func NewUserStore(rdb redis.UniversalClient, prefix string) *UserStore {
	return &UserStore{rdb: rdb, prefix: prefix}
}

func (s *UserStore) userKey(username string) string {
	return s.prefix + ":user:" + username
}

func (s *UserStore) indexKey() string {
	return s.prefix + ":users"
}

// Create stores u. The username field is claimed with HSETNX so concurrent
// registrations of the same name cannot both succeed.
func (s *UserStore) Create(ctx context.Context, u User) error {
	key := s.userKey(u.Username)
	claimed, err := s.rdb.HSetNX(ctx, key, "username", u.Username).Result()
	if err != nil {
		return fmt.Errorf("devserver: create user: %w", err)
	}
	if !claimed {
		return ErrUserExists
	}

	if u.Role == "" {
		u.Role = "user"
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"hashed_password": u.HashedPassword,
			"email":           u.Email,
			"full_name":       u.FullName,
			"role":            u.Role,
			"disabled":        strconv.FormatBool(u.Disabled),
		})
		pipe.SAdd(ctx, s.indexKey(), u.Username)
		return nil
	})
	if err != nil {
		return fmt.Errorf("devserver: create user: %w", err)
	}
	return nil
}

// Get loads a user by name.
func (s *UserStore) Get(ctx context.Context, username string) (User, error) {
	fields, err := s.rdb.HGetAll(ctx, s.userKey(username)).Result()
	if err != nil {
		return User{}, fmt.Errorf("devserver: get user: %w", err)
	}
	if len(fields) == 0 {
		return User{}, ErrUserNotFound
	}
	disabled, _ := strconv.ParseBool(fields["disabled"])
	return User{
		Username:       fields["username"],
		Email:          fields["email"],
		FullName:       fields["full_name"],
		Disabled:       disabled,
		Role:           fields["role"],
		HashedPassword: fields["hashed_password"],
	}, nil
}

// SetDisabled flips the disabled flag of an existing user.
func (s *UserStore) SetDisabled(ctx context.Context, username string, disabled bool) error {
	n, err := s.rdb.Exists(ctx, s.userKey(username)).Result()
	if err != nil {
		return fmt.Errorf("devserver: disable user: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return s.rdb.HSet(ctx, s.userKey(username), "disabled", strconv.FormatBool(disabled)).Err()
}

// Count returns the number of stored users.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, s.indexKey()).Result()
}
