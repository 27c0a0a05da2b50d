package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/deeptutor/sessiongate/password"
)

// ErrInvalidConfig is returned by New when Config.Validate fails.
var ErrInvalidConfig = errors.New("devserver: invalid config")

// Config configures a Server.
type Config struct {
	Addr      string        `yaml:"addr"`
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	KeyPrefix string        `yaml:"key_prefix"`

	// SeedAdmin creates admin/admin when no user exists.
	SeedAdmin bool `yaml:"seed_admin"`

	// TokenRate and TokenBurst throttle the token endpoint per client.
	// A zero TokenRate disables throttling.
	TokenRate  float64 `yaml:"token_rate"`
	TokenBurst int     `yaml:"token_burst"`

	// MaxFailedLogins locks a username for LockoutWindow after that many
	// consecutive failures. Zero disables lockout.
	MaxFailedLogins int           `yaml:"max_failed_logins"`
	LockoutWindow   time.Duration `yaml:"lockout_window"`

	Password password.Config `yaml:"password"`
}

// DefaultConfig returns a config suitable for a local backend on :8000.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8000",
		Secret:          "09d25e094faa6ca2556c818166b7a9563b93f7099f6f0f4caa6cf63b88e8d3e7",
		Issuer:          "sessiongate-dev",
		TokenTTL:        30 * time.Minute,
		KeyPrefix:       "sgdev",
		SeedAdmin:       true,
		TokenRate:       5,
		TokenBurst:      10,
		MaxFailedLogins: 5,
		LockoutWindow:   time.Minute,
		Password:        password.DefaultConfig(),
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("%w: secret must be at least 16 bytes", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
	}
	if c.KeyPrefix == "" {
		return fmt.Errorf("%w: key_prefix is required", ErrInvalidConfig)
	}
	if c.TokenRate < 0 || (c.TokenRate > 0 && c.TokenBurst < 1) {
		return fmt.Errorf("%w: token_burst must be >= 1 when throttling", ErrInvalidConfig)
	}
	if c.MaxFailedLogins < 0 || (c.MaxFailedLogins > 0 && c.LockoutWindow <= 0) {
		return fmt.Errorf("%w: lockout_window must be positive when lockout is enabled", ErrInvalidConfig)
	}
	if err := c.Password.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
