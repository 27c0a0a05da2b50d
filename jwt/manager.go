package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken wraps every verification failure.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrMissingSubject is returned when a token carries no subject.
	ErrMissingSubject = errors.New("jwt: missing subject")
)

// Config configures a Manager.
type Config struct {
	Secret  []byte
	TTL     time.Duration
	Issuer  string
	Leeway  time.Duration
	NowFunc func() time.Time
}

// Claims is the token payload. Subject holds the username.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens. It is immutable after construction.
type Manager struct {
	cfg Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("jwt: secret must be at least 16 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("jwt: ttl must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: leeway must be within [0, 2m]")
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}
	return &Manager{cfg: cfg}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.cfg.TTL }

// Issue signs a token for subject.
func (m *Manager) Issue(subject, role string) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := m.cfg.NowFunc()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
}

// Parse verifies signature, algorithm, expiry and issuer, and returns the
// claims.
func (m *Manager) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.cfg.NowFunc),
	}
	if m.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.cfg.Leeway))
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// PeekUnverified decodes the payload without checking the signature. The
// client never holds the signing key, so this is for display only.
func PeekUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
