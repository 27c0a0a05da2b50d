package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

var (
	// ErrInvalidConfig is returned by New for out-of-range parameters.
	ErrInvalidConfig = errors.New("password: invalid argon2 config")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("password: malformed hash")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32 `yaml:"memory_kib"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

// DefaultConfig is tuned for a local development backend, not production.
func DefaultConfig() Config {
	return Config{
		Memory:      16 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate reports whether every parameter is usable.
func (c Config) Validate() error {
	switch {
	case c.Memory < 1024:
		return fmt.Errorf("%w: memory must be >= 1024 KiB", ErrInvalidConfig)
	case c.Time < 1:
		return fmt.Errorf("%w: time must be >= 1", ErrInvalidConfig)
	case c.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrInvalidConfig)
	case c.SaltLength < 8:
		return fmt.Errorf("%w: salt length must be >= 8", ErrInvalidConfig)
	case c.KeyLength < 16:
		return fmt.Errorf("%w: key length must be >= 16", ErrInvalidConfig)
	}
	return nil
}

// Hasher produces and checks Argon2id hashes. It is safe for concurrent use.
type Hasher struct {
	cfg Config
}

// New returns a Hasher for cfg.
func New(cfg Config) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash returns the PHC encoding of password under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(password), salt, h.cfg.Time, h.cfg.Memory, h.cfg.Parallelism, h.cfg.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		h.cfg.Memory, h.cfg.Time, h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether password matches encoded. The parameters stored in
// encoded are used, not the Hasher's own.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	p, err := decode(encoded)
	if err != nil {
		return false, err
	}
	sum := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.sum)))
	return subtle.ConstantTimeCompare(sum, p.sum) == 1, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	sum         []byte
}

func decode(encoded string) (phc, error) {
	var p phc
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return p, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &par); err != nil {
		return p, fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}
	if p.memory == 0 || p.time == 0 || par == 0 || par > 255 {
		return p, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}
	p.parallelism = uint8(par)

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return p, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.sum, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.sum) == 0 {
		return p, fmt.Errorf("%w: hash", ErrMalformedHash)
	}
	return p, nil
}
