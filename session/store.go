package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/deeptutor/sessiongate/storage"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the storage key holding the bearer token.
const DefaultKey = "token"

// ErrEmptyToken is returned by Set when asked to store an empty token.
var ErrEmptyToken = errors.New("session: empty token")

// Store is the owned session state cell. It is safe for concurrent use.
type Store struct {
	backend storage.Backend
	key     string
	log     logrus.FieldLogger

	initOnce sync.Once
	initErr  error

	mu          sync.RWMutex
	token       string
	initialized bool
	// mutated is set by Set and Clear. Once set, the first read no longer
	// overwrites the in-memory token.
	mutated   bool
	listeners map[uint64]func(Snapshot)
	nextID    uint64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(log logrus.FieldLogger) StoreOption {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore returns an uninitialized Store over backend.
func NewStore(backend storage.Backend, opts ...StoreOption) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		backend:   backend,
		key:       DefaultKey,
		log:       discard,
		listeners: make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize reads the persisted token. Only the first call touches storage;
// later calls return the first call's result. The store is initialized when
// Initialize returns, even if the read failed, in which case it holds no
// token and the read error is returned.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		token, found, err := s.backend.Load(ctx, s.key)
		if err != nil {
			s.log.WithError(err).WithField("key", s.key).Warn("session read failed, starting unauthenticated")
			s.initErr = fmt.Errorf("session: initialize: %w", err)
			token = ""
		}
		if !found {
			token = ""
		}

		s.mu.Lock()
		// A Set or Clear that raced ahead of the read wins over the stored value.
		if !s.mutated {
			s.token = token
		}
		s.initialized = true
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.log.WithField("authenticated", snap.Present()).Debug("session initialized")
		s.notify(snap)
	})
	return s.initErr
}

// Initialized reports whether the first storage read has completed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Token returns the current token and whether one is present.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Set persists token and then updates the in-memory state. On a storage
// failure the in-memory state is left unchanged.
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.backend.Save(ctx, s.key, token); err != nil {
		return fmt.Errorf("session: persist: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mutated = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Clear removes the persisted token. The in-memory state is cleared even if
// the storage delete fails; the failure is still returned.
func (s *Store) Clear(ctx context.Context) error {
	err := s.backend.Clear(ctx, s.key)

	s.mu.Lock()
	s.token = ""
	s.mutated = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	if err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

// Subscribe registers fn to receive a snapshot after every change and
// returns a cancel function.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Token: s.token, Initialized: s.initialized}
}

func (s *Store) notify(snap Snapshot) {
	s.mu.RLock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
