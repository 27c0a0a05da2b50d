package session

import (
	"context"
	"sync"

	"github.com/deeptutor/sessiongate/router"
)

// Hook binds a Store to navigation. Login and Logout persist the change and
// then request the matching route; IsAuthenticated is always derived from the
// store.
type Hook struct {
	store    *Store
	nav      router.Navigator
	paths    router.Paths
	observer Observer

	initOnce sync.Once
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithObserver installs an Observer for lifecycle events.
func WithObserver(o Observer) HookOption {
	return func(h *Hook) { h.observer = o }
}

// NewHook returns a Hook over store that navigates through nav.
func NewHook(store *Store, nav router.Navigator, paths router.Paths, opts ...HookOption) *Hook {
	h := &Hook{store: store, nav: nav, paths: paths}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Store returns the underlying Store.
func (h *Hook) Store() *Store {
	return h.store
}

// Initialize performs the one-time storage read. See Store.Initialize.
func (h *Hook) Initialize(ctx context.Context) error {
	h.initOnce.Do(func() {
		err := h.store.Initialize(ctx)
		_, found := h.store.Token()
		h.emit(Event{Kind: EventInitialized, Found: found, Err: err})
	})
	return h.store.Initialize(ctx)
}

// Login stores token and requests the home route. IsAuthenticated is true as
// soon as Login returns nil.
func (h *Hook) Login(ctx context.Context, token string) error {
	if err := h.store.Set(ctx, token); err != nil {
		h.emit(Event{Kind: EventLogin, Err: err})
		return err
	}
	h.emit(Event{Kind: EventLogin, Found: true})
	h.nav.Redirect(h.paths.Home)
	return nil
}

// Logout clears the session and requests the login route. Navigation happens
// even when the storage delete fails.
func (h *Hook) Logout(ctx context.Context) error {
	err := h.store.Clear(ctx)
	h.emit(Event{Kind: EventLogout, Err: err})
	h.nav.Redirect(h.paths.Login)
	return err
}

// State returns the derived AuthState.
func (h *Hook) State() AuthState {
	return h.store.Snapshot().State()
}

// IsAuthenticated reports whether a token is present.
func (h *Hook) IsAuthenticated() bool {
	_, ok := h.store.Token()
	return ok
}

// Initialized reports whether the first storage read completed.
func (h *Hook) Initialized() bool {
	return h.store.Initialized()
}

// Token returns the current token, or "" when signed out.
func (h *Hook) Token() string {
	t, _ := h.store.Token()
	return t
}

// Subscribe registers fn for AuthState changes.
func (h *Hook) Subscribe(fn func(AuthState)) func() {
	return h.store.Subscribe(func(s Snapshot) { fn(s.State()) })
}

func (h *Hook) emit(e Event) {
	if h.observer != nil {
		h.observer(e)
	}
}
