package sessiongate

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/deeptutor/sessiongate/authapi"
	"github.com/deeptutor/sessiongate/form"
	"github.com/deeptutor/sessiongate/guard"
	"github.com/deeptutor/sessiongate/internal/audit"
	"github.com/deeptutor/sessiongate/router"
	"github.com/deeptutor/sessiongate/session"
)

// Gate is an assembled session gate. Create one with Builder.Build.
type Gate struct {
	cfg     Config
	log     logrus.FieldLogger
	metrics *Metrics
	audit   *audit.Dispatcher
	api     *authapi.Client
	router  *router.Router
	session *session.Hook
	guard   *guard.Guard
	closers []func() error

	mu      sync.Mutex
	started bool
	closed  bool
	detach  func()
}

// Start performs the one-time storage read and attaches the guard to session
// and route changes. A storage read failure is returned, but the gate is
// still started and treats the session as signed out. Start is idempotent.
func (g *Gate) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	if g.started {
		g.mu.Unlock()
		return nil
	}
	g.started = true
	g.mu.Unlock()

	err := g.session.Initialize(ctx)
	detach := g.guard.Attach(g.session, g.router)

	g.mu.Lock()
	g.detach = detach
	g.mu.Unlock()

	g.log.WithFields(logrus.Fields{
		"authenticated": g.session.IsAuthenticated(),
		"path":          g.router.Path(),
		"state":         g.guard.Current().State.String(),
	}).Debug("gate started")
	return err
}

// Config returns the validated configuration the gate was built with.
func (g *Gate) Config() Config { return g.cfg }

// Session returns the session hook that owns the token.
func (g *Gate) Session() *session.Hook { return g.session }

// Guard returns the route guard.
func (g *Gate) Guard() *guard.Guard { return g.guard }

// Router returns the router the guard redirects through.
func (g *Gate) Router() *router.Router { return g.router }

// API returns the credential endpoint client.
func (g *Gate) API() *authapi.Client { return g.api }

// Logger returns the gate's logger.
func (g *Gate) Logger() logrus.FieldLogger { return g.log }

// Open navigates to path and returns the guard's decision once any redirect
// it triggered has settled.
func (g *Gate) Open(path string) (guard.Decision, error) {
	if err := g.ready(); err != nil {
		return guard.Decision{}, err
	}
	g.router.Navigate(path)
	return g.guard.Current(), nil
}

// NewForm returns a credential form bound to this gate's client and session.
func (g *Gate) NewForm(opts ...form.Option) *form.Form {
	base := []form.Option{
		form.WithLogger(g.log.WithField("component", "form")),
		form.WithObserver(g.onSubmit),
	}
	if g.cfg.Demo.Enabled {
		base = append(base, form.WithDemoCredentials(g.cfg.Demo.Username, g.cfg.Demo.Password))
	} else {
		base = append(base, form.WithoutDemo())
	}
	return form.New(g.api, g.session, append(base, opts...)...)
}

// Login stores token and moves to the home path.
func (g *Gate) Login(ctx context.Context, token string) error {
	if err := g.ready(); err != nil {
		return err
	}
	return g.session.Login(ctx, token)
}

// Logout clears the token and moves to the login path. The in-memory session
// is cleared even when the storage delete fails.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.ready(); err != nil {
		return err
	}
	return g.session.Logout(ctx)
}

// CurrentUser asks the backend who the stored token belongs to.
func (g *Gate) CurrentUser(ctx context.Context) (authapi.User, error) {
	if err := g.ready(); err != nil {
		return authapi.User{}, err
	}
	token := g.session.Token()
	if token == "" {
		return authapi.User{}, ErrNotAuthenticated
	}
	return g.api.CurrentUser(ctx, token)
}

// MetricsSnapshot returns the current counters.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	return g.metrics.Snapshot()
}

// Close detaches the guard, flushes audit events and releases owned
// resources. It is safe to call more than once.
func (g *Gate) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	detach := g.detach
	g.detach = nil
	g.mu.Unlock()

	if detach != nil {
		detach()
	}
	g.audit.Close()
	return g.closeResources()
}

func (g *Gate) closeResources() error {
	var errs []error
	for _, c := range g.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	g.closers = nil
	return errors.Join(errs...)
}

func (g *Gate) ready() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.closed:
		return ErrClosed
	case !g.started:
		return ErrNotStarted
	}
	return nil
}
