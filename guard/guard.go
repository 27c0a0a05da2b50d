package guard

import (
	"io"
	"sync"

	"github.com/deeptutor/sessiongate/router"
	"github.com/deeptutor/sessiongate/session"
	"github.com/sirupsen/logrus"
)

// AuthSource supplies session state and its changes.
type AuthSource interface {
	State() session.AuthState
	Subscribe(func(session.AuthState)) func()
}

// PathSource supplies the current path and its changes.
type PathSource interface {
	Path() string
	Subscribe(func(string)) func()
}

// RedirectObserver is told about every redirect the guard issues.
type RedirectObserver func(from, to string)

// Guard applies Evaluate and performs redirects. It is safe for concurrent
// use.
type Guard struct {
	paths      router.Paths
	nav        router.Navigator
	log        logrus.FieldLogger
	onRedirect RedirectObserver

	mu        sync.Mutex
	current   Decision
	issuedFor string
	issuedTo  string
	listeners map[uint64]func(Decision)
	nextID    uint64
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Guard) {
		if log != nil {
			g.log = log
		}
	}
}

// WithRedirectObserver installs a RedirectObserver.
func WithRedirectObserver(o RedirectObserver) Option {
	return func(g *Guard) { g.onRedirect = o }
}

// New returns a Guard in the Checking state.
func New(paths router.Paths, nav router.Navigator, opts ...Option) *Guard {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	g := &Guard{
		paths:     paths,
		nav:       nav,
		log:       discard,
		current:   Decision{State: Checking},
		listeners: make(map[uint64]func(Decision)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Current returns the latest decision.
func (g *Guard) Current() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// OnChange registers fn to receive every decision and returns a cancel
// function.
func (g *Guard) OnChange(fn func(Decision)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			g.mu.Unlock()
		})
	}
}

// Evaluate decides for in and issues the redirect the decision calls for,
// unless the same redirect was already issued for the same path.
func (g *Guard) Evaluate(in Input) Decision {
	d := Evaluate(in, g.paths)
	path := router.Normalize(in.Path)

	g.mu.Lock()
	g.current = d
	issue := false
	if d.State == Redirecting {
		if d.RedirectTo != path && (g.issuedFor != path || g.issuedTo != d.RedirectTo) {
			issue = true
			g.issuedFor, g.issuedTo = path, d.RedirectTo
		}
	} else {
		g.issuedFor, g.issuedTo = "", ""
	}
	fns := make([]func(Decision), 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(d)
	}

	if issue {
		g.log.WithFields(logrus.Fields{"path": path, "target": d.RedirectTo}).Debug("guard redirect")
		if g.onRedirect != nil {
			g.onRedirect(path, d.RedirectTo)
		}
		g.nav.Redirect(d.RedirectTo)
	}
	return d
}

// Attach evaluates now and again on every auth or path change. The returned
// function detaches both subscriptions.
func (g *Guard) Attach(auth AuthSource, paths PathSource) func() {
	eval := func() { g.Evaluate(InputFrom(auth.State(), paths.Path())) }

	cancelAuth := auth.Subscribe(func(session.AuthState) { eval() })
	cancelPath := paths.Subscribe(func(string) { eval() })
	eval()

	return func() {
		cancelAuth()
		cancelPath()
	}
}
