package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/deeptutor/sessiongate/internal/rate"
	"github.com/deeptutor/sessiongate/jwt"
	"github.com/deeptutor/sessiongate/password"
)

// Routes served by the backend.
const (
	RouteToken    = "/api/v1/auth/token"
	RouteRegister = "/api/v1/auth/register"
	RouteMe       = "/api/v1/auth/users/me"
	RouteMetrics  = "/metrics"
	RouteHealth   = "/healthz"
)

// Server is the development credential backend.
type Server struct {
	cfg      Config
	rdb      redis.UniversalClient
	users    *UserStore
	hasher   *password.Hasher
	tokens   *jwt.Manager
	lockout  *rate.Lockout
	throttle *rate.Throttle
	metrics  *metrics
	log      logrus.FieldLogger
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default discards output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a Server over rdb. It does not seed or listen.
func New(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Server, error) {
	if rdb == nil {
		return nil, errors.New("devserver: redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hasher, err := password.New(cfg.Password)
	if err != nil {
		return nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		Secret: []byte(cfg.Secret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.Issuer,
	})
	if err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Server{
		cfg:      cfg,
		rdb:      rdb,
		users:    NewUserStore(rdb, cfg.KeyPrefix),
		hasher:   hasher,
		tokens:   tokens,
		lockout:  rate.NewLockout(rdb, cfg.KeyPrefix, cfg.MaxFailedLogins, cfg.LockoutWindow),
		throttle: rate.NewThrottle(cfg.TokenRate, cfg.TokenBurst),
		metrics:  newMetrics(),
		log:      discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

// Users exposes the backing store.
func (s *Server) Users() *UserStore { return s.users }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Seed creates admin/admin when SeedAdmin is set and the store holds no users.
func (s *Server) Seed(ctx context.Context) error {
	if !s.cfg.SeedAdmin {
		return nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("devserver: seed: %w", err)
	}
	if n > 0 {
		return nil
	}
	hash, err := s.hasher.Hash("admin")
	if err != nil {
		return err
	}
	err = s.users.Create(ctx, User{
		Username:       "admin",
		Email:          "admin@example.com",
		FullName:       "Administrator",
		Role:           "admin",
		HashedPassword: hash,
	})
	if err != nil && !errors.Is(err, ErrUserExists) {
		return fmt.Errorf("devserver: seed: %w", err)
	}
	s.log.WithField("username", "admin").Info("seeded default account")
	return nil
}

// ListenAndServe seeds the store, serves on cfg.Addr and shuts down
// gracefully when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Seed(ctx); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("dev backend listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.Handle(RouteToken, s.metrics.instrument("token", http.HandlerFunc(s.handleToken))).Methods(http.MethodPost)
	r.Handle(RouteRegister, s.metrics.instrument("register", http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	r.Handle(RouteMe, s.metrics.instrument("me", s.requireUser(http.HandlerFunc(s.handleMe)))).Methods(http.MethodGet)
	r.Handle(RouteMetrics, s.metrics.handler()).Methods(http.MethodGet)
	r.HandleFunc(RouteHealth, s.handleHealth).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": r.Header.Get("X-Request-ID"),
			"elapsed":    time.Since(start).String(),
		}).Debug("request served")
	})
}

// clientKey identifies the caller for throttling.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
