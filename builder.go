package sessiongate

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/deeptutor/sessiongate/authapi"
	"github.com/deeptutor/sessiongate/guard"
	"github.com/deeptutor/sessiongate/internal/audit"
	"github.com/deeptutor/sessiongate/router"
	"github.com/deeptutor/sessiongate/session"
	"github.com/deeptutor/sessiongate/storage"
)

// Builder assembles a Gate. Each With method returns the Builder; Build may
// be called once.
type Builder struct {
	config      Config
	backend     storage.Backend
	redis       redis.UniversalClient
	router      *router.Router
	initialPath string
	httpClient  *http.Client
	logger      logrus.FieldLogger
	auditSink   AuditSink
	logOutput   io.Writer

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration. Defaults to DefaultConfig.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStorage sets the token backend, overriding Config.Storage.Kind.
func (b *Builder) WithStorage(backend storage.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies the client for redis storage. Cluster and failover
// clients are accepted. The Gate does not close a client it was given.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRouter shares an existing router instead of creating one.
func (b *Builder) WithRouter(r *router.Router) *Builder {
	b.router = r
	return b
}

// WithInitialPath sets where a new router starts. Defaults to Paths.Home.
func (b *Builder) WithInitialPath(path string) *Builder {
	b.initialPath = path
	return b
}

// WithHTTPClient sets the client used for credential requests. Defaults to
// one with Config.API.Timeout.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithLogger replaces the logger built from Config.Log.
func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.logger = log
	return b
}

// WithLogOutput redirects the logger built from Config.Log. Defaults to
// stderr.
func (b *Builder) WithLogOutput(w io.Writer) *Builder {
	b.logOutput = w
	return b
}

// WithAuditSink sets the sink and enables audit dispatch.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the exchange latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Gate. Nothing is read from
// storage until Start.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		out := b.logOutput
		if out == nil {
			out = os.Stderr
		}
		log = newLogger(cfg.Log, out)
	}

	g := &Gate{
		cfg:     cfg,
		log:     log.WithField("component", "sessiongate"),
		metrics: NewMetrics(cfg.Metrics),
	}

	backend, closer, err := b.resolveStorage(cfg.Storage, log.WithField("component", "storage"))
	if err != nil {
		return nil, err
	}
	if closer != nil {
		g.closers = append(g.closers, closer)
	}

	api, err := b.resolveAPI(cfg.API, log)
	if err != nil {
		g.closeResources()
		return nil, err
	}
	g.api = api

	g.router = b.router
	if g.router == nil {
		initial := b.initialPath
		if initial == "" {
			initial = cfg.Paths.Home
		}
		g.router = router.New(initial)
	}

	store := session.NewStore(backend,
		session.WithKey(cfg.Storage.Key),
		session.WithLogger(log.WithField("component", "session")),
	)
	g.session = session.NewHook(store, g.router, cfg.Paths, session.WithObserver(g.onSessionEvent))
	g.guard = guard.New(cfg.Paths, g.router,
		guard.WithLogger(log.WithField("component", "guard")),
		guard.WithRedirectObserver(g.onRedirect),
	)

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = audit.NewLogSink(log.WithField("component", "audit"))
		}
		g.audit = audit.NewDispatcher(cfg.Audit, sink)
	}
	return g, nil
}

func (b *Builder) resolveStorage(sc StorageConfig, log logrus.FieldLogger) (storage.Backend, func() error, error) {
	if b.backend != nil {
		return b.backend, nil, nil
	}

	switch sc.Kind {
	case StorageMemory:
		return storage.NewMemory(), nil, nil
	case StorageFile:
		path := sc.Path
		if path == "" {
			p, err := DefaultStoragePath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		f, err := storage.NewFile(path, storage.WithFileLogger(log))
		if err != nil {
			return nil, nil, err
		}
		return f, nil, nil
	case StorageRedis:
		client, owned := b.redis, false
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: sc.RedisAddr, DB: sc.RedisDB})
			owned = true
		}
		backend, err := storage.NewRedis(client, sc.RedisPrefix, sc.Instance)
		if err != nil {
			if owned {
				_ = client.Close()
			}
			return nil, nil, err
		}
		if owned {
			return backend, client.Close, nil
		}
		return backend, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage kind %q", ErrInvalidConfig, sc.Kind)
	}
}

func (b *Builder) resolveAPI(ac APIConfig, log logrus.FieldLogger) (*authapi.Client, error) {
	hc := b.httpClient
	if hc == nil {
		hc = authapi.NewHTTPClient(ac.Timeout)
	}
	return authapi.New(ac.BaseURL,
		authapi.WithHTTPClient(hc),
		authapi.WithEndpoints(ac.Endpoints),
		authapi.WithLogger(log.WithField("component", "authapi")),
	)
}

func newLogger(lc LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	if level, err := logrus.ParseLevel(lc.Level); err == nil {
		log.SetLevel(level)
	}
	if lc.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
