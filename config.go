package sessiongate

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/deeptutor/sessiongate/authapi"
	"github.com/deeptutor/sessiongate/internal/audit"
	"github.com/deeptutor/sessiongate/router"
	"github.com/deeptutor/sessiongate/session"
)

// StorageKind selects the token backend.
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageFile   StorageKind = "file"
	StorageRedis  StorageKind = "redis"
)

// Config is the full gate configuration. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	Paths   router.Paths  `yaml:"paths"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Demo    DemoConfig    `yaml:"demo"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig locates the credential backend.
type APIConfig struct {
	BaseURL   string            `yaml:"base_url"`
	Timeout   time.Duration     `yaml:"timeout"`
	Endpoints authapi.Endpoints `yaml:"endpoints"`
}

// StorageConfig selects and configures the token backend.
type StorageConfig struct {
	Kind StorageKind `yaml:"kind"`
	// Key is the entry name the token is stored under.
	Key string `yaml:"key"`
	// Path is the file backend's document. Empty means DefaultStoragePath.
	Path string `yaml:"path"`

	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
	// Instance namespaces Redis keys so several clients can share a server.
	Instance string `yaml:"instance"`
}

// DemoConfig controls the sign-in shortcut.
type DemoConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AuditConfig controls audit dispatch.
type AuditConfig = audit.Config

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig controls the default logger. It is ignored when a logger is
// supplied through Builder.WithLogger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the defaults: /login and /, a local backend on port
// 8000, in-memory storage, and the admin/admin demo shortcut.
func DefaultConfig() Config {
	return Config{
		Paths: router.DefaultPaths(),
		API: APIConfig{
			BaseURL:   "http://localhost:8000",
			Timeout:   10 * time.Second,
			Endpoints: authapi.DefaultEndpoints(),
		},
		Storage: StorageConfig{
			Kind:        StorageMemory,
			Key:         session.DefaultKey,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "sessiongate",
			Instance:    "default",
		},
		Demo: DemoConfig{
			Enabled:  true,
			Username: "admin",
			Password: "admin",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	// Paths
	if !strings.HasPrefix(c.Paths.Login, "/") || !strings.HasPrefix(c.Paths.Home, "/") {
		return invalid("paths must be absolute")
	}
	if router.Normalize(c.Paths.Login) == router.Normalize(c.Paths.Home) {
		return invalid("login and home paths must differ")
	}

	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return invalid("api.timeout must be > 0")
	}
	if c.API.Endpoints.Token == "" || c.API.Endpoints.Register == "" || c.API.Endpoints.Me == "" {
		return invalid("api.endpoints must all be set")
	}

	// Storage
	if c.Storage.Key == "" {
		return invalid("storage.key must not be empty")
	}
	switch c.Storage.Kind {
	case StorageMemory, StorageFile:
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return invalid("storage.redis_addr is required for redis storage")
		}
		if c.Storage.RedisPrefix == "" || c.Storage.Instance == "" {
			return invalid("storage.redis_prefix and storage.instance are required for redis storage")
		}
	default:
		return invalid("unknown storage.kind %q", c.Storage.Kind)
	}

	// Demo
	if c.Demo.Enabled && (c.Demo.Username == "" || c.Demo.Password == "") {
		return invalid("demo credentials must be set when demo is enabled")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return invalid("audit.buffer_size must be > 0")
	}
	for _, k := range c.Audit.Kinds {
		if !k.Known() {
			return invalid("unknown audit kind %q", k)
		}
	}

	// Log
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json")
	}
	return nil
}

// HomeDir returns ~/.sessiongate.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".sessiongate"), nil
}

// DefaultStoragePath returns ~/.sessiongate/session.json.
func DefaultStoragePath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// DefaultConfigPath returns ~/.sessiongate/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadConfigFile overlays the YAML file at path on base, then applies
// SESSIONGATE_* environment overrides, then validates. A missing file is not
// an error. Unknown YAML keys are.
func LoadConfigFile(path string, base Config) (Config, error) {
	cfg := base
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// YAML renders c in the format LoadConfigFile reads.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("SESSIONGATE_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("SESSIONGATE_API_TIMEOUT", cfg.API.Timeout)
	cfg.Paths.Login = getEnv("SESSIONGATE_LOGIN_PATH", cfg.Paths.Login)
	cfg.Paths.Home = getEnv("SESSIONGATE_HOME_PATH", cfg.Paths.Home)
	cfg.Storage.Kind = StorageKind(getEnv("SESSIONGATE_STORAGE", string(cfg.Storage.Kind)))
	cfg.Storage.Path = getEnv("SESSIONGATE_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.RedisAddr = getEnv("SESSIONGATE_REDIS_ADDR", cfg.Storage.RedisAddr)
	cfg.Storage.RedisDB = getEnvInt("SESSIONGATE_REDIS_DB", cfg.Storage.RedisDB)
	cfg.Storage.Instance = getEnv("SESSIONGATE_INSTANCE", cfg.Storage.Instance)
	cfg.Demo.Enabled = getEnvBool("SESSIONGATE_DEMO", cfg.Demo.Enabled)
	cfg.Audit.Enabled = getEnvBool("SESSIONGATE_AUDIT", cfg.Audit.Enabled)
	cfg.Log.Level = getEnv("SESSIONGATE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("SESSIONGATE_LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
