package sessiongate

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/deeptutor/sessiongate/router"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Paths != router.DefaultPaths() {
		t.Fatalf("paths: %+v", cfg.Paths)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"relative login":   func(c *Config) { c.Paths.Login = "login" },
		"same paths":       func(c *Config) { c.Paths.Home = "/login/" },
		"bad url":          func(c *Config) { c.API.BaseURL = "localhost:8000" },
		"zero timeout":     func(c *Config) { c.API.Timeout = 0 },
		"empty endpoint":   func(c *Config) { c.API.Endpoints.Me = "" },
		"empty key":        func(c *Config) { c.Storage.Key = "" },
		"unknown storage":  func(c *Config) { c.Storage.Kind = "sqlite" },
		"redis no addr":    func(c *Config) { c.Storage.Kind = StorageRedis; c.Storage.RedisAddr = "" },
		"demo no password": func(c *Config) { c.Demo.Password = "" },
		"audit no buffer":  func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
		"audit bad kind":   func(c *Config) { c.Audit.Kinds = []AuditKind{"session.refresh"} },
		"bad level":        func(c *Config) { c.Log.Level = "loud" },
		"bad format":       func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadConfigFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"), DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.API.BaseURL != DefaultConfig().API.BaseURL {
		t.Fatalf("base url: %s", cfg.API.BaseURL)
	}
}

func TestLoadConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
paths:
  login: /signin
api:
  base_url: http://auth.internal:9000
  timeout: 3s
storage:
  kind: file
  path: /tmp/sg/session.json
demo:
  enabled: false
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfigFile(path, DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Paths.Login != "/signin" || cfg.Paths.Home != "/" {
		t.Fatalf("paths: %+v", cfg.Paths)
	}
	if cfg.API.BaseURL != "http://auth.internal:9000" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("api: %+v", cfg.API)
	}
	if cfg.API.Endpoints.Token != "/api/v1/auth/token" {
		t.Fatalf("unset endpoints must keep defaults: %+v", cfg.API.Endpoints)
	}
	if cfg.Storage.Kind != StorageFile || cfg.Storage.Path != "/tmp/sg/session.json" || cfg.Storage.Key != "token" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.Demo.Enabled || cfg.Log.Format != "json" {
		t.Fatalf("demo/log: %+v %+v", cfg.Demo, cfg.Log)
	}
}

func TestLoadConfigFileEnvOverrides(t *testing.T) {
	t.Setenv("SESSIONGATE_API_URL", "https://auth.example.com")
	t.Setenv("SESSIONGATE_STORAGE", "redis")
	t.Setenv("SESSIONGATE_REDIS_ADDR", "cache:6379")
	t.Setenv("SESSIONGATE_API_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"), DefaultConfig())
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.API.BaseURL != "https://auth.example.com" || cfg.Storage.Kind != StorageRedis || cfg.Storage.RedisAddr != "cache:6379" {
		t.Fatalf("env not applied: %+v %+v", cfg.API, cfg.Storage)
	}
	if cfg.API.Timeout != DefaultConfig().API.Timeout {
		t.Fatalf("unparsable env must keep the previous value, got %v", cfg.API.Timeout)
	}
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_uri: http://x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFile(path, DefaultConfig()); err == nil || !strings.Contains(err.Error(), "base_uri") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigFileInvalidAfterOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  kind: tape\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFile(path, DefaultConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Timeout = 7 * time.Second
	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadConfigFile(path, Config{})
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, data)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}
