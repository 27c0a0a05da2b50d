package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newRedisBackend(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	backend, err := NewRedis(rdb, "sg", "client-1")
	if err != nil {
		t.Fatalf("new redis backend: %v", err)
	}
	return backend, mr
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "nested", "session.json"))
	if err != nil {
		t.Fatalf("new file backend: %v", err)
	}
	rb, _ := newRedisBackend(t)
	return map[string]Backend{
		"memory": NewMemory(),
		"file":   file,
		"redis":  rb,
	}
}

func TestBackendLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := b.Load(ctx, "token"); err != nil || found {
				t.Fatalf("empty load: found=%v err=%v", found, err)
			}
			if err := b.Save(ctx, "token", "abc123"); err != nil {
				t.Fatalf("save: %v", err)
			}
			v, found, err := b.Load(ctx, "token")
			if err != nil || !found || v != "abc123" {
				t.Fatalf("load after save: v=%q found=%v err=%v", v, found, err)
			}
			if err := b.Clear(ctx, "token"); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if err := b.Clear(ctx, "token"); err != nil {
				t.Fatalf("second clear: %v", err)
			}
			if _, found, _ := b.Load(ctx, "token"); found {
				t.Fatal("expected value cleared")
			}
		})
	}
}

func TestBackendRejectsEmptyKey(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := b.Save(ctx, "", "x"); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
			if _, _, err := b.Load(ctx, ""); !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first, _ := NewFile(path)
	if err := first.Save(ctx, "token", "persisted"); err != nil {
		t.Fatalf("save: %v", err)
	}
	instance, err := first.Instance()
	if err != nil || instance == "" {
		t.Fatalf("instance: %q err=%v", instance, err)
	}

	second, _ := NewFile(path)
	v, found, err := second.Load(ctx, "token")
	if err != nil || !found || v != "persisted" {
		t.Fatalf("reopened load: v=%q found=%v err=%v", v, found, err)
	}
	if again, _ := second.Instance(); again != instance {
		t.Fatalf("instance changed across reopen: %q != %q", again, instance)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
}

func TestFileCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, _ := NewFile(path)
	if _, _, err := f.Load(context.Background(), "token"); !errors.Is(err, ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestFileSaveReplacesCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	log, hook := test.NewNullLogger()
	f, _ := NewFile(path, WithFileLogger(log))

	if err := f.Save(ctx, "token", "abc123"); err != nil {
		t.Fatalf("save over corrupt document: %v", err)
	}
	v, ok, err := f.Load(ctx, "token")
	if err != nil || !ok || v != "abc123" {
		t.Fatalf("load after save = %q, %v, %v", v, ok, err)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning for the replaced document, got %+v", entry)
	}
}

func TestFileClearReplacesCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, _ := NewFile(path)

	if err := f.Clear(ctx, "token"); err != nil {
		t.Fatalf("clear over corrupt document: %v", err)
	}
	if _, ok, err := f.Load(ctx, "token"); ok || err != nil {
		t.Fatalf("load after clear: ok=%v err=%v", ok, err)
	}
}

func TestRedisKeyNamespacing(t *testing.T) {
	b, mr := newRedisBackend(t)
	if err := b.Save(context.Background(), "token", "abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := mr.Get("sg:client-1:token")
	if err != nil || got != "abc" {
		t.Fatalf("raw key: %q err=%v", got, err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	b, mr := newRedisBackend(t)
	mr.Close()
	if _, _, err := b.Load(context.Background(), "token"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestNewRedisValidation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	if _, err := NewRedis(nil, "sg", "x"); err == nil {
		t.Fatal("expected nil client error")
	}
	if _, err := NewRedis(rdb, "", "x"); err == nil {
		t.Fatal("expected empty prefix error")
	}
	if _, err := NewRedis(rdb, "sg", "a:b"); err == nil {
		t.Fatal("expected invalid instance error")
	}
}
