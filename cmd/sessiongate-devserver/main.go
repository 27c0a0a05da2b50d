// Command sessiongate-devserver runs the local credential backend the client
// signs in against: token, register and users/me endpoints on one port.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/deeptutor/sessiongate/internal/devserver"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML file overlaying the default backend config")
		addr       = flag.String("addr", "", "listen address (default :8000)")
		redisAddr  = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		noSeed     = flag.Bool("no-seed", false, "do not create admin/admin on an empty store")
		logLevel   = flag.String("log-level", "info", "log level")
		logJSON    = flag.Bool("log-json", false, "log as JSON")
	)
	flag.Parse()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(lvl)
	}
	if *logJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *noSeed {
		cfg.SeedAdmin = false
	}

	rdb, cleanup, err := connectRedis(*redisAddr, log)
	if err != nil {
		log.WithError(err).Fatal("redis")
	}
	defer cleanup()

	srv, err := devserver.New(rdb, cfg, devserver.WithLogger(log))
	if err != nil {
		log.WithError(err).Fatal("build backend")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		log.WithError(err).Error("backend stopped")
		cleanup()
		os.Exit(1)
	}
	log.Info("backend stopped")
}

func loadConfig(path string) (devserver.Config, error) {
	cfg := devserver.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// connectRedis prefers an explicit address, then REDIS_ADDR, and otherwise
// starts an in-process miniredis so the backend runs with no setup.
func connectRedis(addr string, log logrus.FieldLogger) (*redis.Client, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping %s: %w", addr, err)
		}
		log.WithField("addr", addr).Info("using redis")
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log.WithField("addr", mr.Addr()).Info("using miniredis; data is lost on exit")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}
