package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deeptutor/sessiongate"
	"github.com/deeptutor/sessiongate/authapi"
	"github.com/deeptutor/sessiongate/guard"
	"github.com/deeptutor/sessiongate/jwt"
)

func cmdStatus() error {
	ctx := context.Background()
	g, err := openGate(ctx, "")
	if err != nil {
		return err
	}
	defer g.Close()

	cfg := g.Config()
	fmt.Printf("Backend:  %s\n", cfg.API.BaseURL)
	fmt.Printf("Storage:  %s\n", describeStorage(cfg.Storage))

	token := g.Session().Token()
	if token == "" {
		fmt.Println("Session:  signed out")
		return nil
	}
	fmt.Printf("Session:  signed in (token %s)\n", preview(token))
	if claims, err := jwt.PeekUnverified(token); err == nil && claims.ExpiresAt != nil {
		left := time.Until(claims.ExpiresAt.Time).Round(time.Second)
		if left > 0 {
			fmt.Printf("Expires:  in %s (not checked by the client)\n", left)
		} else {
			fmt.Printf("Expires:  %s ago (not checked by the client)\n", -left)
		}
	}
	return nil
}

func cmdOpen(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: sessiongate open <path>")
	}

	ctx := context.Background()
	// Start at the requested path so the guard sees it first, the way a
	// browser opening a deep link would.
	g, err := openGate(ctx, args[0])
	if err != nil {
		return err
	}
	defer g.Close()

	d := g.Guard().Current()
	hist := g.Router().History()
	if len(hist) > 1 {
		fmt.Printf("%s -> %s\n", hist[0], hist[len(hist)-1])
	}
	switch d.State {
	case guard.RenderProtected:
		fmt.Printf("%s: protected content\n", g.Router().Path())
	case guard.RenderLogin:
		fmt.Printf("%s: sign-in page\n", g.Router().Path())
	default:
		fmt.Printf("%s: %s\n", g.Router().Path(), d.State)
	}
	return nil
}

func cmdWhoami() error {
	ctx := context.Background()
	g, err := openGate(ctx, "")
	if err != nil {
		return err
	}
	defer g.Close()

	user, err := g.CurrentUser(ctx)
	switch {
	case errors.Is(err, sessiongate.ErrNotAuthenticated):
		return errors.New("not signed in (run 'sessiongate login' first)")
	case err != nil:
		if detail, ok := authapi.Detail(err); ok {
			return fmt.Errorf("backend refused the stored token: %s", detail)
		}
		return err
	}

	fmt.Printf("Username: %s\n", user.Username)
	if user.FullName != "" {
		fmt.Printf("Name:     %s\n", user.FullName)
	}
	if user.Email != "" {
		fmt.Printf("Email:    %s\n", user.Email)
	}
	fmt.Printf("Role:     %s\n", user.Role)
	return nil
}

func cmdConfig(args []string) error {
	if len(args) > 0 && args[0] == "path" {
		path, err := configPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func describeStorage(sc sessiongate.StorageConfig) string {
	switch sc.Kind {
	case sessiongate.StorageFile:
		path := sc.Path
		if path == "" {
			path, _ = sessiongate.DefaultStoragePath()
		}
		return "file " + path
	case sessiongate.StorageRedis:
		return fmt.Sprintf("redis %s (%s:%s)", sc.RedisAddr, sc.RedisPrefix, sc.Instance)
	default:
		return string(sc.Kind)
	}
}

func preview(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
