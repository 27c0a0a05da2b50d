// Command sessiongate signs in to a credential backend, keeps the bearer
// token on disk, and shows how the route guard treats a given path.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/deeptutor/sessiongate"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "login":
		err = cmdLogin(args)
	case "register":
		err = cmdRegister(args)
	case "logout":
		err = cmdLogout()
	case "status":
		err = cmdStatus()
	case "open":
		err = cmdOpen(args)
	case "whoami":
		err = cmdWhoami()
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("sessiongate %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`sessiongate - session gating for a credential backend

Usage:
  sessiongate <command> [arguments]

Session Commands:
  login [--demo] [-u user]   Exchange credentials for a token
  register -u user           Create an account, then sign in with login
  logout                     Forget the stored token
  status                     Show whether a token is stored
  whoami                     Ask the backend who the token belongs to

Routing Commands:
  open <path>                Show what the guard does at path

Other:
  config [path]              Show effective configuration or its file path
  help                       Show this help message
  version                    Show version information

Environment:
  SESSIONGATE_CONFIG         Config file (default ~/.sessiongate/config.yaml)
  SESSIONGATE_API_URL        Backend base URL (default http://localhost:8000)

Examples:
  sessiongate login --demo
  sessiongate open /settings
  sessiongate logout`)
}

func configPath() (string, error) {
	if p := os.Getenv("SESSIONGATE_CONFIG"); p != "" {
		return p, nil
	}
	return sessiongate.DefaultConfigPath()
}

// cliDefaults differ from the library defaults only in keeping the token on
// disk between invocations.
func cliDefaults() sessiongate.Config {
	cfg := sessiongate.DefaultConfig()
	cfg.Storage.Kind = sessiongate.StorageFile
	cfg.Log.Level = "warn"
	return cfg
}

func loadConfig() (sessiongate.Config, error) {
	path, err := configPath()
	if err != nil {
		return sessiongate.Config{}, err
	}
	return sessiongate.LoadConfigFile(path, cliDefaults())
}

// openGate builds and starts a gate positioned at initial. A storage read
// failure is reported as a warning; the gate still runs signed out.
func openGate(ctx context.Context, initial string) (*sessiongate.Gate, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if initial == "" {
		initial = cfg.Paths.Home
	}
	g, err := sessiongate.New().WithConfig(cfg).WithInitialPath(initial).Build()
	if err != nil {
		return nil, err
	}
	if err := g.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read stored session: %v\n", err)
	}
	return g, nil
}
