package router

import "strings"

// Navigator is the navigation side channel. Redirect requests a move to path
// and returns without waiting for the move to complete.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) { f(path) }

// Paths names the two distinguished routes. Every path other than Login is
// protected.
type Paths struct {
	Login string `yaml:"login"`
	Home  string `yaml:"home"`
}

// DefaultPaths returns "/login" and "/".
func DefaultPaths() Paths {
	return Paths{Login: "/login", Home: "/"}
}

// IsLogin reports whether path is the login route.
func (p Paths) IsLogin(path string) bool {
	return Normalize(path) == Normalize(p.Login)
}

// Normalize strips query and fragment, maps "" to "/", and drops a trailing
// slash on anything but the root.
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
