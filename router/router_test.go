package router

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":              "/",
		"/":             "/",
		"/login/":       "/login",
		"login":         "/login",
		"/a/b//":        "/a/b",
		"/login?next=/": "/login",
		"/x#frag":       "/x",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPathsIsLogin(t *testing.T) {
	p := DefaultPaths()
	if !p.IsLogin("/login/") || !p.IsLogin("/login?x=1") {
		t.Fatal("expected login path variants to match")
	}
	if p.IsLogin("/") || p.IsLogin("/loginx") {
		t.Fatal("expected non-login paths not to match")
	}
}

func TestRedirectToCurrentPathIsNoop(t *testing.T) {
	r := New("/")
	calls := 0
	r.Subscribe(func(string) { calls++ })

	r.Redirect("/")
	r.Redirect("")
	if calls != 0 {
		t.Fatalf("expected no notifications, got %d", calls)
	}
	if got := r.History(); !reflect.DeepEqual(got, []string{"/"}) {
		t.Fatalf("history: %v", got)
	}
}

func TestReentrantRedirectIsQueued(t *testing.T) {
	r := New("/")
	var seen []string
	depth := 0
	r.Subscribe(func(path string) {
		depth++
		if depth > 1 {
			t.Fatal("listener re-entered")
		}
		seen = append(seen, path)
		if path == "/a" {
			r.Redirect("/b")
		}
		depth--
	})

	r.Navigate("/a")

	if !reflect.DeepEqual(seen, []string{"/a", "/b"}) {
		t.Fatalf("seen: %v", seen)
	}
	if r.Path() != "/b" {
		t.Fatalf("path: %s", r.Path())
	}
}

func TestSubscribeCancel(t *testing.T) {
	r := New("/")
	calls := 0
	cancel := r.Subscribe(func(string) { calls++ })
	r.Navigate("/a")
	cancel()
	cancel()
	r.Navigate("/b")
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	var nav Navigator = NavigatorFunc(func(p string) { got = p })
	nav.Redirect("/login")
	if got != "/login" {
		t.Fatalf("got %q", got)
	}
}
