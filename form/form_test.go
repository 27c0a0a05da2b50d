package form

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/deeptutor/sessiongate/authapi"
	"github.com/deeptutor/sessiongate/router"
	"github.com/deeptutor/sessiongate/session"
	"github.com/deeptutor/sessiongate/storage"
)

type fixture struct {
	form   *Form
	mem    *storage.Memory
	hook   *session.Hook
	router *router.Router
}

func newFixture(t *testing.T, h http.HandlerFunc) *fixture {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	api, err := authapi.New(srv.URL)
	if err != nil {
		t.Fatalf("authapi: %v", err)
	}
	mem := storage.NewMemory()
	r := router.New("/login")
	hook := session.NewHook(session.NewStore(mem), r, router.DefaultPaths())
	if err := hook.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return &fixture{form: New(api, hook), mem: mem, hook: hook, router: r}
}

func TestSignInPersistsTokenAndNavigatesHome(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("username") != "admin" || r.PostForm.Get("password") != "admin" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"access_token":"abc123","token_type":"bearer"}`)
	})

	fx.form.UseDemo()
	if got := fx.form.Submit(context.Background()); got != OutcomeSignedIn {
		t.Fatalf("outcome: %v (view %+v)", got, fx.form.View())
	}

	if v, _, _ := fx.mem.Load(context.Background(), session.DefaultKey); v != "abc123" {
		t.Fatalf("persisted token: %q", v)
	}
	if !fx.hook.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}
	if fx.router.Path() != "/" {
		t.Fatalf("expected protected root, at %s", fx.router.Path())
	}
	if v := fx.form.View(); v.Loading || v.Error != "" {
		t.Fatalf("view after sign-in: %+v", v)
	}
}

func TestSignInRejectedShowsDetailAndKeepsInputs(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Invalid credentials"}`)
	})

	fx.form.SetUsername("admin")
	fx.form.SetPassword("nope")
	if got := fx.form.Submit(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome: %v", got)
	}

	v := fx.form.View()
	if v.Error != "Invalid credentials" {
		t.Fatalf("error: %q", v.Error)
	}
	if v.Fields.Password != "nope" || v.Fields.Username != "admin" {
		t.Fatalf("inputs changed: %+v", v.Fields)
	}
	if v.Mode != ModeSignIn || v.Loading {
		t.Fatalf("view: %+v", v)
	}
	if fx.hook.IsAuthenticated() {
		t.Fatal("failed sign-in must not authenticate")
	}
}

func TestSignInFallbackWithoutDetail(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{}`)
	})
	fx.form.SetFields(Fields{Username: "x", Password: "y"})
	fx.form.Submit(context.Background())
	if got := fx.form.View().Error; got != MsgSignInFailed {
		t.Fatalf("error: %q", got)
	}
}

func TestServerDetailOverridesFallback(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Incorrect username or password"}`)
	})
	fx.form.SetFields(Fields{Username: "x", Password: "y"})
	fx.form.Submit(context.Background())
	if got := fx.form.View().Error; got != "Incorrect username or password" {
		t.Fatalf("error: %q", got)
	}
}

func TestRegisterSuccessSwitchesToSignIn(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/register" {
			t.Errorf("path: %s", r.URL.Path)
		}
		io.WriteString(w, `{"username":"bob"}`)
	})

	fx.form.SetMode(ModeRegister)
	fx.form.SetFields(Fields{Username: "bob", Password: "pw", Email: "bob@example.com", FullName: "Bob"})
	if got := fx.form.Submit(context.Background()); got != OutcomeRegistered {
		t.Fatalf("outcome: %v", got)
	}

	v := fx.form.View()
	want := Fields{Username: "bob", Password: "", Email: "bob@example.com", FullName: "Bob"}
	if v.Fields != want {
		t.Fatalf("fields: %+v", v.Fields)
	}
	if v.Mode != ModeSignIn || v.Success != MsgRegistered || v.Error != "" {
		t.Fatalf("view: %+v", v)
	}
	if fx.hook.IsAuthenticated() {
		t.Fatal("registration must not start a session")
	}
}

func TestRegisterFailureStaysInRegisterMode(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":[{"msg":"field required"}]}`)
	})
	fx.form.SetMode(ModeRegister)
	fx.form.SetFields(Fields{Username: "bob", Password: "pw"})
	if got := fx.form.Submit(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome: %v", got)
	}
	v := fx.form.View()
	if v.Mode != ModeRegister || v.Error != MsgRegisterFailed || v.Fields.Password != "pw" {
		t.Fatalf("view: %+v", v)
	}
}

func TestTransportFailureUsesGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	api, _ := authapi.New(url)
	f := New(api, session.NewHook(session.NewStore(storage.NewMemory()), router.New("/login"), router.DefaultPaths()))
	f.SetFields(Fields{Username: "a", Password: "b"})
	if got := f.Submit(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome: %v", got)
	}
	if got := f.View().Error; got != MsgGeneric {
		t.Fatalf("error: %q", got)
	}
}

func TestModeSwitchClearsMessages(t *testing.T) {
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	fx.form.SetFields(Fields{Username: "a", Password: "b"})
	fx.form.Submit(context.Background())
	if fx.form.View().Error == "" {
		t.Fatal("expected an error before toggling")
	}

	fx.form.ToggleMode()
	v := fx.form.View()
	if v.Mode != ModeRegister || v.Error != "" || v.Success != "" {
		t.Fatalf("after toggle: %+v", v)
	}
	if v.DemoAvailable || v.SubmitLabel != "Create Account" {
		t.Fatalf("register view: %+v", v)
	}
	fx.form.ToggleMode()
	if v := fx.form.View(); v.Mode != ModeSignIn || !v.DemoAvailable || v.SubmitLabel != "Sign In" {
		t.Fatalf("sign-in view: %+v", v)
	}
}

func TestMissingCredentialsSendNothing(t *testing.T) {
	calls := 0
	fx := newFixture(t, func(w http.ResponseWriter, r *http.Request) { calls++ })
	fx.form.SetUsername("admin")
	if got := fx.form.Submit(context.Background()); got != OutcomeInvalid {
		t.Fatalf("outcome: %v", got)
	}
	if calls != 0 {
		t.Fatalf("unexpected requests: %d", calls)
	}
	if fx.form.View().Error != MsgMissingCredentials {
		t.Fatalf("error: %q", fx.form.View().Error)
	}
}

type blockingExchanger struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingExchanger) RequestToken(ctx context.Context, u, p string) (authapi.Token, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	close(b.started)
	<-b.release
	return authapi.Token{}, &authapi.ServerError{Status: http.StatusUnauthorized}
}

func (b *blockingExchanger) Register(context.Context, authapi.Registration) error {
	return errors.New("unused")
}

type nopSession struct{}

func (nopSession) Login(context.Context, string) error { return nil }

func TestSubmitWhileLoadingIsIgnored(t *testing.T) {
	ex := &blockingExchanger{started: make(chan struct{}), release: make(chan struct{})}
	f := New(ex, nopSession{})
	f.SetFields(Fields{Username: "a", Password: "b"})

	done := make(chan Outcome, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-ex.started

	v := f.View()
	if !v.Loading || v.SubmitLabel != "Signing in..." {
		t.Fatalf("in-flight view: %+v", v)
	}
	if got := f.Submit(context.Background()); got != OutcomeIgnored {
		t.Fatalf("second submit: %v", got)
	}

	close(ex.release)
	if got := <-done; got != OutcomeFailed {
		t.Fatalf("first submit: %v", got)
	}
	if ex.calls != 1 {
		t.Fatalf("expected one request, got %d", ex.calls)
	}
	if f.View().Loading {
		t.Fatal("loading must clear after the request")
	}
}

type failingSession struct{}

func (failingSession) Login(context.Context, string) error { return errors.New("disk full") }

type tokenExchanger struct{}

func (tokenExchanger) RequestToken(context.Context, string, string) (authapi.Token, error) {
	return authapi.Token{AccessToken: "abc"}, nil
}
func (tokenExchanger) Register(context.Context, authapi.Registration) error { return nil }

func TestSessionFailureAfterTokenIsGeneric(t *testing.T) {
	var events []SubmitEvent
	f := New(tokenExchanger{}, failingSession{}, WithObserver(func(e SubmitEvent) { events = append(events, e) }))
	f.SetFields(Fields{Username: "a", Password: "b"})
	if got := f.Submit(context.Background()); got != OutcomeFailed {
		t.Fatalf("outcome: %v", got)
	}
	if f.View().Error != MsgGeneric {
		t.Fatalf("error: %q", f.View().Error)
	}
	if len(events) != 1 || events[0].Err == nil || events[0].Mode != ModeSignIn {
		t.Fatalf("events: %+v", events)
	}
}

func TestUseDemoDoesNotSubmit(t *testing.T) {
	f := New(tokenExchanger{}, nopSession{}, WithDemoCredentials("demo", "secret"))
	f.UseDemo()
	v := f.View()
	if v.Fields.Username != "demo" || v.Fields.Password != "secret" {
		t.Fatalf("fields: %+v", v.Fields)
	}
	if v.Loading || v.Success != "" || v.Error != "" {
		t.Fatalf("view: %+v", v)
	}
}

func TestWithoutDemo(t *testing.T) {
	f := New(tokenExchanger{}, nopSession{}, WithoutDemo())
	f.UseDemo()
	v := f.View()
	if v.DemoAvailable || v.Fields.Username != "" {
		t.Fatalf("view: %+v", v)
	}
}
