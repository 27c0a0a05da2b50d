package form

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/deeptutor/sessiongate/authapi"
	"github.com/sirupsen/logrus"
)

// Messages shown by the form.
const (
	MsgSignInFailed       = "Invalid credentials"
	MsgRegisterFailed     = "Registration failed"
	MsgGeneric            = "Something went wrong"
	MsgRegistered         = "Registration successful! Please sign in."
	MsgMissingCredentials = "Username and password are required"
)

// Mode selects the form's action.
type Mode uint8

const (
	ModeSignIn Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "sign-in"
}

// Outcome is the result of one Submit call.
type Outcome uint8

const (
	// OutcomeIgnored means a request was already in flight; nothing was sent.
	OutcomeIgnored Outcome = iota
	// OutcomeInvalid means a required field was empty; nothing was sent.
	OutcomeInvalid
	OutcomeSignedIn
	OutcomeRegistered
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeSignedIn:
		return "signed-in"
	case OutcomeRegistered:
		return "registered"
	default:
		return "failed"
	}
}

// Fields holds the form inputs. Email and FullName are only sent in register
// mode.
type Fields struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Exchanger performs the credential requests.
type Exchanger interface {
	RequestToken(ctx context.Context, username, password string) (authapi.Token, error)
	Register(ctx context.Context, r authapi.Registration) error
}

// SessionStarter receives the token after a successful sign-in.
type SessionStarter interface {
	Login(ctx context.Context, token string) error
}

// SubmitEvent is reported to an observer after every Submit call, including
// ones rejected before a request was sent.
type SubmitEvent struct {
	Mode    Mode
	Outcome Outcome
	Err     error
	Elapsed time.Duration
}

// View is a render-ready snapshot of the form.
type View struct {
	Mode          Mode
	Fields        Fields
	Error         string
	Success       string
	Loading       bool
	SubmitLabel   string
	DemoAvailable bool
}

// Form is the credential form. It is safe for concurrent use.
type Form struct {
	api      Exchanger
	session  SessionStarter
	log      logrus.FieldLogger
	demo     Fields
	noDemo   bool
	observer func(SubmitEvent)

	mu      sync.Mutex
	mode    Mode
	fields  Fields
	err     string
	success string
	loading bool
}

// Option configures a Form.
type Option func(*Form)

// WithDemoCredentials sets the credentials UseDemo fills in.
func WithDemoCredentials(username, password string) Option {
	return func(f *Form) {
		f.demo = Fields{Username: username, Password: password}
	}
}

// WithoutDemo hides the demo shortcut; UseDemo becomes a no-op.
func WithoutDemo() Option {
	return func(f *Form) { f.noDemo = true }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(f *Form) {
		if log != nil {
			f.log = log
		}
	}
}

// WithObserver installs a callback for completed submissions.
func WithObserver(fn func(SubmitEvent)) Option {
	return func(f *Form) { f.observer = fn }
}

// New returns an empty form in sign-in mode.
func New(api Exchanger, session SessionStarter, opts ...Option) *Form {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	f := &Form{
		api:     api,
		session: session,
		log:     discard,
		demo:    Fields{Username: "admin", Password: "admin"},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// View returns the current form state.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		Mode:          f.mode,
		Fields:        f.fields,
		Error:         f.err,
		Success:       f.success,
		Loading:       f.loading,
		SubmitLabel:   submitLabel(f.mode, f.loading),
		DemoAvailable: f.mode == ModeSignIn && !f.noDemo,
	}
}

func submitLabel(m Mode, loading bool) string {
	switch {
	case m == ModeSignIn && loading:
		return "Signing in..."
	case m == ModeSignIn:
		return "Sign In"
	case loading:
		return "Creating account..."
	default:
		return "Create Account"
	}
}

// SetMode switches mode and clears both messages, even when m is already the
// current mode.
func (f *Form) SetMode(m Mode) {
	f.mu.Lock()
	f.mode = m
	f.err, f.success = "", ""
	f.mu.Unlock()
}

// ToggleMode flips between sign-in and register.
func (f *Form) ToggleMode() {
	f.mu.Lock()
	next := ModeRegister
	if f.mode == ModeRegister {
		next = ModeSignIn
	}
	f.mu.Unlock()
	f.SetMode(next)
}

func (f *Form) SetUsername(v string) { f.update(func(x *Fields) { x.Username = v }) }
func (f *Form) SetPassword(v string) { f.update(func(x *Fields) { x.Password = v }) }
func (f *Form) SetEmail(v string)    { f.update(func(x *Fields) { x.Email = v }) }
func (f *Form) SetFullName(v string) { f.update(func(x *Fields) { x.FullName = v }) }

// SetFields replaces all inputs.
func (f *Form) SetFields(v Fields) { f.update(func(x *Fields) { *x = v }) }

// UseDemo fills the demo username and password without submitting.
func (f *Form) UseDemo() {
	if f.noDemo {
		return
	}
	f.update(func(x *Fields) {
		x.Username = f.demo.Username
		x.Password = f.demo.Password
	})
}

func (f *Form) update(fn func(*Fields)) {
	f.mu.Lock()
	fn(&f.fields)
	f.mu.Unlock()
}

// Submit sends the request for the current mode. It returns OutcomeIgnored
// without sending anything while another submission is loading.
func (f *Form) Submit(ctx context.Context) Outcome {
	f.mu.Lock()
	if f.loading {
		mode := f.mode
		f.mu.Unlock()
		f.report(SubmitEvent{Mode: mode, Outcome: OutcomeIgnored})
		return OutcomeIgnored
	}
	mode, fields := f.mode, f.fields
	f.err, f.success = "", ""
	if fields.Username == "" || fields.Password == "" {
		f.err = MsgMissingCredentials
		f.mu.Unlock()
		f.report(SubmitEvent{Mode: mode, Outcome: OutcomeInvalid})
		return OutcomeInvalid
	}
	f.loading = true
	f.mu.Unlock()

	start := time.Now()
	var (
		outcome Outcome
		err     error
	)
	if mode == ModeSignIn {
		outcome, err = f.signIn(ctx, fields)
	} else {
		outcome, err = f.register(ctx, fields)
	}

	log := f.log.WithFields(logrus.Fields{"mode": mode.String(), "outcome": outcome.String()})
	if err != nil {
		log.WithError(err).Info("credential submission failed")
	} else {
		log.Debug("credential submission completed")
	}
	f.report(SubmitEvent{Mode: mode, Outcome: outcome, Err: err, Elapsed: time.Since(start)})
	return outcome
}

func (f *Form) report(e SubmitEvent) {
	if f.observer != nil {
		f.observer(e)
	}
}

func (f *Form) signIn(ctx context.Context, fields Fields) (Outcome, error) {
	tok, err := f.api.RequestToken(ctx, fields.Username, fields.Password)
	if err == nil {
		err = f.session.Login(ctx, tok.AccessToken)
		if err != nil {
			f.finish(func() { f.err = MsgGeneric })
			return OutcomeFailed, err
		}
		f.finish(nil)
		return OutcomeSignedIn, nil
	}

	msg := failureMessage(err, MsgSignInFailed)
	f.finish(func() { f.err = msg })
	return OutcomeFailed, err
}

func (f *Form) register(ctx context.Context, fields Fields) (Outcome, error) {
	err := f.api.Register(ctx, authapi.Registration{
		Username: fields.Username,
		Password: fields.Password,
		Email:    fields.Email,
		FullName: fields.FullName,
	})
	if err != nil {
		msg := failureMessage(err, MsgRegisterFailed)
		f.finish(func() { f.err = msg })
		return OutcomeFailed, err
	}

	f.finish(func() {
		f.success = MsgRegistered
		f.mode = ModeSignIn
		f.fields.Password = ""
	})
	return OutcomeRegistered, nil
}

// finish applies the result and clears the loading flag in one step.
func (f *Form) finish(apply func()) {
	f.mu.Lock()
	if apply != nil {
		apply()
	}
	f.loading = false
	f.mu.Unlock()
}

// failureMessage prefers the server's detail, then the flow's fallback for a
// server rejection, then the generic message.
func failureMessage(err error, fallback string) string {
	if d, ok := authapi.Detail(err); ok {
		return d
	}
	var se *authapi.ServerError
	if errors.As(err, &se) {
		return fallback
	}
	return MsgGeneric
}
