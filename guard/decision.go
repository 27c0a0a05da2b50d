package guard

import (
	"github.com/deeptutor/sessiongate/router"
	"github.com/deeptutor/sessiongate/session"
)

// State is the gate's rendering state.
type State uint8

const (
	Checking State = iota
	Redirecting
	RenderProtected
	RenderLogin
)

func (s State) String() string {
	switch s {
	case Checking:
		return "CHECKING"
	case Redirecting:
		return "REDIRECTING"
	case RenderProtected:
		return "RENDER_PROTECTED"
	case RenderLogin:
		return "RENDER_LOGIN"
	default:
		return "UNKNOWN"
	}
}

// Input is one evaluation's view of the world.
type Input struct {
	Initialized     bool
	IsAuthenticated bool
	Path            string
}

// InputFrom combines an AuthState with a path.
func InputFrom(state session.AuthState, path string) Input {
	return Input{
		Initialized:     state.Initialized,
		IsAuthenticated: state.IsAuthenticated,
		Path:            path,
	}
}

// Decision is the outcome of an evaluation. RedirectTo is set only in the
// Redirecting state.
type Decision struct {
	State      State
	RedirectTo string
}

// RendersChildren reports whether the guarded content is shown.
func (d Decision) RendersChildren() bool {
	return d.State == RenderProtected || d.State == RenderLogin
}

// ShowsLoading reports whether the loading indicator is shown instead.
func (d Decision) ShowsLoading() bool {
	return !d.RendersChildren()
}

// Evaluate applies the decision table. It has no side effects.
func Evaluate(in Input, paths router.Paths) Decision {
	onLogin := paths.IsLogin(in.Path)

	switch {
	case !in.Initialized:
		return Decision{State: Checking}
	case !in.IsAuthenticated && !onLogin:
		return Decision{State: Redirecting, RedirectTo: router.Normalize(paths.Login)}
	case in.IsAuthenticated && onLogin:
		return Decision{State: Redirecting, RedirectTo: router.Normalize(paths.Home)}
	case !in.IsAuthenticated:
		return Decision{State: RenderLogin}
	default:
		return Decision{State: RenderProtected}
	}
}
