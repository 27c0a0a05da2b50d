package sessiongate

import "errors"

var (
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("sessiongate: invalid config")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("sessiongate: builder already used")
	// ErrNotStarted is returned by operations that need Start first.
	ErrNotStarted = errors.New("sessiongate: gate not started")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sessiongate: gate closed")
	// ErrNotAuthenticated is returned when an operation needs a token and
	// none is present.
	ErrNotAuthenticated = errors.New("sessiongate: not authenticated")
)
