package session

// Snapshot is a point-in-time view of a Store. An empty Token means no
// session.
type Snapshot struct {
	Token       string
	Initialized bool
}

// Present reports whether the snapshot carries a token.
func (s Snapshot) Present() bool {
	return s.Token != ""
}

// AuthState is the derived view consumed by route gating.
type AuthState struct {
	IsAuthenticated bool
	Initialized     bool
}

// State derives the AuthState of a snapshot.
func (s Snapshot) State() AuthState {
	return AuthState{
		IsAuthenticated: s.Present(),
		Initialized:     s.Initialized,
	}
}

// EventKind classifies session lifecycle events.
type EventKind string

const (
	EventInitialized EventKind = "session.initialized"
	EventLogin       EventKind = "session.login"
	EventLogout      EventKind = "session.logout"
)

// Event is reported to an Observer after each lifecycle transition. Err is
// set when the storage operation behind the transition failed.
type Event struct {
	Kind  EventKind
	Found bool
	Err   error
}

// Observer receives lifecycle events. It is called synchronously and must not
// block.
type Observer func(Event)
