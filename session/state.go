package session

import "github.com/textlane/session-client/users"

// State is the controller's lifecycle position. Refreshing is not a
// state of its own: a refresh in flight is tracked separately so the
// session stays Authenticated while tokens rotate underneath it.
type State int

const (
	StateUninitialized State = iota // Before Bootstrap has run
	StateLoading                    // Initial session determination in flight
	StateAuthenticated              // User and usable tokens present
	StateUnauthenticated            // No session
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Snapshot is the immutable view handed to consumers. The User pointer
// refers to a private copy, so holders cannot mutate controller state.
type Snapshot struct {
	State           State
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}
