package session

import "errors"

var (
	ErrTransportRequired = errors.New("transport is required")
	ErrStoreRequired     = errors.New("token store is required")
	ErrNoRefreshToken    = errors.New("no refresh token")
	ErrClosed            = errors.New("session controller is closed")
)

// Messages surfaced through Snapshot.Error. Login and register failures
// carry the backend's own message instead, so forms can show it inline.
const (
	msgSessionExpired    = "Session expired, please sign in again"
	msgServerUnreachable = "Unable to reach the server, please try again"
	msgInvalidInput      = "Please provide a valid email and password"
)
