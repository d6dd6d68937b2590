package transport

import (
	"errors"
	"fmt"
)

// AuthError is a definitive rejection from the backend (4xx): bad
// credentials, revoked access, unknown account. Retrying the same request
// cannot succeed.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// RefreshError means the refresh token itself was rejected as invalid,
// expired, or revoked. Always terminal: the controller logs the session
// out and never retries.
type RefreshError struct {
	Message string
}

func (e *RefreshError) Error() string {
	return e.Message
}

// NetworkError wraps a transport-level failure where no usable response
// arrived (connection refused, timeout, 5xx, undecodable body). The
// session survives these.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRefreshError reports whether err is (or wraps) a RefreshError.
func IsRefreshError(err error) bool {
	var refreshErr *RefreshError
	return errors.As(err, &refreshErr)
}

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
