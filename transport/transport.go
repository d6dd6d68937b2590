package transport

import (
	"context"

	"github.com/textlane/session-client/users"
)

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the signup payload.
type Registration struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=8"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// TokenPair is a freshly minted access/refresh credential pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is returned by Login and Register: the account plus a fresh
// token pair.
type LoginResult struct {
	User   users.User
	Tokens TokenPair
}

// RefreshResult carries the renewed access token and, when the backend
// rotates it, a replacement refresh token. A nil RefreshToken means the
// previous one stays in force.
type RefreshResult struct {
	AccessToken  string
	RefreshToken *string
}

// AuthTransport is the narrow slice of the backend the session controller
// depends on. Implementations classify failures into the AuthError /
// RefreshError / NetworkError taxonomy so the controller can decide
// between terminal logout and transient error surfacing.
type AuthTransport interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, reg Registration) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)
	CurrentUser(ctx context.Context, accessToken string) (*users.User, error)
	Logout(ctx context.Context, accessToken string) error
}
