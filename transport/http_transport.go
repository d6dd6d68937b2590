package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/textlane/session-client/users"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	refreshPath  = "/auth/refresh-token"
	mePath       = "/auth/me"
	logoutPath   = "/auth/logout"

	defaultTimeout = 30 * time.Second
)

var _ AuthTransport = (*HTTPTransport)(nil)

// HTTPTransport implements AuthTransport against the REST backend.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	logger  *zerolog.Logger
}

// HTTPTransportOption modifies an HTTPTransport during construction.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithTimeout sets the per-request timeout on the default client.
func WithTimeout(timeout time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = timeout
	}
}

// WithTransportLogger sets the logger used for request tracing.
func WithTransportLogger(logger *zerolog.Logger) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport creates a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, options ...HTTPTransportOption) *HTTPTransport {
	nop := zerolog.Nop()
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  &nop,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Wire shapes. Token fields are snake_case per the backend contract.
type authResponse struct {
	User         users.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Login exchanges credentials for a user record and a fresh token pair.
func (t *HTTPTransport) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	var resp authResponse
	if err := t.do(ctx, http.MethodPost, loginPath, "", creds, &resp); err != nil {
		return nil, err
	}
	return &LoginResult{
		User:   resp.User,
		Tokens: TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
	}, nil
}

// Register creates an account and returns the same shape as Login.
func (t *HTTPTransport) Register(ctx context.Context, reg Registration) (*LoginResult, error) {
	var resp authResponse
	if err := t.do(ctx, http.MethodPost, registerPath, "", reg, &resp); err != nil {
		return nil, err
	}
	return &LoginResult{
		User:   resp.User,
		Tokens: TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
	}, nil
}

// Refresh exchanges the refresh token for a new access token. Any response
// from the backend that rejects the exchange is a RefreshError; only a
// transport-level failure where the backend never answered stays a
// NetworkError, since the refresh token may still be good.
func (t *HTTPTransport) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var resp refreshResponse
	err := t.do(ctx, http.MethodPost, refreshPath, "", refreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		if IsNetworkError(err) {
			return nil, err
		}
		return nil, &RefreshError{Message: err.Error()}
	}
	return &RefreshResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// CurrentUser fetches the account behind the access token.
func (t *HTTPTransport) CurrentUser(ctx context.Context, accessToken string) (*users.User, error) {
	var user users.User
	if err := t.do(ctx, http.MethodGet, mePath, accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout invalidates the access token server-side. Callers treat failures
// as best-effort; the error is returned for logging only.
func (t *HTTPTransport) Logout(ctx context.Context, accessToken string) error {
	return t.do(ctx, http.MethodPost, logoutPath, accessToken, nil, nil)
}

func (t *HTTPTransport) do(ctx context.Context, method, path, accessToken string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[HTTPTransport.do] marshal request body")
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "[HTTPTransport.do] build request")
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	t.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Msg("auth request")

	resp, err := t.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return &NetworkError{Err: errors.Errorf("server error: %s", resp.Status)}
	case resp.StatusCode >= 400:
		return &AuthError{Status: resp.StatusCode, Message: t.errorMessage(resp)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Err: errors.Wrap(err, "decode response body")}
	}
	return nil
}

// errorMessage pulls a human-readable message out of an error body,
// falling back to the HTTP status text.
func (t *HTTPTransport) errorMessage(resp *http.Response) string {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}
