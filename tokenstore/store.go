package tokenstore

// Tokens is the persisted credential pair. Both fields are written and
// cleared together; there is never a state where only one survives.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether no credentials are held at all.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Store persists the token pair across restarts of the client process.
// Implementations fail open: an unreadable or corrupt medium loads as an
// empty pair so the session falls back to logged-out rather than erroring.
type Store interface {
	Load() (Tokens, error)
	Save(tokens Tokens) error
	Clear() error
}
