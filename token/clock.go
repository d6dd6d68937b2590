package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultRefreshMargin is the safety window before actual expiry during
// which a token is treated as due for renewal. It is deliberately longer
// than the background refresh interval so renewal always happens before
// the token lapses.
const DefaultRefreshMargin = 15 * time.Minute

// Status classifies an access token's temporal validity.
type Status int

const (
	StatusValid        Status = iota // Usable well past the refresh margin
	StatusExpiringSoon               // Usable now but due for renewal
	StatusExpired                    // Expiry has passed
	StatusMalformed                  // Undecodable or missing an exp claim
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpiringSoon:
		return "expiring_soon"
	case StatusExpired:
		return "expired"
	case StatusMalformed:
		return "malformed"
	}
	return "unknown"
}

// Usable reports whether a token with this status can still authorize a
// request right now. Expiring-soon tokens are usable; expired and
// malformed ones are not.
func (s Status) Usable() bool {
	return s == StatusValid || s == StatusExpiringSoon
}

// Classify decodes the token's exp claim and buckets it relative to now.
// Malformed tokens and tokens without an expiry are reported as
// StatusMalformed, which callers treat the same as expired. No signature
// verification happens here: the backend is the authority on validity,
// the client only decides when to renew.
func Classify(raw string, now time.Time, margin time.Duration) Status {
	exp, err := ExpiryOf(raw)
	if err != nil {
		return StatusMalformed
	}
	switch {
	case !exp.After(now):
		return StatusExpired
	case !exp.After(now.Add(margin)):
		return StatusExpiringSoon
	}
	return StatusValid
}

// ExpiryOf extracts the exp claim from a raw JWT without verifying the
// signature.
func ExpiryOf(raw string) (time.Time, error) {
	unverified, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, errors.Wrap(err, "[ExpiryOf] failed to parse token")
	}

	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return time.Time{}, errors.New("[ExpiryOf] error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, errors.New("[ExpiryOf] token missing exp claim")
	}

	return time.Unix(int64(exp), 0), nil
}
