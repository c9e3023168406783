// Package identity turns a bearer credential into an authenticated user with
// a resolved subscription tier. Token verification and profile storage are
// external; this package only orchestrates them.
package identity

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMissingCredential means no usable "Bearer <token>" header was sent
	ErrMissingCredential = errors.New("missing or malformed credential")

	// ErrInvalidCredential means the identity service rejected the token
	ErrInvalidCredential = errors.New("invalid or expired credential")

	// ErrProfileLookup is returned under the strict profile policy when the
	// profile store fails for a reason other than a missing row
	ErrProfileLookup = errors.New("profile lookup failed")
)

// Identity is what a verifier knows about a token's subject
type Identity struct {
	UserID string
	Email  string
}

// Verifier validates an access token against an identity provider
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value.
// It reports false for absent headers, other schemes and empty or
// space-containing tokens.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// maskToken returns the first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
