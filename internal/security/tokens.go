// Package security inspects bearer tokens on the client side. Tokens are
// issued and signed by the backend; this package only reads the expiration
// claim and never verifies signatures.
package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiration decodes token as an unverified JWT and returns the instant
// its exp claim names. ok is false when no expiration is derivable: the token
// does not have three base64url segments, a segment does not decode, the
// payload is not JSON, or the exp claim is absent. Opaque non-JWT tokens are
// an expected input, so none of these cases is an error.
func TokenExpiration(token string) (expiresAt time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ResolveExpiration combines the token-embedded expiration and the
// server-declared lifetime into one authoritative instant. The token's own
// exp claim wins because it reflects the actual cryptographic validity
// window; expiresIn is a convenience field that may not match it. Returns nil
// when neither source yields an expiration.
func ResolveExpiration(token string, expiresIn time.Duration, now time.Time) *time.Time {
	if exp, ok := TokenExpiration(token); ok {
		return &exp
	}
	if expiresIn > 0 {
		exp := now.Add(expiresIn)
		return &exp
	}
	return nil
}
