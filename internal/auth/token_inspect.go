package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what we expect inside the backend's access token.
// We never verify the signature here (the backend holds the key and is
// the only verifier); we only read the standard claims to avoid
// bootstrapping with a token that is already dead.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Expired reports whether the token carries an exp claim in the past.
// A token we cannot parse at all counts as expired: the profile fetch
// would be rejected anyway, so skip the round trip.
func Expired(tokenString string) bool {
	claims := &Claims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		// No expiry claim: let the backend decide.
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
