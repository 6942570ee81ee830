package meroshare

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry inspects the session token's JWT claims and returns its
// expiry time. The token is parsed without signature verification: we are
// not the issuer, we only want to warn before spending a full browser
// session on a token the backend will reject anyway.
//
// The zero time with a nil error means the token carries no expiry claim.
func TokenExpiry(token string) (time.Time, error) {
	// Session storage holds the raw compact JWT, sometimes with a
	// "Bearer " prefix depending on the frontend version.
	raw := strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing session token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("reading expiry claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
