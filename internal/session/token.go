package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LamboYu/codever/internal/apperrors"
)

var ErrTokenExpired = apperrors.New(apperrors.KindUnauthorized, "token expired")

// tokenExpiry reads the exp claim of a JWT access token. The signature is not
// checked here; the API does that on every call. Opaque tokens and tokens
// without exp report a zero time.
func tokenExpiry(token string) (time.Time, error) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.KindInvalidInput, "malformed token", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.KindInvalidInput, "malformed token", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time.UTC(), nil
}

// Expired reports whether the token behind r has expired at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
