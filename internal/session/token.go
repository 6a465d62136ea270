package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of a bearer token without verifying its
// signature. The dashboard never holds the signing key; the backend remains
// the authority and answers 401 for tokens it rejects.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}

// TokenState describes what the session watcher should do with the token
type TokenState int

const (
	TokenMissing TokenState = iota
	TokenValid
	TokenExpiring
	TokenExpired
	// TokenOpaque is a token that is not a JWT; it stays valid until the
	// backend answers 401.
	TokenOpaque
)

func (s TokenState) String() string {
	switch s {
	case TokenMissing:
		return "missing"
	case TokenValid:
		return "valid"
	case TokenExpiring:
		return "expiring"
	case TokenExpired:
		return "expired"
	case TokenOpaque:
		return "opaque"
	}
	return "unknown"
}

// CheckToken classifies the current token at now. Tokens expiring within
// window are TokenExpiring.
func (s *Store) CheckToken(now time.Time, window time.Duration) TokenState {
	token := s.Token()
	if token == "" {
		return TokenMissing
	}
	exp, err := TokenExpiry(token)
	if err != nil || exp.IsZero() {
		return TokenOpaque
	}
	switch {
	case !now.Before(exp):
		return TokenExpired
	case exp.Sub(now) <= window:
		return TokenExpiring
	default:
		return TokenValid
	}
}
