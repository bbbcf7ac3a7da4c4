package apiclient

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenSubject  = "admin-console"
	tokenLifetime = time.Minute
)

// tokenSigner mints a short-lived HS256 bearer token for each backend call.
type tokenSigner struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
}

func newTokenSigner(key, issuer, audience string) *tokenSigner {
	if key == "" {
		return nil
	}
	return &tokenSigner{key: []byte(key), issuer: issuer, audience: audience, now: time.Now}
}

func (s *tokenSigner) sign() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		ID:        uuid.New().String(),
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign backend token: %w", err)
	}
	return signed, nil
}
