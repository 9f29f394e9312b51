package itemgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type tokenClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. The secret is fixed
// at construction and never re-read.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. A ttl of zero issues tokens
// without an expiry claim.
func NewTokenService(secret []byte, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("new token service: secret cannot be empty")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("new token service: negative ttl %s", ttl)
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	return &TokenService{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token carrying claims.
func (s *TokenService) Issue(claims Claims) (string, error) {
	if claims.UID == "" {
		return "", fmt.Errorf("issue token: %w: uid is required", ErrInvalidInput)
	}

	now := s.now()
	registered := jwt.RegisteredClaims{
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		registered.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		UID:              claims.UID,
		Email:            claims.Email,
		RegisteredClaims: registered,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns its claims.
// Every failure wraps ErrInvalidToken.
func (s *TokenService) Verify(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, fmt.Errorf("verify token: %w: empty token", ErrInvalidToken)
	}

	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("verify token: %w: %v", ErrInvalidToken, err)
	}

	if claims.UID == "" {
		return Claims{}, fmt.Errorf("verify token: %w: missing uid claim", ErrInvalidToken)
	}

	return Claims{UID: claims.UID, Email: claims.Email}, nil
}
