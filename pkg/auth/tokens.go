// Package auth mints and verifies the HS256 access tokens callers present as bearer
// credentials.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

var (
	ErrNotConfigured = errors.New("jwt secret and issuer are required")
	signingMethod    = jwt.SigningMethodHS256
)

// Claims is the token body. The subject repeats the user id for generic JWT tooling.
type Claims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == enums.UserRoleAdmin
}

// Tokens signs and checks tokens for one issuer.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

func (t *Tokens) configured() error {
	if len(t.secret) == 0 || t.issuer == "" {
		return ErrNotConfigured
	}
	return nil
}

// Mint issues a token for userID valid from now for the configured lifetime.
func (t *Tokens) Mint(now time.Time, userID uuid.UUID, role enums.UserRole) (string, error) {
	if err := t.configured(); err != nil {
		return "", err
	}
	switch {
	case t.ttl <= 0:
		return "", errors.New("jwt expiration must be positive")
	case userID == uuid.Nil:
		return "", errors.New("user id is required")
	case !role.IsValid():
		return "", fmt.Errorf("invalid user role %q", role)
	}
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry, then the claims this service depends on.
func (t *Tokens) Verify(raw string) (*Claims, error) {
	if err := t.configured(); err != nil {
		return nil, err
	}
	claims := &Claims{}
	if _, err := t.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("token missing user_id")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("invalid user role %q", claims.Role)
	}
	return claims, nil
}
