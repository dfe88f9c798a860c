package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/profilemedia-backend/pkg/config"
	"github.com/angelmondragon/profilemedia-backend/pkg/enums"
)

var testTokens = NewTokens(config.JWTConfig{Secret: "secret", Issuer: "profilemedia", ExpirationMinutes: 30})

func mustMint(t *testing.T, tokens *Tokens, now time.Time, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	raw, err := tokens.Mint(now, userID, role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return raw
}

func mustSign(t *testing.T, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestMintThenVerify(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	raw := mustMint(t, testTokens, now, userID, enums.UserRoleAdmin)
	claims, err := testTokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != userID || claims.Subject != userID.String() {
		t.Fatalf("unexpected subject %s / %s", claims.UserID, claims.Subject)
	}
	if !claims.IsAdmin() {
		t.Fatal("expected admin role to survive the round trip")
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
	want := now.Add(30 * time.Minute)
	if diff := claims.ExpiresAt.Time.Sub(want); diff > time.Second || diff < -time.Second {
		t.Fatalf("expected expiry near %s, got %s", want, claims.ExpiresAt.Time)
	}
}

func TestVerifyRejects(t *testing.T) {
	userToken := mustMint(t, testTokens, time.Now(), uuid.New(), enums.UserRoleUser)
	expired := mustMint(t, testTokens, time.Now().Add(-time.Hour), uuid.New(), enums.UserRoleUser)
	foreign := mustMint(t, NewTokens(config.JWTConfig{Secret: "secret", Issuer: "elsewhere", ExpirationMinutes: 5}),
		time.Now(), uuid.New(), enums.UserRoleUser)
	unknownRole := mustSign(t, Claims{
		UserID: uuid.New(),
		Role:   "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "profilemedia",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	})
	noExpiry := mustSign(t, Claims{
		UserID:           uuid.New(),
		Role:             enums.UserRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "profilemedia"},
	})

	cases := map[string]string{
		"bad signature": userToken + "x",
		"expired":       expired,
		"wrong issuer":  foreign,
		"unknown role":  unknownRole,
		"no expiry":     noExpiry,
		"garbage":       "not-a-token",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := testTokens.Verify(raw); err == nil {
				t.Fatal("expected verification to fail")
			}
		})
	}
}

func TestVerifyExpiredIsTyped(t *testing.T) {
	raw := mustMint(t, testTokens, time.Now().Add(-time.Hour), uuid.New(), enums.UserRoleUser)
	if _, err := testTokens.Verify(raw); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestMintValidation(t *testing.T) {
	if _, err := testTokens.Mint(time.Now(), uuid.New(), ""); err == nil {
		t.Fatal("expected empty role to fail")
	}
	if _, err := testTokens.Mint(time.Now(), uuid.Nil, enums.UserRoleUser); err == nil {
		t.Fatal("expected missing user to fail")
	}

	_, err := NewTokens(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}).Mint(time.Now(), uuid.New(), enums.UserRoleUser)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewTokens(config.JWTConfig{Secret: "s", Issuer: "x"}).Mint(time.Now(), uuid.New(), enums.UserRoleUser); err == nil {
		t.Fatal("expected zero lifetime to fail")
	}
}
