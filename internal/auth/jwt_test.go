package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// sign mints a token with arbitrary claims and method, for the cases
// TokenService itself would never produce.
func sign(t *testing.T, method jwt.SigningMethod, key any, c jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestNewTokenService(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Error("secrets under 16 characters must be rejected")
	}

	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	if ts.Lifetime() != DefaultTokenLifetime {
		t.Errorf("Lifetime() = %v, want the two week default %v", ts.Lifetime(), DefaultTokenLifetime)
	}
}

func TestGenerate_Claims(t *testing.T) {
	ts := newTestTokenService(t)

	signed, err := ts.Generate("cv1q2s3t4u5v6w7x8y9z")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(signed, ".") != 2 {
		t.Fatalf("Generate() = %q, want header.payload.signature", signed)
	}

	// Decode without verifying to look at what went into the payload.
	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(signed, &c); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}
	if c.Subject != "cv1q2s3t4u5v6w7x8y9z" || c.Issuer != issuer {
		t.Errorf("claims sub=%q iss=%q", c.Subject, c.Issuer)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != time.Hour {
		t.Errorf("exp - iat = %v, want the configured lifetime", got)
	}

	if _, err := ts.Generate(""); err == nil {
		t.Error("Generate(\"\") should refuse a token without a subject")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-abc-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "user-abc-123" {
		t.Errorf("Validate() = %q, want %q", got, "user-abc-123")
	}
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-123", -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}
	if _, err := ts.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-123")
	other, _ := NewTokenService("another-secret-32-chars-long!!!!", time.Hour)
	otherToken, _ := other.Generate("user-123")
	inAnHour := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"tampered signature", valid[:len(valid)-3] + "xxx"},
		{"other secret", otherToken},
		{"foreign issuer", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "user-123", Issuer: "someone-else", ExpiresAt: inAnHour,
		})},
		{"no expiry", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "user-123", Issuer: issuer,
		})},
		{"no subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
			Issuer: issuer, ExpiresAt: inAnHour,
		})},
		{"HS512 with the right secret", sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{
			Subject: "user-123", Issuer: issuer, ExpiresAt: inAnHour,
		})},
		{"alg none", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.RegisteredClaims{
			Subject: "user-123", Issuer: issuer, ExpiresAt: inAnHour,
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if id, err := ts.Validate(tt.token); err == nil {
				t.Fatalf("Validate() = %q, want an error", id)
			}
		})
	}
}
