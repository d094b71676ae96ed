// Package auth issues and checks the login credentials of the Q&A board.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User submits the login form (email + password), or finishes GitHub sign-in
//  2. The service verifies the bcrypt hash of an active user
//  3. The server issues a signed JWT and stores it in the HttpOnly "token" cookie
//  4. On every request, OptionalAuth reads the cookie, validates the JWT,
//     and puts the userID in the request context
//  5. RequireAuth guards the mutating routes and sends anonymous visitors
//     to /login?next=<path>
//
// WHY JWT?
// The token carries the user ID and expiry inside a signed payload, so it can
// be checked without touching the database. It is not enough on its own:
// handler.LoadUser also requires the scs session created at login to name the
// same user, which is what lets logout revoke a token before it expires.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"userID","exp":1234567890,"iss":"qanda"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "qanda"

	// DefaultTokenLifetime is used when NewTokenService gets a zero lifetime.
	// It matches a browser "session" of two weeks.
	DefaultTokenLifetime = 14 * 24 * time.Hour
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService creates a TokenService with the given secret and token lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenService{secret: []byte(secret), lifetime: lifetime}, nil
}

// Lifetime is how long tokens from Generate stay valid. Handlers use it as
// the cookie MaxAge so the browser drops the cookie when the token expires.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// claims is the JWT payload. "sub" (Subject) holds the internal user ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a login token for userID using the configured lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.lifetime)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Tests use a negative duration to get an already expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("auth: cannot issue a token without a user ID")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// Validate parses and verifies a JWT string and returns the userID in "sub".
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired and carries an expiry at all
//   - Issuer is "qanda"
//   - Algorithm is HS256, which rules out "alg: none" style confusion
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}

	return c.Subject, nil
}
