// Package auth provides JWT session tokens, OTP code generation/hashing, and
// the Google identity adapter.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client requests an OTP (signup/login/resend) → a 6-digit code is stored
//     and emailed.
//  2. Client submits the code → on match the code is consumed and a signed
//     JWT session token is returned.
//  3. Alternatively the client posts a Google ID token, which is verified and
//     exchanged for an access/refresh token pair.
//  4. On every protected request the client presents the token as
//     "Authorization: Bearer <token>"; RequireAuth validates it and exposes
//     the decoded claims to handlers.
//
// Tokens are stateless: the server keeps no session records and has no
// revocation list, so expiry is the only termination mechanism.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "hd-notes"

// Token lifetimes. OTP-derived sessions are long-lived; Google logins get a
// short access token paired with a longer refresh token.
const (
	SessionTTL = 7 * 24 * time.Hour
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

// Claims is the identity a validated token proves.
type Claims struct {
	UserID string
	Email  string
	Name   string
}

// TokenService signs and verifies JWTs.
//
// It holds two HMAC secrets: one for session/access tokens and a separate one
// for refresh tokens, so a future refresh-redemption endpoint can rotate
// access secrets without invalidating outstanding refresh tokens.
type TokenService struct {
	secret        []byte
	refreshSecret []byte
}

// NewTokenService creates a TokenService with the given secrets.
// Both should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret, refreshSecret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if len(refreshSecret) < 16 {
		return nil, errors.New("auth: refresh secret must be at least 16 characters")
	}
	return &TokenService{
		secret:        []byte(secret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

// sessionClaims is the JWT payload for session and access tokens.
// The user's internal ID goes in the standard "sub" claim; email and display
// name ride along so the guard can attach a full identity without a DB hit.
type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// refreshClaims carries only the user ID. A refresh token proves nothing
// beyond "this user may mint a new access token", so it gets no profile data.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// GenerateSession mints a 7-day token for OTP-verified logins.
func (s *TokenService) GenerateSession(userID, email, name string) (string, error) {
	return s.GenerateWithDuration(userID, email, name, SessionTTL)
}

// GenerateAccess mints a 15-minute token for Google logins.
func (s *TokenService) GenerateAccess(userID, email, name string) (string, error) {
	return s.GenerateWithDuration(userID, email, name, AccessTTL)
}

// GenerateWithDuration mints a token with a custom expiry duration.
// Also used directly by tests to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID, email, name string, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// GenerateRefresh mints a 7-day refresh token signed with the refresh secret.
// No endpoint redeems these yet; clients receive and hold them.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	now := time.Now()

	c := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTTL)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("auth: signing refresh token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session/access token and returns its claims.
//
// Checks performed by the jwt library: signature, expiry, issuer, and that
// the algorithm is HS256 (jwt.WithValidMethods blocks algorithm-confusion
// tokens signed with "none" or an asymmetric scheme).
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
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
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Claims{
		UserID: c.Subject,
		Email:  c.Email,
		Name:   c.Name,
	}, nil
}
