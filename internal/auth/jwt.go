// Package auth provides password hashing, JWT issuance and the HTTP
// middleware that turns a token into an authenticated identity.
//
// TOKEN FLOW:
//  1. POST /api/auth/login with username + password
//  2. Server verifies the bcrypt hash and issues a token PAIR:
//     - access token  (short-lived, 15m): sent on every API call
//     - refresh token (long-lived, 7d):  only sent to /api/auth/refresh
//  3. The access token travels in "Authorization: Bearer <jwt>" (or the
//     "token" HttpOnly cookie set on login)
//  4. When it expires the client trades the refresh token for a new pair
//
// WHY TWO TOKENS?
// An access token cannot be revoked, so it should expire quickly. The refresh
// token lets the client stay logged in without re-sending the password.
// The token_type claim stops a refresh token from being used as an access
// token and vice versa.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","username":"alice","token_type":"access","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "blogsite"

// Default lifetimes, used when NewTokenService is given zero durations.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// ErrInvalidToken is returned for every validation failure. The wrapped
// detail is for logs; clients only ever see "unauthorized".
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is what a validated token says about its bearer.
type Identity struct {
	UserID   string
	Username string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService with the given secret and lifetimes.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL is used by the handler to set the cookie lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// "sub" (Subject) holds the internal user ID.
type claims struct {
	Username  string    `json:"username"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// IssuePair signs a fresh access and refresh token for the user.
func (s *TokenService) IssuePair(userID, username string) (TokenPair, error) {
	access, err := s.sign(userID, username, AccessToken, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(userID, username, RefreshToken, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// sign creates a token with the given type and lifetime.
//
// Signing algorithm: HS256 (HMAC-SHA256)
// - Symmetric: same key for signing and verifying
// - Fast and simple, good for single-server deployments
func (s *TokenService) sign(userID, username string, typ TokenType, ttl time.Duration) (string, error) {
	now := s.now()

	c := claims{
		Username:  username,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", typ, err)
	}
	return signed, nil
}

// ValidateAccess verifies an access token and returns its identity.
func (s *TokenService) ValidateAccess(tokenStr string) (Identity, error) {
	return s.validate(tokenStr, AccessToken)
}

// ValidateRefresh verifies a refresh token and returns its identity.
func (s *TokenService) ValidateRefresh(tokenStr string) (Identity, error) {
	return s.validate(tokenStr, RefreshToken)
}

// validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "blogsite" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Then we check the token_type ourselves.
func (s *TokenService) validate(tokenStr string, want TokenType) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.TokenType != want {
		return Identity{}, fmt.Errorf("%w: got %q token, want %q", ErrInvalidToken, c.TokenType, want)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return Identity{UserID: c.Subject, Username: c.Username}, nil
}
