// Package auth issues and checks the credentials used by the API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs an email to /auth/email; a one-time confirmation code is mailed
//  2. Client POSTs email + code to /auth/token and receives an access/refresh pair
//  3. Every later request carries "Authorization: Bearer <access token>"
//  4. When the access token expires, /auth/token/refresh trades the refresh
//     token for a new access token
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"42","token_type":"access","jti":"...","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "api-yamdb"

// Kind distinguishes access tokens from refresh tokens. A token of one kind is
// rejected where the other is expected.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService.
//
// The secret must be at least 16 characters. HS256 accepts shorter keys but
// they are trivially brute-forced.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

type claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"token_type"`
}

// Pair is what a successful sign-in returns.
type Pair struct {
	Access  string
	Refresh string
}

// Issue signs a fresh access/refresh pair for userID.
func (s *TokenService) Issue(userID int64) (Pair, error) {
	access, err := s.GenerateWithDuration(KindAccess, userID, s.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.GenerateWithDuration(KindRefresh, userID, s.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Generate signs a token of the given kind with the configured lifetime.
func (s *TokenService) Generate(kind Kind, userID int64) (string, error) {
	ttl := s.accessTTL
	if kind == KindRefresh {
		ttl = s.refreshTTL
	}
	return s.GenerateWithDuration(kind, userID, ttl)
}

// GenerateWithDuration signs a token with an explicit lifetime. A negative
// duration yields an already-expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(kind Kind, userID int64, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		Kind: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token of the expected kind and returns the
// user ID in its subject.
//
// The returned error wraps ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string, want Kind) (int64, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		// ALGORITHM PINNING: never let the token header pick the algorithm.
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Kind != want {
		return 0, fmt.Errorf("%w: got %q token, want %q", ErrInvalidToken, c.Kind, want)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}

	return userID, nil
}
