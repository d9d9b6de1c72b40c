// Package auth handles session tokens, password hashing, Google sign-in and
// the HTTP middleware that puts the caller's user id into the request context.
//
// JWT (JSON Web Token) IN ONE PARAGRAPH:
// A JWT is header.payload.signature, each part base64url-encoded. The payload
// carries "claims" (who, when issued, when it expires). The signature is an
// HMAC-SHA256 over header+payload using a server-only secret, so anyone can
// read a token but only this server can mint one that validates.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "chat-memo"

// DefaultTokenTTL is used when NewTokenService gets a zero ttl.
const DefaultTokenTTL = 24 * time.Hour

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService rejects secrets shorter than 16 characters: a short HMAC
// key can be brute-forced offline from any captured token.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is what a validated token tells us. ID is the token's own id (jti),
// used as the revocation key on logout.
type Claims struct {
	UserID    string
	ID        string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for userID valid for the service's ttl.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token with an explicit lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
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

// Validate checks signature, algorithm, issuer and expiry and returns the
// user id.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	c, err := s.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

// Parse is Validate returning every claim the server relies on.
//
// ALGORITHM PINNING:
// WithValidMethods rejects tokens whose header asks for another algorithm
// (including "none"), so a forged header cannot switch off verification.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
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
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Claims{
		UserID:    c.Subject,
		ID:        c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// TTL is the lifetime of tokens from Generate. The session cookie uses it as
// its Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
