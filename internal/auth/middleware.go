package auth

import (
	"context"
	"net/http"
	"strings"
)

// CookieName is the HttpOnly cookie that carries the session token.
const CookieName = "token"

// contextKey is unexported so no other package can read or shadow our values.
type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

// Authenticator validates the session token of incoming requests.
type Authenticator struct {
	tokens  *TokenService
	revoker Revoker
}

func NewAuthenticator(tokens *TokenService, revoker Revoker) *Authenticator {
	return &Authenticator{tokens: tokens, revoker: revoker}
}

// RequireAuth rejects requests without a valid, unrevoked token with 401 and
// stores the user id and claims in the context otherwise.
//
// The token is read from the "token" cookie (browsers) or from an
// "Authorization: Bearer" header (the CLI).
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate returns the claims of the request's token.
func (a *Authenticator) Authenticate(r *http.Request) (*Claims, error) {
	raw, ok := TokenFromRequest(r)
	if !ok {
		return nil, errMissingToken
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.ID != "" {
		revoked, err := a.revoker.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, errRevoked
		}
	}
	return claims, nil
}

// TokenFromRequest prefers the Authorization header over the cookie.
func TokenFromRequest(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, found := strings.CutPrefix(h, "Bearer ")
		token = strings.TrimSpace(token)
		return token, found && token != ""
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// UserIDFromContext returns the authenticated user id set by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ClaimsFromContext returns the validated token claims set by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingToken authError = "auth: no token in request"
	errRevoked      authError = "auth: token revoked"
)
