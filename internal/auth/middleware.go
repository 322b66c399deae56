package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// Using a package-private type means only this package can read or write the
// claims value — a plain string key could be shadowed by any other package.
type contextKey string

const claimsKey contextKey = "authClaims"

// RequireAuth enforces authentication on protected routes.
//
// It reads the token from the "Authorization: Bearer <token>" header,
// validates it, and stores the decoded claims in the request context. Missing
// or invalid tokens stop the chain with a 401. The caller is told "invalid
// token" for every failure mode — expired and tampered tokens are deliberately
// indistinguishable from the outside.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Access denied. No token provided.")
				return
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// ContextWithClaims returns a context carrying the given identity claims.
// Exported so handler tests can simulate an authenticated request without
// minting a real token.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the authenticated identity from the request
// context. Returns (nil, false) if the request did not pass RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
