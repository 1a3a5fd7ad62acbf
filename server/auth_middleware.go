package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-session/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores the verified access token claims
const ContextKeyClaims ContextKey = "claims"

var (
	errMissingAuthHeader = errors.New("Missing Authorization header")
	errBadAuthHeader     = errors.New("Invalid Authorization header format")
)

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, rawToken, found := strings.Cut(header, " ")
	rawToken = strings.TrimSpace(rawToken)
	if !found || !strings.EqualFold(scheme, "bearer") || rawToken == "" {
		return "", errBadAuthHeader
	}
	return rawToken, nil
}

// RequireAuth rejects requests without a valid gateway access token and
// stores its claims in the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}

			claims, err := s.auth.Authenticate(rawToken)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func claimsFromContext(ctx context.Context) (*token.AccessClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.AccessClaims)
	return claims, ok
}
