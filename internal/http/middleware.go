package http

import (
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/auth"
)

type tokenValidator interface {
	ValidateToken(token string) (auth.Claims, error)
}

// AuthMiddleware requires a valid bearer token and stores its claims in the request context.
func AuthMiddleware(keys tokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
				return
			}

			claims, err := keys.ValidateToken(token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// caller returns the authenticated user id and staff flag, or writes 401.
func caller(w http.ResponseWriter, r *http.Request) (string, bool, bool) {
	userID, ok := auth.CurrentUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return "", false, false
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	return userID, claims.Staff, true
}
