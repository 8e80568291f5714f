package middleware

import (
	"net/http"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/httputil"
)

// DevUserID is the user every request runs as when auth is disabled.
const DevUserID = "dev-user"

// Auth extracts and verifies the bearer token, storing the user ID in
// the request context. A nil verifier disables auth entirely and tags
// every request with DevUserID (local development).
func Auth(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks stay unauthenticated.
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			if verifier == nil {
				next.ServeHTTP(w, httputil.WithUserID(r, DevUserID))
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, err := verifier.VerifyToken(tokenString)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}
