package httputil

import (
	"context"
	"net/http"
)

// contextKey is unexported so no other package can collide with our
// request-context values.
type contextKey string

const userIDKey contextKey = "inkwell.userID"

// WithUserID returns the request with the authenticated user ID
// attached. The auth middleware is the only writer.
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID returns the authenticated user ID, or "" when the request
// never passed the auth middleware.
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
