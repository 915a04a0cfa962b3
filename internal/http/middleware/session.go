package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const SessionIDKey contextKey = "session_id"

// WithSessionID returns a copy of ctx carrying id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// SessionID returns the id stored by WithSessionID, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionID(r.Context()) == "" {
			http.Error(w, "session required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
