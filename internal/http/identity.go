package http

import (
	"context"
	"net/http"
	"regexp"
)

// UserIDHeader carries the caller's identity, set by the upstream auth proxy.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

var validUserID = regexp.MustCompile(`^[A-Za-z0-9@._:+-]{1,128}$`)

// requireUser rejects requests without a well-formed user identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if !validUserID.MatchString(userID) {
			UnauthorizedError("missing or invalid " + UserIDHeader + " header").Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
