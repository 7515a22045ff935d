package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// SessionCookie is the HttpOnly cookie that carries the session JWT.
const SessionCookie = "token"

// contextKey keeps our context values private to this package.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth rejects requests without a valid session with 401 and
// otherwise stores the user id in the request context.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","detail":"valid authentication required"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth attaches the user id when a valid session is present and
// lets the request through either way. Used by the HTML pages.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID reads the session from the Authorization header first
// (API clients) and falls back to the cookie (browsers).
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if tokenStr, ok := BearerToken(r); ok {
		return tokens.Validate(tokenStr)
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	if cookie.Value == "" {
		return "", errors.New("auth: empty session cookie")
	}
	return tokens.Validate(cookie.Value)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
