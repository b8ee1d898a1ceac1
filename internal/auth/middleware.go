package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gnhindia1-ui/collab/internal/httpjson"
)

var (
	ErrUnauthenticated = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

type contextKey string

const sessionContextKey contextKey = "collab_session"

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	return s, ok && s != nil
}

// Middleware attaches the cookie session, when valid, to the request context.
// It never rejects; routes opt in with RequireAuth or RequireRole.
func Middleware(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, err := sessions.FromRequest(r); err == nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticated returns the request's session or ErrUnauthenticated.
func Authenticated(ctx context.Context) (*Session, error) {
	sess, ok := SessionFromContext(ctx)
	if !ok || !sess.Role.Valid() {
		return nil, ErrUnauthenticated
	}
	return sess, nil
}

// Authorize requires a session whose role is one of roles. Roles are matched
// by equality, so an unrecognised role value is never privileged.
func Authorize(ctx context.Context, roles ...Role) (*Session, error) {
	sess, err := Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if sess.Role == r {
			return sess, nil
		}
	}
	return nil, ErrForbidden
}

func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := Authenticated(r.Context()); err != nil {
			httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r)
	}
}

func RequireRole(next http.HandlerFunc, roles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := Authorize(r.Context(), roles...)
		switch {
		case errors.Is(err, ErrUnauthenticated):
			httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, ErrForbidden):
			httpjson.Error(w, http.StatusForbidden, "Forbidden: insufficient role")
		default:
			next(w, r)
		}
	}
}
