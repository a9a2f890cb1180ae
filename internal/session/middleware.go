package session

import (
	"context"
	"net/http"
	"time"

	"github.com/LamboYu/codever/internal/identity"
)

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = identity.WithUser(ctx, s.User)
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Middleware rejects requests while nobody is signed in.
func Middleware(mgr *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := mgr.Current()
			if err != nil {
				http.Error(w, "no active session", http.StatusUnauthorized)
				return
			}
			if s.Expired(time.Now()) {
				http.Error(w, "session expired", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
