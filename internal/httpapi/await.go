package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/session"
)

func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no active session")
		return nil, false
	}
	return s, true
}

// await starts an operation on the session loop and waits for its outcome.
func await(ctx context.Context, s *session.Session, start func(ctx context.Context) *loop.Future) error {
	var f *loop.Future
	if err := s.Do(ctx, func(ctx context.Context) { f = start(ctx) }); err != nil {
		return err
	}
	return f.Wait(ctx)
}

func awaitValue[T any](ctx context.Context, s *session.Session, start func(ctx context.Context) *loop.Promise[T]) (T, error) {
	var p *loop.Promise[T]
	if err := s.Do(ctx, func(ctx context.Context) { p = start(ctx) }); err != nil {
		var zero T
		return zero, err
	}
	return p.Await(ctx)
}

// pageParam reads ?page=, defaulting to the first page.
func pageParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.New(apperrors.KindInvalidInput, "page must be a positive integer")
	}
	return n, nil
}
