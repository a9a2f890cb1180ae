package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/viewstore"
)

type errorResponse struct {
	Message string `json:"message"`
}

type errorMapping struct {
	status int
	text   string
}

var kindMappings = map[apperrors.Kind]errorMapping{
	apperrors.KindInvalidInput: {http.StatusBadRequest, "invalid request"},
	apperrors.KindUnauthorized: {http.StatusUnauthorized, "unauthorized"},
	apperrors.KindForbidden:    {http.StatusForbidden, "forbidden"},
	apperrors.KindNotFound:     {http.StatusNotFound, "not found"},
	apperrors.KindConflict:     {http.StatusConflict, "conflict"},
	apperrors.KindUnavailable:  {http.StatusServiceUnavailable, "service unavailable"},
}

var internalError = errorMapping{http.StatusInternalServerError, "internal error"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

func writeAppError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status, msg := describeError(err)
	writeError(w, status, msg)
}

// describeError picks the status and the message shown to the caller.
// Internal causes are never echoed back.
func describeError(err error) (int, string) {
	switch {
	case errors.Is(err, loop.ErrStopped), errors.Is(err, viewstore.ErrReset):
		// the session went away while the request was waiting on it
		return http.StatusServiceUnavailable, "session ended"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timed out"
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return internalError.status, internalError.text
	}
	m, ok := kindMappings[appErr.Kind]
	if !ok {
		return internalError.status, internalError.text
	}
	if appErr.Message != "" {
		return m.status, appErr.Message
	}
	return m.status, m.text
}
