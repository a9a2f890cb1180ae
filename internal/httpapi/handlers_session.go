package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/telemetry"
)

type SessionHandler struct {
	Sessions *session.Manager
}

type SessionResponse struct {
	ID        string        `json:"id"`
	User      identity.User `json:"user"`
	StartedAt string        `json:"startedAt"` // RFC3339
}

func sessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		User:      s.User,
		StartedAt: s.StartedAt.UTC().Format(time.RFC3339),
	}
}

// Login Session
// @Summary Start the session of a user
// @Description Ends the session of any other user and loads the user data document.
// @Tags session
// @Accept json
// @Produce json
// @Param body body LoginDTO true "user"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /session [post]
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeError(w, http.StatusInternalServerError, "sessions not configured")
		return
	}

	var req LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, span := telemetry.StartSpan(r.Context(), "session.login",
		attribute.String("user.id", req.User.ID),
	)
	s, err := h.Sessions.Login(ctx, req.User, req.Token)
	span.End()
	if err != nil {
		telemetry.LogWarn(r.Context(), "login failed",
			telemetry.LogString("user.id", req.User.ID),
			telemetry.LogErr(err),
		)
		writeAppError(w, err)
		return
	}

	telemetry.LogInfo(r.Context(), "user login",
		telemetry.LogString("event", "user.login"),
		telemetry.LogString("user.id", s.User.ID),
	)
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

// Current Session
// @Summary Current session
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 401 {object} errorResponse
// @Router /session [get]
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

// Logout Session
// @Summary End the current session
// @Description Resets every store and purges the sensitive local cache entries.
// @Tags session
// @Success 204
// @Failure 401 {object} errorResponse
// @Router /session [delete]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeError(w, http.StatusInternalServerError, "sessions not configured")
		return
	}
	if err := h.Sessions.Logout(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
