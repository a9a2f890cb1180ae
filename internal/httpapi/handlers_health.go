package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Pinger is the database behind the pg gateway, when there is one.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB       Pinger
	Sessions interface{ Active() bool }
}

type HealthResponse struct {
	Status  string `json:"status"`
	DB      string `json:"db,omitempty"`
	Session string `json:"session"`
	Time    string `json:"time"`
}

// Get Health
// @Summary Liveness and dependency status
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Session: "none",
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	if h.DB != nil {
		resp.DB = "ok"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			resp.DB = "down"
		}
	}
	if h.Sessions != nil && h.Sessions.Active() {
		resp.Session = "active"
	}

	writeJSON(w, http.StatusOK, resp)
}
