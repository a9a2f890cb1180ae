package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/stores"
	"github.com/LamboYu/codever/internal/userdata"
)

type UserDataHandler struct{}

// Get UserData
// @Summary Current user data document
// @Tags userdata
// @Produce json
// @Success 200 {object} userdata.Document
// @Failure 401 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /userdata [get]
func (h *UserDataHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var doc *userdata.Document
	if err := s.Do(r.Context(), func(context.Context) { doc = s.UserData.Doc() }); err != nil {
		writeAppError(w, err)
		return
	}
	if doc == nil {
		writeAppError(w, stores.ErrNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Update UserData
// @Summary Replace the user data document
// @Tags userdata
// @Accept json
// @Produce json
// @Param body body userdata.Document true "document"
// @Success 200 {object} userdata.Document
// @Failure 400 {object} errorResponse
// @Router /userdata [put]
func (h *UserDataHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var doc userdata.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var stored *userdata.Document
	err := await(r.Context(), s, func(ctx context.Context) *loop.Future {
		f := s.UserData.Update(ctx, &doc)
		f.OnDone(func(error) { stored = s.UserData.Doc() })
		return f
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// toggle decodes a ToggleDTO and runs op with its value.
func (h *UserDataHandler) toggle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, s *session.Session, enabled bool) *loop.Future) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req ToggleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, s, func(ctx context.Context) *loop.Future { return op(ctx, s, *req.Enabled) })
}

func (h *UserDataHandler) run(w http.ResponseWriter, r *http.Request, s *session.Session, start func(ctx context.Context) *loop.Future) {
	if err := await(r.Context(), s, start); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// byParam runs op with a path parameter of the route.
func (h *UserDataHandler) byParam(w http.ResponseWriter, r *http.Request, name string, op func(ctx context.Context, s *session.Session, value string) *loop.Future) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	value := strings.TrimSpace(chi.URLParam(r, name))
	h.run(w, r, s, func(ctx context.Context) *loop.Future { return op(ctx, s, value) })
}

// FeedToggle
// @Summary Show every public snippet in the feed, not just watched tags
// @Tags userdata
// @Accept json
// @Param body body ToggleDTO true "toggle"
// @Success 204
// @Failure 400 {object} errorResponse
// @Router /userdata/feed-toggle [put]
func (h *UserDataHandler) FeedToggle(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(ctx context.Context, s *session.Session, enabled bool) *loop.Future {
		return s.UserData.SetFeedToggle(ctx, enabled)
	})
}

// LocalStorage
// @Summary Consent to keeping user data in the local cache
// @Tags userdata
// @Accept json
// @Param body body ToggleDTO true "toggle"
// @Success 204
// @Failure 400 {object} errorResponse
// @Router /userdata/local-storage [put]
func (h *UserDataHandler) LocalStorage(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, func(ctx context.Context, s *session.Session, enabled bool) *loop.Future {
		return s.UserData.SetLocalStorage(ctx, enabled)
	})
}

// AcknowledgeWelcome
// @Summary Dismiss the welcome message
// @Tags userdata
// @Success 204
// @Router /userdata/welcome-ack [put]
func (h *UserDataHandler) AcknowledgeWelcome(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	h.run(w, r, s, func(ctx context.Context) *loop.Future { return s.UserData.AcknowledgeWelcome(ctx) })
}

// FollowUser
// @Summary Follow another user
// @Tags userdata
// @Param id path string true "user id"
// @Success 204
// @Failure 400 {object} errorResponse
// @Router /userdata/following/users/{id} [put]
func (h *UserDataHandler) FollowUser(w http.ResponseWriter, r *http.Request) {
	h.byParam(w, r, "id", func(ctx context.Context, s *session.Session, id string) *loop.Future {
		return s.UserData.FollowUser(ctx, id)
	})
}

// UnfollowUser
// @Summary Stop following a user
// @Tags userdata
// @Param id path string true "user id"
// @Success 204
// @Router /userdata/following/users/{id} [delete]
func (h *UserDataHandler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	h.byParam(w, r, "id", func(ctx context.Context, s *session.Session, id string) *loop.Future {
		return s.UserData.UnfollowUser(ctx, id)
	})
}

// WatchTag
// @Summary Watch a tag
// @Tags userdata
// @Param tag path string true "tag"
// @Success 204
// @Router /userdata/watched-tags/{tag} [put]
func (h *UserDataHandler) WatchTag(w http.ResponseWriter, r *http.Request) {
	h.byParam(w, r, "tag", func(ctx context.Context, s *session.Session, tag string) *loop.Future {
		return s.UserData.FollowTag(ctx, tag)
	})
}

// UnwatchTag
// @Summary Stop watching a tag
// @Tags userdata
// @Param tag path string true "tag"
// @Success 204
// @Router /userdata/watched-tags/{tag} [delete]
func (h *UserDataHandler) UnwatchTag(w http.ResponseWriter, r *http.Request) {
	h.byParam(w, r, "tag", func(ctx context.Context, s *session.Session, tag string) *loop.Future {
		return s.UserData.UnfollowTag(ctx, tag)
	})
}

// IgnoreTag
// @Summary Hide a tag from the feed
// @Tags userdata
// @Param tag path string true "tag"
// @Success 204
// @Router /userdata/ignored-tags/{tag} [put]
func (h *UserDataHandler) IgnoreTag(w http.ResponseWriter, r *http.Request) {
	h.byParam(w, r, "tag", func(ctx context.Context, s *session.Session, tag string) *loop.Future {
		return s.UserData.IgnoreTag(ctx, tag)
	})
}

// UnignoreTag
// @Summary Stop hiding a tag
// @Tags userdata
// @Param tag path string true "tag"
// @Success 204
// @Router /userdata/ignored-tags/{tag} [delete]
func (h *UserDataHandler) UnignoreTag(w http.ResponseWriter, r *http.Request) {
	h.byParam(w, r, "tag", func(ctx context.Context, s *session.Session, tag string) *loop.Future {
		return s.UserData.UnignoreTag(ctx, tag)
	})
}

// RecordSearch
// @Summary Record a search in the search history
// @Tags userdata
// @Accept json
// @Param body body SearchDTO true "search"
// @Success 204
// @Failure 400 {object} errorResponse
// @Router /userdata/searches [post]
func (h *UserDataHandler) RecordSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req SearchDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, s, func(ctx context.Context) *loop.Future {
		return s.UserData.RecordSearch(ctx, req.Text, req.Domain)
	})
}

// SaveSearch
// @Summary Mark a recorded search as saved or not
// @Tags userdata
// @Accept json
// @Param body body SearchSavedDTO true "search"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /userdata/searches/saved [put]
func (h *UserDataHandler) SaveSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req SearchSavedDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.run(w, r, s, func(ctx context.Context) *loop.Future {
		return s.UserData.SetSearchSaved(ctx, req.Text, req.Domain, req.Saved)
	})
}
