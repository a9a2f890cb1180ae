package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/stores"
)

var errSnippetNotLoaded = apperrors.New(apperrors.KindNotFound, "snippet is not in any loaded view")

type SnippetsHandler struct{}

// Create Snippet
// @Summary Create snippet
// @Tags snippets
// @Accept json
// @Produce json
// @Param body body SnippetCreateDTO true "snippet"
// @Success 201 {object} snippets.Snippet
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /snippets [post]
func (h *SnippetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req SnippetCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	created, err := awaitValue(r.Context(), s, func(ctx context.Context) *loop.Promise[*snippets.Snippet] {
		return s.Snippets.Create(ctx, &req.CreateRequest, stores.CreateOptions{Pin: req.Pin, ReadLater: req.ReadLater})
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Open Snippet
// @Summary Get one of the user's snippets and record it in the history
// @Tags snippets
// @Produce json
// @Param id path string true "snippet id"
// @Success 200 {object} snippets.Snippet
// @Failure 404 {object} errorResponse
// @Router /snippets/{id} [get]
func (h *SnippetsHandler) Open(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	sn, err := awaitValue(r.Context(), s, func(ctx context.Context) *loop.Promise[*snippets.Snippet] {
		return s.Snippets.Open(ctx, id)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// Update Snippet
// @Summary Update snippet
// @Tags snippets
// @Accept json
// @Produce json
// @Param id path string true "snippet id"
// @Param body body SnippetUpdateDTO true "snippet"
// @Success 200 {object} snippets.Snippet
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /snippets/{id} [put]
func (h *SnippetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req SnippetUpdateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := awaitValue(r.Context(), s, func(ctx context.Context) *loop.Promise[*snippets.Snippet] {
		next := req.Snippet(s.User.ID, "")
		if cur, ok := s.Lookup(id); ok {
			next = applyChanges(cur, next)
		}
		next.ID = id
		return s.Snippets.Update(ctx, next)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// applyChanges copies the editable fields of next onto a copy of cur.
func applyChanges(cur, next *snippets.Snippet) *snippets.Snippet {
	out := cur.Clone()
	out.Title = next.Title
	out.Description = next.Description
	out.CodeSnippets = next.CodeSnippets
	out.Tags = next.Tags
	out.Public = next.Public
	out.SourceURL = next.SourceURL
	return out
}

// Delete Snippet
// @Summary Delete snippet
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /snippets/{id} [delete]
func (h *SnippetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	err := await(r.Context(), s, func(ctx context.Context) *loop.Future {
		sn, ok := s.Lookup(id)
		if !ok {
			sn = &snippets.Snippet{ID: id, UserID: s.User.ID}
		}
		return s.Snippets.Delete(ctx, sn)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loaded runs op on a snippet the session already shows in some view.
func (h *SnippetsHandler) loaded(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	err := await(r.Context(), s, func(ctx context.Context) *loop.Future {
		sn, ok := s.Lookup(id)
		if !ok {
			return loop.Resolved(errSnippetNotLoaded)
		}
		return op(ctx, s, sn)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Like
// @Summary Like a snippet
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /snippets/{id}/like [put]
func (h *SnippetsHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.Like(ctx, sn)
	})
}

// Unlike
// @Summary Withdraw a like
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Router /snippets/{id}/like [delete]
func (h *SnippetsHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.Unlike(ctx, sn)
	})
}

// Pin
// @Summary Pin a snippet
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Router /snippets/{id}/pin [put]
func (h *SnippetsHandler) Pin(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.AddPinned(ctx, sn)
	})
}

// Unpin
// @Summary Unpin a snippet
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Router /snippets/{id}/pin [delete]
func (h *SnippetsHandler) Unpin(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.RemovePinned(ctx, sn)
	})
}

// AddReadLater
// @Summary Queue a snippet for later
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Router /snippets/{id}/read-later [put]
func (h *SnippetsHandler) AddReadLater(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.AddReadLater(ctx, sn)
	})
}

// RemoveReadLater
// @Summary Take a snippet out of the read later queue
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Router /snippets/{id}/read-later [delete]
func (h *SnippetsHandler) RemoveReadLater(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.RemoveReadLater(ctx, sn)
	})
}

// Visit
// @Summary Record a visit of a snippet in the history
// @Tags snippets
// @Param id path string true "snippet id"
// @Success 204
// @Router /snippets/{id}/visit [post]
func (h *SnippetsHandler) Visit(w http.ResponseWriter, r *http.Request) {
	h.loaded(w, r, func(ctx context.Context, s *session.Session, sn *snippets.Snippet) *loop.Future {
		return s.UserData.PromoteHistory(ctx, sn)
	})
}
