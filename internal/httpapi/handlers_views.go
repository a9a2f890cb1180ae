package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/stores"
)

type ViewResponse struct {
	Items []*snippets.Snippet `json:"items"`
	Page  int                 `json:"page"`
}

type TagsResponse struct {
	Tags []string `json:"tags"`
}

type ViewsHandler struct{}

// pick selects the view of a session served by a route.
type pick func(s *session.Session) *stores.View

func (h *ViewsHandler) serve(w http.ResponseWriter, r *http.Request, view pick, paged bool) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	page := 0
	if paged {
		var err error
		if page, err = pageParam(r); err != nil {
			writeAppError(w, err)
			return
		}
	}

	snap, err := awaitValue(r.Context(), s, func(ctx context.Context) *loop.Promise[stores.Snapshot] {
		return view(s).Fetch(ctx, page)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	items := snap.Items
	if items == nil {
		items = []*snippets.Snippet{}
	}
	writeJSON(w, http.StatusOK, ViewResponse{Items: items, Page: snap.Page})
}

// Feed
// @Summary Feed of public snippets matching the watched tags
// @Tags views
// @Produce json
// @Param page query int false "1-based page"
// @Success 200 {object} ViewResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /views/feed [get]
func (h *ViewsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.Feed.View() }, true)
}

// History
// @Summary Recently opened snippets
// @Tags views
// @Produce json
// @Param page query int false "1-based page"
// @Success 200 {object} ViewResponse
// @Failure 401 {object} errorResponse
// @Router /views/history [get]
func (h *ViewsHandler) History(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.History.View() }, true)
}

// AllHistory
// @Summary Whole history, served from the local cache when fresh
// @Tags views
// @Produce json
// @Success 200 {object} ViewResponse
// @Failure 401 {object} errorResponse
// @Router /views/history/all [get]
func (h *ViewsHandler) AllHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	items, err := awaitValue(r.Context(), s, func(ctx context.Context) *loop.Promise[[]*snippets.Snippet] {
		return s.History.AllHistory(ctx)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	if items == nil {
		items = []*snippets.Snippet{}
	}
	writeJSON(w, http.StatusOK, ViewResponse{Items: items})
}

// Pinned
// @Summary Pinned snippets
// @Tags views
// @Produce json
// @Param page query int false "1-based page"
// @Success 200 {object} ViewResponse
// @Router /views/pinned [get]
func (h *ViewsHandler) Pinned(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.Pinned.View() }, true)
}

// ReadLater
// @Summary Snippets queued for later
// @Tags views
// @Produce json
// @Param page query int false "1-based page"
// @Success 200 {object} ViewResponse
// @Router /views/read-later [get]
func (h *ViewsHandler) ReadLater(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.ReadLater.View() }, true)
}

// Favorites
// @Summary Favorite snippets (deprecated)
// @Tags views
// @Produce json
// @Param page query int false "1-based page"
// @Success 200 {object} ViewResponse
// @Router /views/favorites [get]
func (h *ViewsHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.Favorites.View() }, true)
}

// Public
// @Summary Recent public snippets
// @Tags views
// @Produce json
// @Param page query int false "1-based page"
// @Success 200 {object} ViewResponse
// @Router /views/public [get]
func (h *ViewsHandler) Public(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.Public.View() }, true)
}

// Liked
// @Summary Snippets liked by the user
// @Tags views
// @Produce json
// @Success 200 {object} ViewResponse
// @Router /views/liked [get]
func (h *ViewsHandler) Liked(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(s *session.Session) *stores.View { return s.UserData.LikedView() }, false)
}

// Personal
// @Summary Snippets of the user in one of the personal orders
// @Tags views
// @Produce json
// @Param order query string false "LAST_CREATED, MOST_LIKES or MOST_USED"
// @Success 200 {object} ViewResponse
// @Failure 400 {object} errorResponse
// @Router /views/personal [get]
func (h *ViewsHandler) Personal(w http.ResponseWriter, r *http.Request) {
	order := snippets.Order(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("order"))))
	if order == "" {
		order = snippets.OrderLastCreated
	}
	if !order.Valid() {
		writeAppError(w, apperrors.New(apperrors.KindInvalidInput, "unknown order"))
		return
	}
	h.serve(w, r, func(s *session.Session) *stores.View { return s.Personal.View(order) }, false)
}

// SuggestedTags
// @Summary Tag suggestions for the snippet editor
// @Tags views
// @Produce json
// @Success 200 {object} TagsResponse
// @Router /views/suggested-tags [get]
func (h *ViewsHandler) SuggestedTags(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	snap, err := awaitValue(r.Context(), s, func(ctx context.Context) *loop.Promise[stores.TagsSnapshot] {
		return s.SuggestedTags.Fetch(ctx)
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	tags := snap.Tags
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}
