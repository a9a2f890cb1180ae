package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, func(context.Context) (string, error) {
		return "tok", nil
	})
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if !apperrors.IsKind(err, kind) {
		t.Fatalf("expected kind %s, got %v", kind, err)
	}
}

func TestGetUserDataNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/personal/users/u1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"User data NOT_FOUND for userId: u1"}`))
	})

	_, err := c.GetUserData(context.Background(), "u1")
	assertKind(t, err, apperrors.KindNotFound)
	if err.Error() != "User data NOT_FOUND for userId: u1" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Feed(context.Background(), "u1", Page{Page: 1})
	assertKind(t, err, apperrors.KindUnavailable)
}

func TestNetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, time.Second, nil)

	_, err := c.Public(context.Background(), Page{Page: 1})
	assertKind(t, err, apperrors.KindUnavailable)
}

func TestPagedListSendsQueryAndToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/personal/users/u1/read-later" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page=%q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit=%q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization=%q", got)
		}
		_ = json.NewEncoder(w).Encode([]*snippets.Snippet{{ID: "a"}, {ID: "b"}})
	})

	out, err := c.ReadLater(context.Background(), "u1", Page{Page: 2})
	if err != nil {
		t.Fatalf("read later: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" {
		t.Fatalf("unexpected list %+v", out)
	}
}

func TestCreateSnippetFollowsLocation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/personal/users/u1/snippets":
			w.Header().Set("Location", "http://api/personal/users/u1/snippets/s9")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"response":"Snippet created for userId u1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/personal/users/u1/snippets/s9":
			_ = json.NewEncoder(w).Encode(snippets.Snippet{ID: "s9", Title: "t", UserID: "u1"})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})

	s, err := c.CreateSnippet(context.Background(), "u1", &snippets.Snippet{Title: "t", UserID: "u1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID != "s9" {
		t.Fatalf("expected server assigned id, got %q", s.ID)
	}
}

func TestPatchBodies(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		got = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	if err := c.PatchPinned(ctx, "u1", nil); err != nil {
		t.Fatalf("pinned: %v", err)
	}
	if ids, ok := got["pinnedSnippetIds"].([]any); !ok || len(ids) != 0 {
		t.Fatalf("expected empty pinned list, got %v", got)
	}

	if err := c.PatchLists(ctx, "u1", userdata.ListsPatch{History: []string{"a"}}); err != nil {
		t.Fatalf("lists: %v", err)
	}
	if h, ok := got["history"].([]any); !ok || len(h) != 1 {
		t.Fatalf("unexpected lists body %v", got)
	}

	if err := c.PatchFeedToggle(ctx, "u1", true); err != nil {
		t.Fatalf("feed toggle: %v", err)
	}
	if got["showAllPublicInFeed"] != true {
		t.Fatalf("unexpected toggle body %v", got)
	}
}

func TestRateRequiresSnippet(t *testing.T) {
	c := NewClient("http://invalid", time.Second, nil)
	err := c.Rate(context.Background(), RateRequest{RatingUserID: "u1", Action: RateLike})
	assertKind(t, err, apperrors.KindInvalidInput)
}

func TestTokenErrorIsUnauthorized(t *testing.T) {
	c := NewClient("http://invalid", time.Second, func(context.Context) (string, error) {
		return "", errors.New("expired")
	})
	_, err := c.Liked(context.Background(), "u1")
	assertKind(t, err, apperrors.KindUnauthorized)
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		p    Page
		want int
	}{
		{Page{}, 0},
		{Page{Page: 1}, 0},
		{Page{Page: 3}, 20},
		{Page{Page: 2, Limit: 5}, 5},
	}
	for _, tt := range tests {
		if got := tt.p.Offset(); got != tt.want {
			t.Fatalf("%+v offset=%d want %d", tt.p, got, tt.want)
		}
	}
}
