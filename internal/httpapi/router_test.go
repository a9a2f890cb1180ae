package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/viewstore"
)

type testEnv struct {
	remote   *fakeRemote
	sessions *session.Manager
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	remote := newFakeRemote()
	mgr := &session.Manager{
		Store:  session.NewMemoryStore(),
		Cache:  localcache.New(localcache.NewMemoryBackend()),
		Remote: func(session.Record, gateway.TokenSource) gateway.Remote { return remote },
		Config: session.Config{PageSize: 10},
	}
	t.Cleanup(mgr.Close)

	app := &App{
		ServiceName: "codever-test",
		Sessions:    mgr,
		Health:      &HealthHandler{Sessions: mgr},
		Session:     &SessionHandler{Sessions: mgr},
		Snippets:    &SnippetsHandler{},
		Views:       &ViewsHandler{},
		UserData:    &UserDataHandler{},
	}
	return &testEnv{remote: remote, sessions: mgr, handler: NewRouter(app)}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal json: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/session", map[string]any{
		"user":  map[string]string{"userId": "u1", "firstName": "Ada"},
		"token": "token",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status: %d %s", rec.Code, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func itemIDs(items []*snippets.Snippet) []string {
	out := make([]string, 0, len(items))
	for _, sn := range items {
		out = append(out, sn.ID)
	}
	return out
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/v1/views/feed", "/v1/userdata", "/v1/session"} {
		rec := env.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestLoginValidatesUser(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/session", map[string]any{
		"user": map[string]string{"userId": "  "},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/session", map[string]any{
		"user": map[string]string{"userId": "u1", "email": "not-an-email"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodGet, "/v1/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current status: %d", rec.Code)
	}
	cur := decode[SessionResponse](t, rec)
	if cur.User.ID != "u1" || cur.ID == "" {
		t.Fatalf("unexpected session: %+v", cur)
	}

	rec = env.do(t, http.MethodDelete, "/v1/session", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/v1/views/pinned", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestCreatePinnedSnippetThenDelete(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/snippets", map[string]any{
		"title": "hello",
		"tags":  []string{"go"},
		"pin":   true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[snippets.Snippet](t, rec)
	if created.ID == "" || created.UserID != "u1" || created.UserDisplayName != "Ada" {
		t.Fatalf("unexpected created snippet: %+v", created)
	}

	rec = env.do(t, http.MethodGet, "/v1/views/pinned", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pinned status: %d", rec.Code)
	}
	pinned := decode[ViewResponse](t, rec)
	if got := itemIDs(pinned.Items); len(got) != 1 || got[0] != created.ID {
		t.Fatalf("expected pinned [%s], got %v", created.ID, got)
	}
	if pinned.Page != 1 {
		t.Fatalf("expected page 1, got %d", pinned.Page)
	}

	rec = env.do(t, http.MethodGet, "/v1/views/personal", nil)
	personal := decode[ViewResponse](t, rec)
	if got := itemIDs(personal.Items); len(got) != 1 || got[0] != created.ID {
		t.Fatalf("expected personal [%s], got %v", created.ID, got)
	}

	rec = env.do(t, http.MethodDelete, "/v1/snippets/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status: %d %s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/v1/views/pinned", "/v1/views/personal"} {
		rec = env.do(t, http.MethodGet, path, nil)
		view := decode[ViewResponse](t, rec)
		if len(view.Items) != 0 {
			t.Fatalf("%s: expected empty view after delete, got %v", path, itemIDs(view.Items))
		}
	}

	rec = env.do(t, http.MethodGet, "/v1/userdata", nil)
	doc := decode[map[string]any](t, rec)
	if pinned, _ := doc["pinned"].([]any); len(pinned) != 0 {
		t.Fatalf("expected pinned list pruned, got %v", pinned)
	}
}

func TestCreateRejectsInvalidSnippet(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/snippets", map[string]any{"title": "no tags"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLikeUnknownSnippet(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPut, "/v1/snippets/nope/like", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLikeLoadedSnippet(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/snippets", map[string]any{"title": "hello", "tags": []string{"go"}})
	created := decode[snippets.Snippet](t, rec)
	env.do(t, http.MethodGet, "/v1/views/personal", nil)

	rec = env.do(t, http.MethodPut, "/v1/snippets/"+created.ID+"/like", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("like status: %d %s", rec.Code, rec.Body.String())
	}
	if len(env.remote.rated) != 1 || env.remote.rated[0].Action != gateway.RateLike {
		t.Fatalf("expected one like, got %+v", env.remote.rated)
	}

	rec = env.do(t, http.MethodGet, "/v1/views/personal", nil)
	view := decode[ViewResponse](t, rec)
	if len(view.Items) != 1 || view.Items[0].LikeCount != 1 {
		t.Fatalf("expected like count 1, got %+v", view.Items)
	}
}

func TestViewQueryValidation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodGet, "/v1/views/feed?page=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for page 0, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/v1/views/personal?order=newest", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown order, got %d", rec.Code)
	}
}

func TestViewRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.remote.mu.Lock()
	env.remote.feedErr = apperrors.New(apperrors.KindUnavailable, "backend down")
	env.remote.mu.Unlock()

	rec := env.do(t, http.MethodGet, "/v1/views/feed", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestToggleRequiresValue(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPut, "/v1/userdata/feed-toggle", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/v1/userdata/feed-toggle", map[string]any{"enabled": true})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("toggle status: %d %s", rec.Code, rec.Body.String())
	}
	if !env.remote.doc.ShowAllPublicInFeed {
		t.Fatalf("expected toggle persisted")
	}
}

func TestRecordSearch(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPost, "/v1/userdata/searches", map[string]any{"text": "go", "searchDomain": "elsewhere"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/userdata/searches", map[string]any{"text": "go", "searchDomain": "personal"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("record status: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPut, "/v1/userdata/searches/saved", map[string]any{"text": "rust", "searchDomain": "personal", "saved": true})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown search, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/userdata", nil)
	doc := decode[map[string]any](t, rec)
	searches, _ := doc["searches"].([]any)
	if len(searches) != 1 {
		t.Fatalf("expected one search, got %v", searches)
	}
}

func TestFollowSelfRejected(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	rec := env.do(t, http.MethodPut, "/v1/userdata/following/users/u1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	h := &HealthHandler{DB: pingStub{err: errors.New("down")}}
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health status: %d", rec.Code)
	}
	resp := decode[HealthResponse](t, rec)
	if resp.DB != "down" || resp.Session != "none" {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestWriteAppErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.New(apperrors.KindInvalidInput, "bad"), http.StatusBadRequest},
		{apperrors.New(apperrors.KindForbidden, ""), http.StatusForbidden},
		{apperrors.New(apperrors.KindNotFound, ""), http.StatusNotFound},
		{apperrors.New(apperrors.KindUnavailable, ""), http.StatusServiceUnavailable},
		{loop.ErrStopped, http.StatusServiceUnavailable},
		{viewstore.ErrReset, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeAppError(rec, tt.err)
		if rec.Code != tt.want {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
		}
	}
}

func TestDescribeErrorHidesInternalCauses(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{apperrors.New(apperrors.KindNotFound, ""), "not found"},
		{apperrors.New(apperrors.KindConflict, "already pinned"), "already pinned"},
		{apperrors.New(apperrors.KindInternal, "pool exhausted"), "internal error"},
		{errors.New("dial tcp: refused"), "internal error"},
	}
	for _, tt := range tests {
		if _, got := describeError(tt.err); got != tt.want {
			t.Fatalf("%v: expected %q, got %q", tt.err, tt.want, got)
		}
	}
}
