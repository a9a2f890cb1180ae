package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/LamboYu/codever/internal/db"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/gateway/pg"
	"github.com/LamboYu/codever/internal/httpapi"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/session"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
)

type testEnv struct {
	baseURL  string
	server   *httptest.Server
	base     *db.Base
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.New(ctx, databaseURL, db.PoolConfig{})
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(pool.Close)

	base := pool.Base(3 * time.Second)
	g := pg.New(base)
	if err := g.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessions := &session.Manager{
		Store:  session.NewMemoryStore(),
		Cache:  localcache.New(localcache.NewMemoryBackend()),
		Remote: func(session.Record, gateway.TokenSource) gateway.Remote { return g },
		Config: session.Config{PageSize: 10},
	}
	t.Cleanup(sessions.Close)

	app := &httpapi.App{
		Sessions: sessions,
		Health:   &httpapi.HealthHandler{DB: pool, Sessions: sessions},
		Session:  &httpapi.SessionHandler{Sessions: sessions},
		Snippets: &httpapi.SnippetsHandler{},
		Views:    &httpapi.ViewsHandler{},
		UserData: &httpapi.UserDataHandler{},
	}

	srv := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(srv.Close)

	return &testEnv{
		baseURL:  srv.URL,
		server:   srv,
		base:     base,
		sessions: sessions,
	}
}

// login signs in a fresh user and drops their rows when the test ends.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	userID := "ci_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = e.base.Q().Exec(ctx, `DELETE FROM snippets WHERE user_id = $1`, userID)
		_, _ = e.base.Q().Exec(ctx, `DELETE FROM user_data WHERE user_id = $1`, userID)
	})

	payload := map[string]any{
		"user": map[string]string{"userId": userID, "firstName": "Ci", "email": userID + "@local.test"},
	}
	res := doJSON(t, http.MethodPost, e.baseURL+"/v1/session", payload)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", res.StatusCode)
	}
	return userID
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal json: %v", err)
		}
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()
	var out T
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	res, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	health := decode[httpapi.HealthResponse](t, res)
	if res.StatusCode != http.StatusOK || health.DB != "ok" {
		t.Fatalf("health: %d %+v", res.StatusCode, health)
	}
}

func TestLoginCreatesUserData(t *testing.T) {
	env := newTestEnv(t)
	userID := env.login(t)

	res := doJSON(t, http.MethodGet, env.baseURL+"/v1/userdata", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("userdata status: %d", res.StatusCode)
	}
	doc := decode[userdata.Document](t, res)
	if doc.UserID != userID || doc.Profile.DisplayName != "Ci" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	res = doJSON(t, http.MethodDelete, env.baseURL+"/v1/session", nil)
	_ = res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status: %d", res.StatusCode)
	}

	res = doJSON(t, http.MethodGet, env.baseURL+"/v1/userdata", nil)
	_ = res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("userdata status after logout: %d", res.StatusCode)
	}
}

func TestSnippetLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	createReq := map[string]any{
		"title":     "Example",
		"tags":      []string{"dev"},
		"public":    true,
		"readLater": true,
		"codeSnippets": []snippets.CodeSnippet{
			{Code: "print('hi')", Comment: "python"},
		},
	}
	res := doJSON(t, http.MethodPost, env.baseURL+"/v1/snippets", createReq)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create snippet status: %d", res.StatusCode)
	}
	created := decode[snippets.Snippet](t, res)
	if created.ID == "" {
		t.Fatal("snippet missing id")
	}

	res = doJSON(t, http.MethodGet, env.baseURL+"/v1/views/read-later", nil)
	readLater := decode[httpapi.ViewResponse](t, res)
	if len(readLater.Items) != 1 || readLater.Items[0].ID != created.ID {
		t.Fatalf("expected snippet queued for later, got %+v", readLater.Items)
	}

	res = doJSON(t, http.MethodGet, env.baseURL+"/v1/views/history", nil)
	history := decode[httpapi.ViewResponse](t, res)
	if len(history.Items) == 0 || history.Items[0].ID != created.ID {
		t.Fatalf("expected snippet first in history, got %+v", history.Items)
	}

	updateReq := map[string]any{
		"title":  "Updated",
		"tags":   []string{"dev", "updated"},
		"public": true,
	}
	res = doJSON(t, http.MethodPut, env.baseURL+"/v1/snippets/"+created.ID, updateReq)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update snippet status: %d", res.StatusCode)
	}
	updated := decode[snippets.Snippet](t, res)
	if updated.Title != "Updated" {
		t.Fatalf("snippet title not updated: %s", updated.Title)
	}

	res = doJSON(t, http.MethodGet, env.baseURL+"/v1/views/read-later", nil)
	readLater = decode[httpapi.ViewResponse](t, res)
	if len(readLater.Items) != 1 || readLater.Items[0].Title != "Updated" {
		t.Fatalf("expected updated snippet in read later, got %+v", readLater.Items)
	}

	res = doJSON(t, http.MethodPut, env.baseURL+"/v1/snippets/"+created.ID+"/like", nil)
	_ = res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("like status: %d", res.StatusCode)
	}

	res = doJSON(t, http.MethodGet, env.baseURL+"/v1/views/liked", nil)
	liked := decode[httpapi.ViewResponse](t, res)
	if len(liked.Items) != 1 || liked.Items[0].LikeCount != 1 {
		t.Fatalf("expected liked snippet with one like, got %+v", liked.Items)
	}

	res = doJSON(t, http.MethodDelete, env.baseURL+"/v1/snippets/"+created.ID, nil)
	_ = res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete snippet status: %d", res.StatusCode)
	}

	for _, view := range []string{"read-later", "history", "liked"} {
		res = doJSON(t, http.MethodGet, env.baseURL+"/v1/views/"+view, nil)
		got := decode[httpapi.ViewResponse](t, res)
		if len(got.Items) != 0 {
			t.Fatalf("%s: expected deleted snippet gone, got %+v", view, got.Items)
		}
	}

	res = doJSON(t, http.MethodGet, env.baseURL+"/v1/snippets/"+created.ID, nil)
	_ = res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted snippet status: %d", res.StatusCode)
	}
}
