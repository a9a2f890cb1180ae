package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/userdata"
)

// remoteStub only implements what signing in touches.
type remoteStub struct {
	gateway.Remote
	getUserDataFn func(ctx context.Context, userID string) (*userdata.Document, error)
}

func (r *remoteStub) GetUserData(ctx context.Context, userID string) (*userdata.Document, error) {
	if r.getUserDataFn != nil {
		return r.getUserDataFn(ctx, userID)
	}
	return &userdata.Document{UserID: userID}, nil
}

func newManager(remote *remoteStub) *Manager {
	return &Manager{
		Store:  NewMemoryStore(),
		Cache:  localcache.New(localcache.NewMemoryBackend()),
		Remote: func(Record, gateway.TokenSource) gateway.Remote { return remote },
		Config: Config{PageSize: 10},
	}
}

func TestLoginLoadsUserData(t *testing.T) {
	ctx := context.Background()
	m := newManager(&remoteStub{})
	defer m.Close()

	s, err := m.Login(ctx, identity.User{ID: "u1", FirstName: "Ada"}, "token")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	var loaded bool
	if err := s.Do(ctx, func(context.Context) { loaded = s.UserData.Loaded() }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !loaded {
		t.Fatalf("expected user data loaded")
	}

	again, err := m.Login(ctx, identity.User{ID: "u1"}, "token")
	if err != nil || again != s {
		t.Fatalf("expected same session for same user, got %v %v", again, err)
	}

	rec, err := m.Store.Load(ctx)
	if err != nil || rec.ID != s.ID || rec.Token != "token" {
		t.Fatalf("expected saved record, got %+v %v", rec, err)
	}
}

func TestLoginOtherUserEndsPrevious(t *testing.T) {
	ctx := context.Background()
	m := newManager(&remoteStub{})
	defer m.Close()

	first, err := m.Login(ctx, identity.User{ID: "u1"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, err := m.Login(ctx, identity.User{ID: "u2"}, "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected a new session")
	}
	if err := first.Do(ctx, func(context.Context) {}); err == nil {
		t.Fatalf("expected previous session loop to be stopped")
	}
	cur, _ := m.Current()
	if cur != second {
		t.Fatalf("expected current to be the second session")
	}
}

func TestLoginRejectsInvalidUser(t *testing.T) {
	m := newManager(&remoteStub{})
	_, err := m.Login(context.Background(), identity.User{ID: "  "}, "")
	if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoginFailsWhenUserDataUnavailable(t *testing.T) {
	remote := &remoteStub{
		getUserDataFn: func(context.Context, string) (*userdata.Document, error) {
			return nil, apperrors.New(apperrors.KindUnavailable, "down")
		},
	}
	m := newManager(remote)

	_, err := m.Login(context.Background(), identity.User{ID: "u1"}, "")
	if !apperrors.IsKind(err, apperrors.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := m.Current(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}
}

func TestLogoutPurgesSensitiveCache(t *testing.T) {
	ctx := context.Background()
	m := newManager(&remoteStub{})

	if _, err := m.Login(ctx, identity.User{ID: "u1"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := m.Cache.Set(ctx, localcache.KeyHistorySnippets, []string{"a"}, 24, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := m.Cache.Set(ctx, localcache.KeyLocalStorageConsent, true, 0, false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if ok, _ := m.Cache.Has(ctx, localcache.KeyHistorySnippets); ok {
		t.Fatalf("expected sensitive entry purged")
	}
	if ok, _ := m.Cache.Has(ctx, localcache.KeyLocalStorageConsent); !ok {
		t.Fatalf("expected consent kept")
	}
	if _, err := m.Store.Load(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record deleted, got %v", err)
	}
	if err := m.Logout(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session on second logout, got %v", err)
	}
}

func TestResumeRestartsSavedSession(t *testing.T) {
	ctx := context.Background()
	m := newManager(&remoteStub{})
	if err := m.Store.Save(ctx, Record{ID: "ses_1", User: identity.User{ID: "u1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	s, err := m.Resume(ctx)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	defer m.Close()
	if s == nil || s.ID != "ses_1" || s.User.ID != "u1" {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestResumeWithoutRecord(t *testing.T) {
	m := newManager(&remoteStub{})
	s, err := m.Resume(context.Background())
	if err != nil || s != nil {
		t.Fatalf("expected nothing to resume, got %v %v", s, err)
	}
}

func TestMiddlewareRequiresSession(t *testing.T) {
	ctx := context.Background()
	m := newManager(&remoteStub{})
	defer m.Close()

	var seen string
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.UserID(r.Context())
		if _, ok := FromContext(r.Context()); !ok {
			t.Errorf("expected session in context")
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	if _, err := m.Login(ctx, identity.User{ID: "u1"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || seen != "u1" {
		t.Fatalf("expected pass-through for u1, got %d %q", rec.Code, seen)
	}
}
