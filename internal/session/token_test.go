package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/identity"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second).UTC()

	got, err := tokenExpiry(signed(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}))
	if err != nil || !got.Equal(exp) {
		t.Fatalf("expected %v, got %v (%v)", exp, got, err)
	}

	got, err = tokenExpiry("opaque-token")
	if err != nil || !got.IsZero() {
		t.Fatalf("opaque token: got %v (%v)", got, err)
	}

	got, err = tokenExpiry(signed(t, jwt.MapClaims{"sub": "u1"}))
	if err != nil || !got.IsZero() {
		t.Fatalf("token without exp: got %v (%v)", got, err)
	}

	if _, err := tokenExpiry("a.b.c"); !apperrors.IsKind(err, apperrors.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	m := newManager(&remoteStub{})
	defer m.Close()

	token := signed(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err := m.Login(context.Background(), identity.User{ID: "u1"}, token)
	if !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if m.Active() {
		t.Fatal("no session expected")
	}
}

func TestResumeDropsExpiredRecord(t *testing.T) {
	ctx := context.Background()
	m := newManager(&remoteStub{})
	defer m.Close()

	_ = m.Store.Save(ctx, Record{
		ID:        "ses_old",
		User:      identity.User{ID: "u1"},
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	s, err := m.Resume(ctx)
	if err != nil || s != nil {
		t.Fatalf("expected nothing resumed, got %v %v", s, err)
	}
	if _, err := m.Store.Load(ctx); err != ErrNotFound {
		t.Fatalf("expected record deleted, got %v", err)
	}
}

func TestLoginAgainRenewsToken(t *testing.T) {
	ctx := context.Background()
	var source gateway.TokenSource
	m := newManager(&remoteStub{})
	remote := m.Remote
	m.Remote = func(r Record, token gateway.TokenSource) gateway.Remote {
		source = token
		return remote(r, token)
	}
	defer m.Close()

	first := signed(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	s, err := m.Login(ctx, identity.User{ID: "u1"}, first)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	exp := time.Now().Add(3 * time.Hour).Truncate(time.Second).UTC()
	second := signed(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()})
	again, err := m.Login(ctx, identity.User{ID: "u1"}, second)
	if err != nil || again != s {
		t.Fatalf("expected same session, got %v %v", again, err)
	}

	if got, _ := source(ctx); got != second {
		t.Fatalf("expected gateway to use the new token")
	}
	rec, err := m.Store.Load(ctx)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.ID != s.ID || rec.Token != second || !rec.ExpiresAt.Equal(exp) {
		t.Fatalf("expected renewed record, got %+v", rec)
	}
}
