// Package session owns the stores of the signed in user. A daemon serves one
// session at a time; signing out resets every store and purges the sensitive
// entries of the persisted cache.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/stores"
	"github.com/LamboYu/codever/internal/telemetry"
	"github.com/LamboYu/codever/internal/validation"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrNoSession = apperrors.New(apperrors.KindUnauthorized, "no active session")
)

// Record is the part of a session that survives a restart of the daemon.
type Record struct {
	ID        string        `json:"id"`
	User      identity.User `json:"user"`
	Token     string        `json:"token,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	ExpiresAt time.Time     `json:"expires_at,omitzero"`
}

type Store interface {
	Save(ctx context.Context, r Record) error
	Load(ctx context.Context) (*Record, error)
	Delete(ctx context.Context) error
}

// RemoteFactory builds the gateway used by one session. token follows the
// session when the same user signs in again with a new token.
type RemoteFactory func(r Record, token gateway.TokenSource) gateway.Remote

type Config struct {
	PageSize  int
	SearchCap int
}

type Manager struct {
	Store  Store
	Cache  *localcache.Cache
	Remote RemoteFactory
	Config Config

	mu      sync.Mutex
	current *Session
}

// Session bundles the loop of one login and every store running on it.
type Session struct {
	Record
	// guards Token and ExpiresAt, the only fields of Record that change
	credMu sync.RWMutex

	loop   *loop.Loop
	cancel context.CancelFunc
	done   chan struct{}

	Bus           *eventbus.Bus
	Feed          *stores.FeedStore
	Personal      *stores.PersonalStore
	History       *stores.HistoryStore
	Pinned        *stores.PinnedStore
	ReadLater     *stores.ReadLaterStore
	Favorites     *stores.FavoritesStore
	Public        *stores.PublicStore
	SuggestedTags *stores.SuggestedTagsStore
	UserData      *stores.UserDataStore
	Snippets      *stores.SnippetService
}

func newSession(rec Record, remote RemoteFactory, cache *localcache.Cache, cfg Config) *Session {
	l := loop.New()
	s := &Session{
		Record: rec,
		loop:   l,
		done:   make(chan struct{}),
		Bus:    eventbus.NewBus(),
	}
	d := stores.Deps{
		Sched:    l,
		Bus:      s.Bus,
		Cache:    cache,
		Remote:   remote(rec, s.BearerToken),
		User:     rec.User,
		PageSize: cfg.PageSize,
	}

	s.Feed = stores.NewFeedStore(d)
	s.Personal = stores.NewPersonalStore(d)
	s.History = stores.NewHistoryStore(d)
	s.Pinned = stores.NewPinnedStore(d)
	s.ReadLater = stores.NewReadLaterStore(d)
	s.Favorites = stores.NewFavoritesStore(d)
	s.Public = stores.NewPublicStore(d)
	s.SuggestedTags = stores.NewSuggestedTagsStore(d)
	s.UserData = stores.NewUserDataStore(d, s.History, s.Pinned, s.ReadLater)
	if cfg.SearchCap > 0 {
		s.UserData.SearchCap = cfg.SearchCap
	}
	s.UserData.FeedChanged = s.Feed.Invalidate
	s.Snippets = stores.NewSnippetService(d, s.UserData)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		_ = l.Run(ctx)
	}()
	return s
}

// Do runs fn on the session loop and waits for it. The context handed to fn
// outlives ctx so work started by fn is not cut short when the caller returns.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context)) error {
	detached := context.WithoutCancel(ctx)
	return s.loop.Do(ctx, func() { fn(detached) })
}

// BearerToken is the token the gateway of the session authenticates with.
func (s *Session) BearerToken(context.Context) (string, error) {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.Token, nil
}

// Expired reports whether the current token of s has expired at now.
func (s *Session) Expired(now time.Time) bool {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.Record.Expired(now)
}

func (s *Session) renew(token string, expiresAt time.Time) Record {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	s.Token = token
	s.ExpiresAt = expiresAt
	return s.Record
}

func (s *Session) resetStores() {
	s.Feed.Reset()
	s.Personal.Reset()
	s.History.Reset()
	s.Pinned.Reset()
	s.ReadLater.Reset()
	s.Favorites.Reset()
	s.Public.Reset()
	s.SuggestedTags.Reset()
	s.UserData.Reset()
}

func (s *Session) stop() {
	s.cancel()
	<-s.done
}

// Login starts the session of user, ending the session of anybody else. The
// user document is loaded before Login returns. Signing in again as the
// current user keeps the session and takes the new token.
func (m *Manager) Login(ctx context.Context, user identity.User, token string) (*Session, error) {
	if err := validation.Struct(user); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidInput, "invalid user")
	}
	now := time.Now().UTC()
	expiresAt, err := tokenExpiry(token)
	if err != nil {
		return nil, err
	}
	rec := Record{
		ID:        "ses_" + uuid.NewString(),
		User:      user,
		Token:     token,
		StartedAt: now,
		ExpiresAt: expiresAt,
	}
	if rec.Expired(now) {
		return nil, ErrTokenExpired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if m.current.User.ID == user.ID {
			m.saveLocked(ctx, m.current.renew(token, expiresAt))
			return m.current, nil
		}
		if err := m.endLocked(ctx); err != nil {
			telemetry.LogWarn(ctx, "ending previous session failed", telemetry.LogErr(err))
		}
	}

	s, err := m.startLocked(ctx, rec)
	if err != nil {
		return nil, err
	}
	m.saveLocked(ctx, rec)
	return s, nil
}

func (m *Manager) saveLocked(ctx context.Context, rec Record) {
	if m.Store == nil {
		return
	}
	if err := m.Store.Save(ctx, rec); err != nil {
		telemetry.LogWarn(ctx, "saving session record failed", telemetry.LogErr(err))
	}
}

// Resume restarts the session saved by a previous run, if any.
func (m *Manager) Resume(ctx context.Context) (*Session, error) {
	if m.Store == nil {
		return nil, nil
	}
	rec, err := m.Store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Expired(time.Now()) {
		telemetry.LogInfo(ctx, "saved session expired", telemetry.LogString("session.id", rec.ID))
		return nil, m.Store.Delete(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, nil
	}
	return m.startLocked(ctx, *rec)
}

func (m *Manager) startLocked(ctx context.Context, rec Record) (*Session, error) {
	if m.Remote == nil {
		return nil, errors.New("session remote not configured")
	}
	s := newSession(rec, m.Remote, m.Cache, m.Config)

	var load *loop.Future
	if err := s.Do(ctx, func(ctx context.Context) { load = s.UserData.Load(ctx) }); err != nil {
		s.stop()
		return nil, err
	}
	if err := load.Wait(ctx); err != nil {
		s.stop()
		return nil, err
	}

	m.current = s
	telemetry.LogInfo(ctx, "session started",
		telemetry.LogString("session.id", rec.ID),
		telemetry.LogString("user.id", rec.User.ID),
	)
	return s, nil
}

func (m *Manager) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// Active reports whether somebody is signed in.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Logout resets every store and purges the sensitive cache entries.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	return m.endLocked(ctx)
}

func (m *Manager) endLocked(ctx context.Context) error {
	s := m.current
	m.current = nil

	var errs []error
	if err := s.Do(ctx, func(context.Context) { s.resetStores() }); err != nil {
		errs = append(errs, err)
	}
	s.stop()

	if m.Cache != nil {
		if err := m.Cache.PurgeSensitive(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if m.Store != nil {
		if err := m.Store.Delete(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	telemetry.LogInfo(ctx, "session ended",
		telemetry.LogString("session.id", s.ID),
		telemetry.LogString("user.id", s.User.ID),
	)
	return errors.Join(errs...)
}

// Close stops the current session and keeps its record for Resume.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.stop()
		m.current = nil
	}
}

// Lookup finds id among the loaded views. Must run on the session loop.
func (s *Session) Lookup(id string) (*snippets.Snippet, bool) {
	views := []*stores.View{
		s.Feed.View(),
		s.Public.View(),
		s.History.View(),
		s.Pinned.View(),
		s.ReadLater.View(),
		s.Favorites.View(),
		s.UserData.LikedView(),
	}
	for _, order := range []snippets.Order{snippets.OrderLastCreated, snippets.OrderMostLikes, snippets.OrderMostUsed} {
		views = append(views, s.Personal.View(order))
	}
	for _, v := range views {
		for _, sn := range v.Items() {
			if sn.ID == id {
				return sn, true
			}
		}
	}
	return nil, false
}
