// Package viewstore implements the lazily loaded, paginated in-memory view
// every named snippet list is built on.
package viewstore

import (
	"context"
	"errors"

	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/telemetry"
)

// ErrReset settles the Fetch promises pending when the view is reset.
var ErrReset = errors.New("view reset")

// Keyed is implemented by the entities a view holds.
type Keyed interface {
	Key() string
}

// Snapshot is what subscribers of a view observe. Err is set when the latest
// fetch failed; Items then still hold the previous successful page.
type Snapshot[T any] struct {
	Items  []T
	Loaded bool
	Page   int
	Err    error
}

type FetchFunc[T any] func(ctx context.Context, page int) ([]T, error)

type Option func(*config)

type config struct {
	limit int
}

// WithLimit caps the number of items kept after front insertions.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

// Store must only be used from the loop its scheduler belongs to.
type Store[T Keyed] struct {
	name    string
	sched   loop.Scheduler
	fetch   FetchFunc[T]
	limit   int
	subject *eventbus.Subject[Snapshot[T]]

	items []T
	// loaded flips before the fetch resolves so rapid repeated calls do not
	// issue duplicate fetches.
	loaded        bool
	received      bool
	loadedPage    int
	requestedPage int
	seq           uint64
	resets        uint64
	pending       bool
	waiters       []waiter[T]
}

// waiter is a Fetch caller; it is only ever handed a snapshot of its page.
type waiter[T any] struct {
	ctx     context.Context
	page    int
	promise *loop.Promise[Snapshot[T]]
}

func New[T Keyed](name string, sched loop.Scheduler, fetch FetchFunc[T], opts ...Option) *Store[T] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store[T]{
		name:    name,
		sched:   sched,
		fetch:   fetch,
		limit:   cfg.limit,
		subject: eventbus.NewSubject[Snapshot[T]](),
	}
}

func (s *Store[T]) Name() string { return s.name }

// Get returns the view stream, fetching page first unless it is already
// loaded or requested.
func (s *Store[T]) Get(ctx context.Context, page int) eventbus.Stream[Snapshot[T]] {
	if !s.loaded || s.requestedPage != page {
		s.load(ctx, page)
	}
	return s.subject
}

// Fetch is Get for callers that need the page itself rather than the
// stream: the promise settles with a snapshot of page once it is answered.
// If a request for another page overtakes it, page is fetched on its own
// without touching the view.
func (s *Store[T]) Fetch(ctx context.Context, page int) *loop.Promise[Snapshot[T]] {
	p := loop.NewPromise[Snapshot[T]]()
	if s.loaded && !s.pending && s.requestedPage == page {
		p.Fulfill(s.snapshot(nil), nil)
		return p
	}
	s.Get(ctx, page)
	s.waiters = append(s.waiters, waiter[T]{ctx: ctx, page: page, promise: p})
	return p
}

// Refresh refetches the last requested page.
func (s *Store[T]) Refresh(ctx context.Context) eventbus.Stream[Snapshot[T]] {
	s.load(ctx, s.requestedPage)
	return s.subject
}

// Invalidate refetches the current page if the view was ever requested.
// Pending Fetch callers are answered by the new response.
func (s *Store[T]) Invalidate(ctx context.Context) {
	if s.loaded {
		s.load(ctx, s.requestedPage)
	}
}

func (s *Store[T]) Stream() eventbus.Stream[Snapshot[T]] {
	return s.subject
}

func (s *Store[T]) load(ctx context.Context, page int) {
	s.loaded = true
	s.pending = true
	s.requestedPage = page
	s.seq++
	seq := s.seq

	var items []T
	s.sched.Go(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.fetch(ctx, page)
		return err
	}, func(err error) {
		telemetry.RecordViewFetch(ctx, s.name, err)
		if seq != s.seq {
			telemetry.RecordStaleResponse(ctx, s.name)
			telemetry.LogInfo(ctx, "discarding stale view response",
				telemetry.LogString("view", s.name),
				telemetry.LogInt("page", page),
			)
			return
		}
		s.pending = false
		if err != nil {
			telemetry.LogWarn(ctx, "view fetch failed",
				telemetry.LogString("view", s.name),
				telemetry.LogInt("page", page),
				telemetry.LogErr(err),
			)
			s.loaded = s.received
			s.requestedPage = s.loadedPage
			s.publish(err)
			s.settle(page, err)
			return
		}
		s.items = append([]T(nil), items...)
		s.received = true
		s.loadedPage = page
		s.truncate()
		s.publish(nil)
		s.settle(page, nil)
	})
}

func (s *Store[T]) Loaded() bool { return s.loaded }

func (s *Store[T]) Page() int { return s.loadedPage }

func (s *Store[T]) Items() []T {
	return append([]T(nil), s.items...)
}

func (s *Store[T]) Contains(key string) bool {
	return s.indexOf(key) != -1
}

func (s *Store[T]) InsertAtFront(item T) {
	if !s.loaded {
		return
	}
	s.items = append([]T{item}, s.items...)
	s.truncate()
	s.publish(nil)
}

func (s *Store[T]) InsertAtEnd(item T) {
	if !s.loaded {
		return
	}
	s.items = append(s.items, item)
	s.publish(nil)
}

// Promote moves item to the front, dropping any earlier copy of it.
func (s *Store[T]) Promote(item T) {
	if !s.loaded {
		return
	}
	if i := s.indexOf(item.Key()); i != -1 {
		s.items = append(s.items[:i:i], s.items[i+1:]...)
	}
	s.items = append([]T{item}, s.items...)
	s.truncate()
	s.publish(nil)
}

// Remove reports whether an item with key was present and removed.
func (s *Store[T]) Remove(key string) bool {
	if !s.loaded {
		return false
	}
	i := s.indexOf(key)
	if i == -1 {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.publish(nil)
	return true
}

// Replace substitutes the item with the same key, keeping its position.
func (s *Store[T]) Replace(item T) bool {
	if !s.loaded {
		return false
	}
	i := s.indexOf(item.Key())
	if i == -1 {
		return false
	}
	s.items = append([]T(nil), s.items...)
	s.items[i] = item
	s.publish(nil)
	return true
}

// Reset returns the view to its never loaded state; in-flight responses are dropped.
func (s *Store[T]) Reset() {
	s.seq++
	s.resets++
	s.pending = false
	s.items = nil
	s.loaded = false
	s.received = false
	s.loadedPage = 0
	s.requestedPage = 0
	s.subject.Next(Snapshot[T]{})
	waiters := s.waiters
	s.waiters = nil
	for _, w := range waiters {
		w.promise.Fulfill(Snapshot[T]{}, ErrReset)
	}
}

// settle answers the waiters of page with the view and fetches every other
// waited page aside.
func (s *Store[T]) settle(page int, err error) {
	waiters := s.waiters
	s.waiters = nil
	snap := s.snapshot(err)
	aside := map[int][]waiter[T]{}
	for _, w := range waiters {
		if w.page == page {
			w.promise.Fulfill(snap, err)
			continue
		}
		aside[w.page] = append(aside[w.page], w)
	}
	for p, ws := range aside {
		s.fetchAside(p, ws)
	}
}

// fetchAside answers ws with page without applying it to the view.
func (s *Store[T]) fetchAside(page int, ws []waiter[T]) {
	ctx := ws[0].ctx
	resets := s.resets
	var items []T
	s.sched.Go(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.fetch(ctx, page)
		return err
	}, func(err error) {
		telemetry.RecordViewFetch(ctx, s.name, err)
		if resets != s.resets {
			for _, w := range ws {
				w.promise.Fulfill(Snapshot[T]{}, ErrReset)
			}
			return
		}
		if s.limit > 0 && len(items) > s.limit {
			items = items[:s.limit]
		}
		snap := Snapshot[T]{Items: append([]T(nil), items...), Loaded: err == nil, Page: page, Err: err}
		for _, w := range ws {
			w.promise.Fulfill(snap, err)
		}
	})
}

func (s *Store[T]) indexOf(key string) int {
	for i, it := range s.items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func (s *Store[T]) truncate() {
	if s.limit > 0 && len(s.items) > s.limit {
		s.items = s.items[:s.limit]
	}
}

func (s *Store[T]) snapshot(err error) Snapshot[T] {
	return Snapshot[T]{
		Items:  append([]T(nil), s.items...),
		Loaded: s.loaded,
		Page:   s.loadedPage,
		Err:    err,
	}
}

func (s *Store[T]) publish(err error) {
	s.subject.Next(s.snapshot(err))
}
