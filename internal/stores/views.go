package stores

import (
	"context"

	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/viewstore"
)

// LastCreatedLimit caps the personal last created view.
const LastCreatedLimit = 30

// FeedStore lists public snippets matching the tags the user watches.
type FeedStore struct {
	view *View
}

func NewFeedStore(d Deps) *FeedStore {
	s := &FeedStore{
		view: viewstore.New("feed", d.Sched, func(ctx context.Context, page int) ([]*snippets.Snippet, error) {
			return d.Remote.Feed(ctx, d.User.ID, d.page(page))
		}),
	}
	pruneOnLifecycle(d.Bus, "feed", s.view)
	return s
}

func (s *FeedStore) Get(ctx context.Context, page int) Stream { return s.view.Get(ctx, page) }
func (s *FeedStore) View() *View                              { return s.view }
func (s *FeedStore) Reset()                                   { s.view.Reset() }

// Invalidate refetches the feed after the tags or the toggle that select it
// changed. Pending fetches settle with the refreshed items.
func (s *FeedStore) Invalidate(ctx context.Context) { s.view.Invalidate(ctx) }

// PersonalStore serves the user's own snippets in the three backend orders.
// Each order is loaded once per session.
type PersonalStore struct {
	views map[snippets.Order]*View
}

func NewPersonalStore(d Deps) *PersonalStore {
	s := &PersonalStore{views: map[snippets.Order]*View{}}
	for _, order := range []snippets.Order{snippets.OrderLastCreated, snippets.OrderMostLikes, snippets.OrderMostUsed} {
		var opts []viewstore.Option
		if order == snippets.OrderLastCreated {
			opts = append(opts, viewstore.WithLimit(LastCreatedLimit))
		}
		v := viewstore.New("personal."+string(order), d.Sched, func(ctx context.Context, _ int) ([]*snippets.Snippet, error) {
			return d.Remote.Personal(ctx, d.User.ID, order)
		}, opts...)
		pruneOnLifecycle(d.Bus, "personal."+string(order), v)
		s.views[order] = v
	}

	d.Bus.SubscribeKind("personal.created", eventbus.Created, func(sn *snippets.Snippet) {
		s.views[snippets.OrderLastCreated].InsertAtFront(sn)
	})
	return s
}

// Get returns the view for order, or nil when order is unknown.
func (s *PersonalStore) Get(ctx context.Context, order snippets.Order) Stream {
	v, ok := s.views[order]
	if !ok {
		return nil
	}
	return v.Get(ctx, 0)
}

func (s *PersonalStore) View(order snippets.Order) *View { return s.views[order] }

// AddToLastCreatedBulk inserts snippets in order, so the last one ends up first.
func (s *PersonalStore) AddToLastCreatedBulk(items []*snippets.Snippet) {
	for _, sn := range items {
		s.views[snippets.OrderLastCreated].InsertAtFront(sn)
	}
}

func (s *PersonalStore) Reset() {
	for _, v := range s.views {
		v.Reset()
	}
}

type PinnedStore struct {
	view *View
}

func NewPinnedStore(d Deps) *PinnedStore {
	s := &PinnedStore{
		view: viewstore.New("pinned", d.Sched, func(ctx context.Context, page int) ([]*snippets.Snippet, error) {
			return d.Remote.Pinned(ctx, d.User.ID, d.page(page))
		}),
	}
	pruneOnLifecycle(d.Bus, "pinned", s.view)
	return s
}

func (s *PinnedStore) Get(ctx context.Context, page int) Stream { return s.view.Get(ctx, page) }
func (s *PinnedStore) View() *View                              { return s.view }
func (s *PinnedStore) Add(sn *snippets.Snippet)                 { s.view.InsertAtFront(sn) }
func (s *PinnedStore) Remove(id string)                         { s.view.Remove(id) }
func (s *PinnedStore) Reset()                                   { s.view.Reset() }

// ReadLaterStore is a queue: new entries go to the end.
type ReadLaterStore struct {
	view *View
}

func NewReadLaterStore(d Deps) *ReadLaterStore {
	s := &ReadLaterStore{
		view: viewstore.New("read_later", d.Sched, func(ctx context.Context, page int) ([]*snippets.Snippet, error) {
			return d.Remote.ReadLater(ctx, d.User.ID, d.page(page))
		}),
	}
	pruneOnLifecycle(d.Bus, "read_later", s.view)
	return s
}

func (s *ReadLaterStore) Get(ctx context.Context, page int) Stream { return s.view.Get(ctx, page) }
func (s *ReadLaterStore) View() *View                              { return s.view }
func (s *ReadLaterStore) Add(sn *snippets.Snippet)                 { s.view.InsertAtEnd(sn) }
func (s *ReadLaterStore) Remove(id string)                         { s.view.Remove(id) }
func (s *ReadLaterStore) Reset()                                   { s.view.Reset() }

// FavoritesStore is deprecated; it is kept read only until favorites are
// removed from the document.
type FavoritesStore struct {
	view *View
}

func NewFavoritesStore(d Deps) *FavoritesStore {
	s := &FavoritesStore{
		view: viewstore.New("favorites", d.Sched, func(ctx context.Context, page int) ([]*snippets.Snippet, error) {
			return d.Remote.Favorites(ctx, d.User.ID, d.page(page))
		}),
	}
	pruneOnLifecycle(d.Bus, "favorites", s.view)
	return s
}

func (s *FavoritesStore) Get(ctx context.Context, page int) Stream { return s.view.Get(ctx, page) }
func (s *FavoritesStore) View() *View                              { return s.view }
func (s *FavoritesStore) Reset()                                   { s.view.Reset() }

// PublicStore lists the most recent public snippets of every user.
type PublicStore struct {
	view *View
}

func NewPublicStore(d Deps) *PublicStore {
	s := &PublicStore{
		view: viewstore.New("public", d.Sched, func(ctx context.Context, page int) ([]*snippets.Snippet, error) {
			return d.Remote.Public(ctx, d.page(page))
		}),
	}
	pruneOnLifecycle(d.Bus, "public", s.view)
	return s
}

func (s *PublicStore) Get(ctx context.Context, page int) Stream { return s.view.Get(ctx, page) }
func (s *PublicStore) View() *View                              { return s.view }
func (s *PublicStore) Reset()                                   { s.view.Reset() }
