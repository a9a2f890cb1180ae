package stores

import (
	"context"
	"sync"

	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/telemetry"
	"github.com/LamboYu/codever/internal/viewstore"
)

const (
	// HistoryCacheLimit bounds the persisted copy of the history; the backend
	// keeps fewer.
	HistoryCacheLimit = 100
	HistoryCacheHours = 24
)

// HistoryStore is the paged history view plus its persisted mirror.
type HistoryStore struct {
	view   *View
	sched  loop.Scheduler
	cache  *localcache.Cache
	remote gateway.Views
	userID string

	// serializes read-modify-write of the persisted copy across workers
	mirrorMu sync.Mutex
	// read-throughs of AllHistory in flight, and the edits made meanwhile
	filling  int
	deferred []historyEdit
}

type historyEdit func([]*snippets.Snippet) []*snippets.Snippet

func NewHistoryStore(d Deps) *HistoryStore {
	s := &HistoryStore{
		sched:  d.Sched,
		cache:  d.Cache,
		remote: d.Remote,
		userID: d.User.ID,
	}
	s.view = viewstore.New("history", d.Sched, func(ctx context.Context, page int) ([]*snippets.Snippet, error) {
		return d.Remote.History(ctx, d.User.ID, d.page(page))
	})

	d.Bus.SubscribeKind("history", eventbus.Deleted, func(sn *snippets.Snippet) {
		s.Remove(context.Background(), sn.ID)
	})
	d.Bus.SubscribeKind("history", eventbus.Updated, func(sn *snippets.Snippet) {
		s.view.Replace(sn)
	})
	return s
}

func (s *HistoryStore) Get(ctx context.Context, page int) Stream { return s.view.Get(ctx, page) }
func (s *HistoryStore) View() *View                              { return s.view }
func (s *HistoryStore) Reset()                                   { s.view.Reset() }

// Promote moves sn to the front of the loaded view and of the persisted copy.
func (s *HistoryStore) Promote(ctx context.Context, sn *snippets.Snippet) {
	s.view.Promote(sn)
	s.mirror(ctx, func(items []*snippets.Snippet) []*snippets.Snippet {
		return promote(items, sn)
	})
}

// PromoteBulk promotes items so that items[0] ends up first.
func (s *HistoryStore) PromoteBulk(ctx context.Context, items []*snippets.Snippet) {
	for i := len(items) - 1; i >= 0; i-- {
		s.view.Promote(items[i])
	}
	s.mirror(ctx, func(cached []*snippets.Snippet) []*snippets.Snippet {
		for i := len(items) - 1; i >= 0; i-- {
			cached = promote(cached, items[i])
		}
		return cached
	})
}

func (s *HistoryStore) Remove(ctx context.Context, id string) {
	s.view.Remove(id)
	s.mirror(ctx, func(items []*snippets.Snippet) []*snippets.Snippet {
		return without(items, id)
	})
}

// AllHistory serves the whole history, from the persisted copy when it is fresh.
func (s *HistoryStore) AllHistory(ctx context.Context) *loop.Promise[[]*snippets.Snippet] {
	p := loop.NewPromise[[]*snippets.Snippet]()
	var out []*snippets.Snippet
	s.sched.Go(ctx, func(ctx context.Context) error {
		s.beginFill()
		var err error
		out, err = localcache.Load(ctx, s.cache, localcache.LoadOptions{
			Key:       localcache.KeyHistorySnippets,
			TTLHours:  HistoryCacheHours,
			Sensitive: true,
		}, func(ctx context.Context) ([]*snippets.Snippet, error) {
			return s.remote.AllHistory(ctx, s.userID)
		})
		if edits := s.endFill(ctx); err == nil {
			for _, edit := range edits {
				out = edit(out)
			}
		}
		return err
	}, func(err error) {
		p.Fulfill(out, err)
	})
	return p
}

// mirror rewrites the persisted history copy off the loop, keeping its
// expiry. A missing or expired copy is left alone: it is rebuilt by the next
// AllHistory. Edits made while such a rebuild is in flight are replayed on
// the rebuilt copy.
func (s *HistoryStore) mirror(ctx context.Context, edit historyEdit) {
	if s.cache == nil {
		return
	}
	s.sched.Go(ctx, func(ctx context.Context) error {
		s.mirrorMu.Lock()
		defer s.mirrorMu.Unlock()
		if s.filling > 0 {
			s.deferred = append(s.deferred, edit)
		}
		return s.editCache(ctx, edit)
	}, func(err error) {
		if err != nil {
			telemetry.LogWarn(ctx, "history cache mirror failed", telemetry.LogErr(err))
		}
	})
}

func (s *HistoryStore) editCache(ctx context.Context, edit historyEdit) error {
	_, err := localcache.Edit(ctx, s.cache, localcache.KeyHistorySnippets, func(items []*snippets.Snippet) []*snippets.Snippet {
		items = edit(items)
		if len(items) > HistoryCacheLimit {
			items = items[:HistoryCacheLimit]
		}
		return items
	})
	return err
}

func (s *HistoryStore) beginFill() {
	if s.cache == nil {
		return
	}
	s.mirrorMu.Lock()
	s.filling++
	s.mirrorMu.Unlock()
}

// endFill replays the edits made during the read-through on the persisted
// copy and returns them.
func (s *HistoryStore) endFill(ctx context.Context) []historyEdit {
	if s.cache == nil {
		return nil
	}
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	s.filling--
	edits := s.deferred
	if s.filling == 0 {
		s.deferred = nil
	}
	for _, edit := range edits {
		if err := s.editCache(ctx, edit); err != nil {
			telemetry.LogWarn(ctx, "history cache mirror failed", telemetry.LogErr(err))
			break
		}
	}
	return edits
}

func promote(items []*snippets.Snippet, sn *snippets.Snippet) []*snippets.Snippet {
	out := make([]*snippets.Snippet, 0, len(items)+1)
	out = append(out, sn)
	for _, it := range items {
		if it.ID != sn.ID {
			out = append(out, it)
		}
	}
	return out
}

func without(items []*snippets.Snippet, id string) []*snippets.Snippet {
	out := make([]*snippets.Snippet, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}
