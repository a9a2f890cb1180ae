// Package stores holds the named snippet views of a session and the user
// document store that keeps them consistent.
//
// Every method must be called on the session loop. Methods that talk to the
// gateway return immediately and report completion through a loop.Future.
package stores

import (
	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/viewstore"
)

type (
	View     = viewstore.Store[*snippets.Snippet]
	Snapshot = viewstore.Snapshot[*snippets.Snippet]
	Stream   = eventbus.Stream[Snapshot]
)

// Deps are the collaborators shared by every store of one session.
type Deps struct {
	Sched    loop.Scheduler
	Bus      *eventbus.Bus
	Cache    *localcache.Cache
	Remote   gateway.Remote
	User     identity.User
	PageSize int
}

func (d Deps) page(page int) gateway.Page {
	return gateway.Page{Page: page, Limit: d.PageSize}
}

// pruneOnLifecycle keeps v in step with deletions and updates published on bus.
func pruneOnLifecycle(bus *eventbus.Bus, name string, v *View) {
	bus.SubscribeKind(name, eventbus.Deleted, func(s *snippets.Snippet) {
		v.Remove(s.ID)
	})
	bus.SubscribeKind(name, eventbus.Updated, func(s *snippets.Snippet) {
		v.Replace(s)
	})
}
