package stores

import (
	"context"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/telemetry"
)

type CreateOptions struct {
	Pin       bool
	ReadLater bool
}

// SnippetService runs the snippet lifecycle and tells the views about it.
type SnippetService struct {
	sched    loop.Scheduler
	remote   gateway.Snippets
	bus      *eventbus.Bus
	user     identity.User
	userData *UserDataStore
}

func NewSnippetService(d Deps, userData *UserDataStore) *SnippetService {
	return &SnippetService{
		sched:    d.Sched,
		remote:   d.Remote,
		bus:      d.Bus,
		user:     d.User,
		userData: userData,
	}
}

func (s *SnippetService) displayName() string {
	if s.userData.doc != nil && s.userData.doc.Profile.DisplayName != "" {
		return s.userData.doc.Profile.DisplayName
	}
	return s.user.FirstName
}

// Create stores a new snippet, announces it and records it in the history,
// pinning it or queueing it for later on request. The promise settles once
// the lists are recorded; failing to record them does not fail the create.
func (s *SnippetService) Create(ctx context.Context, req *snippets.CreateRequest, opts CreateOptions) *loop.Promise[*snippets.Snippet] {
	if err := req.Validate(); err != nil {
		return loop.Rejected[*snippets.Snippet](apperrors.New(apperrors.KindInvalidInput, err.Error()))
	}
	draft := req.Snippet(s.user.ID, s.displayName())

	p := loop.NewPromise[*snippets.Snippet]()
	var created *snippets.Snippet
	s.sched.Go(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.remote.CreateSnippet(ctx, s.user.ID, draft)
		return err
	}, func(err error) {
		if err != nil {
			telemetry.LogWarn(ctx, "snippet create failed", telemetry.LogErr(err))
			p.Fulfill(nil, err)
			return
		}
		s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Created, Snippet: created})
		s.userData.UpdateHistoryReadLaterPinned(ctx, created, opts.ReadLater, opts.Pin).OnDone(func(err error) {
			if err != nil {
				telemetry.LogWarn(ctx, "recording created snippet failed",
					telemetry.LogString("snippet.id", created.ID),
					telemetry.LogErr(err),
				)
			}
			p.Fulfill(created, nil)
		})
	})
	return p
}

// Update replaces an owned snippet.
func (s *SnippetService) Update(ctx context.Context, sn *snippets.Snippet) *loop.Promise[*snippets.Snippet] {
	if sn == nil || sn.ID == "" {
		return loop.Rejected[*snippets.Snippet](apperrors.New(apperrors.KindInvalidInput, "snippet id is required"))
	}
	if sn.UserID != s.user.ID {
		return loop.Rejected[*snippets.Snippet](apperrors.New(apperrors.KindForbidden, "not the owner of the snippet"))
	}
	payload := sn.Clone()

	p := loop.NewPromise[*snippets.Snippet]()
	var updated *snippets.Snippet
	s.sched.Go(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.remote.UpdateSnippet(ctx, payload)
		return err
	}, func(err error) {
		if err != nil {
			p.Fulfill(nil, err)
			return
		}
		s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Updated, Snippet: updated})
		p.Fulfill(updated, nil)
	})
	return p
}

// Delete removes an owned snippet remotely, then from the user document and
// every view. A failure to persist the pruned document is only logged.
func (s *SnippetService) Delete(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if sn == nil || sn.ID == "" {
		return loop.Resolved(apperrors.New(apperrors.KindInvalidInput, "snippet id is required"))
	}
	if sn.UserID != s.user.ID {
		return loop.Resolved(apperrors.New(apperrors.KindForbidden, "not the owner of the snippet"))
	}
	deleted := sn.Clone()

	f := loop.NewFuture()
	s.sched.Go(ctx, func(ctx context.Context) error {
		return s.remote.DeleteSnippet(ctx, s.user.ID, deleted.ID)
	}, func(err error) {
		if err != nil {
			telemetry.LogWarn(ctx, "snippet delete failed",
				telemetry.LogString("snippet.id", deleted.ID),
				telemetry.LogErr(err),
			)
			f.Resolve(err)
			return
		}
		s.userData.RemoveFromListsAtDeletion(ctx, deleted).OnDone(func(err error) {
			if err != nil {
				telemetry.LogWarn(ctx, "pruning deleted snippet from user data failed",
					telemetry.LogString("snippet.id", deleted.ID),
					telemetry.LogErr(err),
				)
			}
			f.Resolve(nil)
		})
	})
	return f
}

// Open fetches a snippet of the user and moves it to the front of the history.
func (s *SnippetService) Open(ctx context.Context, id string) *loop.Promise[*snippets.Snippet] {
	if id == "" {
		return loop.Rejected[*snippets.Snippet](apperrors.New(apperrors.KindInvalidInput, "snippet id is required"))
	}
	p := loop.NewPromise[*snippets.Snippet]()
	var sn *snippets.Snippet
	s.sched.Go(ctx, func(ctx context.Context) error {
		var err error
		sn, err = s.remote.GetSnippet(ctx, s.user.ID, id)
		return err
	}, func(err error) {
		if err != nil {
			p.Fulfill(nil, err)
			return
		}
		if s.userData.Loaded() {
			s.userData.PromoteHistory(ctx, sn)
		}
		p.Fulfill(sn, nil)
	})
	return p
}
