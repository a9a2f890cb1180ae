package stores

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/identity"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/telemetry"
	"github.com/LamboYu/codever/internal/userdata"
	"github.com/LamboYu/codever/internal/viewstore"
)

var ErrNotLoaded = apperrors.New(apperrors.KindUnavailable, "user data not loaded")

// TagFollower is the capability of following and ignoring tags for the feed.
type TagFollower interface {
	FollowTag(ctx context.Context, tag string) *loop.Future
	UnfollowTag(ctx context.Context, tag string) *loop.Future
	IgnoreTag(ctx context.Context, tag string) *loop.Future
	UnignoreTag(ctx context.Context, tag string) *loop.Future
}

var _ TagFollower = (*UserDataStore)(nil)

// UserDataStore owns the user document and is the only component writing it.
//
// Every mutation changes the in-memory document first, then persists it. The
// acknowledged document is republished only after the gateway accepted the
// change; on failure the local document is rebuilt without it and the
// returned Future carries the error.
type UserDataStore struct {
	sched  loop.Scheduler
	remote gateway.Remote
	cache  *localcache.Cache
	bus    *eventbus.Bus
	user   identity.User

	history   *HistoryStore
	pinned    *PinnedStore
	readLater *ReadLaterStore
	liked     *View

	// doc is acked with the queued mutations applied on top.
	doc         *userdata.Document
	acked       *userdata.Document
	queue       []*mutation
	loadFuture  *loop.Future
	gen         uint64
	subject     *eventbus.Subject[*userdata.Document]
	SearchCap   int
	Now         func() time.Time
	FeedChanged func(ctx context.Context)
}

func NewUserDataStore(d Deps, history *HistoryStore, pinned *PinnedStore, readLater *ReadLaterStore) *UserDataStore {
	s := &UserDataStore{
		sched:     d.Sched,
		remote:    d.Remote,
		cache:     d.Cache,
		bus:       d.Bus,
		user:      d.User,
		history:   history,
		pinned:    pinned,
		readLater: readLater,
		subject:   eventbus.NewSubject[*userdata.Document](),
		SearchCap: userdata.DefaultSearchesPerDomain,
		Now:       time.Now,
	}
	s.liked = viewstore.New("liked", d.Sched, func(ctx context.Context, _ int) ([]*snippets.Snippet, error) {
		return d.Remote.Liked(ctx, d.User.ID)
	})
	pruneOnLifecycle(d.Bus, "liked", s.liked)
	return s
}

// Document streams the document; nil means not loaded.
func (s *UserDataStore) Document() eventbus.Stream[*userdata.Document] {
	return s.subject
}

// Doc returns a copy of the current document, or nil.
func (s *UserDataStore) Doc() *userdata.Document {
	return s.doc.Clone()
}

func (s *UserDataStore) Loaded() bool { return s.doc != nil }

func (s *UserDataStore) IsLiked(id string) bool {
	return s.doc != nil && slices.Contains(s.doc.Likes, id)
}

// Load fetches the document once per session. A user the backend does not
// know yet gets a synthesized initial document, created remotely.
func (s *UserDataStore) Load(ctx context.Context) *loop.Future {
	if s.doc != nil {
		return loop.Resolved(nil)
	}
	if s.loadFuture != nil {
		return s.loadFuture
	}

	f := loop.NewFuture()
	s.loadFuture = f
	gen := s.gen
	user := s.user
	var doc *userdata.Document

	s.sched.Go(ctx, func(ctx context.Context) error {
		d, err := s.remote.GetUserData(ctx, user.ID)
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			telemetry.LogInfo(ctx, "user data not found, creating initial document",
				telemetry.LogString("user.id", user.ID),
			)
			d, err = s.remote.CreateUserData(ctx, userdata.NewInitial(user))
		}
		if err != nil {
			return err
		}
		if d.EnableLocalStorage && s.cache != nil {
			if err := s.cache.Set(ctx, localcache.KeyLocalStorageConsent, true, 0, false); err != nil {
				telemetry.LogWarn(ctx, "storing local storage consent failed", telemetry.LogErr(err))
			}
		}
		doc = d
		return nil
	}, func(err error) {
		if gen != s.gen {
			f.Resolve(err)
			return
		}
		s.loadFuture = nil
		if err != nil {
			telemetry.LogError(ctx, "loading user data failed", telemetry.LogErr(err))
			f.Resolve(err)
			return
		}
		doc.SortSearches()
		s.acked = doc
		s.doc = doc.Clone()
		s.publish()
		f.Resolve(nil)
	})
	return f
}

// Reset forgets the document; continuations of requests issued before are dropped.
func (s *UserDataStore) Reset() {
	s.gen++
	s.doc = nil
	s.acked = nil
	s.loadFuture = nil
	queued := s.queue
	s.queue = nil
	for i, m := range queued {
		// the head is settled by its own continuation
		if i > 0 {
			m.future.Resolve(ErrNotLoaded)
		}
	}
	s.liked.Reset()
	s.subject.Next(nil)
}

func (s *UserDataStore) publish() {
	s.subject.Next(s.acked.Clone())
}

// mutation is one change of the document. apply must only depend on what it
// captured, so the change can be replayed onto any acknowledged state.
type mutation struct {
	op    string
	apply func(d *userdata.Document)
	// send persists d, the acknowledged document with this change applied.
	// A returned document replaces d as the acknowledged state.
	send   func(ctx context.Context, d *userdata.Document) (*userdata.Document, error)
	after  func()
	failed func()
	// keep the change and publish it even if persisting fails
	keepOnFailure bool

	ctx    context.Context
	future *loop.Future
}

// persist applies m to the local document right away and queues it. Queued
// mutations reach the gateway one at a time, each built on the state the
// backend acknowledged, so a payload never carries a change that may still
// fail.
func (s *UserDataStore) persist(ctx context.Context, m mutation) *loop.Future {
	m.ctx = ctx
	m.future = loop.NewFuture()
	m.apply(s.doc)
	s.queue = append(s.queue, &m)
	if len(s.queue) == 1 {
		s.sendHead()
	}
	return m.future
}

func (s *UserDataStore) sendHead() {
	m := s.queue[0]
	gen := s.gen
	next := s.acked.Clone()
	m.apply(next)
	payload := next.Clone()

	var stored *userdata.Document
	s.sched.Go(m.ctx, func(ctx context.Context) error {
		var err error
		stored, err = m.send(ctx, payload)
		return err
	}, func(err error) {
		telemetry.RecordPersist(m.ctx, m.op, err)
		if gen != s.gen {
			m.future.Resolve(err)
			return
		}
		s.queue = s.queue[1:]
		if err != nil {
			telemetry.LogWarn(m.ctx, "persisting user data failed",
				telemetry.LogString("operation", m.op),
				telemetry.LogInt("queued", len(s.queue)),
				telemetry.LogErr(err),
			)
		}
		switch {
		case err == nil && stored != nil && stored.UserID != "":
			s.acked = stored.Clone()
		case err == nil, m.keepOnFailure:
			s.acked = next
		}
		s.rebase()

		if err == nil {
			if m.after != nil {
				m.after()
			}
		} else if m.failed != nil {
			m.failed()
		}
		if err == nil || m.keepOnFailure {
			s.publish()
		}
		if len(s.queue) > 0 {
			s.sendHead()
		}
		m.future.Resolve(err)
	})
}

// rebase rebuilds the local document from the acknowledged one and the
// mutations still queued.
func (s *UserDataStore) rebase() {
	d := s.acked.Clone()
	for _, m := range s.queue {
		m.apply(d)
	}
	s.doc = d
}

// Update replaces the whole document.
func (s *UserDataStore) Update(ctx context.Context, d *userdata.Document) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	next := d.Clone()
	next.UserID = s.user.ID

	return s.persist(ctx, mutation{
		op:    "update",
		apply: func(d *userdata.Document) { *d = *next.Clone() },
		send: func(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
			return s.remote.UpdateUserData(ctx, d)
		},
	})
}

// PromoteHistory moves sn to the front of the history. Opening one's own
// snippet also counts an owner visit.
func (s *UserDataStore) PromoteHistory(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	return s.persist(ctx, mutation{
		op:    "history",
		apply: func(d *userdata.Document) { d.PromoteHistory(sn.ID) },
		send: func(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
			return nil, s.remote.PatchHistory(ctx, s.user.ID, d.History)
		},
		after: func() {
			s.history.Promote(ctx, sn)
			if sn.UserID == s.user.ID {
				s.countOwnerVisit(ctx, sn)
			}
		},
	})
}

// PromoteHistoryBulk promotes items so that items[0] ends up first.
func (s *UserDataStore) PromoteHistoryBulk(ctx context.Context, items []*snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if len(items) == 0 {
		return loop.Resolved(nil)
	}
	ids := make([]string, 0, len(items))
	for _, sn := range items {
		ids = append(ids, sn.ID)
	}

	return s.persist(ctx, mutation{
		op: "history_bulk",
		apply: func(d *userdata.Document) {
			for i := len(ids) - 1; i >= 0; i-- {
				d.PromoteHistory(ids[i])
			}
		},
		send: func(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
			return nil, s.remote.PatchHistory(ctx, s.user.ID, d.History)
		},
		after: func() { s.history.PromoteBulk(ctx, items) },
	})
}

// UpdateHistoryReadLaterPinned promotes sn in the history and optionally
// queues it for later and pins it, in a single remote call.
func (s *UserDataStore) UpdateHistoryReadLaterPinned(ctx context.Context, sn *snippets.Snippet, readLater, pinned bool) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	addedReadLater := readLater && !slices.Contains(s.doc.ReadLater, sn.ID)
	addedPinned := pinned && !slices.Contains(s.doc.Pinned, sn.ID)

	return s.persist(ctx, mutation{
		op: "history_read_later_pinned",
		apply: func(d *userdata.Document) {
			d.PromoteHistory(sn.ID)
			if readLater {
				d.ReadLater = userdata.AppendUnique(d.ReadLater, sn.ID)
			}
			if pinned {
				d.Pinned = userdata.PrependUnique(d.Pinned, sn.ID)
			}
		},
		send: func(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
			patch := userdata.ListsPatch{History: d.History}
			if readLater {
				patch.ReadLater = d.ReadLater
			}
			if pinned {
				patch.Pinned = d.Pinned
			}
			return nil, s.remote.PatchLists(ctx, s.user.ID, patch)
		},
		after: func() {
			s.history.Promote(ctx, sn)
			if addedReadLater {
				s.readLater.Add(sn)
			}
			if addedPinned {
				s.pinned.Add(sn)
			}
		},
	})
}

func (s *UserDataStore) countOwnerVisit(ctx context.Context, sn *snippets.Snippet) {
	target := sn.Clone()
	s.sched.Go(ctx, func(ctx context.Context) error {
		return s.remote.IncrementOwnerVisits(ctx, target)
	}, func(err error) {
		if err != nil {
			telemetry.LogWarn(ctx, "owner visit count failed",
				telemetry.LogString("snippet.id", target.ID),
				telemetry.LogErr(err),
			)
		}
	})
}

func (s *UserDataStore) sendPinned(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	return nil, s.remote.PatchPinned(ctx, s.user.ID, d.Pinned)
}

func (s *UserDataStore) sendReadLater(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	return nil, s.remote.PatchReadLater(ctx, s.user.ID, d.ReadLater)
}

func (s *UserDataStore) AddPinned(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if slices.Contains(s.doc.Pinned, sn.ID) {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op:    "pin",
		apply: func(d *userdata.Document) { d.Pinned = userdata.PrependUnique(d.Pinned, sn.ID) },
		send:  s.sendPinned,
		after: func() { s.pinned.Add(sn) },
	})
}

func (s *UserDataStore) RemovePinned(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if !slices.Contains(s.doc.Pinned, sn.ID) {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op:    "unpin",
		apply: func(d *userdata.Document) { d.Pinned = userdata.Without(d.Pinned, sn.ID) },
		send:  s.sendPinned,
		after: func() { s.pinned.Remove(sn.ID) },
	})
}

func (s *UserDataStore) AddReadLater(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if slices.Contains(s.doc.ReadLater, sn.ID) {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op:    "read_later_add",
		apply: func(d *userdata.Document) { d.ReadLater = userdata.AppendUnique(d.ReadLater, sn.ID) },
		send:  s.sendReadLater,
		after: func() { s.readLater.Add(sn) },
	})
}

func (s *UserDataStore) RemoveReadLater(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if !slices.Contains(s.doc.ReadLater, sn.ID) {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op:    "read_later_remove",
		apply: func(d *userdata.Document) { d.ReadLater = userdata.Without(d.ReadLater, sn.ID) },
		send:  s.sendReadLater,
		after: func() { s.readLater.Remove(sn.ID) },
	})
}

func (s *UserDataStore) SetFeedToggle(ctx context.Context, showAllPublic bool) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	return s.persist(ctx, mutation{
		op:    "feed_toggle",
		apply: func(d *userdata.Document) { d.ShowAllPublicInFeed = showAllPublic },
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			return nil, s.remote.PatchFeedToggle(ctx, s.user.ID, showAllPublic)
		},
		after: func() { s.feedChanged(ctx) },
	})
}

// SetLocalStorage records the consent to keep data on this device. Revoking
// it also drops the sensitive entries already stored.
func (s *UserDataStore) SetLocalStorage(ctx context.Context, enabled bool) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	return s.persist(ctx, mutation{
		op:    "local_storage",
		apply: func(d *userdata.Document) { d.EnableLocalStorage = enabled },
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			if err := s.remote.PatchLocalStorage(ctx, s.user.ID, enabled); err != nil {
				return nil, err
			}
			s.applyConsent(ctx, enabled)
			return nil, nil
		},
	})
}

func (s *UserDataStore) applyConsent(ctx context.Context, enabled bool) {
	if s.cache == nil {
		return
	}
	var err error
	if enabled {
		err = s.cache.Set(ctx, localcache.KeyLocalStorageConsent, true, 0, false)
	} else {
		err = s.cache.Invalidate(ctx, localcache.KeyLocalStorageConsent)
		if err == nil {
			err = s.cache.PurgeSensitive(ctx)
		}
	}
	if err != nil {
		telemetry.LogWarn(ctx, "applying local storage consent failed", telemetry.LogErr(err))
	}
}

func (s *UserDataStore) AcknowledgeWelcome(ctx context.Context) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if s.doc.WelcomeAck {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op:    "welcome_ack",
		apply: func(d *userdata.Document) { d.WelcomeAck = true },
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			return nil, s.remote.AcknowledgeWelcome(ctx, s.user.ID)
		},
	})
}

// LikedSnippets streams the snippets the user liked, loaded once.
func (s *UserDataStore) LikedSnippets(ctx context.Context) Stream {
	return s.liked.Get(ctx, 0)
}

func (s *UserDataStore) LikedView() *View { return s.liked }

// Like bumps the like counter of sn right away and announces it as updated,
// then rates it remotely. On success the snippet enters the liked view.
func (s *UserDataStore) Like(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if slices.Contains(s.doc.Likes, sn.ID) {
		return loop.Resolved(nil)
	}
	original := sn.Clone()
	liked := sn.Clone()
	liked.LikeCount++
	s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Updated, Snippet: liked})

	req := gateway.RateRequest{RatingUserID: s.user.ID, Action: gateway.RateLike, Snippet: liked.Clone()}
	return s.persist(ctx, mutation{
		op:    "like",
		apply: func(d *userdata.Document) { d.Likes = userdata.PrependUnique(d.Likes, sn.ID) },
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			return nil, s.remote.Rate(ctx, req)
		},
		after: func() { s.liked.InsertAtFront(liked) },
		failed: func() {
			s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Updated, Snippet: original})
		},
	})
}

func (s *UserDataStore) Unlike(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if !slices.Contains(s.doc.Likes, sn.ID) {
		return loop.Resolved(nil)
	}
	original := sn.Clone()
	unliked := sn.Clone()
	if unliked.LikeCount > 0 {
		unliked.LikeCount--
	}
	s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Updated, Snippet: unliked})

	req := gateway.RateRequest{RatingUserID: s.user.ID, Action: gateway.RateUnlike, Snippet: unliked.Clone()}
	return s.persist(ctx, mutation{
		op:    "unlike",
		apply: func(d *userdata.Document) { d.Likes = userdata.Without(d.Likes, sn.ID) },
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			return nil, s.remote.Rate(ctx, req)
		},
		after: func() { s.liked.Remove(sn.ID) },
		failed: func() {
			s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Updated, Snippet: original})
		},
	})
}

func (s *UserDataStore) FollowUser(ctx context.Context, followedID string) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if followedID == "" || followedID == s.user.ID {
		return loop.Resolved(apperrors.New(apperrors.KindInvalidInput, "invalid user to follow"))
	}
	if slices.Contains(s.doc.Following.Users, followedID) {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op: "follow_user",
		apply: func(d *userdata.Document) {
			d.Following.Users = userdata.AppendUnique(d.Following.Users, followedID)
		},
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			_, err := s.remote.FollowUser(ctx, s.user.ID, followedID)
			return nil, err
		},
	})
}

func (s *UserDataStore) UnfollowUser(ctx context.Context, followedID string) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if !slices.Contains(s.doc.Following.Users, followedID) {
		return loop.Resolved(nil)
	}
	return s.persist(ctx, mutation{
		op: "unfollow_user",
		apply: func(d *userdata.Document) {
			d.Following.Users = userdata.Without(d.Following.Users, followedID)
		},
		send: func(ctx context.Context, _ *userdata.Document) (*userdata.Document, error) {
			_, err := s.remote.UnfollowUser(ctx, s.user.ID, followedID)
			return nil, err
		},
	})
}

// sendDocument persists the whole document; the stored copy is not trusted
// over the one sent.
func (s *UserDataStore) sendDocument(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	_, err := s.remote.UpdateUserData(ctx, d)
	return nil, err
}

type tagList func(d *userdata.Document) *[]string

func watched(d *userdata.Document) *[]string { return &d.WatchedTags }
func ignored(d *userdata.Document) *[]string { return &d.IgnoredTags }

// moveTag adds tag to one list and takes it out of another, then persists
// the whole document.
func (s *UserDataStore) moveTag(ctx context.Context, op, tag string, addTo, removeFrom tagList) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return loop.Resolved(apperrors.New(apperrors.KindInvalidInput, "tag is required"))
	}
	adds := addTo != nil && !slices.Contains(*addTo(s.doc), tag)
	removes := removeFrom != nil && slices.Contains(*removeFrom(s.doc), tag)
	if !adds && !removes {
		return loop.Resolved(nil)
	}

	return s.persist(ctx, mutation{
		op: op,
		apply: func(d *userdata.Document) {
			if addTo != nil {
				*addTo(d) = userdata.AppendUnique(*addTo(d), tag)
			}
			if removeFrom != nil {
				*removeFrom(d) = userdata.Without(*removeFrom(d), tag)
			}
		},
		send:  s.sendDocument,
		after: func() { s.feedChanged(ctx) },
	})
}

func (s *UserDataStore) FollowTag(ctx context.Context, tag string) *loop.Future {
	return s.moveTag(ctx, "follow_tag", tag, watched, ignored)
}

func (s *UserDataStore) UnfollowTag(ctx context.Context, tag string) *loop.Future {
	return s.moveTag(ctx, "unfollow_tag", tag, nil, watched)
}

func (s *UserDataStore) IgnoreTag(ctx context.Context, tag string) *loop.Future {
	return s.moveTag(ctx, "ignore_tag", tag, ignored, watched)
}

func (s *UserDataStore) UnignoreTag(ctx context.Context, tag string) *loop.Future {
	return s.moveTag(ctx, "unignore_tag", tag, nil, ignored)
}

// RecordSearch adds a search to the user's search history.
func (s *UserDataStore) RecordSearch(ctx context.Context, text, domain string) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if strings.TrimSpace(text) == "" {
		return loop.Resolved(apperrors.New(apperrors.KindInvalidInput, "search text is required"))
	}
	if domain != userdata.DomainPersonal && domain != userdata.DomainPublic {
		return loop.Resolved(apperrors.New(apperrors.KindInvalidInput, "unknown search domain"))
	}
	now, limit := s.Now(), s.SearchCap
	return s.persist(ctx, mutation{
		op:    "record_search",
		apply: func(d *userdata.Document) { d.RecordSearch(text, domain, now, limit) },
		send:  s.sendDocument,
	})
}

func (s *UserDataStore) SetSearchSaved(ctx context.Context, text, domain string, saved bool) *loop.Future {
	if s.doc == nil {
		return loop.Resolved(ErrNotLoaded)
	}
	if !s.doc.Clone().SetSaved(text, domain, saved) {
		return loop.Resolved(apperrors.New(apperrors.KindNotFound, "search not found"))
	}
	return s.persist(ctx, mutation{
		op:    "save_search",
		apply: func(d *userdata.Document) { d.SetSaved(text, domain, saved) },
		send:  s.sendDocument,
	})
}

// RemoveFromListsAtDeletion drops a deleted snippet from every id list of
// the document, then announces the deletion to every view. The snippet is
// gone remotely, so the local pruning stands even if persisting fails.
func (s *UserDataStore) RemoveFromListsAtDeletion(ctx context.Context, sn *snippets.Snippet) *loop.Future {
	if s.doc == nil {
		s.bus.PublishDeleted(ctx, sn)
		return loop.Resolved(nil)
	}
	f := s.persist(ctx, mutation{
		op:            "remove_deleted",
		apply:         func(d *userdata.Document) { d.RemoveEverywhere(sn.ID) },
		send:          s.sendDocument,
		keepOnFailure: true,
	})
	f.OnDone(func(error) {
		s.bus.PublishDeleted(ctx, sn)
	})
	return f
}

func (s *UserDataStore) feedChanged(ctx context.Context) {
	if s.FeedChanged != nil {
		s.FeedChanged(ctx)
	}
}
