package stores

import (
	"context"
	"slices"

	"github.com/LamboYu/codever/internal/eventbus"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/localcache"
	"github.com/LamboYu/codever/internal/loop"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/telemetry"
	"github.com/LamboYu/codever/internal/viewstore"
)

const (
	PublicTagsLimit      = 500
	PersonalTagsCacheHrs = 24
)

// CommonTags seed the suggestions of a user without snippets.
var CommonTags = []string{
	"bash", "css", "docker", "git", "go", "html", "java", "javascript",
	"kubernetes", "linux", "python", "regex", "rust", "sql", "typescript",
}

type TagsSnapshot struct {
	Tags   []string
	Loaded bool
	Err    error
}

// SuggestedTagsStore offers tag suggestions when editing a snippet: common
// tags, the user's own tags and the most used public ones. Loaded once.
type SuggestedTagsStore struct {
	sched   loop.Scheduler
	cache   *localcache.Cache
	remote  gateway.Views
	userID  string
	subject *eventbus.Subject[TagsSnapshot]
	loaded  bool
	pending bool
	gen     uint64
	waiters []*loop.Promise[TagsSnapshot]
}

func NewSuggestedTagsStore(d Deps) *SuggestedTagsStore {
	return &SuggestedTagsStore{
		sched:   d.Sched,
		cache:   d.Cache,
		remote:  d.Remote,
		userID:  d.User.ID,
		subject: eventbus.NewSubject[TagsSnapshot](),
	}
}

func (s *SuggestedTagsStore) Get(ctx context.Context) eventbus.Stream[TagsSnapshot] {
	if s.loaded {
		return s.subject
	}
	s.loaded = true
	s.pending = true
	gen := s.gen

	var personal, public []snippets.UsedTag
	s.sched.Go(ctx, func(ctx context.Context) error {
		var err error
		personal, err = localcache.Load(ctx, s.cache, localcache.LoadOptions{
			Key:       localcache.KeyPersonalTags,
			TTLHours:  PersonalTagsCacheHrs,
			Sensitive: true,
		}, func(ctx context.Context) ([]snippets.UsedTag, error) {
			return s.remote.PersonalTags(ctx, s.userID)
		})
		if err != nil {
			return err
		}
		public, err = s.remote.PublicTags(ctx, PublicTagsLimit)
		return err
	}, func(err error) {
		if gen != s.gen {
			return
		}
		s.pending = false
		if err != nil {
			telemetry.LogWarn(ctx, "suggested tags fetch failed", telemetry.LogErr(err))
			s.loaded = false
			prev, _ := s.subject.Value()
			snap := TagsSnapshot{Tags: prev.Tags, Loaded: prev.Loaded, Err: err}
			s.subject.Next(snap)
			s.settle(snap, err)
			return
		}
		snap := TagsSnapshot{Tags: MergeTags(CommonTags, personal, public), Loaded: true}
		s.subject.Next(snap)
		s.settle(snap, nil)
	})
	return s.subject
}

// Fetch settles once the suggestions are loaded or failed to load.
func (s *SuggestedTagsStore) Fetch(ctx context.Context) *loop.Promise[TagsSnapshot] {
	p := loop.NewPromise[TagsSnapshot]()
	if snap, ok := s.subject.Value(); ok && snap.Loaded && !s.pending {
		p.Fulfill(snap, nil)
		return p
	}
	s.waiters = append(s.waiters, p)
	s.Get(ctx)
	return p
}

func (s *SuggestedTagsStore) Reset() {
	s.gen++
	s.loaded = false
	s.pending = false
	s.subject.Next(TagsSnapshot{})
	s.settle(TagsSnapshot{}, viewstore.ErrReset)
}

func (s *SuggestedTagsStore) settle(snap TagsSnapshot, err error) {
	waiters := s.waiters
	s.waiters = nil
	for _, p := range waiters {
		p.Fulfill(snap, err)
	}
}

// MergeTags returns the sorted union of the tag names.
func MergeTags(common []string, personal, public []snippets.UsedTag) []string {
	seen := make(map[string]struct{}, len(common)+len(personal)+len(public))
	out := make([]string, 0, len(common)+len(personal)+len(public))
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, t := range common {
		add(t)
	}
	for _, t := range personal {
		add(t.Name)
	}
	for _, t := range public {
		add(t.Name)
	}
	slices.Sort(out)
	return out
}
