package userdata

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/LamboYu/codever/internal/identity"
)

func TestNewInitialDocument(t *testing.T) {
	doc := NewInitial(identity.User{ID: "usr_1", FirstName: "Ada", Email: " Ada@Example.com "})

	if doc.UserID != "usr_1" || doc.Profile.DisplayName != "Ada" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Profile.ImageURL != GravatarURL("ada@example.com") {
		t.Fatalf("gravatar must be derived from normalized email: %s", doc.Profile.ImageURL)
	}
	if doc.History == nil || doc.Pinned == nil || doc.Following.Users == nil {
		t.Fatal("initial lists must be empty, not nil")
	}
	if doc.WelcomeAck {
		t.Fatal("welcome must not be acknowledged")
	}
}

func TestGravatarURLIsDeterministic(t *testing.T) {
	got := GravatarURL("someone@codever.dev")
	if got != GravatarURL("someone@codever.dev") {
		t.Fatal("gravatar url must be deterministic")
	}
	if len(got) != len(gravatarBaseURL)+32+len("?s=340") {
		t.Fatalf("unexpected gravatar url: %s", got)
	}
}

func TestPromoteHistoryIsIdempotent(t *testing.T) {
	doc := &Document{History: []string{"a", "b", "x", "c"}}

	doc.PromoteHistory("x")
	doc.PromoteHistory("x")

	if !slices.Equal(doc.History, []string{"x", "a", "b", "c"}) {
		t.Fatalf("unexpected history: %v", doc.History)
	}
}

func TestPinnedFrontReadLaterEnd(t *testing.T) {
	pinned := PrependUnique([]string{"A", "B"}, "C")
	if !slices.Equal(pinned, []string{"C", "A", "B"}) {
		t.Fatalf("unexpected pinned: %v", pinned)
	}
	readLater := AppendUnique([]string{"A", "B"}, "C")
	if !slices.Equal(readLater, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected read later: %v", readLater)
	}
	if again := AppendUnique(readLater, "A"); len(again) != 3 {
		t.Fatalf("duplicate appended: %v", again)
	}
}

func TestRemoveEverywhere(t *testing.T) {
	doc := &Document{
		History:   []string{"s1", "s2"},
		Pinned:    []string{"s1"},
		Favorites: []string{"s1"},
		ReadLater: []string{"s2", "s1"},
		Likes:     []string{"s1"},
	}
	doc.RemoveEverywhere("s1")

	for name, list := range map[string][]string{
		"history": doc.History, "pinned": doc.Pinned, "favorites": doc.Favorites,
		"readLater": doc.ReadLater, "likes": doc.Likes,
	} {
		if slices.Contains(list, "s1") {
			t.Fatalf("%s still contains s1: %v", name, list)
		}
	}
	if !slices.Equal(doc.History, []string{"s2"}) {
		t.Fatalf("unexpected history: %v", doc.History)
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	doc := &Document{History: []string{"a"}, Searches: []Search{{Text: "go", LastAccessedAt: &now}}}
	c := doc.Clone()
	c.History[0] = "b"
	*c.Searches[0].LastAccessedAt = now.Add(time.Hour)

	if doc.History[0] != "a" || !doc.Searches[0].LastAccessedAt.Equal(now) {
		t.Fatal("clone shares state with original")
	}
}

func TestRecordSearchMergesCaseInsensitive(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := &Document{}
	doc.RecordSearch("Docker Prune", DomainPersonal, t0, 3)
	doc.RecordSearch("git", DomainPersonal, t0.Add(time.Minute), 3)
	doc.RecordSearch("  docker prune ", DomainPersonal, t0.Add(2*time.Minute), 3)

	if len(doc.Searches) != 2 {
		t.Fatalf("expected merge, got %d searches", len(doc.Searches))
	}
	first := doc.Searches[0]
	if first.Text != "Docker Prune" || first.Count != 2 || !first.LastAccessedAt.Equal(t0.Add(2*time.Minute)) {
		t.Fatalf("unexpected merged search: %+v", first)
	}

	doc.RecordSearch("docker prune", DomainPublic, t0.Add(3*time.Minute), 3)
	if len(doc.Searches) != 3 {
		t.Fatal("same text in another domain must not merge")
	}
}

func TestRecordSearchEvictsOldestUnsavedOfDomain(t *testing.T) {
	const limit = 3
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := &Document{}

	// an old saved search and a search of another domain must survive
	doc.RecordSearch("saved-oldest", DomainPersonal, t0, limit)
	doc.SetSaved("saved-oldest", DomainPersonal, true)
	doc.RecordSearch("public-old", DomainPublic, t0, limit)

	for i := 0; i <= limit; i++ {
		doc.RecordSearch(fmt.Sprintf("q%d", i), DomainPersonal, t0.Add(time.Duration(i+1)*time.Minute), limit)
	}
	if got := doc.unsavedCount(DomainPersonal); got != limit+1 {
		t.Fatalf("expected %d unsaved searches seeded, got %d", limit+1, got)
	}

	doc.RecordSearch("newest", DomainPersonal, t0.Add(time.Hour), limit)

	texts := make([]string, 0, len(doc.Searches))
	for _, s := range doc.Searches {
		texts = append(texts, s.Text)
	}
	if slices.Contains(texts, "q0") {
		t.Fatalf("oldest unsaved entry not evicted: %v", texts)
	}
	for _, keep := range []string{"newest", "q1", "q2", "q3", "saved-oldest", "public-old"} {
		if !slices.Contains(texts, keep) {
			t.Fatalf("%s evicted unexpectedly: %v", keep, texts)
		}
	}
	if texts[0] != "newest" {
		t.Fatalf("new search must be first: %v", texts)
	}
}

func TestSortSearches(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	doc := &Document{Searches: []Search{
		{Text: "never"},
		{Text: "old", LastAccessedAt: &t0},
		{Text: "new", LastAccessedAt: &t1},
	}}
	doc.SortSearches()

	got := []string{doc.Searches[0].Text, doc.Searches[1].Text, doc.Searches[2].Text}
	if !slices.Equal(got, []string{"new", "old", "never"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}
