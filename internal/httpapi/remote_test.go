package httpapi

import (
	"context"
	"slices"
	"sync"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
)

// fakeRemote keeps one user's snippets and document in memory. Calls the
// handlers never reach are left to the embedded nil interface.
type fakeRemote struct {
	gateway.Remote

	mu       sync.Mutex
	next     int
	snippets []*snippets.Snippet
	doc      *userdata.Document
	feedErr  error
	rated    []gateway.RateRequest
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{}
}

func (f *fakeRemote) find(ids []string) []*snippets.Snippet {
	var out []*snippets.Snippet
	for _, id := range ids {
		for _, sn := range f.snippets {
			if sn.ID == id {
				out = append(out, sn.Clone())
			}
		}
	}
	return out
}

func (f *fakeRemote) GetUserData(_ context.Context, userID string) (*userdata.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		f.doc = &userdata.Document{UserID: userID}
	}
	return f.doc.Clone(), nil
}

func (f *fakeRemote) UpdateUserData(_ context.Context, d *userdata.Document) (*userdata.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = d.Clone()
	return d.Clone(), nil
}

func (f *fakeRemote) PatchLists(_ context.Context, _ string, p userdata.ListsPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(p.History) > 0 {
		f.doc.History = slices.Clone(p.History)
	}
	if len(p.Pinned) > 0 {
		f.doc.Pinned = slices.Clone(p.Pinned)
	}
	if len(p.ReadLater) > 0 {
		f.doc.ReadLater = slices.Clone(p.ReadLater)
	}
	return nil
}

func (f *fakeRemote) PatchPinned(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc.Pinned = slices.Clone(ids)
	return nil
}

func (f *fakeRemote) PatchFeedToggle(_ context.Context, _ string, showAllPublic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc.ShowAllPublicInFeed = showAllPublic
	return nil
}

func (f *fakeRemote) Rate(_ context.Context, req gateway.RateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rated = append(f.rated, req)
	return nil
}

func (f *fakeRemote) CreateSnippet(_ context.Context, userID string, s *snippets.Snippet) (*snippets.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	c := s.Clone()
	c.ID = "s" + string(rune('0'+f.next))
	c.UserID = userID
	f.snippets = append(f.snippets, c)
	return c.Clone(), nil
}

func (f *fakeRemote) DeleteSnippet(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sn := range f.snippets {
		if sn.ID == id {
			f.snippets = slices.Delete(f.snippets, i, i+1)
			return nil
		}
	}
	return apperrors.New(apperrors.KindNotFound, "snippet not found")
}

func (f *fakeRemote) Personal(_ context.Context, _ string, _ snippets.Order) ([]*snippets.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*snippets.Snippet, 0, len(f.snippets))
	for i := len(f.snippets) - 1; i >= 0; i-- {
		out = append(out, f.snippets[i].Clone())
	}
	return out, nil
}

func (f *fakeRemote) Pinned(_ context.Context, _ string, _ gateway.Page) ([]*snippets.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(f.doc.Pinned), nil
}

func (f *fakeRemote) Feed(_ context.Context, _ string, _ gateway.Page) ([]*snippets.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	return f.find(f.doc.History), nil
}
