package stores

import (
	"context"

	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
)

// remoteStub answers every call with zero values unless a func field is set.
type remoteStub struct {
	createSnippetFn func(ctx context.Context, userID string, s *snippets.Snippet) (*snippets.Snippet, error)
	updateSnippetFn func(ctx context.Context, s *snippets.Snippet) (*snippets.Snippet, error)
	deleteSnippetFn func(ctx context.Context, userID, id string) error
	getSnippetFn    func(ctx context.Context, userID, id string) (*snippets.Snippet, error)
	ownerVisitsFn   func(ctx context.Context, s *snippets.Snippet) error

	personalFn     func(ctx context.Context, userID string, order snippets.Order) ([]*snippets.Snippet, error)
	personalTagsFn func(ctx context.Context, userID string) ([]snippets.UsedTag, error)
	feedFn         func(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error)
	historyFn      func(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error)
	allHistoryFn   func(ctx context.Context, userID string) ([]*snippets.Snippet, error)
	pinnedFn       func(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error)
	readLaterFn    func(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error)
	favoritesFn    func(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error)
	likedFn        func(ctx context.Context, userID string) ([]*snippets.Snippet, error)
	publicFn       func(ctx context.Context, p gateway.Page) ([]*snippets.Snippet, error)
	publicTagsFn   func(ctx context.Context, limit int) ([]snippets.UsedTag, error)

	getUserDataFn    func(ctx context.Context, userID string) (*userdata.Document, error)
	createUserDataFn func(ctx context.Context, d *userdata.Document) (*userdata.Document, error)
	updateUserDataFn func(ctx context.Context, d *userdata.Document) (*userdata.Document, error)
	patchHistoryFn   func(ctx context.Context, userID string, ids []string) error
	patchPinnedFn    func(ctx context.Context, userID string, ids []string) error
	patchReadLaterFn func(ctx context.Context, userID string, ids []string) error
	patchListsFn     func(ctx context.Context, userID string, patch userdata.ListsPatch) error
	patchFeedFn      func(ctx context.Context, userID string, showAllPublic bool) error
	patchLocalFn     func(ctx context.Context, userID string, enabled bool) error
	welcomeFn        func(ctx context.Context, userID string) error
	rateFn           func(ctx context.Context, req gateway.RateRequest) error
	followFn         func(ctx context.Context, userID, followedID string) (*userdata.Document, error)
	unfollowFn       func(ctx context.Context, userID, followedID string) (*userdata.Document, error)
}

var _ gateway.Remote = (*remoteStub)(nil)

func (r *remoteStub) CreateSnippet(ctx context.Context, userID string, s *snippets.Snippet) (*snippets.Snippet, error) {
	if r.createSnippetFn != nil {
		return r.createSnippetFn(ctx, userID, s)
	}
	return s, nil
}

func (r *remoteStub) UpdateSnippet(ctx context.Context, s *snippets.Snippet) (*snippets.Snippet, error) {
	if r.updateSnippetFn != nil {
		return r.updateSnippetFn(ctx, s)
	}
	return s, nil
}

func (r *remoteStub) DeleteSnippet(ctx context.Context, userID, id string) error {
	if r.deleteSnippetFn != nil {
		return r.deleteSnippetFn(ctx, userID, id)
	}
	return nil
}

func (r *remoteStub) GetSnippet(ctx context.Context, userID, id string) (*snippets.Snippet, error) {
	if r.getSnippetFn != nil {
		return r.getSnippetFn(ctx, userID, id)
	}
	return &snippets.Snippet{ID: id, UserID: userID}, nil
}

func (r *remoteStub) IncrementOwnerVisits(ctx context.Context, s *snippets.Snippet) error {
	if r.ownerVisitsFn != nil {
		return r.ownerVisitsFn(ctx, s)
	}
	return nil
}

func (r *remoteStub) Personal(ctx context.Context, userID string, order snippets.Order) ([]*snippets.Snippet, error) {
	if r.personalFn != nil {
		return r.personalFn(ctx, userID, order)
	}
	return nil, nil
}

func (r *remoteStub) PersonalTags(ctx context.Context, userID string) ([]snippets.UsedTag, error) {
	if r.personalTagsFn != nil {
		return r.personalTagsFn(ctx, userID)
	}
	return nil, nil
}

func (r *remoteStub) Feed(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	if r.feedFn != nil {
		return r.feedFn(ctx, userID, p)
	}
	return nil, nil
}

func (r *remoteStub) History(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	if r.historyFn != nil {
		return r.historyFn(ctx, userID, p)
	}
	return nil, nil
}

func (r *remoteStub) AllHistory(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	if r.allHistoryFn != nil {
		return r.allHistoryFn(ctx, userID)
	}
	return nil, nil
}

func (r *remoteStub) Pinned(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	if r.pinnedFn != nil {
		return r.pinnedFn(ctx, userID, p)
	}
	return nil, nil
}

func (r *remoteStub) ReadLater(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	if r.readLaterFn != nil {
		return r.readLaterFn(ctx, userID, p)
	}
	return nil, nil
}

func (r *remoteStub) Favorites(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	if r.favoritesFn != nil {
		return r.favoritesFn(ctx, userID, p)
	}
	return nil, nil
}

func (r *remoteStub) Liked(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	if r.likedFn != nil {
		return r.likedFn(ctx, userID)
	}
	return nil, nil
}

func (r *remoteStub) Public(ctx context.Context, p gateway.Page) ([]*snippets.Snippet, error) {
	if r.publicFn != nil {
		return r.publicFn(ctx, p)
	}
	return nil, nil
}

func (r *remoteStub) PublicTags(ctx context.Context, limit int) ([]snippets.UsedTag, error) {
	if r.publicTagsFn != nil {
		return r.publicTagsFn(ctx, limit)
	}
	return nil, nil
}

func (r *remoteStub) GetUserData(ctx context.Context, userID string) (*userdata.Document, error) {
	if r.getUserDataFn != nil {
		return r.getUserDataFn(ctx, userID)
	}
	return &userdata.Document{UserID: userID}, nil
}

func (r *remoteStub) CreateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	if r.createUserDataFn != nil {
		return r.createUserDataFn(ctx, d)
	}
	return d, nil
}

func (r *remoteStub) UpdateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	if r.updateUserDataFn != nil {
		return r.updateUserDataFn(ctx, d)
	}
	return d, nil
}

func (r *remoteStub) PatchHistory(ctx context.Context, userID string, ids []string) error {
	if r.patchHistoryFn != nil {
		return r.patchHistoryFn(ctx, userID, ids)
	}
	return nil
}

func (r *remoteStub) PatchPinned(ctx context.Context, userID string, ids []string) error {
	if r.patchPinnedFn != nil {
		return r.patchPinnedFn(ctx, userID, ids)
	}
	return nil
}

func (r *remoteStub) PatchReadLater(ctx context.Context, userID string, ids []string) error {
	if r.patchReadLaterFn != nil {
		return r.patchReadLaterFn(ctx, userID, ids)
	}
	return nil
}

func (r *remoteStub) PatchLists(ctx context.Context, userID string, patch userdata.ListsPatch) error {
	if r.patchListsFn != nil {
		return r.patchListsFn(ctx, userID, patch)
	}
	return nil
}

func (r *remoteStub) PatchFeedToggle(ctx context.Context, userID string, showAllPublic bool) error {
	if r.patchFeedFn != nil {
		return r.patchFeedFn(ctx, userID, showAllPublic)
	}
	return nil
}

func (r *remoteStub) PatchLocalStorage(ctx context.Context, userID string, enabled bool) error {
	if r.patchLocalFn != nil {
		return r.patchLocalFn(ctx, userID, enabled)
	}
	return nil
}

func (r *remoteStub) AcknowledgeWelcome(ctx context.Context, userID string) error {
	if r.welcomeFn != nil {
		return r.welcomeFn(ctx, userID)
	}
	return nil
}

func (r *remoteStub) Rate(ctx context.Context, req gateway.RateRequest) error {
	if r.rateFn != nil {
		return r.rateFn(ctx, req)
	}
	return nil
}

func (r *remoteStub) FollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error) {
	if r.followFn != nil {
		return r.followFn(ctx, userID, followedID)
	}
	return nil, nil
}

func (r *remoteStub) UnfollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error) {
	if r.unfollowFn != nil {
		return r.unfollowFn(ctx, userID, followedID)
	}
	return nil, nil
}
