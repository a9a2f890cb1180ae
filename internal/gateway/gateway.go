// Package gateway defines the remote calls the stores depend on and a REST
// client for the codever API implementing them.
package gateway

import (
	"context"

	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
)

const DefaultPageSize = 10

// Page is 1-based. Page 0 asks for the unpaginated list.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.LimitOrDefault()
}

func (p Page) LimitOrDefault() int {
	if p.Limit <= 0 {
		return DefaultPageSize
	}
	return p.Limit
}

type RateAction string

const (
	RateLike   RateAction = "LIKE"
	RateUnlike RateAction = "UNLIKE"
)

type RateRequest struct {
	RatingUserID string            `json:"ratingUserId"`
	Action       RateAction        `json:"action"`
	Snippet      *snippets.Snippet `json:"snippet"`
}

type Snippets interface {
	CreateSnippet(ctx context.Context, userID string, s *snippets.Snippet) (*snippets.Snippet, error)
	UpdateSnippet(ctx context.Context, s *snippets.Snippet) (*snippets.Snippet, error)
	DeleteSnippet(ctx context.Context, userID, id string) error
	GetSnippet(ctx context.Context, userID, id string) (*snippets.Snippet, error)
	IncrementOwnerVisits(ctx context.Context, s *snippets.Snippet) error
}

type Views interface {
	Personal(ctx context.Context, userID string, order snippets.Order) ([]*snippets.Snippet, error)
	PersonalTags(ctx context.Context, userID string) ([]snippets.UsedTag, error)
	Feed(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error)
	History(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error)
	AllHistory(ctx context.Context, userID string) ([]*snippets.Snippet, error)
	Pinned(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error)
	ReadLater(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error)
	Favorites(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error)
	Liked(ctx context.Context, userID string) ([]*snippets.Snippet, error)
	Public(ctx context.Context, p Page) ([]*snippets.Snippet, error)
	PublicTags(ctx context.Context, limit int) ([]snippets.UsedTag, error)
}

type UserData interface {
	GetUserData(ctx context.Context, userID string) (*userdata.Document, error)
	CreateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error)
	UpdateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error)
	PatchHistory(ctx context.Context, userID string, ids []string) error
	PatchPinned(ctx context.Context, userID string, ids []string) error
	PatchReadLater(ctx context.Context, userID string, ids []string) error
	PatchLists(ctx context.Context, userID string, patch userdata.ListsPatch) error
	PatchFeedToggle(ctx context.Context, userID string, showAllPublic bool) error
	PatchLocalStorage(ctx context.Context, userID string, enabled bool) error
	AcknowledgeWelcome(ctx context.Context, userID string) error
	Rate(ctx context.Context, req RateRequest) error
	FollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error)
	UnfollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error)
}

// Remote bundles every call a session needs.
type Remote interface {
	Snippets
	Views
	UserData
}
