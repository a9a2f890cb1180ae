package pg

import (
	"context"
	"fmt"

	"github.com/LamboYu/codever/internal"
	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/db"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/userdata"
)

const (
	sqlUserDataSelect = `SELECT doc FROM user_data WHERE user_id = $1;`

	sqlUserDataSelectForUpdate = `SELECT doc FROM user_data WHERE user_id = $1 FOR UPDATE;`

	sqlUserDataInsert = `INSERT INTO user_data (user_id, doc) VALUES ($1, $2) RETURNING doc;`

	sqlUserDataUpdate = `UPDATE user_data SET doc = $2, updated_at = now()
		WHERE user_id = $1
		RETURNING doc;`
)

func userDataNotFound(userID string) error {
	return apperrors.New(apperrors.KindNotFound, "User data NOT_FOUND for userId: "+userID)
}

func capHistory(d *userdata.Document) {
	if len(d.History) > MaxHistory {
		d.History = d.History[:MaxHistory]
	}
}

func (g *Gateway) GetUserData(ctx context.Context, userID string) (*userdata.Document, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	var d userdata.Document
	if err := g.base.Q().QueryRow(ctx, sqlUserDataSelect, userID).Scan(&d); err != nil {
		if isNoRows(err) {
			return nil, userDataNotFound(userID)
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load user data", err)
	}
	return &d, nil
}

func (g *Gateway) CreateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	in := d.Clone()
	capHistory(in)

	var out userdata.Document
	if err := g.base.Q().QueryRow(ctx, sqlUserDataInsert, in.UserID, in).Scan(&out); err != nil {
		if isUniqueViolation(err, "user_data") {
			return nil, apperrors.New(apperrors.KindConflict, "user data already exists")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to create user data", err)
	}
	return &out, nil
}

func (g *Gateway) UpdateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	in := d.Clone()
	capHistory(in)

	var out userdata.Document
	if err := g.base.Q().QueryRow(ctx, sqlUserDataUpdate, in.UserID, in).Scan(&out); err != nil {
		if isNoRows(err) {
			return nil, userDataNotFound(d.UserID)
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to update user data", err)
	}
	return &out, nil
}

// mutate applies fn to the stored document under a row lock.
func mutate(ctx context.Context, q db.Queryer, userID string, fn func(d *userdata.Document)) (*userdata.Document, error) {
	var d userdata.Document
	if err := q.QueryRow(ctx, sqlUserDataSelectForUpdate, userID).Scan(&d); err != nil {
		if isNoRows(err) {
			return nil, userDataNotFound(userID)
		}
		return nil, err
	}

	fn(&d)
	capHistory(&d)

	var out userdata.Document
	if err := q.QueryRow(ctx, sqlUserDataUpdate, userID, &d).Scan(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) mutateDocument(ctx context.Context, op, userID string, fn func(d *userdata.Document)) (*userdata.Document, error) {
	var out *userdata.Document
	err := g.base.WithTx(ctx, func(ctx context.Context, q db.Queryer) error {
		var err error
		out, err = mutate(ctx, q, userID, fn)
		return err
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, fmt.Sprintf("failed to %s", op), err)
	}
	return out, nil
}

func (g *Gateway) PatchHistory(ctx context.Context, userID string, ids []string) error {
	_, err := g.mutateDocument(ctx, "update history", userID, func(d *userdata.Document) {
		d.History = append([]string{}, ids...)
	})
	return err
}

func (g *Gateway) PatchPinned(ctx context.Context, userID string, ids []string) error {
	_, err := g.mutateDocument(ctx, "update pinned", userID, func(d *userdata.Document) {
		d.Pinned = append([]string{}, ids...)
	})
	return err
}

func (g *Gateway) PatchReadLater(ctx context.Context, userID string, ids []string) error {
	_, err := g.mutateDocument(ctx, "update read later", userID, func(d *userdata.Document) {
		d.ReadLater = append([]string{}, ids...)
	})
	return err
}

// PatchLists leaves a list untouched when its patch is empty.
func (g *Gateway) PatchLists(ctx context.Context, userID string, patch userdata.ListsPatch) error {
	_, err := g.mutateDocument(ctx, "update lists", userID, func(d *userdata.Document) {
		if len(patch.History) > 0 {
			d.History = append([]string{}, patch.History...)
		}
		if len(patch.ReadLater) > 0 {
			d.ReadLater = append([]string{}, patch.ReadLater...)
		}
		if len(patch.Pinned) > 0 {
			d.Pinned = append([]string{}, patch.Pinned...)
		}
	})
	return err
}

func (g *Gateway) PatchFeedToggle(ctx context.Context, userID string, showAllPublic bool) error {
	_, err := g.mutateDocument(ctx, "update feed toggle", userID, func(d *userdata.Document) {
		d.ShowAllPublicInFeed = showAllPublic
	})
	return err
}

func (g *Gateway) PatchLocalStorage(ctx context.Context, userID string, enabled bool) error {
	_, err := g.mutateDocument(ctx, "update local storage", userID, func(d *userdata.Document) {
		d.EnableLocalStorage = enabled
	})
	return err
}

func (g *Gateway) AcknowledgeWelcome(ctx context.Context, userID string) error {
	_, err := g.mutateDocument(ctx, "acknowledge welcome", userID, func(d *userdata.Document) {
		d.WelcomeAck = true
	})
	return err
}

// Rate moves the like counter of the snippet and keeps the rating user's
// likes list in step, in one transaction.
func (g *Gateway) Rate(ctx context.Context, req gateway.RateRequest) error {
	if req.Snippet == nil {
		return apperrors.New(apperrors.KindInvalidInput, "snippet is required")
	}
	var delta int
	switch req.Action {
	case gateway.RateLike:
		delta = 1
	case gateway.RateUnlike:
		delta = -1
	default:
		return apperrors.Errorf(apperrors.KindInvalidInput, "unknown rating action %q", req.Action)
	}
	id := req.Snippet.ID

	err := g.base.WithTx(ctx, func(ctx context.Context, q db.Queryer) error {
		tag, err := q.Exec(ctx, sqlSnippetLikeDelta, delta, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Wrap(apperrors.KindNotFound, "snippet not found", internal.ErrNotFound)
		}
		_, err = mutate(ctx, q, req.RatingUserID, func(d *userdata.Document) {
			if delta > 0 {
				d.Likes = userdata.PrependUnique(d.Likes, id)
			} else {
				d.Likes = userdata.Without(d.Likes, id)
			}
		})
		return err
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return err
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to rate snippet", err)
	}
	return nil
}

func (g *Gateway) follow(ctx context.Context, userID, followedID string, add bool) (*userdata.Document, error) {
	if userID == followedID {
		return nil, apperrors.New(apperrors.KindInvalidInput, "cannot follow yourself")
	}

	var out *userdata.Document
	err := g.base.WithTx(ctx, func(ctx context.Context, q db.Queryer) error {
		var err error
		out, err = mutate(ctx, q, userID, func(d *userdata.Document) {
			if add {
				d.Following.Users = userdata.AppendUnique(d.Following.Users, followedID)
			} else {
				d.Following.Users = userdata.Without(d.Following.Users, followedID)
			}
		})
		if err != nil {
			return err
		}

		_, err = mutate(ctx, q, followedID, func(d *userdata.Document) {
			if add {
				d.Followers = userdata.AppendUnique(d.Followers, userID)
			} else {
				d.Followers = userdata.Without(d.Followers, userID)
			}
		})
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) || apperrors.IsKind(err, apperrors.KindInvalidInput) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to update following", err)
	}
	return out, nil
}

func (g *Gateway) FollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error) {
	return g.follow(ctx, userID, followedID, true)
}

func (g *Gateway) UnfollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error) {
	return g.follow(ctx, userID, followedID, false)
}
