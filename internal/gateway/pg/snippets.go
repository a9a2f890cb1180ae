package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/LamboYu/codever/internal"
	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/gateway"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/userdata"
	"github.com/jackc/pgx/v5"
)

const snippetColumns = `id, user_id, user_display_name, title, description, code_snippets, tags, public,
	source_url, copied_from_id, like_count, owner_visit_count, created_at, updated_at, last_accessed_at`

const (
	sqlSnippetInsert = `INSERT INTO snippets (id, user_id, user_display_name, title, description, code_snippets,
		tags, public, source_url, copied_from_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + snippetColumns + `;`

	sqlSnippetUpdate = `UPDATE snippets
		SET title = $1, description = $2, code_snippets = $3, tags = $4, public = $5,
			source_url = $6, user_display_name = $7, updated_at = now()
		WHERE id = $8 AND user_id = $9
		RETURNING ` + snippetColumns + `;`

	sqlSnippetDelete = `DELETE FROM snippets WHERE id = $1 AND user_id = $2;`

	sqlSnippetSelectVisible = `SELECT ` + snippetColumns + `
		FROM snippets
		WHERE id = $1 AND (user_id = $2 OR public)
		LIMIT 1;`

	sqlSnippetOwnerVisit = `UPDATE snippets
		SET owner_visit_count = owner_visit_count + 1, last_accessed_at = now()
		WHERE id = $1 AND user_id = $2;`

	sqlSnippetSelectIDs = `SELECT ` + snippetColumns + `
		FROM snippets
		WHERE id = ANY($1) AND (user_id = $2 OR public);`

	sqlSnippetLikeDelta = `UPDATE snippets
		SET like_count = GREATEST(like_count + $1, 0)
		WHERE id = $2;`

	sqlSnippetsPublic = `SELECT ` + snippetColumns + `
		FROM snippets
		WHERE public
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2;`

	sqlTagsForUser = `SELECT tag, count(*) AS cnt
		FROM snippets, unnest(tags) AS tag
		WHERE user_id = $1
		GROUP BY tag
		ORDER BY cnt DESC, tag ASC;`

	sqlTagsPublic = `SELECT tag, count(*) AS cnt
		FROM snippets, unnest(tags) AS tag
		WHERE public
		GROUP BY tag
		ORDER BY cnt DESC, tag ASC
		LIMIT $1;`

	sqlPersonalBase = `SELECT ` + snippetColumns + `
		FROM snippets
		WHERE user_id = $1
		ORDER BY %s
		LIMIT $2;`
)

// personalLimit matches the size of the personal views kept in memory.
const personalLimit = 30

func scanSnippet(row pgx.Row) (*snippets.Snippet, error) {
	var s snippets.Snippet
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.UserDisplayName,
		&s.Title,
		&s.Description,
		&s.CodeSnippets,
		&s.Tags,
		&s.Public,
		&s.SourceURL,
		&s.CopiedFromID,
		&s.LikeCount,
		&s.OwnerVisitCount,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.LastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSnippets(rows pgx.Rows) ([]*snippets.Snippet, error) {
	defer rows.Close()

	out := make([]*snippets.Snippet, 0, 16)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nonNilCode(cs []snippets.CodeSnippet) []snippets.CodeSnippet {
	if cs == nil {
		return []snippets.CodeSnippet{}
	}
	return cs
}

func (g *Gateway) CreateSnippet(ctx context.Context, userID string, s *snippets.Snippet) (*snippets.Snippet, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	id := g.idGenerator()
	created, err := scanSnippet(g.base.Q().QueryRow(ctx, sqlSnippetInsert,
		id,
		userID,
		s.UserDisplayName,
		s.Title,
		s.Description,
		nonNilCode(s.CodeSnippets),
		nonNilTags(s.Tags),
		s.Public,
		s.SourceURL,
		s.CopiedFromID,
	))
	if err != nil {
		if isUniqueViolation(err, "snippets") {
			return nil, apperrors.New(apperrors.KindConflict, "snippet already exists")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to create snippet", err)
	}
	return created, nil
}

func (g *Gateway) UpdateSnippet(ctx context.Context, s *snippets.Snippet) (*snippets.Snippet, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	updated, err := scanSnippet(g.base.Q().QueryRow(ctx, sqlSnippetUpdate,
		s.Title,
		s.Description,
		nonNilCode(s.CodeSnippets),
		nonNilTags(s.Tags),
		s.Public,
		s.SourceURL,
		s.UserDisplayName,
		s.ID,
		s.UserID,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "snippet not found")
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to update snippet", err)
	}
	return updated, nil
}

func (g *Gateway) DeleteSnippet(ctx context.Context, userID, id string) error {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	tag, err := g.base.Q().Exec(ctx, sqlSnippetDelete, id, userID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to delete snippet", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.KindNotFound, "snippet not found")
	}
	return nil
}

func (g *Gateway) GetSnippet(ctx context.Context, userID, id string) (*snippets.Snippet, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	s, err := scanSnippet(g.base.Q().QueryRow(ctx, sqlSnippetSelectVisible, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "snippet not found", internal.ErrNotFound)
		}
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load snippet", err)
	}
	return s, nil
}

func (g *Gateway) IncrementOwnerVisits(ctx context.Context, s *snippets.Snippet) error {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	if _, err := g.base.Q().Exec(ctx, sqlSnippetOwnerVisit, s.ID, s.UserID); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to count owner visit", err)
	}
	return nil
}

func personalOrderBy(order snippets.Order) (string, error) {
	switch order {
	case snippets.OrderLastCreated:
		return "created_at DESC", nil
	case snippets.OrderMostLikes:
		return "like_count DESC, created_at DESC", nil
	case snippets.OrderMostUsed:
		return "owner_visit_count DESC, created_at DESC", nil
	default:
		return "", apperrors.Errorf(apperrors.KindInvalidInput, "unknown order %q", order)
	}
}

func (g *Gateway) Personal(ctx context.Context, userID string, order snippets.Order) ([]*snippets.Snippet, error) {
	orderBy, err := personalOrderBy(order)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	rows, err := g.base.Q().Query(ctx, fmt.Sprintf(sqlPersonalBase, orderBy), userID, personalLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list snippets", err)
	}
	out, err := collectSnippets(rows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list snippets", err)
	}
	return out, nil
}

func (g *Gateway) tags(ctx context.Context, sql string, args ...any) ([]snippets.UsedTag, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	rows, err := g.base.Q().Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list tags", err)
	}
	defer rows.Close()

	out := []snippets.UsedTag{}
	for rows.Next() {
		var t snippets.UsedTag
		if err := rows.Scan(&t.Name, &t.Count); err != nil {
			return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list tags", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list tags", err)
	}
	return out, nil
}

func (g *Gateway) PersonalTags(ctx context.Context, userID string) ([]snippets.UsedTag, error) {
	return g.tags(ctx, sqlTagsForUser, userID)
}

func (g *Gateway) PublicTags(ctx context.Context, limit int) ([]snippets.UsedTag, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	return g.tags(ctx, sqlTagsPublic, limit)
}

func (g *Gateway) Public(ctx context.Context, p gateway.Page) ([]*snippets.Snippet, error) {
	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	rows, err := g.base.Q().Query(ctx, sqlSnippetsPublic, p.LimitOrDefault(), p.Offset())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list public snippets", err)
	}
	out, err := collectSnippets(rows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list public snippets", err)
	}
	return out, nil
}

// Feed lists public snippets tagged with a watched tag and no ignored tag,
// or every public snippet when the user asked for it.
func (g *Gateway) Feed(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	doc, err := g.GetUserData(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return []*snippets.Snippet{}, nil
		}
		return nil, err
	}
	if doc.ShowAllPublicInFeed {
		return g.Public(ctx, p)
	}
	if len(doc.WatchedTags) == 0 {
		return []*snippets.Snippet{}, nil
	}

	where := []string{"public", "tags && $1"}
	args := []any{doc.WatchedTags}
	if len(doc.IgnoredTags) > 0 {
		where = append(where, "NOT (tags && $2)")
		args = append(args, doc.IgnoredTags)
	}
	limitPos := len(args) + 1
	args = append(args, p.LimitOrDefault(), p.Offset())

	query := fmt.Sprintf(`SELECT %s FROM snippets WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		snippetColumns, strings.Join(where, " AND "), limitPos, limitPos+1)

	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	rows, err := g.base.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list feed", err)
	}
	out, err := collectSnippets(rows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list feed", err)
	}
	return out, nil
}

// byIDs loads the snippets for ids and returns them in the order of ids,
// skipping the ones that no longer exist.
func (g *Gateway) byIDs(ctx context.Context, userID string, ids []string) ([]*snippets.Snippet, error) {
	if len(ids) == 0 {
		return []*snippets.Snippet{}, nil
	}

	ctx, cancel := g.base.WithTimeout(ctx)
	defer cancel()

	rows, err := g.base.Q().Query(ctx, sqlSnippetSelectIDs, ids, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load snippets", err)
	}
	found, err := collectSnippets(rows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load snippets", err)
	}
	return orderByIDs(found, ids), nil
}

func orderByIDs(found []*snippets.Snippet, ids []string) []*snippets.Snippet {
	byID := make(map[string]*snippets.Snippet, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]*snippets.Snippet, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func pageIDs(ids []string, p gateway.Page) []string {
	if p.Page <= 0 {
		return ids
	}
	start := p.Offset()
	if start >= len(ids) {
		return nil
	}
	end := min(start+p.LimitOrDefault(), len(ids))
	return ids[start:end]
}

func (g *Gateway) listFromDocument(ctx context.Context, userID string, p gateway.Page, pick func(d *userdata.Document) []string) ([]*snippets.Snippet, error) {
	doc, err := g.GetUserData(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return []*snippets.Snippet{}, nil
		}
		return nil, err
	}
	return g.byIDs(ctx, userID, pageIDs(pick(doc), p))
}

func (g *Gateway) History(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	return g.listFromDocument(ctx, userID, p, func(d *userdata.Document) []string { return d.History })
}

func (g *Gateway) AllHistory(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	return g.listFromDocument(ctx, userID, gateway.Page{}, func(d *userdata.Document) []string { return d.History })
}

func (g *Gateway) Pinned(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	return g.listFromDocument(ctx, userID, p, func(d *userdata.Document) []string { return d.Pinned })
}

func (g *Gateway) ReadLater(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	return g.listFromDocument(ctx, userID, p, func(d *userdata.Document) []string { return d.ReadLater })
}

func (g *Gateway) Favorites(ctx context.Context, userID string, p gateway.Page) ([]*snippets.Snippet, error) {
	return g.listFromDocument(ctx, userID, p, func(d *userdata.Document) []string { return d.Favorites })
}

func (g *Gateway) Liked(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	return g.listFromDocument(ctx, userID, gateway.Page{}, func(d *userdata.Document) []string { return d.Likes })
}
