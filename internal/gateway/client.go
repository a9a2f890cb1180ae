package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/LamboYu/codever/internal/apperrors"
	"github.com/LamboYu/codever/internal/snippets"
	"github.com/LamboYu/codever/internal/telemetry"
	"github.com/LamboYu/codever/internal/userdata"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TokenSource returns the bearer token of the signed in user.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the codever REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   TokenSource
}

var _ Remote = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, token TokenSource) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Token:   token,
	}
}

type apiError struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (c *Client) personal(userID string, parts ...string) string {
	p := "/personal/users/" + url.PathEscape(userID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func pageQuery(p Page) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
		q.Set("limit", strconv.Itoa(p.LimitOrDefault()))
	}
	return q
}

func (c *Client) do(ctx context.Context, op, method, p string, query url.Values, body, out any) (http.Header, error) {
	ctx, span := telemetry.StartSpan(ctx, "gateway."+op,
		attribute.String("http.method", method),
		attribute.String("http.route", p),
	)
	defer span.End()

	header, err := c.send(ctx, method, p, query, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return header, err
}

func (c *Client) send(ctx context.Context, method, p string, query url.Values, body, out any) (http.Header, error) {
	u := c.BaseURL + p
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != nil {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindUnauthorized, "no access token", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "codever api unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return resp.Header, statusError(method, p, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.Header, nil
		}
		return resp.Header, apperrors.Wrap(apperrors.KindUnavailable, "decode response", err)
	}
	return resp.Header, nil
}

func statusError(method, p string, resp *http.Response) error {
	var body apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = body.Detail
	}
	if msg == "" {
		msg = fmt.Sprintf("%s %s: %s", method, p, resp.Status)
	}
	cause := fmt.Errorf("%s %s: status %d", method, p, resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.Wrap(apperrors.KindNotFound, msg, cause)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Wrap(apperrors.KindUnauthorized, msg, cause)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Wrap(apperrors.KindForbidden, msg, cause)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Wrap(apperrors.KindConflict, msg, cause)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.Wrap(apperrors.KindInvalidInput, msg, cause)
	case resp.StatusCode >= 500:
		return apperrors.Wrap(apperrors.KindUnavailable, msg, cause)
	default:
		return apperrors.Wrap(apperrors.KindInternal, msg, cause)
	}
}

func (c *Client) getList(ctx context.Context, op, p string, query url.Values) ([]*snippets.Snippet, error) {
	out := []*snippets.Snippet{}
	if _, err := c.do(ctx, op, http.MethodGet, p, query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSnippet posts s and reads back the stored snippet through the
// Location header when the body does not carry it.
func (c *Client) CreateSnippet(ctx context.Context, userID string, s *snippets.Snippet) (*snippets.Snippet, error) {
	var created snippets.Snippet
	header, err := c.do(ctx, "snippets.create", http.MethodPost, c.personal(userID, "snippets"), nil, s, &created)
	if err != nil {
		return nil, err
	}
	if created.ID != "" {
		return &created, nil
	}

	loc := header.Get("Location")
	if loc == "" {
		return nil, apperrors.New(apperrors.KindUnavailable, "created snippet without location")
	}
	return c.GetSnippet(ctx, userID, path.Base(loc))
}

func (c *Client) UpdateSnippet(ctx context.Context, s *snippets.Snippet) (*snippets.Snippet, error) {
	var updated snippets.Snippet
	_, err := c.do(ctx, "snippets.update", http.MethodPut,
		c.personal(s.UserID, "snippets", url.PathEscape(s.ID)), nil, s, &updated)
	if err != nil {
		return nil, err
	}
	if updated.ID == "" {
		return s.Clone(), nil
	}
	return &updated, nil
}

func (c *Client) DeleteSnippet(ctx context.Context, userID, id string) error {
	_, err := c.do(ctx, "snippets.delete", http.MethodDelete,
		c.personal(userID, "snippets", url.PathEscape(id)), nil, nil, nil)
	return err
}

func (c *Client) GetSnippet(ctx context.Context, userID, id string) (*snippets.Snippet, error) {
	var s snippets.Snippet
	_, err := c.do(ctx, "snippets.get", http.MethodGet,
		c.personal(userID, "snippets", url.PathEscape(id)), nil, nil, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) IncrementOwnerVisits(ctx context.Context, s *snippets.Snippet) error {
	_, err := c.do(ctx, "snippets.owner_visits", http.MethodPost,
		c.personal(s.UserID, "snippets", url.PathEscape(s.ID), "owner-visits", "inc"), nil, struct{}{}, nil)
	return err
}

func (c *Client) Personal(ctx context.Context, userID string, order snippets.Order) ([]*snippets.Snippet, error) {
	q := url.Values{}
	q.Set("orderBy", string(order))
	return c.getList(ctx, "views.personal", c.personal(userID, "snippets"), q)
}

func (c *Client) PersonalTags(ctx context.Context, userID string) ([]snippets.UsedTag, error) {
	out := []snippets.UsedTag{}
	if _, err := c.do(ctx, "views.personal_tags", http.MethodGet, c.personal(userID, "snippets", "tags"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Feed(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.feed", c.personal(userID, "feed"), pageQuery(p))
}

func (c *Client) History(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.history", c.personal(userID, "history"), pageQuery(p))
}

func (c *Client) AllHistory(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.history_all", c.personal(userID, "history"), nil)
}

func (c *Client) Pinned(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.pinned", c.personal(userID, "pinned"), pageQuery(p))
}

func (c *Client) ReadLater(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.read_later", c.personal(userID, "read-later"), pageQuery(p))
}

func (c *Client) Favorites(ctx context.Context, userID string, p Page) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.favorites", c.personal(userID, "favorites"), pageQuery(p))
}

func (c *Client) Liked(ctx context.Context, userID string) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.liked", c.personal(userID, "likes"), nil)
}

func (c *Client) Public(ctx context.Context, p Page) ([]*snippets.Snippet, error) {
	return c.getList(ctx, "views.public", "/public/snippets", pageQuery(p))
}

func (c *Client) PublicTags(ctx context.Context, limit int) ([]snippets.UsedTag, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	out := []snippets.UsedTag{}
	if _, err := c.do(ctx, "views.public_tags", http.MethodGet, "/public/snippets/tags", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserData(ctx context.Context, userID string) (*userdata.Document, error) {
	var d userdata.Document
	if _, err := c.do(ctx, "userdata.get", http.MethodGet, c.personal(userID), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CreateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	var out userdata.Document
	if _, err := c.do(ctx, "userdata.create", http.MethodPost, c.personal(d.UserID), nil, d, &out); err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return d.Clone(), nil
	}
	return &out, nil
}

func (c *Client) UpdateUserData(ctx context.Context, d *userdata.Document) (*userdata.Document, error) {
	var out userdata.Document
	if _, err := c.do(ctx, "userdata.update", http.MethodPut, c.personal(d.UserID), nil, d, &out); err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return d.Clone(), nil
	}
	return &out, nil
}

func (c *Client) PatchHistory(ctx context.Context, userID string, ids []string) error {
	_, err := c.do(ctx, "userdata.history", http.MethodPatch, c.personal(userID, "history"), nil, nonNil(ids), nil)
	return err
}

func (c *Client) PatchPinned(ctx context.Context, userID string, ids []string) error {
	body := map[string][]string{"pinnedSnippetIds": nonNil(ids)}
	_, err := c.do(ctx, "userdata.pinned", http.MethodPatch, c.personal(userID, "pinned"), nil, body, nil)
	return err
}

func (c *Client) PatchReadLater(ctx context.Context, userID string, ids []string) error {
	body := map[string][]string{"readLaterSnippetIds": nonNil(ids)}
	_, err := c.do(ctx, "userdata.read_later", http.MethodPatch, c.personal(userID, "read-later"), nil, body, nil)
	return err
}

func (c *Client) PatchLists(ctx context.Context, userID string, patch userdata.ListsPatch) error {
	body := userdata.ListsPatch{
		History:   nonNil(patch.History),
		ReadLater: nonNil(patch.ReadLater),
		Pinned:    nonNil(patch.Pinned),
	}
	_, err := c.do(ctx, "userdata.lists", http.MethodPatch, c.personal(userID, "history-readlater-pinned"), nil, body, nil)
	return err
}

func (c *Client) PatchFeedToggle(ctx context.Context, userID string, showAllPublic bool) error {
	body := map[string]bool{"showAllPublicInFeed": showAllPublic}
	_, err := c.do(ctx, "userdata.feed_toggle", http.MethodPatch, c.personal(userID, "feed-toggle"), nil, body, nil)
	return err
}

func (c *Client) PatchLocalStorage(ctx context.Context, userID string, enabled bool) error {
	body := map[string]bool{"enableLocalStorage": enabled}
	_, err := c.do(ctx, "userdata.local_storage", http.MethodPatch, c.personal(userID, "local-storage"), nil, body, nil)
	return err
}

func (c *Client) AcknowledgeWelcome(ctx context.Context, userID string) error {
	_, err := c.do(ctx, "userdata.welcome_ack", http.MethodPatch, c.personal(userID, "welcome-acknowledge"), nil, struct{}{}, nil)
	return err
}

func (c *Client) Rate(ctx context.Context, req RateRequest) error {
	if req.Snippet == nil {
		return apperrors.New(apperrors.KindInvalidInput, "snippet is required")
	}
	_, err := c.do(ctx, "userdata.rate", http.MethodPatch,
		c.personal(req.RatingUserID, "snippets", "likes", url.PathEscape(req.Snippet.ID)), nil, req, nil)
	return err
}

func (c *Client) FollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error) {
	var d userdata.Document
	_, err := c.do(ctx, "userdata.follow", http.MethodPatch,
		c.personal(userID, "following", "users", url.PathEscape(followedID)), nil, struct{}{}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UnfollowUser(ctx context.Context, userID, followedID string) (*userdata.Document, error) {
	var d userdata.Document
	_, err := c.do(ctx, "userdata.unfollow", http.MethodPatch,
		c.personal(userID, "unfollowing", "users", url.PathEscape(followedID)), nil, struct{}{}, &d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
