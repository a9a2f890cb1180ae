package snippets

import (
	"strings"
	"time"

	"github.com/LamboYu/codever/internal/validation"
)

type CodeSnippet struct {
	Code         string `json:"code"`
	Comment      string `json:"comment"`
	CommentAfter string `json:"commentAfter"`
}

type Snippet struct {
	ID              string        `json:"_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	CodeSnippets    []CodeSnippet `json:"codeSnippets"`
	Tags            []string      `json:"tags"`
	UserID          string        `json:"userId"`
	UserDisplayName string        `json:"userDisplayName,omitempty"`
	Public          bool          `json:"public"`
	SourceURL       string        `json:"sourceUrl,omitempty"`
	CopiedFromID    string        `json:"copiedFromId,omitempty"`
	LikeCount       int           `json:"likeCount"`
	OwnerVisitCount int           `json:"ownerVisitCount"`

	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// Key identifies the snippet inside view snapshots.
func (s *Snippet) Key() string {
	return s.ID
}

func (s *Snippet) Clone() *Snippet {
	if s == nil {
		return nil
	}
	c := *s
	c.CodeSnippets = append([]CodeSnippet(nil), s.CodeSnippets...)
	c.Tags = append([]string(nil), s.Tags...)
	if s.LastAccessedAt != nil {
		t := *s.LastAccessedAt
		c.LastAccessedAt = &t
	}
	return &c
}

// Order selects one of the personal orderings served by the backend.
type Order string

const (
	OrderLastCreated Order = "LAST_CREATED"
	OrderMostLikes   Order = "MOST_LIKES"
	OrderMostUsed    Order = "MOST_USED"
)

func (o Order) Valid() bool {
	switch o {
	case OrderLastCreated, OrderMostLikes, OrderMostUsed:
		return true
	default:
		return false
	}
}

type UsedTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type CreateRequest struct {
	Title        string        `json:"title" validate:"required,notblank,max=300"`
	Description  string        `json:"description" validate:"max=10000"`
	CodeSnippets []CodeSnippet `json:"codeSnippets" validate:"max=20"`
	Tags         []string      `json:"tags" validate:"required,min=1,max=8,dive,notblank,max=64"`
	Public       bool          `json:"public"`
	SourceURL    string        `json:"sourceUrl" validate:"omitempty,url"`
	CopiedFromID string        `json:"copiedFromId"`
}

func (r *CreateRequest) Validate() error {
	if err := validation.Struct(r); err != nil {
		return validation.Message(err, validation.Messages{
			"Title": {
				"required": "title is required",
				"notblank": "title is required",
				"max":      "title is too long",
			},
			"Description": {
				"max": "description is too long",
			},
			"CodeSnippets": {
				"max": "too many code snippets",
			},
			"Tags": {
				"required": "at least one tag is required",
				"min":      "at least one tag is required",
				"max":      "too many tags",
				"*":        "invalid tag",
			},
			"SourceURL": {
				"url": "invalid source url",
			},
		}, "invalid snippet")
	}
	return nil
}

// Snippet builds the entity to send to the gateway.
func (r *CreateRequest) Snippet(userID, displayName string) *Snippet {
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, strings.TrimSpace(t))
	}
	return &Snippet{
		Title:           strings.TrimSpace(r.Title),
		Description:     r.Description,
		CodeSnippets:    append([]CodeSnippet(nil), r.CodeSnippets...),
		Tags:            tags,
		UserID:          userID,
		UserDisplayName: displayName,
		Public:          r.Public,
		SourceURL:       strings.TrimSpace(r.SourceURL),
		CopiedFromID:    r.CopiedFromID,
	}
}
