// Package userdata holds the per-user preference document and the list
// operations that keep its invariants: ids are unique inside history, pinned
// and likes, and history is ordered most recent first.
package userdata

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/LamboYu/codever/internal/identity"
)

const gravatarBaseURL = "https://gravatar.com/avatar/"

type Profile struct {
	DisplayName string `json:"displayName"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type Following struct {
	Users []string `json:"users"`
	Tags  []string `json:"tags"`
}

type Search struct {
	Text           string     `json:"text"`
	Language       string     `json:"language,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	SearchDomain   string     `json:"searchDomain"`
	Count          int        `json:"count"`
	Saved          bool       `json:"saved"`
}

type Document struct {
	ID                  string    `json:"_id,omitempty"`
	UserID              string    `json:"userId"`
	Profile             Profile   `json:"profile"`
	Searches            []Search  `json:"searches"`
	RecentSearches      []Search  `json:"recentSearches"`
	ReadLater           []string  `json:"readLater"`
	Likes               []string  `json:"likes"`
	WatchedTags         []string  `json:"watchedTags"`
	IgnoredTags         []string  `json:"ignoredTags"`
	Pinned              []string  `json:"pinned"`
	Favorites           []string  `json:"favorites"` // deprecated
	History             []string  `json:"history"`
	Followers           []string  `json:"followers"`
	Following           Following `json:"following"`
	WelcomeAck          bool      `json:"welcomeAck"`
	ShowAllPublicInFeed bool      `json:"showAllPublicInFeed"`
	EnableLocalStorage  bool      `json:"enableLocalStorage"`
}

// ListsPatch is the body of the combined history + read later + pinned update.
// Empty lists mean "unchanged".
type ListsPatch struct {
	History   []string `json:"history"`
	ReadLater []string `json:"readLater"`
	Pinned    []string `json:"pinned"`
}

// NewInitial synthesizes the document of a user the backend does not know yet.
func NewInitial(u identity.User) *Document {
	return &Document{
		UserID: u.ID,
		Profile: Profile{
			DisplayName: u.FirstName,
			ImageURL:    GravatarURL(u.Email),
		},
		Searches:       []Search{},
		RecentSearches: []Search{},
		ReadLater:      []string{},
		Likes:          []string{},
		WatchedTags:    []string{},
		IgnoredTags:    []string{},
		Pinned:         []string{},
		Favorites:      []string{},
		History:        []string{},
		Followers:      []string{},
		Following:      Following{Users: []string{}, Tags: []string{}},
	}
}

func GravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return gravatarBaseURL + hex.EncodeToString(sum[:]) + "?s=340"
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Searches = cloneSearches(d.Searches)
	c.RecentSearches = cloneSearches(d.RecentSearches)
	c.ReadLater = cloneIDs(d.ReadLater)
	c.Likes = cloneIDs(d.Likes)
	c.WatchedTags = cloneIDs(d.WatchedTags)
	c.IgnoredTags = cloneIDs(d.IgnoredTags)
	c.Pinned = cloneIDs(d.Pinned)
	c.Favorites = cloneIDs(d.Favorites)
	c.History = cloneIDs(d.History)
	c.Followers = cloneIDs(d.Followers)
	c.Following = Following{Users: cloneIDs(d.Following.Users), Tags: cloneIDs(d.Following.Tags)}
	return &c
}

// PromoteHistory moves id to the front of the history.
func (d *Document) PromoteHistory(id string) {
	d.History = PrependUnique(d.History, id)
}

// RemoveEverywhere drops id from every id list that may reference a snippet.
func (d *Document) RemoveEverywhere(id string) {
	d.History = Without(d.History, id)
	d.Pinned = Without(d.Pinned, id)
	d.Favorites = Without(d.Favorites, id)
	d.ReadLater = Without(d.ReadLater, id)
	d.Likes = Without(d.Likes, id)
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append([]string{}, ids...)
}

func cloneSearches(in []Search) []Search {
	if in == nil {
		return nil
	}
	out := make([]Search, len(in))
	for i, s := range in {
		out[i] = s
		if s.CreatedAt != nil {
			t := *s.CreatedAt
			out[i].CreatedAt = &t
		}
		if s.LastAccessedAt != nil {
			t := *s.LastAccessedAt
			out[i].LastAccessedAt = &t
		}
	}
	return out
}
