package userdata

import (
	"sort"
	"strings"
	"time"
)

// DefaultSearchesPerDomain is how many unsaved searches are kept per domain.
const DefaultSearchesPerDomain = 15

const (
	DomainPersonal = "personal"
	DomainPublic   = "public"
)

// RecordSearch merges a search into the history. An existing entry with the same
// text (case and surrounding space insensitive) and domain is bumped and moved to
// the front. Otherwise the search is prepended, evicting the oldest unsaved entry
// of that domain first when the domain already holds more than perDomain of them.
func (d *Document) RecordSearch(text, domain string, now time.Time, perDomain int) {
	if perDomain <= 0 {
		perDomain = DefaultSearchesPerDomain
	}
	needle := strings.ToLower(strings.TrimSpace(text))

	for i, s := range d.Searches {
		if s.SearchDomain == domain && strings.ToLower(strings.TrimSpace(s.Text)) == needle {
			existing := d.Searches[i]
			t := now
			existing.LastAccessedAt = &t
			existing.Count++
			d.Searches = append(d.Searches[:i:i], d.Searches[i+1:]...)
			d.Searches = append([]Search{existing}, d.Searches...)
			return
		}
	}

	if d.unsavedCount(domain) > perDomain {
		d.evictOldestUnsaved(domain)
	}

	created, accessed := now, now
	d.Searches = append([]Search{{
		Text:           text,
		CreatedAt:      &created,
		LastAccessedAt: &accessed,
		SearchDomain:   domain,
		Count:          1,
	}}, d.Searches...)
}

// SetSaved flags a search as saved (kept forever) or unsaved.
func (d *Document) SetSaved(text, domain string, saved bool) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	for i := range d.Searches {
		if d.Searches[i].SearchDomain == domain && strings.ToLower(strings.TrimSpace(d.Searches[i].Text)) == needle {
			d.Searches[i].Saved = saved
			return true
		}
	}
	return false
}

// SortSearches orders searches by last access, most recent first, never accessed last.
func (d *Document) SortSearches() {
	sort.SliceStable(d.Searches, func(i, j int) bool {
		a, b := d.Searches[i].LastAccessedAt, d.Searches[j].LastAccessedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func (d *Document) unsavedCount(domain string) int {
	n := 0
	for _, s := range d.Searches {
		if !s.Saved && s.SearchDomain == domain {
			n++
		}
	}
	return n
}

func (d *Document) evictOldestUnsaved(domain string) {
	for i := len(d.Searches) - 1; i >= 0; i-- {
		if !d.Searches[i].Saved && d.Searches[i].SearchDomain == domain {
			d.Searches = append(d.Searches[:i:i], d.Searches[i+1:]...)
			return
		}
	}
}
