// Package localcache is the device-local key/value cache with hour based
// expiry and a sensitive flag for entries that must not outlive a session.
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/LamboYu/codever/internal/telemetry"
)

const (
	KeyHistorySnippets     = "user-history-snippets"
	KeyPersonalTags        = "personal-tags-snippets"
	KeyLocalStorageConsent = "user-local-storage-consent"
)

// Entry is what a Backend stores. A zero ExpiresAt never expires.
type Entry struct {
	Key       string
	Data      []byte
	ExpiresAt time.Time
	Sensitive bool
}

type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	DeleteSensitive(ctx context.Context) error
}

// Cache is safe for concurrent use as long as its Backend is.
type Cache struct {
	backend Backend
	now     func() time.Time
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get decodes the entry for key into dst. Expired entries are reported as
// absent but left in place.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	e, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		telemetry.RecordCacheLookup(ctx, key, "error")
		return false, err
	}
	if !ok {
		telemetry.RecordCacheLookup(ctx, key, "miss")
		return false, nil
	}
	if c.expired(e) {
		telemetry.RecordCacheLookup(ctx, key, "expired")
		return false, nil
	}
	if dst != nil {
		if err := json.Unmarshal(e.Data, dst); err != nil {
			telemetry.RecordCacheLookup(ctx, key, "error")
			return false, err
		}
	}
	telemetry.RecordCacheLookup(ctx, key, "hit")
	return true, nil
}

// Has reports whether a live entry exists for key.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	return c.Get(ctx, key, nil)
}

// Set stores data as JSON. ttlHours <= 0 stores it without expiry.
func (c *Cache) Set(ctx context.Context, key string, data any, ttlHours int, sensitive bool) error {
	if key == "" {
		return errors.New("localcache: empty key")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	e := Entry{Key: key, Data: payload, Sensitive: sensitive}
	if ttlHours > 0 {
		e.ExpiresAt = c.now().Add(time.Duration(ttlHours) * time.Hour)
	}
	return c.backend.Put(ctx, e)
}

// Edit rewrites the live entry for key in place, keeping its expiry and
// sensitive flag. It reports false without calling edit when there is no
// live entry.
func Edit[T any](ctx context.Context, c *Cache, key string, edit func(T) T) (bool, error) {
	e, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok || c.expired(e) {
		return false, err
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return false, err
	}
	if e.Data, err = json.Marshal(edit(v)); err != nil {
		return false, err
	}
	return true, c.backend.Put(ctx, e)
}

func (c *Cache) expired(e Entry) bool {
	return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(c.now())
}

func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

// PurgeSensitive removes every entry stored with the sensitive flag.
func (c *Cache) PurgeSensitive(ctx context.Context) error {
	if err := c.backend.DeleteSensitive(ctx); err != nil {
		return err
	}
	telemetry.LogInfo(ctx, "sensitive cache entries purged")
	return nil
}

type LoadOptions struct {
	Key       string
	TTLHours  int
	Sensitive bool
}

// Load serves key from the cache, falling back to fetch on a miss. The fetched
// value is written back only when the user consented to local storage.
func Load[T any](ctx context.Context, c *Cache, opts LoadOptions, fetch func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		return fetch(ctx)
	}
	var v T
	hit, err := c.Get(ctx, opts.Key, &v)
	if err != nil {
		telemetry.LogWarn(ctx, "cache read failed, fetching",
			telemetry.LogString("key", opts.Key),
			telemetry.LogErr(err),
		)
	}
	if hit {
		return v, nil
	}

	v, err = fetch(ctx)
	if err != nil {
		return v, err
	}

	consent, err := c.Has(ctx, KeyLocalStorageConsent)
	if err != nil || !consent {
		return v, nil
	}
	if err := c.Set(ctx, opts.Key, v, opts.TTLHours, opts.Sensitive); err != nil {
		telemetry.LogWarn(ctx, "cache write failed",
			telemetry.LogString("key", opts.Key),
			telemetry.LogErr(err),
		)
	}
	return v, nil
}
