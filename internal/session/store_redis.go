package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session record on a shared Redis, so a daemon
// restarted on another host of the same user resumes it.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "codever:session:"
	}
	return &RedisStore{client: client, key: p + "current", ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, payload, s.ttlFor(r)).Err()
}

// ttlFor never keeps a record past the expiry of its token.
func (s *RedisStore) ttlFor(r Record) time.Duration {
	if r.ExpiresAt.IsZero() {
		return s.ttl
	}
	left := time.Until(r.ExpiresAt)
	if left <= 0 {
		left = time.Second
	}
	if s.ttl > 0 && s.ttl < left {
		return s.ttl
	}
	return left
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var r Record
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
