package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend shares the cache across daemons on one host. Expiry stays
// passive: entries carry their own deadline instead of a Redis TTL.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

type redisEntry struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt int64           `json:"expiresAt,omitempty"`
	Sensitive bool            `json:"sensitive,omitempty"`
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "codever:cache:"
	}
	return &RedisBackend{client: client, prefix: p}
}

func (r *RedisBackend) keyEntry(key string) string {
	return r.prefix + "entry:" + key
}

func (r *RedisBackend) keySensitive() string {
	return r.prefix + "sensitive"
}

func (r *RedisBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	val, err := r.client.Get(ctx, r.keyEntry(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}

	var re redisEntry
	if err := json.Unmarshal([]byte(val), &re); err != nil {
		return Entry{}, false, err
	}
	e := Entry{Key: key, Data: re.Data, Sensitive: re.Sensitive}
	if re.ExpiresAt != 0 {
		e.ExpiresAt = time.UnixMilli(re.ExpiresAt)
	}
	return e, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, e Entry) error {
	re := redisEntry{Data: e.Data, Sensitive: e.Sensitive}
	if !e.ExpiresAt.IsZero() {
		re.ExpiresAt = e.ExpiresAt.UnixMilli()
	}
	payload, err := json.Marshal(re)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keyEntry(e.Key), payload, 0)
		if e.Sensitive {
			pipe.SAdd(ctx, r.keySensitive(), e.Key)
		} else {
			pipe.SRem(ctx, r.keySensitive(), e.Key)
		}
		return nil
	})
	return err
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.keyEntry(key))
		pipe.SRem(ctx, r.keySensitive(), key)
		return nil
	})
	return err
}

func (r *RedisBackend) DeleteSensitive(ctx context.Context) error {
	keys, err := r.client.SMembers(ctx, r.keySensitive()).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		full = append(full, r.keyEntry(k))
	}
	full = append(full, r.keySensitive())
	return r.client.Del(ctx, full...).Err()
}
