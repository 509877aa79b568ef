package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит диалоги в Redis: один hash на пользователя,
// поле — вид диалога, значение — JSON сессии. Диалоги переживают рестарт бота.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore. ttl > 0 — ключ пользователя истекает после ttl без активности.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(userID int64) string {
	return r.prefix + ":" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Load(ctx context.Context, userID int64, kind Kind) (*Session, error) {
	raw, err := r.client.HGet(ctx, r.key(userID), string(kind)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis hget: %w", err)
	}
	return decodeSession(raw)
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	raw, err := encodeSession(s)
	if err != nil {
		return err
	}

	key := r.key(s.UserID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, string(s.Kind), raw)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisStore) End(ctx context.Context, userID int64, kind Kind) error {
	if err := r.client.HDel(ctx, r.key(userID), string(kind)).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (r *RedisStore) Active(ctx context.Context, userID int64) (*Session, error) {
	all, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	return latestOf(all)
}

func (r *RedisStore) EndAll(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func encodeSession(s *Session) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	return string(b), nil
}

func decodeSession(raw string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	return &s, nil
}

// latestOf выбирает самую свежую сессию из содержимого hash.
// Битые значения пропускаются.
func latestOf(fields map[string]string) (*Session, error) {
	var latest *Session
	for _, raw := range fields {
		s, err := decodeSession(raw)
		if err != nil {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNoSession
	}
	return latest, nil
}
