package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalograg/internal/domain"
)

const (
	sessionKeyPrefix = "chat:session:"
	defaultTTL       = 24 * time.Hour
)

// RedisStore keeps conversation history in a Redis list, one JSON-encoded
// turn per element in append order. TTL is refreshed on every touch so
// active conversations never expire mid-session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store from a redis URL
// (e.g. "redis://localhost:6379/0").
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	key := s.key(sessionID)

	raw, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	turns := make([]domain.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode session turn: %w", err)
		}
		turns = append(turns, turn)
	}

	// Refresh TTL on read; best effort.
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...domain.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	key := s.key(sessionID)

	values := make([]interface{}, len(turns))
	for i, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode session turn: %w", err)
		}
		values[i] = data
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
