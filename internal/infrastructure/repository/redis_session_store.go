package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	shopIndexPrefix  = "shop_sessions:"
)

// RedisSessionStore implements SessionStore on Redis, the production
// backend shared across instances. Sessions are stored as JSON under
// "session:{id}"; a per-shop set under "shop_sessions:{shop}" indexes
// ids so uninstall can evict a shop without scanning the keyspace.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Store(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Online sessions expire with the token; offline sessions persist.
	var ttl time.Duration
	if session.Expires != nil {
		ttl = time.Until(*session.Expires)
		if ttl <= 0 {
			ttl = time.Second
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, data, ttl)
	pipe.SAdd(ctx, shopIndexPrefix+session.Shop, session.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Load(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.SRem(ctx, shopIndexPrefix+sess.Shop, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteByShop(ctx context.Context, shop string) (int, error) {
	ids, err := s.client.SMembers(ctx, shopIndexPrefix+shop).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list shop sessions: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	keys = append(keys, shopIndexPrefix+shop)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete shop sessions: %w", err)
	}
	return len(ids), nil
}

var _ ports.SessionStore = (*RedisSessionStore)(nil)
