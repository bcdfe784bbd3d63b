package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient narrows the redis operations the store needs.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisAdapter wraps *redis.Client to satisfy RedisClient.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisAdapter) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// RedisStore keeps the token under a single key, for devices that share a
// session through a local redis.
type RedisStore struct {
	client RedisClient
	key    string
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key)
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("loading session from redis: %w", err)
	}
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.client.Set(ctx, s.key, token, s.ttl); err != nil {
		return fmt.Errorf("saving session to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key); err != nil {
		return fmt.Errorf("deleting session from redis: %w", err)
	}
	return nil
}
