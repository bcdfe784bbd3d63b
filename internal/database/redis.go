// Package database opens the optional local redis that lets several
// processes on one machine share a session.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/socialsync/internal/config"
	"github.com/HammerMeetNail/socialsync/internal/session"
)

type Redis struct {
	Client *redis.Client
}

var (
	newRedisClient = redis.NewClient
	redisPing      = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
)

// OpenRedis connects with a small pool; a client process only ever reads and
// writes one key.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := newRedisClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     2,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := redisPing(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr(), err)
	}
	return &Redis{Client: client}, nil
}

// SessionStore keeps the session token under key, expiring after ttl.
func (r *Redis) SessionStore(key string, ttl time.Duration) *session.RedisStore {
	return session.NewRedisStore(session.NewRedisAdapter(r.Client), key, ttl)
}

func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

func (r *Redis) Health(ctx context.Context) error {
	return redisPing(ctx, r.Client)
}
