package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	if f.err != nil {
		return f.err
	}
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestRedisStore_RoundTrip(t *testing.T) {
	client := newFakeRedis()
	store := NewRedisStore(client, "socialsync:session", time.Hour)
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := store.Save(ctx, "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.ttls["socialsync:session"] != time.Hour {
		t.Fatalf("expected ttl to be passed through")
	}
	token, err := store.Load(ctx)
	if err != nil || token != "tok" {
		t.Fatalf("expected tok, got %q %v", token, err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after delete, got %v", err)
	}
}

func TestRedisStore_WrapsErrors(t *testing.T) {
	client := newFakeRedis()
	boom := errors.New("conn refused")
	client.err = boom
	store := NewRedisStore(client, "k", 0)
	ctx := context.Background()

	if _, err := store.Load(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped load error, got %v", err)
	}
	if err := store.Save(ctx, "tok"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if err := store.Delete(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
}

func TestRedisAdapter_MethodsReturnErrorsWhenUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
	})
	defer func() { _ = client.Close() }()

	adapter := NewRedisAdapter(client)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := adapter.Set(ctx, "k", "v", 10*time.Second); err == nil {
		t.Fatal("expected Set to return error when redis unavailable")
	}
	if _, err := adapter.Get(ctx, "k"); err == nil {
		t.Fatal("expected Get to return error when redis unavailable")
	}
	if err := adapter.Del(ctx, "k"); err == nil {
		t.Fatal("expected Del to return error when redis unavailable")
	}
}
