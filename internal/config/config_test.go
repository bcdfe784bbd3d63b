package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("SOCIAL_API_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != DefaultAPIBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.API.BaseURL)
	}
	if cfg.Session.Backend != SessionBackendFile {
		t.Fatalf("expected file backend, got %q", cfg.Session.Backend)
	}
	if cfg.Cache.SearchTTL != time.Minute {
		t.Fatalf("expected search ttl 1m, got %v", cfg.Cache.SearchTTL)
	}
	if cfg.Avatar.Size != 512 {
		t.Fatalf("expected avatar size 512, got %d", cfg.Avatar.Size)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SOCIAL_API_BASE_URL", "http://localhost:8000/api/")
	t.Setenv("SOCIAL_API_TIMEOUT", "3s")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("CACHE_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Fatalf("expected timeout 3s, got %v", cfg.API.Timeout)
	}
	if cfg.Session.Backend != SessionBackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.Session.Backend)
	}
	if cfg.Redis.Addr() != "localhost:6380" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr())
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("expected cache ttl 5m, got %v", cfg.Cache.TTL)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SOCIAL_API_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("expected fallback timeout, got %v", cfg.API.Timeout)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "floppy")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "session backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestLoad_RejectsNonHTTPBaseURL(t *testing.T) {
	t.Setenv("SOCIAL_API_BASE_URL", "ftp://example.com")

	if _, err := Load(); err == nil {
		t.Fatal("expected base url error")
	}
}
