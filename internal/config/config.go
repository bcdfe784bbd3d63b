package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultAPIBaseURL = "https://instagramclone-hiah.onrender.com/api/"

type Config struct {
	App     AppConfig
	API     APIConfig
	Session SessionConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Avatar  AvatarConfig
}

type AppConfig struct {
	Environment string // "development", "production", "test"
	Debug       bool
}

type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables
	RateBurst int
	UserAgent string
}

type SessionConfig struct {
	Backend  string // "file", "memory", "redis"
	File     string
	Secret   string
	RedisKey string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	TTL       time.Duration // 0 keeps entries until invalidated
	SearchTTL time.Duration
}

type AvatarConfig struct {
	MaxBytes int
	Size     int
}

const (
	SessionBackendFile   = "file"
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		API: APIConfig{
			BaseURL:   getEnvNonEmpty("SOCIAL_API_BASE_URL", DefaultAPIBaseURL),
			Timeout:   getEnvDuration("SOCIAL_API_TIMEOUT", 15*time.Second),
			RateLimit: getEnvFloat64("SOCIAL_API_RATE_LIMIT", 10),
			RateBurst: getEnvInt("SOCIAL_API_RATE_BURST", 5),
			UserAgent: getEnvNonEmpty("SOCIAL_USER_AGENT", "socialsync/1.0"),
		},
		Session: SessionConfig{
			Backend:  strings.ToLower(getEnvNonEmpty("SESSION_BACKEND", SessionBackendFile)),
			File:     getEnvNonEmpty("SESSION_FILE", defaultSessionFile()),
			Secret:   getEnv("SESSION_SECRET", ""),
			RedisKey: getEnvNonEmpty("SESSION_REDIS_KEY", "socialsync:session"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTL:       getEnvDuration("CACHE_TTL", 0),
			SearchTTL: getEnvDuration("CACHE_SEARCH_TTL", 60*time.Second),
		},
		Avatar: AvatarConfig{
			MaxBytes: getEnvInt("AVATAR_MAX_BYTES", 10<<20),
			Size:     getEnvInt("AVATAR_SIZE", 512),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Backend {
	case SessionBackendFile, SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api base url must be http(s): %q", c.API.BaseURL)
	}
	if c.Avatar.Size <= 0 {
		return fmt.Errorf("avatar size must be positive, got %d", c.Avatar.Size)
	}
	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "socialsync", "session")
	}
	return filepath.Join(home, ".socialsync", "session")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
