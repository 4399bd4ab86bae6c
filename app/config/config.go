// Package config reads the server configuration from BLOGFEED_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
)

type Config struct {
	Addr          string
	Store         string
	DBPath        string
	DatabaseURL   string
	Cache         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	IndexCacheTTL time.Duration
	PageSize      int
	MediaRoot     string
	MaxUploadSize int64
	SessionTTL    time.Duration
	LogLevel      log.Level
	SecureCookies bool
}

// IntFromString parses s, falling back to defaultValue when it is not an integer.
func IntFromString(s string, defaultValue int) int {
	atoi, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultValue
	}
	return atoi
}

func stringFrom(s, defaultValue string) string {
	if s = strings.TrimSpace(s); s == "" {
		return defaultValue
	}
	return s
}

// Load builds a Config from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.Getenv)
}

// FromLookup builds a Config reading variables through getenv.
func FromLookup(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Addr:          stringFrom(getenv("BLOGFEED_ADDR"), ":8080"),
		Store:         strings.ToLower(stringFrom(getenv("BLOGFEED_STORE"), StoreBadger)),
		DBPath:        stringFrom(getenv("BLOGFEED_DB_PATH"), "data/badger"),
		DatabaseURL:   getenv("BLOGFEED_DATABASE_URL"),
		Cache:         strings.ToLower(stringFrom(getenv("BLOGFEED_CACHE"), CacheMemory)),
		RedisAddr:     stringFrom(getenv("BLOGFEED_REDIS_ADDR"), "localhost:6379"),
		RedisPassword: getenv("BLOGFEED_REDIS_PASSWORD"),
		RedisDB:       IntFromString(getenv("BLOGFEED_REDIS_DB"), 0),
		IndexCacheTTL: time.Duration(IntFromString(getenv("BLOGFEED_INDEX_CACHE_SECONDS"), 20)) * time.Second,
		PageSize:      IntFromString(getenv("BLOGFEED_PAGE_SIZE"), 10),
		MediaRoot:     stringFrom(getenv("BLOGFEED_MEDIA_ROOT"), "data/media"),
		MaxUploadSize: int64(IntFromString(getenv("BLOGFEED_MAX_UPLOAD_MB"), 10)) << 20,
		SessionTTL:    time.Duration(IntFromString(getenv("BLOGFEED_SESSION_DAYS"), 14)) * 24 * time.Hour,
	}

	level, err := log.ParseLevel(stringFrom(getenv("BLOGFEED_LOG_LEVEL"), "info"))
	if err != nil {
		return nil, fmt.Errorf("BLOGFEED_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if secure := getenv("BLOGFEED_SECURE_COOKIES"); secure != "" {
		if cfg.SecureCookies, err = strconv.ParseBool(secure); err != nil {
			return nil, fmt.Errorf("BLOGFEED_SECURE_COOKIES: %w", err)
		}
	}

	switch cfg.Store {
	case StoreBadger:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("BLOGFEED_DATABASE_URL is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("BLOGFEED_STORE: unknown store %q", cfg.Store)
	}
	if cfg.Cache != CacheMemory && cfg.Cache != CacheRedis {
		return nil, fmt.Errorf("BLOGFEED_CACHE: unknown cache %q", cfg.Cache)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("BLOGFEED_PAGE_SIZE must be positive, got %d", cfg.PageSize)
	}
	return cfg, nil
}
