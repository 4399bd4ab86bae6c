package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreBadger, cfg.Store)
	assert.Equal(t, "data/badger", cfg.DBPath)
	assert.Equal(t, CacheMemory, cfg.Cache)
	assert.Equal(t, 20*time.Second, cfg.IndexCacheTTL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel)
	assert.False(t, cfg.SecureCookies)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromLookup(env(map[string]string{
		"BLOGFEED_ADDR":                ":9000",
		"BLOGFEED_STORE":               "Postgres",
		"BLOGFEED_DATABASE_URL":        "postgres://localhost/blog",
		"BLOGFEED_CACHE":               "redis",
		"BLOGFEED_REDIS_DB":            "2",
		"BLOGFEED_INDEX_CACHE_SECONDS": "0",
		"BLOGFEED_PAGE_SIZE":           "25",
		"BLOGFEED_LOG_LEVEL":           "debug",
		"BLOGFEED_SECURE_COOKIES":      "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, CacheRedis, cfg.Cache)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Zero(t, cfg.IndexCacheTTL)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel)
	assert.True(t, cfg.SecureCookies)
}

func TestInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown store":        {"BLOGFEED_STORE": "sqlite"},
		"postgres without url": {"BLOGFEED_STORE": "postgres"},
		"unknown cache":        {"BLOGFEED_CACHE": "memcached"},
		"bad level":            {"BLOGFEED_LOG_LEVEL": "loud"},
		"bad bool":             {"BLOGFEED_SECURE_COOKIES": "maybe"},
		"zero page size":       {"BLOGFEED_PAGE_SIZE": "0"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromLookup(env(values))
			assert.Error(t, err)
		})
	}
}

func TestIntFromString(t *testing.T) {
	assert.Equal(t, 5, IntFromString("5", 1))
	assert.Equal(t, 1, IntFromString("five", 1))
	assert.Equal(t, 1, IntFromString("", 1))
}
