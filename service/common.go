package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"blogfeed/app/cache"
	"blogfeed/app/config"
	"blogfeed/app/repositories"
	"blogfeed/app/repositories/postgres"

	"github.com/redis/go-redis/v9"
)

// Swapped out by tests.
var (
	osExit               = os.Exit
	stdout     io.Writer = os.Stdout
	stdin      io.Reader = os.Stdin
	loadConfig           = config.Load
)

// confirm asks a yes/no question on stdin. Anything but y or Y means no.
func confirm(question string) bool {
	fmt.Fprintf(stdout, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(stdin).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

// openStore connects the configured entity store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := repositories.OpenBadger(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewBadgerStore(db), func() { db.Close() }, nil
	}
}

// openCache connects the configured response cache.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache == config.CacheRedis {
		return cache.NewRedis(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return cache.NewMemory(64 << 20)
}
