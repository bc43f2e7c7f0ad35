package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"pizzeria-service/internal/domain"
)

const keyPrefix = "pizzeria:catalog:"

// client - подмножество *redis.Client, используемое кешем.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// CatalogCache хранит JSON ответов каталога в Redis.
type CatalogCache struct {
	rdb client
	log *slog.Logger
}

// NewClient создает клиента Redis и проверяет соединение.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func NewCatalogCache(rdb client, log *slog.Logger) *CatalogCache {
	return &CatalogCache{rdb: rdb, log: log}
}

func (c *CatalogCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	const op = "CatalogCache.Get"

	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.log.Warn("Corrupted cache entry ignored", slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
		return false, nil
	}
	return true, nil
}

func (c *CatalogCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	const op = "CatalogCache.Set"

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NoopCache используется, когда Redis не настроен.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NoopCache) Set(context.Context, string, any, time.Duration) error { return nil }

var (
	_ domain.CatalogCache = (*CatalogCache)(nil)
	_ domain.CatalogCache = NoopCache{}
)
