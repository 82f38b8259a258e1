package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "ytmirror:page"
	connectionTimeout = 5 * time.Second
	scanBatchSize     = 100
)

// ErrEmptyAddress is returned when the redis backend is selected without an address.
var ErrEmptyAddress = errors.New("redis address is required")

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(cfg shared.CacheConfig) (*redis.Client, error) {
	if cfg.RedisAddress == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisPageCache stores JSON-encoded pages under native Redis TTLs.
type RedisPageCache struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisPageCache wraps an existing client.
func NewRedisPageCache(client *redis.Client, logger *log.Logger) *RedisPageCache {
	return &RedisPageCache{
		client: client,
		logger: shared.WithLogger(logger, "component", "cache", "backend", "redis"),
	}
}

func (c *RedisPageCache) key(collectionID string, page int) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, collectionID, page)
}

// Get returns the cached page or [ErrMiss].
func (c *RedisPageCache) Get(ctx context.Context, collectionID string, page int) (*models.Page, error) {
	raw, err := c.client.Get(ctx, c.key(collectionID, page)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var p models.Page
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn("discarding unreadable cache entry", "collection", collectionID, "page", page, "error", err)
		c.client.Del(ctx, c.key(collectionID, page))
		return nil, ErrMiss
	}
	return &p, nil
}

// Set stores data for ttl. A non-positive ttl is rejected since entries must expire.
func (c *RedisPageCache) Set(ctx context.Context, collectionID string, page int, data *models.Page, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", shared.ErrInvalidInput)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}

	if err := c.client.Set(ctx, c.key(collectionID, page), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Purge removes every page of collectionID, scanning instead of flushing the database.
func (c *RedisPageCache) Purge(ctx context.Context, collectionID string) error {
	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, collectionID)

	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("scan keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("delete keys: %w", err)
			}
			deleted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("purged cached pages", "collection", collectionID, "keys", deleted)
	return nil
}
