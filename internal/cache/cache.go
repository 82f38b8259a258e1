// Package cache holds fetched playlist pages keyed by (collection, page) with time-based expiry.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// ErrMiss is returned by [PageCache.Get] when no live entry exists.
var ErrMiss = errors.New("cache miss")

// PageCache stores pages for a bounded time.
//
// Implementations must be safe for concurrent use.
type PageCache interface {
	Get(ctx context.Context, collectionID string, page int) (*models.Page, error)
	Set(ctx context.Context, collectionID string, page int, data *models.Page, ttl time.Duration) error
	// Purge drops every cached page of one collection.
	Purge(ctx context.Context, collectionID string) error
}

// New builds the backend selected by cfg. The returned close func releases its connections.
func New(cfg shared.CacheConfig, logger *log.Logger) (PageCache, func() error, error) {
	switch cfg.Backend {
	case "", shared.CacheBackendMemory:
		return NewMemoryPageCache(), func() error { return nil }, nil
	case shared.CacheBackendRedis:
		client, err := NewRedisClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisPageCache(client, logger), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
