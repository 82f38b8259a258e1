package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

type memoryKey struct {
	collectionID string
	page         int
}

type memoryEntry struct {
	page      models.Page
	expiresAt time.Time
}

// MemoryPageCache is a process-local cache used when no Redis server is configured.
//
// Expired entries are dropped lazily on read and on Set.
type MemoryPageCache struct {
	mu      sync.RWMutex
	entries map[memoryKey]memoryEntry
	now     func() time.Time
}

func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{entries: make(map[memoryKey]memoryEntry), now: time.Now}
}

func (c *MemoryPageCache) Get(_ context.Context, collectionID string, page int) (*models.Page, error) {
	k := memoryKey{collectionID, page}

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[k]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, k)
		}
		c.mu.Unlock()
		return nil, ErrMiss
	}

	p := e.page
	p.Items = append([]models.Item(nil), e.page.Items...)
	return &p, nil
}

func (c *MemoryPageCache) Set(_ context.Context, collectionID string, page int, data *models.Page, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", shared.ErrInvalidInput)
	}

	stored := *data
	stored.Items = append([]models.Item(nil), data.Items...)
	stored.TokenErrors = 0

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[memoryKey{collectionID, page}] = memoryEntry{page: stored, expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryPageCache) Purge(_ context.Context, collectionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if k.collectionID == collectionID {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryPageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
