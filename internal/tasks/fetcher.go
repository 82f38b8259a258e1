package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/cache"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
)

const (
	defaultPageSize = 50
	defaultCacheTTL = 24 * time.Hour
)

// TokenStore is the durable page-number → cursor index. Implemented by repositories.PageTokenRepository.
type TokenStore interface {
	RecordToken(collectionID string, page int, token string) (bool, error)
	Get(collectionID string, page int) (*models.PageTokenEntry, error)
	NearestAtOrBefore(collectionID string, target int) (*models.PageTokenEntry, error)
	ShiftAll(collectionID string, delta int) error
	TruncateAfter(collectionID string, page int) (int64, error)
}

// PageFetcher materializes single pages, serving from the cache when possible and recording
// every cursor a remote response exposes.
type PageFetcher struct {
	source   services.CollectionSource
	cache    cache.PageCache
	tokens   TokenStore
	pageSize int
	ttl      time.Duration
	logger   *log.Logger
}

// NewPageFetcher creates a fetcher. A non-positive pageSize or ttl falls back to 50 items and 24 hours.
func NewPageFetcher(source services.CollectionSource, pc cache.PageCache, tokens TokenStore, pageSize int, ttl time.Duration, logger *log.Logger) *PageFetcher {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &PageFetcher{
		source:   source,
		cache:    pc,
		tokens:   tokens,
		pageSize: pageSize,
		ttl:      ttl,
		logger:   shared.WithLogger(logger, "component", "fetcher"),
	}
}

// PageSize is the number of items requested per page.
func (f *PageFetcher) PageSize() int { return f.pageSize }

// Fetch returns page number page of collectionID, using token for the remote call on a cache miss.
//
// An empty token requests the first page.
func (f *PageFetcher) Fetch(ctx context.Context, collectionID string, page int, token string) (*models.Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d", shared.ErrInvalidRange, page)
	}

	if cached, ok := f.cached(ctx, collectionID, page); ok {
		return cached, nil
	}

	result, err := f.remote(ctx, collectionID, page, token)
	if err != nil {
		return nil, err
	}

	f.Commit(ctx, result)
	return result, nil
}

// Probe returns page 1 to observe the current total. A remote result is neither cached nor mined for
// tokens, since its cursors may belong to a layout the token index has not been realigned to yet.
// fresh reports whether the page came from the remote API and should be passed to [PageFetcher.Commit].
func (f *PageFetcher) Probe(ctx context.Context, collectionID string) (p *models.Page, fresh bool, err error) {
	if cached, ok := f.cached(ctx, collectionID, 1); ok {
		return cached, false, nil
	}

	p, err = f.remote(ctx, collectionID, 1, "")
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// Commit records the cursors p exposes and caches it.
func (f *PageFetcher) Commit(ctx context.Context, p *models.Page) {
	if p.Number == 2 && p.PrevToken != "" {
		f.record(p, 1, p.PrevToken)
	}
	if p.HasNext() {
		f.record(p, p.Number+1, p.NextToken)
	}

	if err := f.cache.Set(ctx, p.CollectionID, p.Number, p, f.ttl); err != nil {
		f.logger.Warn("cache write failed", "collection", p.CollectionID, "page", p.Number, "error", err)
	}
}

func (f *PageFetcher) cached(ctx context.Context, collectionID string, page int) (*models.Page, bool) {
	p, err := f.cache.Get(ctx, collectionID, page)
	switch {
	case err == nil:
		f.logger.Debug("cache hit", "collection", collectionID, "page", page)
		p.CollectionID = collectionID
		p.Number = page
		return p, true
	case errors.Is(err, cache.ErrMiss):
		f.logger.Debug("cache miss", "collection", collectionID, "page", page)
	default:
		f.logger.Warn("cache read failed, fetching remote", "collection", collectionID, "page", page, "error", err)
	}
	return nil, false
}

func (f *PageFetcher) remote(ctx context.Context, collectionID string, page int, token string) (*models.Page, error) {
	p, err := f.source.FetchPage(ctx, collectionID, token, f.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page %d: %w", collectionID, page, err)
	}
	p.CollectionID = collectionID
	p.Number = page
	return p, nil
}

// record stores a discovered cursor; failures are counted on the page instead of failing the fetch.
func (f *PageFetcher) record(p *models.Page, page int, token string) {
	written, err := f.tokens.RecordToken(p.CollectionID, page, token)
	if err != nil {
		p.TokenErrors++
		f.logger.Error("failed to record page token", "collection", p.CollectionID, "page", page, "error", err)
		return
	}
	if written {
		f.logger.Debug("recorded page token", "collection", p.CollectionID, "page", page)
	}
}
