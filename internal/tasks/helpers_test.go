package tasks

import (
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytmirror/internal/cache"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/repositories"
	"github.com/desertthunder/ytmirror/internal/shared"
	tu "github.com/desertthunder/ytmirror/internal/testing"
)

const testPageSize = 50

// harness wires the engine over an in-memory database, the memory cache and scripted remotes.
type harness struct {
	source      *tu.MockSource
	searcher    *tu.MockSearcher
	cache       cache.PageCache
	tokens      *repositories.PageTokenRepository
	collections *repositories.CollectionRepository
	records     *repositories.CorrelationRepository
	fetcher     *PageFetcher
	resolver    *RangeResolver
	drift       *DriftCorrector
	matcher     *AvailabilityMatcher
	engine      *PlaylistEngine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithCache(t, cache.NewMemoryPageCache())
}

func newHarnessWithCache(t *testing.T, pc cache.PageCache) *harness {
	t.Helper()

	db := tu.NewTestDB(t)
	h := &harness{
		source:      tu.NewMockSource(),
		searcher:    tu.NewMockSearcher(),
		cache:       pc,
		tokens:      repositories.NewPageTokenRepository(db),
		collections: repositories.NewCollectionRepository(db),
		records:     repositories.NewCorrelationRepository(db),
	}

	h.fetcher = NewPageFetcher(h.source, h.cache, h.tokens, testPageSize, 24*time.Hour, nil)
	h.resolver = NewRangeResolver(h.fetcher, h.tokens, nil)
	h.drift = NewDriftCorrector(h.tokens, h.cache, h.collections, testPageSize, nil)
	h.matcher = NewAvailabilityMatcher(h.searcher, h.records, MatcherOpts{Workers: 4, RateLimit: 1000}, nil)
	h.engine = NewPlaylistEngine(h.collections, h.tokens, h.fetcher, h.drift, h.matcher, nil)
	return h
}

// seed creates the collection row and its remote contents.
func (h *harness) seed(t *testing.T, collectionID string, n int) {
	t.Helper()
	h.source.SetItems(collectionID, tu.Items(collectionID, n))
	if _, err := h.collections.GetOrCreate(collectionID); err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}
}

func (h *harness) tokenPages(t *testing.T, collectionID string) map[int]string {
	t.Helper()
	entries, err := h.tokens.List(collectionID)
	if err != nil {
		t.Fatalf("failed to list tokens: %v", err)
	}
	m := make(map[int]string, len(entries))
	for _, e := range entries {
		m[e.Page] = e.Token
	}
	return m
}

// gatedCollections holds the first n GetOrCreate calls until all n have read their row, so every
// caller starts from the same snapshot.
type gatedCollections struct {
	CollectionStore

	mu      sync.Mutex
	n       int
	release chan struct{}
}

func newGatedCollections(store CollectionStore, n int) *gatedCollections {
	return &gatedCollections{CollectionStore: store, n: n, release: make(chan struct{})}
}

func (g *gatedCollections) GetOrCreate(remoteID string) (*models.Collection, error) {
	c, err := g.CollectionStore.GetOrCreate(remoteID)

	g.mu.Lock()
	if g.n == 0 {
		g.mu.Unlock()
		return c, err
	}
	g.n--
	if g.n == 0 {
		close(g.release)
	}
	g.mu.Unlock()

	<-g.release
	return c, err
}

// staleRecords reports the first misses lookups as not found, as a worker that read before a
// concurrent insert would see them.
type staleRecords struct {
	CorrelationStore
	misses int
}

func (s *staleRecords) GetByItem(itemID, owner string) (*models.CorrelationRecord, error) {
	if s.misses > 0 {
		s.misses--
		return nil, shared.ErrRecordNotFound
	}
	return s.CorrelationStore.GetByItem(itemID, owner)
}
