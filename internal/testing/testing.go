// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// MockSource is a test double for [services.CollectionSource].
//
// It serves in-memory playlists through opaque offset tokens ("tok-<offset>") and counts remote calls.
type MockSource struct {
	mu        sync.Mutex
	playlists map[string][]models.Item
	calls     int
	err       error
	tokenErrs map[string]error
}

func NewMockSource() *MockSource {
	return &MockSource{playlists: make(map[string][]models.Item), tokenErrs: make(map[string]error)}
}

// SetItems replaces the contents of a playlist.
func (m *MockSource) SetItems(collectionID string, items []models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlists[collectionID] = items
}

// SetError makes every subsequent call fail with err; nil restores normal behavior.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailToken makes calls with token fail with err.
func (m *MockSource) FailToken(token string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenErrs[token] = err
}

// Calls returns the number of FetchPage calls so far.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) FetchPage(ctx context.Context, collectionID, token string, pageSize int) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if err, ok := m.tokenErrs[token]; ok {
		return nil, err
	}

	items, ok := m.playlists[collectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrCollectionNotFound, collectionID)
	}

	offset := 0
	if token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "tok-"))
		if err != nil || n < 0 || n > len(items) {
			return nil, fmt.Errorf("%w: invalid page token %q", shared.ErrParse, token)
		}
		offset = n
	}

	end := min(offset+pageSize, len(items))
	page := &models.Page{
		CollectionID:   collectionID,
		Items:          append([]models.Item(nil), items[offset:end]...),
		TotalResults:   len(items),
		ResultsPerPage: pageSize,
		FetchedAt:      time.Now(),
	}
	if end < len(items) {
		page.NextToken = Token(end)
	}
	if offset > 0 {
		page.PrevToken = Token(max(offset-pageSize, 0))
	}
	return page, nil
}

func (m *MockSource) Name() string { return "mock" }

// Token is the cursor [MockSource] issues for an item offset.
func Token(offset int) string { return "tok-" + strconv.Itoa(offset) }

// Items builds n items titled "<prefix> <i>".
func Items(prefix string, n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			ID:             fmt.Sprintf("%s-%d", prefix, i),
			PlaylistItemID: fmt.Sprintf("pli-%s-%d", prefix, i),
			Title:          fmt.Sprintf("%s %d", prefix, i),
			Position:       i,
		}
	}
	return items
}

// MockSearcher is a test double for [services.Searcher] answering from a query → candidates table.
type MockSearcher struct {
	mu      sync.Mutex
	results map[string][]models.Candidate
	errs    map[string]error
	calls   map[string]int
	Delay   time.Duration
}

func NewMockSearcher() *MockSearcher {
	return &MockSearcher{
		results: make(map[string][]models.Candidate),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// On sets the candidates returned for query.
func (m *MockSearcher) On(query string, candidates ...models.Candidate) *MockSearcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = candidates
	return m
}

// Fail makes searches for query return err.
func (m *MockSearcher) Fail(query string, err error) *MockSearcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[query] = err
	return m
}

// Calls returns how often query was searched; an empty query sums every call.
func (m *MockSearcher) Calls(query string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if query != "" {
		return m.calls[query]
	}
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockSearcher) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	m.mu.Lock()
	m.calls[query]++
	err, failed := m.errs[query]
	candidates := m.results[query]
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failed {
		return nil, err
	}
	return candidates, nil
}

func (m *MockSearcher) Name() string { return "mock" }

// FailingCache is a [cache.PageCache] whose backend is always down.
type FailingCache struct{}

var ErrCacheDown = errors.New("cache backend unavailable")

func (FailingCache) Get(context.Context, string, int) (*models.Page, error) {
	return nil, ErrCacheDown
}

func (FailingCache) Set(context.Context, string, int, *models.Page, time.Duration) error {
	return ErrCacheDown
}

func (FailingCache) Purge(context.Context, string) error { return ErrCacheDown }

// NewTestDB opens an in-memory database with every migration applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, ":memory:", 0, 0)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file %s to exist", path)
	}
}
