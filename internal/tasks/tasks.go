package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// SyncEngine defines the operations exposed to callers.
type SyncEngine interface {
	// ResolvePage returns ordinal page of collectionID with every item classified for owner.
	ResolvePage(ctx context.Context, progress chan<- ProgressUpdate, collectionID string, page int, owner string) (*models.ResolvedPage, error)

	// Classify returns the availability of a single item for owner, searching only when no record exists.
	Classify(ctx context.Context, item models.Item, owner string) models.ClassificationOutcome

	// Sync resolves every page of collectionID in order and marks the collection processed.
	Sync(ctx context.Context, progress chan<- ProgressUpdate, collectionID, owner string) (*SyncResult, error)
}

// SyncResult summarizes a full walk of a collection.
type SyncResult struct {
	CollectionID string
	Pages        int
	Items        int
	States       map[models.Availability]int // per-item availability, UNCHECKED for failed classifications
	Failures     map[models.OutcomeKind]int  // failed classifications by kind
	Drift        int
}

// PlaylistEngine implements SyncEngine.
//
// Page walks of one collection hold its read lock; drift corrections hold its write lock, so a walk
// sees page numbers either before or after a shift and never a mix. Collections never contend.
type PlaylistEngine struct {
	collections CollectionStore
	fetcher     *PageFetcher
	resolver    *RangeResolver
	drift       *DriftCorrector
	matcher     *AvailabilityMatcher
	logger      *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewPlaylistEngine wires the engine from its collaborators.
func NewPlaylistEngine(
	collections CollectionStore,
	tokens TokenStore,
	fetcher *PageFetcher,
	drift *DriftCorrector,
	matcher *AvailabilityMatcher,
	logger *log.Logger,
) *PlaylistEngine {
	return &PlaylistEngine{
		collections: collections,
		fetcher:     fetcher,
		resolver:    NewRangeResolver(fetcher, tokens, logger),
		drift:       drift,
		matcher:     matcher,
		logger:      shared.WithLogger(logger, "component", "engine"),
		locks:       make(map[string]*sync.RWMutex),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *PlaylistEngine) lockFor(collectionID string) *sync.RWMutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[collectionID]
	if !ok {
		l = &sync.RWMutex{}
		e.locks[collectionID] = l
	}
	return l
}

// ResolvePage checks for drift, walks to page and classifies its items.
//
// A failed walk fails the request. Failed classifications do not: they surface as UNCHECKED items.
func (e *PlaylistEngine) ResolvePage(ctx context.Context, progress chan<- ProgressUpdate, collectionID string, page int, owner string) (*models.ResolvedPage, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d is below 1", shared.ErrInvalidRange, page)
	}
	if collectionID == "" {
		return nil, fmt.Errorf("%w: collection id", shared.ErrMissingArgument)
	}

	if _, err := e.load(collectionID); err != nil {
		return nil, err
	}

	shift, err := e.correctDrift(ctx, progress, collectionID)
	if err != nil {
		return nil, err
	}

	p, err := e.walk(ctx, progress, collectionID, page)
	if err != nil {
		return nil, err
	}

	items := e.matcher.ClassifyPage(ctx, p.Items, owner, func(done, total int, ci models.ClassifiedItem) {
		e.sendProgress(progress, classifyItemUpdate(done, total, ci))
	})

	return &models.ResolvedPage{
		CollectionID: collectionID,
		Number:       page,
		Items:        items,
		TotalItems:   p.TotalResults,
		NextToken:    p.NextToken,
		Drift:        shift,
	}, nil
}

// load returns the stored row of collectionID, creating it on first visit.
//
// Rows read outside a collection's lock are only good for existence checks: a concurrent drift
// correction may change the count at any time.
func (e *PlaylistEngine) load(collectionID string) (*models.Collection, error) {
	c, err := e.collections.GetOrCreate(collectionID)
	if err != nil {
		return nil, fmt.Errorf("%w: load collection: %v", shared.ErrStoreUnavailable, err)
	}
	return c, nil
}

// correctDrift probes the current total through page 1 and realigns the token index under the write lock.
//
// The row is read after the lock is taken, so a request queued behind another correction compares
// against the count that correction stored. The probe's own cursors are recorded only after the
// index has been realigned.
//
// Collections without a stored count are left alone; their first walk records one.
func (e *PlaylistEngine) correctDrift(ctx context.Context, progress chan<- ProgressUpdate, collectionID string) (int, error) {
	lock := e.lockFor(collectionID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.load(collectionID)
	if err != nil {
		return 0, err
	}
	if !c.HasKnownCount() {
		return 0, nil
	}

	e.sendProgress(progress, checkDriftUpdate(c.RemoteID()))

	probe, fresh, err := e.fetcher.Probe(ctx, c.RemoteID())
	if err != nil {
		return 0, fmt.Errorf("drift probe: %w", err)
	}

	res, err := e.drift.Correct(ctx, c, probe.TotalResults)
	if err != nil {
		return 0, err
	}
	if fresh {
		e.fetcher.Commit(ctx, probe)
	}

	if res.Kind == DriftNone {
		if c.ItemCount() != probe.TotalResults {
			c.SetItemCount(probe.TotalResults)
			if err := e.collections.Update(c); err != nil {
				e.logger.Warn("failed to store item count", "collection", c.RemoteID(), "error", err)
			}
		}
		return 0, nil
	}

	e.sendProgress(progress, driftCorrectedUpdate(res))
	return res.Shift, nil
}

// walk resolves page under the read lock and records first-visit bookkeeping.
func (e *PlaylistEngine) walk(ctx context.Context, progress chan<- ProgressUpdate, collectionID string, page int) (*models.Page, error) {
	lock := e.lockFor(collectionID)
	lock.RLock()
	defer lock.RUnlock()

	c, err := e.load(collectionID)
	if err != nil {
		return nil, err
	}

	p, err := e.resolver.resolve(ctx, collectionID, page, func(step, target int) {
		e.sendProgress(progress, resolvePageUpdate(step, target))
	})
	if err != nil {
		return nil, err
	}

	if p.TokenErrors > 0 {
		e.logger.Warn("page resolved with unrecorded tokens", "collection", c.RemoteID(), "page", page, "failures", p.TokenErrors)
	}

	dirty := false
	if !c.HasKnownCount() {
		c.SetItemCount(p.TotalResults)
		dirty = true
	}
	if c.Status() == models.StatusUnprocessed {
		c.SetStatus(models.StatusProcessing)
		dirty = true
	}
	if dirty {
		if err := e.collections.Update(c); err != nil {
			e.logger.Warn("failed to update collection", "collection", c.RemoteID(), "error", err)
		}
	}

	return p, nil
}

// Classify returns the availability of a single item for owner.
func (e *PlaylistEngine) Classify(ctx context.Context, item models.Item, owner string) models.ClassificationOutcome {
	return e.matcher.Classify(ctx, item, owner)
}

// Sync resolves pages 1..N until the remote API stops exposing a next cursor.
func (e *PlaylistEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate, collectionID, owner string) (*SyncResult, error) {
	result := &SyncResult{
		CollectionID: collectionID,
		States:       make(map[models.Availability]int),
		Failures:     make(map[models.OutcomeKind]int),
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		resolved, err := e.ResolvePage(ctx, nil, collectionID, page, owner)
		if err != nil {
			return result, fmt.Errorf("sync %s page %d: %w", collectionID, page, err)
		}

		result.Pages++
		result.Drift += resolved.Drift
		for _, ci := range resolved.Items {
			result.Items++
			result.States[ci.Outcome.State()]++
			if ci.Outcome.Kind != models.OutcomeClassified {
				result.Failures[ci.Outcome.Kind]++
			}
		}

		e.sendProgress(progress, syncPageUpdate(page, e.pagesFor(resolved.TotalItems), resolved))

		if resolved.NextToken == "" {
			break
		}
	}

	if err := e.markProcessed(collectionID); err != nil {
		return result, err
	}

	e.logger.Info("collection synced", "collection", collectionID, "pages", result.Pages, "items", result.Items)
	return result, nil
}

// markProcessed updates the status under the write lock so it never overwrites a count stored by a drift correction.
func (e *PlaylistEngine) markProcessed(collectionID string) error {
	lock := e.lockFor(collectionID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.load(collectionID)
	if err != nil {
		return err
	}
	c.SetStatus(models.StatusProcessed)
	if err := e.collections.Update(c); err != nil {
		return fmt.Errorf("%w: mark processed: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

func (e *PlaylistEngine) pagesFor(total int) int {
	size := e.fetcher.PageSize()
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Confirm promotes a PENDING match of itemID to AVAILABLE.
func (e *PlaylistEngine) Confirm(itemID, owner string, candidate models.Candidate) (*models.CorrelationRecord, error) {
	return e.matcher.Confirm(itemID, owner, candidate)
}

// Reject marks a PENDING match of itemID UNAVAILABLE.
func (e *PlaylistEngine) Reject(itemID, owner string) (*models.CorrelationRecord, error) {
	return e.matcher.Reject(itemID, owner)
}

// Reset forgets the classification of itemID.
func (e *PlaylistEngine) Reset(itemID, owner string) error {
	return e.matcher.Reset(itemID, owner)
}
