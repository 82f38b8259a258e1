package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/cache"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// CollectionStore persists collection bookkeeping. Implemented by repositories.CollectionRepository.
type CollectionStore interface {
	GetOrCreate(remoteID string) (*models.Collection, error)
	Update(collection *models.Collection) error
}

// DriftKind classifies how the page count of a collection moved.
type DriftKind int

const (
	DriftNone DriftKind = iota
	DriftGrowth
	DriftShrinkage
)

func (k DriftKind) String() string {
	switch k {
	case DriftNone:
		return "unchanged"
	case DriftGrowth:
		return "grew"
	case DriftShrinkage:
		return "shrank"
	default:
		return ""
	}
}

// DriftResult describes one correction.
type DriftResult struct {
	Kind          DriftKind
	StoredPages   int
	ObservedPages int
	Shift         int   // delta applied to every recorded page number
	Truncated     int64 // entries dropped on shrinkage
}

// DriftCorrector realigns recorded page numbers after the remote collection changed size.
//
// Growth is assumed to happen at the head: every recorded ordinal moves forward by the number of
// new pages. Shrinkage cannot be attributed to a position, so nothing is shifted; entries that
// would address pages past the new end are dropped and the collection is marked outdated.
type DriftCorrector struct {
	tokens      TokenStore
	cache       cache.PageCache
	collections CollectionStore
	pageSize    int
	logger      *log.Logger
}

func NewDriftCorrector(tokens TokenStore, pc cache.PageCache, collections CollectionStore, pageSize int, logger *log.Logger) *DriftCorrector {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &DriftCorrector{
		tokens:      tokens,
		cache:       pc,
		collections: collections,
		pageSize:    pageSize,
		logger:      shared.WithLogger(logger, "component", "drift"),
	}
}

// pagesFor is ceil(count / pageSize).
func (d *DriftCorrector) pagesFor(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + d.pageSize - 1) / d.pageSize
}

// Correct compares the stored count of c with observedCount and adjusts the token index.
//
// The caller must hold the collection's write lock. On any correction c is updated with the observed
// count (and outdated status on shrinkage) and persisted, so the same drift is never applied twice.
func (d *DriftCorrector) Correct(ctx context.Context, c *models.Collection, observedCount int) (DriftResult, error) {
	if !c.HasKnownCount() || observedCount < 0 {
		return DriftResult{}, nil
	}

	res := DriftResult{
		StoredPages:   d.pagesFor(c.ItemCount()),
		ObservedPages: d.pagesFor(observedCount),
	}
	logger := d.logger.With("collection", c.RemoteID(), "stored", res.StoredPages, "observed", res.ObservedPages)

	switch {
	case res.ObservedPages > res.StoredPages:
		res.Kind = DriftGrowth
		res.Shift = res.ObservedPages - res.StoredPages
		if err := d.tokens.ShiftAll(c.RemoteID(), res.Shift); err != nil {
			return res, fmt.Errorf("shift tokens: %w", err)
		}
		logger.Info("collection grew, shifted page tokens", "delta", res.Shift)

	case res.ObservedPages < res.StoredPages:
		res.Kind = DriftShrinkage
		n, err := d.tokens.TruncateAfter(c.RemoteID(), res.ObservedPages)
		if err != nil {
			return res, fmt.Errorf("truncate tokens: %w", err)
		}
		res.Truncated = n
		c.SetStatus(models.StatusOutdated)
		logger.Warn("collection shrank, dropped trailing page tokens", "removed", n)

	default:
		return res, nil
	}

	if err := d.cache.Purge(ctx, c.RemoteID()); err != nil {
		logger.Warn("failed to purge cached pages", "error", err)
	}

	c.SetItemCount(observedCount)
	if err := d.collections.Update(c); err != nil {
		return res, fmt.Errorf("%w: persist drift: %v", shared.ErrStoreUnavailable, err)
	}

	return res, nil
}
