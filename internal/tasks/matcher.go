package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/matching"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/services"
	"github.com/desertthunder/ytmirror/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers    = 5
	maxWorkers        = 10
	defaultSearchRate = 5.0
)

// CorrelationStore persists classification records. Implemented by repositories.CorrelationRepository.
type CorrelationStore interface {
	Create(record *models.CorrelationRecord) error
	GetByItem(itemID, owner string) (*models.CorrelationRecord, error)
	Update(record *models.CorrelationRecord) error
	Delete(id string) error
}

// MatcherOpts bounds the search fan-out.
type MatcherOpts struct {
	Workers   int     // Concurrent classifications per page (default: 5, max: 10)
	RateLimit float64 // Search requests per second (default: 5)
}

// AvailabilityMatcher classifies items against the search service and records the outcome per owner.
//
// Review operations come from the embedded [RecordReviewer].
type AvailabilityMatcher struct {
	*RecordReviewer

	searcher services.Searcher
	records  CorrelationStore
	limiter  *rate.Limiter
	workers  int
	logger   *log.Logger
}

func NewAvailabilityMatcher(searcher services.Searcher, records CorrelationStore, opts MatcherOpts, logger *log.Logger) *AvailabilityMatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultSearchRate
	}

	return &AvailabilityMatcher{
		RecordReviewer: NewRecordReviewer(records),
		searcher:       searcher,
		records:        records,
		limiter:        rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		workers:        opts.Workers,
		logger:         shared.WithLogger(logger, "component", "matcher"),
	}
}

// Classify returns the stored classification of item for owner, searching only when none exists.
//
// Failures are reported through the outcome kind and never create a record.
func (m *AvailabilityMatcher) Classify(ctx context.Context, item models.Item, owner string) models.ClassificationOutcome {
	existing, err := m.records.GetByItem(item.ID, owner)
	switch {
	case err == nil:
		return classified(existing)
	case !errors.Is(err, shared.ErrRecordNotFound):
		return models.ClassificationOutcome{Kind: models.OutcomeStoreError, Err: err}
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return models.ClassificationOutcome{Kind: models.OutcomeParsingError, Err: err}
	}

	candidates, err := m.searcher.Search(ctx, item.Title)
	if err != nil {
		if errors.Is(err, shared.ErrAuthExpired) {
			return models.ClassificationOutcome{Kind: models.OutcomeExpiredToken, Err: err}
		}
		m.logger.Warn("search failed", "item", item.ID, "error", err)
		return models.ClassificationOutcome{Kind: models.OutcomeParsingError, Err: err}
	}

	var record *models.CorrelationRecord
	if best, score, ok := matching.Best(item.Title, candidates); ok {
		record = models.NewPendingRecord(item.ID, owner, best, score)
		m.logger.Debug("pending match", "item", item.ID, "candidate", best.Label(), "score", score)
	} else {
		record = models.NewCorrelationRecord(item.ID, owner, models.Unavailable)
		m.logger.Debug("no candidates", "item", item.ID, "error", shared.ErrEmptyResult)
	}

	if err := m.records.Create(record); err != nil {
		// another worker classified the same item first
		if errors.Is(err, shared.ErrDuplicate) {
			if stored, getErr := m.records.GetByItem(item.ID, owner); getErr == nil {
				return classified(stored)
			}
		}
		return models.ClassificationOutcome{Kind: models.OutcomeStoreError, Err: fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)}
	}

	return classified(record)
}

func classified(r *models.CorrelationRecord) models.ClassificationOutcome {
	return models.ClassificationOutcome{Kind: models.OutcomeClassified, Record: r}
}

type classifyJob struct {
	index int
	item  models.Item
}

// ClassifyPage classifies every item with a bounded worker pool. The result keeps item order and
// has one entry per item, whatever happened to the others.
//
// onDone, when set, is called from the collecting goroutine after each item completes.
func (m *AvailabilityMatcher) ClassifyPage(ctx context.Context, items []models.Item, owner string, onDone func(done, total int, ci models.ClassifiedItem)) []models.ClassifiedItem {
	out := make([]models.ClassifiedItem, len(items))
	if len(items) == 0 {
		return out
	}

	jobs := make(chan classifyJob, len(items))
	results := make(chan classifyJob, len(items))
	outcomes := make([]models.ClassificationOutcome, len(items))

	workers := min(m.workers, len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go m.classifyWorker(ctx, &wg, jobs, results, owner, outcomes)
	}

	for i, item := range items {
		jobs <- classifyJob{index: i, item: item}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for job := range results {
		completed++
		out[job.index] = models.ClassifiedItem{Item: job.item, Outcome: outcomes[job.index]}
		if onDone != nil {
			onDone(completed, len(items), out[job.index])
		}
	}

	return out
}

// classifyWorker drains jobs; each worker writes only the outcome slots of its own jobs.
func (m *AvailabilityMatcher) classifyWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan classifyJob,
	results chan<- classifyJob,
	owner string,
	outcomes []models.ClassificationOutcome,
) {
	defer wg.Done()

	for job := range jobs {
		outcomes[job.index] = m.Classify(ctx, job.item, owner)
		results <- job
	}
}
