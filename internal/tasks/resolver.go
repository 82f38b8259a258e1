package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// walkStatus is the state of an ordinal walk.
type walkStatus int

const (
	walkResolving walkStatus = iota
	walkDone
	walkFailed
)

func (s walkStatus) String() string {
	switch s {
	case walkResolving:
		return "resolving"
	case walkDone:
		return "done"
	case walkFailed:
		return "failed"
	default:
		return ""
	}
}

// walk is one state of the forward traversal towards target.
//
// While resolving, page and token address the next fetch. Done carries the target page; Failed carries the error.
type walk struct {
	status       walkStatus
	collectionID string
	target       int
	page         int
	token        string
	result       *models.Page
	err          error

	// observe, when set, sees every fetch of the walk.
	observe func(page, target int)
}

func (w walk) resolving(page int, token string) walk {
	w.status, w.page, w.token = walkResolving, page, token
	return w
}

func (w walk) done(p *models.Page) walk {
	w.status, w.result = walkDone, p
	return w
}

func (w walk) failed(err error) walk {
	w.status, w.err = walkFailed, err
	return w
}

// RangeResolver reaches an ordinal page by walking forward from the nearest known cursor.
type RangeResolver struct {
	fetcher *PageFetcher
	tokens  TokenStore
	logger  *log.Logger
}

func NewRangeResolver(fetcher *PageFetcher, tokens TokenStore, logger *log.Logger) *RangeResolver {
	return &RangeResolver{
		fetcher: fetcher,
		tokens:  tokens,
		logger:  shared.WithLogger(logger, "component", "resolver"),
	}
}

// Resolve returns page target of collectionID.
//
// Reaching page N costs one fetch per page between the nearest recorded cursor and N; every fetch
// goes through the [PageFetcher] so cached pages cost nothing.
func (r *RangeResolver) Resolve(ctx context.Context, collectionID string, target int) (*models.Page, error) {
	return r.resolve(ctx, collectionID, target, nil)
}

func (r *RangeResolver) resolve(ctx context.Context, collectionID string, target int, observe func(page, target int)) (*models.Page, error) {
	w, err := r.start(collectionID, target)
	if err != nil {
		return nil, err
	}
	w.observe = observe

	for w.status == walkResolving {
		w = r.step(ctx, w)
	}

	if w.status == walkFailed {
		return nil, w.err
	}
	return w.result, nil
}

// start builds the initial state from the nearest recorded cursor at or before target.
func (r *RangeResolver) start(collectionID string, target int) (walk, error) {
	if target < 1 {
		return walk{}, fmt.Errorf("%w: page %d is below 1", shared.ErrInvalidRange, target)
	}

	w := walk{collectionID: collectionID, target: target}

	nearest, err := r.tokens.NearestAtOrBefore(collectionID, target)
	if err != nil {
		return walk{}, fmt.Errorf("%w: nearest token: %v", shared.ErrStoreUnavailable, err)
	}
	if nearest == nil {
		return w.resolving(1, ""), nil
	}

	r.logger.Debug("starting walk", "collection", collectionID, "from", nearest.Page, "target", target)
	return w.resolving(nearest.Page, nearest.Token), nil
}

// step performs one fetch and moves the walk to its next state.
func (r *RangeResolver) step(ctx context.Context, w walk) walk {
	if w.status != walkResolving {
		return w
	}
	if err := ctx.Err(); err != nil {
		return w.failed(err)
	}

	if w.observe != nil {
		w.observe(w.page, w.target)
	}

	p, err := r.fetcher.Fetch(ctx, w.collectionID, w.page, w.token)
	if err != nil {
		return w.failed(err)
	}

	if w.page == w.target {
		return w.done(p)
	}
	if !p.HasNext() {
		return w.failed(fmt.Errorf("%w: %s ends at page %d, requested %d", shared.ErrInvalidRange, w.collectionID, w.page, w.target))
	}
	return w.resolving(w.page+1, p.NextToken)
}
