package services

import (
	"context"

	"github.com/desertthunder/ytmirror/internal/models"
)

// CollectionSource fetches one page of a cursor-paginated remote collection.
type CollectionSource interface {
	// FetchPage returns the page addressed by token; an empty token selects the first page.
	FetchPage(ctx context.Context, collectionID, token string, pageSize int) (*models.Page, error)

	// Name returns the name of the provider (e.g., "YouTube")
	Name() string
}

// Searcher queries an external catalog and returns candidates in ranked order.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	Name() string
}
