package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/ytmirror/internal/cache"
	"github.com/desertthunder/ytmirror/internal/shared"
	tu "github.com/desertthunder/ytmirror/internal/testing"
)

func TestPageFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("second fetch is served from cache", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)

		first, err := h.fetcher.Fetch(ctx, "PL1", 1, "")
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		second, err := h.fetcher.Fetch(ctx, "PL1", 1, "")
		if err != nil {
			t.Fatalf("failed to fetch again: %v", err)
		}

		if calls := h.source.Calls(); calls != 1 {
			t.Errorf("expected 1 remote call, got %d", calls)
		}
		if len(second.Items) != len(first.Items) || second.NextToken != first.NextToken {
			t.Errorf("cached page differs from fetched page")
		}
	})

	t.Run("records next token", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)

		if _, err := h.fetcher.Fetch(ctx, "PL1", 1, ""); err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}

		pages := h.tokenPages(t, "PL1")
		if len(pages) != 1 || pages[2] != tu.Token(50) {
			t.Errorf("expected only page 2 → %s, got %v", tu.Token(50), pages)
		}
	})

	t.Run("page 2 back-fills page 1", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)

		if _, err := h.fetcher.Fetch(ctx, "PL1", 2, tu.Token(50)); err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}

		pages := h.tokenPages(t, "PL1")
		if pages[1] != tu.Token(0) {
			t.Errorf("expected page 1 back-filled with %s, got %v", tu.Token(0), pages)
		}
		if pages[3] != tu.Token(100) {
			t.Errorf("expected page 3 → %s, got %v", tu.Token(100), pages)
		}
	})

	t.Run("existing tokens are kept", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)
		h.tokens.RecordToken("PL1", 2, "older")

		if _, err := h.fetcher.Fetch(ctx, "PL1", 1, ""); err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if got := h.tokenPages(t, "PL1")[2]; got != "older" {
			t.Errorf("expected recorded token to be kept, got %s", got)
		}
	})

	t.Run("last page records nothing", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 20)

		p, err := h.fetcher.Fetch(ctx, "PL1", 1, "")
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if p.HasNext() {
			t.Error("expected no next token")
		}
		if pages := h.tokenPages(t, "PL1"); len(pages) != 0 {
			t.Errorf("expected no tokens, got %v", pages)
		}
	})

	t.Run("cache outage degrades to remote", func(t *testing.T) {
		h := newHarnessWithCache(t, tu.FailingCache{})
		h.seed(t, "PL1", 120)

		for range 2 {
			if _, err := h.fetcher.Fetch(ctx, "PL1", 1, ""); err != nil {
				t.Fatalf("expected fetch to succeed without cache, got %v", err)
			}
		}
		if calls := h.source.Calls(); calls != 2 {
			t.Errorf("expected 2 remote calls, got %d", calls)
		}
	})

	t.Run("token write failures are counted", func(t *testing.T) {
		h := newHarness(t)
		// no collection row, so the foreign key rejects every token
		h.source.SetItems("PL1", tu.Items("PL1", 120))

		p, err := h.fetcher.Fetch(ctx, "PL1", 2, tu.Token(50))
		if err != nil {
			t.Fatalf("expected fetch to succeed, got %v", err)
		}
		if p.TokenErrors != 2 {
			t.Errorf("expected 2 token errors, got %d", p.TokenErrors)
		}
	})

	t.Run("malformed response fails", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)
		h.source.SetError(shared.ErrParse)

		if _, err := h.fetcher.Fetch(ctx, "PL1", 1, ""); !errors.Is(err, shared.ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}

		h.source.SetError(nil)
		if _, err := h.fetcher.Fetch(ctx, "PL1", 1, ""); err != nil {
			t.Errorf("failed fetch should not have been cached, got %v", err)
		}
	})

	t.Run("rejects page below 1", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.fetcher.Fetch(ctx, "PL1", 0, ""); !errors.Is(err, shared.ErrInvalidRange) {
			t.Errorf("expected ErrInvalidRange, got %v", err)
		}
	})
}

func TestPageFetcherProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("remote probe leaves tokens and cache untouched until committed", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)

		p, fresh, err := h.fetcher.Probe(ctx, "PL1")
		if err != nil {
			t.Fatalf("failed to probe: %v", err)
		}
		if !fresh || p.TotalResults != 120 {
			t.Fatalf("expected fresh probe with 120 results, got fresh=%v total=%d", fresh, p.TotalResults)
		}
		if pages := h.tokenPages(t, "PL1"); len(pages) != 0 {
			t.Errorf("probe should not record tokens, got %v", pages)
		}
		if _, err := h.cache.Get(ctx, "PL1", 1); !errors.Is(err, cache.ErrMiss) {
			t.Errorf("probe should not cache, got %v", err)
		}

		h.fetcher.Commit(ctx, p)
		if pages := h.tokenPages(t, "PL1"); pages[2] != tu.Token(50) {
			t.Errorf("expected page 2 recorded after commit, got %v", pages)
		}
		if _, err := h.cache.Get(ctx, "PL1", 1); err != nil {
			t.Errorf("expected page 1 cached after commit, got %v", err)
		}
	})

	t.Run("cached page 1 is not fresh", func(t *testing.T) {
		h := newHarness(t)
		h.seed(t, "PL1", 120)
		if _, err := h.fetcher.Fetch(ctx, "PL1", 1, ""); err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}

		_, fresh, err := h.fetcher.Probe(ctx, "PL1")
		if err != nil {
			t.Fatalf("failed to probe: %v", err)
		}
		if fresh {
			t.Error("expected cached probe")
		}
		if calls := h.source.Calls(); calls != 1 {
			t.Errorf("expected 1 remote call, got %d", calls)
		}
	})
}
