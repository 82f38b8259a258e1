package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CachePurge drops every cached page of a playlist.
//
// Recorded page tokens are kept; the next request for a page refetches it through them.
func (r *Runner) CachePurge(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := playlistArg(cmd)
	if err != nil {
		return err
	}
	if err := r.openCache(); err != nil {
		return err
	}

	if err := r.cache.Purge(ctx, playlistID); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	r.logger.Info("purged cached pages", "playlist", playlistID, "backend", r.config.Cache.Backend)
	return r.writePlain("✓ Cache purged for %s\n", playlistID)
}
