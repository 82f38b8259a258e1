package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/formatter"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

func playlistArg(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("playlist")
	if id == "" {
		return "", fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}
	return id, nil
}

// Page resolves a single page of a playlist and prints its classified items.
func (r *Runner) Page(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := playlistArg(cmd)
	if err != nil {
		return err
	}
	page := cmd.Int("page")
	if page < 1 {
		return fmt.Errorf("%w: --page must be at least 1, got %d", shared.ErrInvalidArgument, page)
	}

	if err := r.openEngine(ctx); err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	r.logger.Info("resolving page", "playlist", playlistID, "page", page)

	var resolved *models.ResolvedPage
	if asJSON {
		resolved, err = r.engine.ResolvePage(ctx, nil, playlistID, page, cmd.String("owner"))
	} else {
		progress, done := r.reportProgress()
		resolved, err = r.engine.ResolvePage(ctx, progress, playlistID, page, cmd.String("owner"))
		close(progress)
		<-done
	}
	if err != nil {
		return err
	}

	if cmd.Bool("csv") {
		path, err := formatter.WriteCSVExport(resolved, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("exported page", "path", path)
	}

	if asJSON {
		return r.writeJSON(formatter.NewPageView(resolved), cmd.Bool("pretty"))
	}
	return r.writePlainln("%s", formatter.FormatPage(resolved))
}

// Sync walks every page of a playlist in order.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := playlistArg(cmd)
	if err != nil {
		return err
	}
	if err := r.openEngine(ctx); err != nil {
		return err
	}

	r.logger.Info("syncing playlist", "playlist", playlistID)

	if cmd.Bool("json") {
		result, err := r.engine.Sync(ctx, nil, playlistID, cmd.String("owner"))
		if err != nil {
			return err
		}
		return r.writeJSON(formatter.NewSyncView(result), cmd.Bool("pretty"))
	}

	progress, done := r.reportProgress()
	result, err := r.engine.Sync(ctx, progress, playlistID, cmd.String("owner"))
	close(progress)
	<-done

	if err != nil {
		return err
	}
	return r.writePlainln("%s", formatter.FormatSyncResult(result))
}

// Classify checks a single video against the search service.
func (r *Runner) Classify(ctx context.Context, cmd *cli.Command) error {
	if err := r.openEngine(ctx); err != nil {
		return err
	}

	item := models.Item{ID: cmd.String("id"), Title: cmd.String("title")}
	outcome := r.engine.Classify(ctx, item, cmd.String("owner"))
	view := formatter.NewItemView(models.ClassifiedItem{Item: item, Outcome: outcome})

	if cmd.Bool("json") {
		if err := r.writeJSON(view, cmd.Bool("pretty")); err != nil {
			return err
		}
	} else {
		r.writePlain("%s  %s\n", item.Title, formatter.StateLabel(view.State))
		if view.Candidate != "" {
			r.writePlain("  candidate: %s", view.Candidate)
			if view.Score != nil {
				r.writePlain(" (%d)", *view.Score)
			}
			r.writePlain("\n")
		}
	}

	if outcome.Kind != models.OutcomeClassified {
		return fmt.Errorf("classify %s: %s: %w", item.ID, outcome.Kind, outcome.Err)
	}
	return nil
}

// Tokens prints the recorded page index of a playlist.
func (r *Runner) Tokens(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := playlistArg(cmd)
	if err != nil {
		return err
	}
	if err := r.openStore(); err != nil {
		return err
	}

	entries, err := r.tokens.List(playlistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.FormatTokens(playlistID, entries))
}

// Collections lists mirrored playlists.
func (r *Runner) Collections(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")
	if status != "" && !models.CollectionStatus(status).Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}
	if err := r.openStore(); err != nil {
		return err
	}

	collections, err := r.collections.List(map[string]any{"status": status})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}

	if cmd.Bool("json") {
		views := make([]formatter.CollectionView, 0, len(collections))
		for _, c := range collections {
			views = append(views, formatter.NewCollectionView(c))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}
	return r.writePlain("%s", formatter.FormatCollections(collections))
}
