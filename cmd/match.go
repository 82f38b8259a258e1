package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytmirror/internal/formatter"
	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"github.com/desertthunder/ytmirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// reviewer works over the store only, so reviewing needs no remote credentials.
func (r *Runner) reviewer() (*tasks.RecordReviewer, error) {
	if err := r.openStore(); err != nil {
		return nil, err
	}
	return tasks.NewRecordReviewer(r.records), nil
}

// MatchConfirm promotes a pending match to AVAILABLE.
func (r *Runner) MatchConfirm(ctx context.Context, cmd *cli.Command) error {
	m, err := r.reviewer()
	if err != nil {
		return err
	}

	var candidate models.Candidate
	if id := cmd.String("candidate"); id != "" {
		candidate = models.Candidate{ID: id, Name: cmd.String("label")}
		if candidate.Name == "" {
			candidate.Name = id
		}
	}

	record, err := m.Confirm(cmd.String("id"), cmd.String("owner"), candidate)
	if err != nil {
		return err
	}

	r.logger.Info("confirmed match", "item", record.ItemID(), "candidate", record.CandidateID())
	return r.writePlain("✓ %s → %s  %s\n", record.ItemID(), record.CandidateLabel(), formatter.StateLabel(record.State()))
}

// MatchReject marks a pending match UNAVAILABLE.
func (r *Runner) MatchReject(ctx context.Context, cmd *cli.Command) error {
	m, err := r.reviewer()
	if err != nil {
		return err
	}

	record, err := m.Reject(cmd.String("id"), cmd.String("owner"))
	if err != nil {
		return err
	}

	r.logger.Info("rejected match", "item", record.ItemID())
	return r.writePlain("✓ %s  %s\n", record.ItemID(), formatter.StateLabel(record.State()))
}

// MatchReset forgets a classification.
func (r *Runner) MatchReset(ctx context.Context, cmd *cli.Command) error {
	m, err := r.reviewer()
	if err != nil {
		return err
	}

	itemID := cmd.String("id")
	if err := m.Reset(itemID, cmd.String("owner")); err != nil {
		return err
	}

	r.logger.Info("reset classification", "item", itemID)
	return r.writePlain("✓ %s  %s\n", itemID, formatter.StateLabel(models.Unchecked))
}

// MatchList prints an owner's records, optionally filtered by state.
func (r *Runner) MatchList(ctx context.Context, cmd *cli.Command) error {
	state := cmd.String("state")
	if state != "" && !models.Availability(state).Valid() {
		return fmt.Errorf("%w: unknown state %q", shared.ErrInvalidArgument, state)
	}
	if err := r.openStore(); err != nil {
		return err
	}

	owner := cmd.String("owner")
	records, err := r.records.List(map[string]any{"owner": owner, "state": state})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}

	if cmd.Bool("json") {
		views := make([]formatter.RecordView, 0, len(records))
		for _, rec := range records {
			views = append(views, formatter.NewRecordView(rec))
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	counts, err := r.records.CountByState(owner)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return r.writePlain("%s", formatter.FormatRecords(owner, records, counts))
}
