package tasks

import (
	"fmt"

	"github.com/desertthunder/ytmirror/internal/models"
)

// ProgressUpdate represents a progress event during a page resolution or sync.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	CheckDrift Phase = iota
	ResolvePages
	ClassifyItems
	SyncCollection
)

func (p Phase) String() string {
	switch p {
	case CheckDrift:
		return "check_drift"
	case ResolvePages:
		return "resolve_pages"
	case ClassifyItems:
		return "classify_items"
	case SyncCollection:
		return "sync_collection"
	default:
		return ""
	}
}

func checkDriftUpdate(collectionID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckDrift,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking %s for upstream changes...", collectionID),
	}
}

func driftCorrectedUpdate(res DriftResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CheckDrift,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Collection %s: %d → %d pages", res.Kind, res.StoredPages, res.ObservedPages),
		Data:    res,
	}
}

func resolvePageUpdate(page, target int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvePages,
		Step:    page,
		Total:   target,
		Message: fmt.Sprintf("[%d/%d] Fetching page %d...", page, target, page),
	}
}

func classifyItemUpdate(step, total int, ci models.ClassifiedItem) ProgressUpdate {
	mark := "✓"
	if ci.Outcome.Kind != models.OutcomeClassified {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   ClassifyItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s (%s)", step, total, mark, ci.Item.Title, ci.Outcome.State()),
		Data:    ci,
	}
}

func syncPageUpdate(page, totalPages int, resolved *models.ResolvedPage) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncCollection,
		Step:    page,
		Total:   totalPages,
		Message: fmt.Sprintf("[%d/%d] Page %d: %d items", page, totalPages, page, len(resolved.Items)),
		Data:    resolved,
	}
}
