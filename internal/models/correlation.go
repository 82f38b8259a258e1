package models

import (
	"fmt"

	"github.com/desertthunder/ytmirror/internal/shared"
)

// Availability is the classification of an item against the search service.
type Availability string

const (
	Unchecked   Availability = "UNCHECKED"
	Pending     Availability = "PENDING"     // a candidate was found and awaits confirmation
	Available   Availability = "AVAILABLE"   // confirmed, bound to a candidate
	Unavailable Availability = "UNAVAILABLE" // no candidate, or every candidate rejected
)

// Valid reports whether a is one of the known states.
func (a Availability) Valid() bool {
	switch a {
	case Unchecked, Pending, Available, Unavailable:
		return true
	}
	return false
}

// Terminal reports whether a is final until an explicit reset.
func (a Availability) Terminal() bool {
	return a == Available || a == Unavailable
}

// CorrelationRecord links a mirrored item to its availability on the search service for one owner.
type CorrelationRecord struct {
	base
	itemID         string
	owner          string
	state          Availability
	candidateID    string
	candidateLabel string
	score          *int
}

// NewCorrelationRecord creates a record in the given state without a candidate.
func NewCorrelationRecord(itemID, owner string, state Availability) *CorrelationRecord {
	return &CorrelationRecord{
		base:   newBase(),
		itemID: itemID,
		owner:  owner,
		state:  state,
	}
}

// NewPendingRecord creates a PENDING record bound to its best candidate and similarity score.
func NewPendingRecord(itemID, owner string, candidate Candidate, score int) *CorrelationRecord {
	r := NewCorrelationRecord(itemID, owner, Pending)
	r.SetCandidate(candidate.ID, candidate.Label())
	r.SetScore(&score)
	return r
}

func (r *CorrelationRecord) ItemID() string { return r.itemID }
func (r *CorrelationRecord) Owner() string { return r.owner }
func (r *CorrelationRecord) State() Availability { return r.state }
func (r *CorrelationRecord) SetState(state Availability) { r.state = state }
func (r *CorrelationRecord) CandidateID() string { return r.candidateID }
func (r *CorrelationRecord) CandidateLabel() string { return r.candidateLabel }
func (r *CorrelationRecord) Score() *int { return r.score }
func (r *CorrelationRecord) SetScore(score *int) { r.score = score }

// SetCandidate binds the record to a search service item.
func (r *CorrelationRecord) SetCandidate(id, label string) {
	r.candidateID = id
	r.candidateLabel = label
}

// Confirm promotes a PENDING record to AVAILABLE, bound to the chosen candidate.
func (r *CorrelationRecord) Confirm(candidate Candidate) error {
	if r.state != Pending {
		return fmt.Errorf("%w: cannot confirm %s record for %s", shared.ErrInvalidTransition, r.state, r.itemID)
	}
	if candidate.ID != r.candidateID {
		r.SetCandidate(candidate.ID, candidate.Label())
		r.score = nil
	}
	r.state = Available
	return nil
}

// Reject marks a PENDING record UNAVAILABLE after every candidate was turned down.
func (r *CorrelationRecord) Reject() error {
	if r.state != Pending {
		return fmt.Errorf("%w: cannot reject %s record for %s", shared.ErrInvalidTransition, r.state, r.itemID)
	}
	r.SetCandidate("", "")
	r.score = nil
	r.state = Unavailable
	return nil
}

// Validate checks required fields and the candidate/state invariants.
func (r *CorrelationRecord) Validate() error {
	if r.itemID == "" {
		return fmt.Errorf("item id is required")
	}
	if r.owner == "" {
		return fmt.Errorf("owner is required")
	}
	if !r.state.Valid() {
		return fmt.Errorf("invalid availability state %q", r.state)
	}
	if (r.state == Pending || r.state == Available) && r.candidateID == "" {
		return fmt.Errorf("%s record requires a candidate", r.state)
	}
	if r.score != nil && (*r.score < 0 || *r.score > 100) {
		return fmt.Errorf("score %d out of range", *r.score)
	}
	return nil
}
