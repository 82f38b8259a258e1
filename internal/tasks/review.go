package tasks

import "github.com/desertthunder/ytmirror/internal/models"

// RecordReviewer applies manual decisions to stored classifications. It never searches.
type RecordReviewer struct {
	records CorrelationStore
}

func NewRecordReviewer(records CorrelationStore) *RecordReviewer {
	return &RecordReviewer{records: records}
}

// Confirm promotes the PENDING record of itemID to AVAILABLE, bound to candidate.
func (rv *RecordReviewer) Confirm(itemID, owner string, candidate models.Candidate) (*models.CorrelationRecord, error) {
	record, err := rv.records.GetByItem(itemID, owner)
	if err != nil {
		return nil, err
	}
	if candidate.ID == "" {
		candidate = models.Candidate{ID: record.CandidateID(), Name: record.CandidateLabel()}
	}
	if err := record.Confirm(candidate); err != nil {
		return nil, err
	}
	if err := rv.records.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Reject marks the PENDING record of itemID UNAVAILABLE.
func (rv *RecordReviewer) Reject(itemID, owner string) (*models.CorrelationRecord, error) {
	record, err := rv.records.GetByItem(itemID, owner)
	if err != nil {
		return nil, err
	}
	if err := record.Reject(); err != nil {
		return nil, err
	}
	if err := rv.records.Update(record); err != nil {
		return nil, err
	}
	return record, nil
}

// Reset deletes the record of itemID so the next classification searches again.
func (rv *RecordReviewer) Reset(itemID, owner string) error {
	record, err := rv.records.GetByItem(itemID, owner)
	if err != nil {
		return err
	}
	return rv.records.Delete(record.ID())
}
