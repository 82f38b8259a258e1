package models

import (
	"fmt"
	"time"
)

// CollectionStatus is the processing state of a mirrored playlist.
type CollectionStatus string

const (
	StatusUnprocessed CollectionStatus = "unprocessed"
	StatusProcessing  CollectionStatus = "processing"
	StatusProcessed   CollectionStatus = "processed"
	StatusOutdated    CollectionStatus = "outdated" // upstream shrank since the last visit
)

// UnknownCount marks a collection whose total item count has never been observed.
const UnknownCount = -1

// Valid reports whether s is one of the known statuses.
func (s CollectionStatus) Valid() bool {
	switch s {
	case StatusUnprocessed, StatusProcessing, StatusProcessed, StatusOutdated:
		return true
	}
	return false
}

// Collection is a remote playlist mirrored locally.
type Collection struct {
	base
	sequence  int
	remoteID  string
	itemCount int
	status    CollectionStatus
	deletedAt *time.Time
}

// NewCollection creates an unprocessed collection for the given remote playlist id.
func NewCollection(sequence int, remoteID string) *Collection {
	return &Collection{
		base:      newBase(),
		sequence:  sequence,
		remoteID:  remoteID,
		itemCount: UnknownCount,
		status:    StatusUnprocessed,
	}
}

func (c *Collection) Sequence() int { return c.sequence }
func (c *Collection) SetSequence(sequence int) { c.sequence = sequence }
func (c *Collection) RemoteID() string { return c.remoteID }
func (c *Collection) ItemCount() int { return c.itemCount }
func (c *Collection) SetItemCount(count int) { c.itemCount = count }
func (c *Collection) Status() CollectionStatus { return c.status }
func (c *Collection) SetStatus(s CollectionStatus) { c.status = s }
func (c *Collection) DeletedAt() *time.Time { return c.deletedAt }
func (c *Collection) SetDeletedAt(t *time.Time) { c.deletedAt = t }

// HasKnownCount reports whether a total item count was recorded by a previous fetch.
func (c *Collection) HasKnownCount() bool { return c.itemCount >= 0 }

// Validate checks required fields.
func (c *Collection) Validate() error {
	if c.remoteID == "" {
		return fmt.Errorf("collection remote id is required")
	}
	if !c.status.Valid() {
		return fmt.Errorf("invalid collection status %q", c.status)
	}
	if c.itemCount < UnknownCount {
		return fmt.Errorf("invalid item count %d", c.itemCount)
	}
	return nil
}
