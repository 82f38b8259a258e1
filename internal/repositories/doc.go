// Package repositories implements SQLite persistence for all domain entities.
//
// Key Implementations:
//   - [CollectionRepository] : Mirrored playlists with last known item count and processing status
//   - [PageTokenRepository] : Ordinal page -> cursor token index with atomic renumbering
//   - [CorrelationRepository] : Per-owner availability records of mirrored items
//
// Collections receive a sequence number from [NextSequence], a stable human-readable ordinal
// (e.g. collection #15) independent of UUIDs and remote identifiers.
//
// Store failures are wrapped with [shared.ErrStoreUnavailable] and absent rows with [shared.ErrRecordNotFound],
// so callers can tell an outage from a miss with errors.Is.
package repositories
