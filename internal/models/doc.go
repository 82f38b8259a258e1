// Package models defines domain entities and persistence interfaces for the ytmirror playlist mirror.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing remote service data
//   - [Page] : One materialized page of a remote playlist, also the cached form
//   - [Item] : A playlist entry (video) with its title
//   - [Candidate] : A search service result an item may correspond to
//   - [PageTokenEntry] : Ordinal page number bound to an opaque cursor token
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Collection] : A mirrored playlist with its last known item count and processing status
//   - [CorrelationRecord] : Availability classification of one item for one owner
//
// Persistent entities implement the [Model] interface and are stored through [Repository] implementations.
// Classification results are reported with the closed [ClassificationOutcome] type.
package models
