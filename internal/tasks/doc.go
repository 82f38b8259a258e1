// Package tasks mirrors cursor-paginated playlists page by page with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.ResolvePage] : Fetch one ordinal page
//     - Probes page 1 to detect upstream growth or shrinkage ([DriftCorrector])
//     - Walks forward from the nearest recorded cursor ([RangeResolver])
//     - Classifies every item of the page ([AvailabilityMatcher])
//
//  2. [SyncEngine.Classify] : Classify a single item against the search service
//
//  3. [SyncEngine.Sync] : Resolve every page in order and mark the collection processed
//
// # Addressing
//
// The remote API only offers opaque forward cursors. [PageFetcher] records every cursor a response
// exposes (next for page+1, previous for page 1 when fetching page 2), so later requests start
// their walk from the closest known page instead of the head. Fetched pages are cached for 24 hours.
//
// # Drift
//
// When the collection grows, recorded page numbers are shifted forward by the number of new pages.
// When it shrinks, nothing is shifted: cursors past the new end are dropped, cached pages are purged
// and the collection is marked outdated until the next full sync.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
