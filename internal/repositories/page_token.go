package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

// PageTokenRepository is the durable index of ordinal page numbers to cursor tokens.
//
// It is authoritative for addressing: entries are only ever added by fetches and renumbered by drift correction.
type PageTokenRepository struct {
	db *sql.DB
}

// NewPageTokenRepository creates a new PageTokenRepository with the given database connection
func NewPageTokenRepository(db *sql.DB) *PageTokenRepository {
	return &PageTokenRepository{db: db}
}

// RecordToken stores token for (collectionID, page) unless an entry already exists.
//
// Tokens observed for an ordinal are kept once recorded, so a second call is a no-op.
// The returned bool reports whether a row was written.
func (r *PageTokenRepository) RecordToken(collectionID string, page int, token string) (bool, error) {
	if collectionID == "" || token == "" || page < 1 {
		return false, fmt.Errorf("%w: token entry (%q, %d)", shared.ErrInvalidInput, collectionID, page)
	}

	result, err := r.db.Exec(
		`INSERT OR IGNORE INTO page_tokens (collection_id, page, token, created_at) VALUES (?, ?, ?, ?)`,
		collectionID, page, token, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("%w: failed to record token: %v", shared.ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

// Get returns the entry for exactly (collectionID, page), or nil when none is stored.
func (r *PageTokenRepository) Get(collectionID string, page int) (*models.PageTokenEntry, error) {
	row := r.db.QueryRow(
		`SELECT collection_id, page, token FROM page_tokens WHERE collection_id = ? AND page = ?`,
		collectionID, page,
	)
	return r.scanOptional(row)
}

// NearestAtOrBefore returns the entry with the greatest page number <= target, or nil when none is stored.
func (r *PageTokenRepository) NearestAtOrBefore(collectionID string, target int) (*models.PageTokenEntry, error) {
	row := r.db.QueryRow(`
		SELECT collection_id, page, token FROM page_tokens
		WHERE collection_id = ? AND page <= ?
		ORDER BY page DESC
		LIMIT 1
	`, collectionID, target)
	return r.scanOptional(row)
}

// List returns every entry of a collection ordered by page.
func (r *PageTokenRepository) List(collectionID string) ([]models.PageTokenEntry, error) {
	rows, err := r.db.Query(
		`SELECT collection_id, page, token FROM page_tokens WHERE collection_id = ? ORDER BY page ASC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tokens: %v", shared.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []models.PageTokenEntry
	for rows.Next() {
		var e models.PageTokenEntry
		if err := rows.Scan(&e.CollectionID, &e.Page, &e.Token); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries of a collection.
func (r *PageTokenRepository) Count(collectionID string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM page_tokens WHERE collection_id = ?`, collectionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count tokens: %v", shared.ErrStoreUnavailable, err)
	}
	return n, nil
}

// ShiftAll adds delta to every stored page number of the collection as one atomic batch.
//
// Rows are read, deleted and reinserted inside one transaction so the (collection, page) key never
// observes a half-shifted index. Shifting by d and then by -d restores the original mapping.
func (r *PageTokenRepository) ShiftAll(collectionID string, delta int) error {
	if delta == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	type row struct {
		page      int
		token     string
		createdAt time.Time
	}

	rows, err := tx.Query(`SELECT page, token, created_at FROM page_tokens WHERE collection_id = ?`, collectionID)
	if err != nil {
		return fmt.Errorf("%w: failed to read tokens: %v", shared.ErrStoreUnavailable, err)
	}

	var current []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.page, &rw.token, &rw.createdAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan token: %w", err)
		}
		current = append(current, rw)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM page_tokens WHERE collection_id = ?`, collectionID); err != nil {
		return fmt.Errorf("%w: failed to clear tokens: %v", shared.ErrStoreUnavailable, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO page_tokens (collection_id, page, token, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare insert: %v", shared.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for _, rw := range current {
		if _, err := stmt.Exec(collectionID, rw.page+delta, rw.token, rw.createdAt); err != nil {
			return fmt.Errorf("%w: failed to reinsert token for page %d: %v", shared.ErrStoreUnavailable, rw.page, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit shift: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// TruncateAfter deletes every entry with a page number greater than page and returns how many were removed.
func (r *PageTokenRepository) TruncateAfter(collectionID string, page int) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM page_tokens WHERE collection_id = ? AND page > ?`, collectionID, page)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to truncate tokens: %v", shared.ErrStoreUnavailable, err)
	}
	return result.RowsAffected()
}

func (r *PageTokenRepository) scanOptional(row *sql.Row) (*models.PageTokenEntry, error) {
	var e models.PageTokenEntry
	err := row.Scan(&e.CollectionID, &e.Page, &e.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan token: %v", shared.ErrStoreUnavailable, err)
	}
	return &e, nil
}
