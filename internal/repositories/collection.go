package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

const collectionColumns = `id, sequence, remote_id, item_count, status, created_at, updated_at, deleted_at`

// CollectionRepository implements models.Repository[*models.Collection] for mirrored playlists.
//
// Collections are addressed by their remote playlist id; soft-deleted rows are excluded from every query.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new CollectionRepository with the given database connection
func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Create inserts a new collection with generated ID and sequence
func (r *CollectionRepository) Create(collection *models.Collection) error {
	if err := collection.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "collections")
	if err != nil {
		return fmt.Errorf("%w: failed to generate sequence: %v", shared.ErrStoreUnavailable, err)
	}

	collection.SetID(shared.GenerateID())
	collection.SetSequence(sequence)

	query := `
		INSERT INTO collections (id, sequence, remote_id, item_count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		collection.ID(),
		sequence,
		collection.RemoteID(),
		collection.ItemCount(),
		string(collection.Status()),
		collection.CreatedAt(),
		collection.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: collection %s", shared.ErrDuplicate, collection.RemoteID())
		}
		return fmt.Errorf("failed to insert collection: %w", err)
	}

	return nil
}

// Get retrieves a collection by ID, excluding soft-deleted collections
func (r *CollectionRepository) Get(id string) (*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a collection by its remote playlist id
func (r *CollectionRepository) GetByRemoteID(remoteID string) (*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE remote_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, remoteID))
}

// GetOrCreate returns the collection for remoteID, creating an unprocessed one on first visit.
func (r *CollectionRepository) GetOrCreate(remoteID string) (*models.Collection, error) {
	collection, err := r.GetByRemoteID(remoteID)
	if err == nil {
		return collection, nil
	}
	if !errors.Is(err, shared.ErrRecordNotFound) {
		return nil, err
	}

	collection = models.NewCollection(0, remoteID)
	if err := r.Create(collection); err != nil {
		// another request created it first
		if errors.Is(err, shared.ErrDuplicate) {
			return r.GetByRemoteID(remoteID)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return collection, nil
}

// Update persists the item count and status of an existing collection
func (r *CollectionRepository) Update(collection *models.Collection) error {
	if err := collection.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	collection.SetUpdatedAt(now)

	query := `
		UPDATE collections
		SET item_count = ?, status = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, collection.ItemCount(), string(collection.Status()), now, collection.ID())
	if err != nil {
		return fmt.Errorf("%w: failed to update collection: %v", shared.ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: collection %s", shared.ErrRecordNotFound, collection.ID())
	}

	return nil
}

// Delete soft-deletes a collection by ID
func (r *CollectionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE collections SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: collection %s", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves all collections matching the given criteria ("status"), ordered by sequence
func (r *CollectionRepository) List(criteria map[string]any) ([]*models.Collection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var collections []*models.Collection
	for rows.Next() {
		collection, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return collections, nil
}

// scan reads one collection from a [sql.Row] or [sql.Rows]
func (r *CollectionRepository) scan(row scanner) (*models.Collection, error) {
	var (
		id        string
		sequence  int
		remoteID  string
		itemCount int
		status    string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &remoteID, &itemCount, &status, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: collection", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection: %w", err)
	}

	collection := models.NewCollection(sequence, remoteID)
	collection.SetID(id)
	collection.SetItemCount(itemCount)
	collection.SetStatus(models.CollectionStatus(status))
	collection.SetCreatedAt(createdAt)
	collection.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		collection.SetDeletedAt(&deletedAt.Time)
	}

	return collection, nil
}
