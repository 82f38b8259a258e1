package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

const correlationColumns = `id, item_id, owner, state, candidate_id, candidate_label, score, created_at, updated_at`

// CorrelationRepository implements models.Repository[*models.CorrelationRecord].
//
// Records are keyed naturally by (item id, owner); an item keeps one record per owner regardless of
// how many collections it appears in. Deletion is a hard delete and is how a record is reset.
type CorrelationRepository struct {
	db *sql.DB
}

// NewCorrelationRepository creates a new CorrelationRepository with the given database connection
func NewCorrelationRepository(db *sql.DB) *CorrelationRepository {
	return &CorrelationRepository{db: db}
}

// Create inserts a new record with a generated ID
func (r *CorrelationRepository) Create(record *models.CorrelationRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	record.SetID(shared.GenerateID())

	query := `
		INSERT INTO correlations (` + correlationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		record.ID(),
		record.ItemID(),
		record.Owner(),
		string(record.State()),
		nullString(record.CandidateID()),
		nullString(record.CandidateLabel()),
		nullInt(record.Score()),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: correlation for %s/%s", shared.ErrDuplicate, record.ItemID(), record.Owner())
		}
		return fmt.Errorf("failed to insert correlation: %w", err)
	}

	return nil
}

// Get retrieves a record by ID
func (r *CorrelationRepository) Get(id string) (*models.CorrelationRecord, error) {
	query := `SELECT ` + correlationColumns + ` FROM correlations WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByItem retrieves the record of itemID for owner, returning [shared.ErrRecordNotFound] when absent
func (r *CorrelationRepository) GetByItem(itemID, owner string) (*models.CorrelationRecord, error) {
	query := `SELECT ` + correlationColumns + ` FROM correlations WHERE item_id = ? AND owner = ?`
	return r.scan(r.db.QueryRow(query, itemID, owner))
}

// Update modifies the state and candidate of an existing record
func (r *CorrelationRepository) Update(record *models.CorrelationRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE correlations
		SET state = ?, candidate_id = ?, candidate_label = ?, score = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(record.State()),
		nullString(record.CandidateID()),
		nullString(record.CandidateLabel()),
		nullInt(record.Score()),
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to update correlation: %v", shared.ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: correlation %s", shared.ErrRecordNotFound, record.ID())
	}

	return nil
}

// Delete removes a record by ID
func (r *CorrelationRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM correlations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: failed to delete correlation: %v", shared.ErrStoreUnavailable, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: correlation %s", shared.ErrRecordNotFound, id)
	}

	return nil
}

// List retrieves records matching the given criteria ("owner", "state", "item_id"), newest first
func (r *CorrelationRepository) List(criteria map[string]any) ([]*models.CorrelationRecord, error) {
	query := `SELECT ` + correlationColumns + ` FROM correlations WHERE 1 = 1`
	args := []any{}

	for _, key := range []string{"owner", "state", "item_id"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += " AND " + key + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY updated_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlations: %w", err)
	}
	defer rows.Close()

	var records []*models.CorrelationRecord
	for rows.Next() {
		record, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// CountByState tallies an owner's records per availability state.
func (r *CorrelationRepository) CountByState(owner string) (map[models.Availability]int, error) {
	rows, err := r.db.Query(`SELECT state, COUNT(*) FROM correlations WHERE owner = ? GROUP BY state`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to count correlations: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Availability]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.Availability(state)] = n
	}

	return counts, rows.Err()
}

func (r *CorrelationRepository) scan(row scanner) (*models.CorrelationRecord, error) {
	var (
		id             string
		itemID         string
		owner          string
		state          string
		candidateID    sql.NullString
		candidateLabel sql.NullString
		score          sql.NullInt64
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&id, &itemID, &owner, &state, &candidateID, &candidateLabel, &score, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: correlation", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan correlation: %v", shared.ErrStoreUnavailable, err)
	}

	record := models.NewCorrelationRecord(itemID, owner, models.Availability(state))
	record.SetID(id)
	record.SetCandidate(candidateID.String, candidateLabel.String)
	if score.Valid {
		s := int(score.Int64)
		record.SetScore(&s)
	}
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)

	return record, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
