package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/custody-scheduler/internal/persistence"
)

const conflictColumns = `id, entry_a_id, entry_b_id, kind, description, severity, resolution_status, resolved_by, resolved_at, resolution_notes, created_at, updated_at`

// ConflictRepository implements persistence.ConflictRepository using SQLite
type ConflictRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewConflictRepository creates a new SQLite conflict repository
func NewConflictRepository(pool *ConnectionPool) *ConflictRepository {
	return &ConflictRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateConflict inserts a conflict record. A second record for the same
// unordered entry pair fails with persistence.ErrDuplicate naming the stored
// record. The lookup and the insert share one transaction.
func (r *ConflictRepository) CreateConflict(ctx context.Context, conflict persistence.Conflict) error {
	if conflict.ID == "" {
		return persistence.ErrConstraintViolation
	}

	low, high := persistence.PairKey(conflict.EntryAID, conflict.EntryBID)
	insert := `
		INSERT INTO schedule_conflicts (
			id, entry_a_id, entry_b_id, pair_low, pair_high, kind, description, severity,
			resolution_status, resolved_by, resolved_at, resolution_notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var existingID string
		err := r.helper.QueryRowTx(ctx, tx,
			`SELECT id FROM schedule_conflicts WHERE pair_low = ? AND pair_high = ?`, low, high,
		).Scan(&existingID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: pair already recorded as conflict %s", persistence.ErrDuplicate, existingID)
		case !errors.Is(err, sql.ErrNoRows):
			return r.mapper.MapError(err)
		}

		_, err = r.helper.ExecTx(ctx, tx, insert,
			conflict.ID,
			conflict.EntryAID,
			conflict.EntryBID,
			low,
			high,
			conflict.Kind,
			conflict.Description,
			conflict.Severity,
			conflict.ResolutionStatus,
			nullString(conflict.ResolvedBy),
			nullTime(conflict.ResolvedAt),
			nullString(conflict.ResolutionNotes),
			formatTime(conflict.CreatedAt),
			formatTime(conflict.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// GetConflict retrieves a conflict by ID.
func (r *ConflictRepository) GetConflict(ctx context.Context, id string) (persistence.Conflict, error) {
	if id == "" {
		return persistence.Conflict{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+conflictColumns+` FROM schedule_conflicts WHERE id = ?`, id)
	conflict, err := scanConflict(row)
	if err != nil {
		return persistence.Conflict{}, r.mapper.MapError(err)
	}
	return conflict, nil
}

// FindConflictByPair returns the record for the unordered pair (a, b).
func (r *ConflictRepository) FindConflictByPair(ctx context.Context, a, b string) (persistence.Conflict, error) {
	low, high := persistence.PairKey(a, b)
	row := r.helper.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM schedule_conflicts WHERE pair_low = ? AND pair_high = ?`,
		low, high)
	conflict, err := scanConflict(row)
	if err != nil {
		return persistence.Conflict{}, r.mapper.MapError(err)
	}
	return conflict, nil
}

// ListConflicts returns conflicts matching the filter, oldest first.
func (r *ConflictRepository) ListConflicts(ctx context.Context, filter persistence.ConflictFilter) ([]persistence.Conflict, error) {
	var conditions []string
	var args []any

	if len(filter.ExcludeStatuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("resolution_status NOT IN (%s)", placeholders(len(filter.ExcludeStatuses))))
		for _, status := range filter.ExcludeStatuses {
			args = append(args, status)
		}
	}
	if filter.EntryID != "" {
		conditions = append(conditions, "(entry_a_id = ? OR entry_b_id = ?)")
		args = append(args, filter.EntryID, filter.EntryID)
	}

	query := `SELECT ` + conflictColumns + ` FROM schedule_conflicts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var conflicts []persistence.Conflict
	for rows.Next() {
		conflict, err := scanConflict(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		conflicts = append(conflicts, conflict)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return conflicts, nil
}

// UpdateConflict persists resolution changes. The entry pair and kind are immutable.
func (r *ConflictRepository) UpdateConflict(ctx context.Context, conflict persistence.Conflict) error {
	if conflict.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE schedule_conflicts
		SET description = ?, severity = ?, resolution_status = ?, resolved_by = ?,
		    resolved_at = ?, resolution_notes = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		conflict.Description,
		conflict.Severity,
		conflict.ResolutionStatus,
		nullString(conflict.ResolvedBy),
		nullTime(conflict.ResolvedAt),
		nullString(conflict.ResolutionNotes),
		formatTime(conflict.UpdatedAt),
		conflict.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanConflict(row rowScanner) (persistence.Conflict, error) {
	var conflict persistence.Conflict
	var resolvedBy, resolvedAt, notes sql.NullString
	var createdStr, updatedStr string

	if err := row.Scan(
		&conflict.ID,
		&conflict.EntryAID,
		&conflict.EntryBID,
		&conflict.Kind,
		&conflict.Description,
		&conflict.Severity,
		&conflict.ResolutionStatus,
		&resolvedBy,
		&resolvedAt,
		&notes,
		&createdStr,
		&updatedStr,
	); err != nil {
		return persistence.Conflict{}, err
	}

	conflict.ResolvedBy = stringPtr(resolvedBy)
	conflict.ResolutionNotes = stringPtr(notes)

	var err error
	if conflict.ResolvedAt, err = timePtr("resolved_at", resolvedAt); err != nil {
		return persistence.Conflict{}, err
	}
	if conflict.CreatedAt, err = parseTime("created_at", createdStr); err != nil {
		return persistence.Conflict{}, err
	}
	if conflict.UpdatedAt, err = parseTime("updated_at", updatedStr); err != nil {
		return persistence.Conflict{}, err
	}

	return conflict, nil
}
