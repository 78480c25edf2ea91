package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/custody-scheduler/internal/persistence"
)

const entryColumns = `id, subject_id, facility_id, responsible_officer_id, title, entry_type, status, start_time, end_time, notes, created_at, updated_at`

// EntryRepository implements persistence.ScheduleRepository using SQLite
type EntryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEntryRepository creates a new SQLite schedule entry repository
func NewEntryRepository(pool *ConnectionPool) *EntryRepository {
	return &EntryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEntry inserts a new schedule entry.
func (r *EntryRepository) CreateEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO schedule_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.helper.Exec(ctx, query,
		entry.ID,
		entry.SubjectID,
		nullString(entry.FacilityID),
		nullString(entry.ResponsibleOfficerID),
		entry.Title,
		entry.EntryType,
		entry.Status,
		formatTime(entry.Start),
		formatTime(entry.End),
		nullString(entry.Notes),
		formatTime(entry.CreatedAt),
		formatTime(entry.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateEntry replaces the mutable fields of an existing entry. created_at is kept.
func (r *EntryRepository) UpdateEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if entry.ID == "" {
		return persistence.ErrNotFound
	}

	query := `
		UPDATE schedule_entries
		SET subject_id = ?, facility_id = ?, responsible_officer_id = ?, title = ?, entry_type = ?,
		    status = ?, start_time = ?, end_time = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		entry.SubjectID,
		nullString(entry.FacilityID),
		nullString(entry.ResponsibleOfficerID),
		entry.Title,
		entry.EntryType,
		entry.Status,
		formatTime(entry.Start),
		formatTime(entry.End),
		nullString(entry.Notes),
		formatTime(entry.UpdatedAt),
		entry.ID,
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

// GetEntry retrieves a schedule entry by ID.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (persistence.ScheduleEntry, error) {
	if id == "" {
		return persistence.ScheduleEntry{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+entryColumns+` FROM schedule_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return persistence.ScheduleEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

// ListEntries returns entries matching the filter ordered by start time then id.
func (r *EntryRepository) ListEntries(ctx context.Context, filter persistence.EntryFilter) ([]persistence.ScheduleEntry, error) {
	query, args := buildEntryListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var entries []persistence.ScheduleEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return entries, nil
}

func buildEntryListQuery(filter persistence.EntryFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.SubjectID != nil {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, *filter.SubjectID)
	}
	if filter.FacilityID != nil {
		conditions = append(conditions, "facility_id = ?")
		args = append(args, *filter.FacilityID)
	}
	if filter.ResponsibleOfficerID != nil {
		conditions = append(conditions, "responsible_officer_id = ?")
		args = append(args, *filter.ResponsibleOfficerID)
	}
	if filter.ExcludeID != "" {
		conditions = append(conditions, "id <> ?")
		args = append(args, filter.ExcludeID)
	}
	if len(filter.ExcludeStatuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status NOT IN (%s)", placeholders(len(filter.ExcludeStatuses))))
		for _, status := range filter.ExcludeStatuses {
			args = append(args, status)
		}
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "end_time >= ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, formatTime(*filter.EndsBefore))
	}

	query := `SELECT ` + entryColumns + ` FROM schedule_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (persistence.ScheduleEntry, error) {
	var entry persistence.ScheduleEntry
	var facilityID, officerID, notes sql.NullString
	var startStr, endStr, createdStr, updatedStr string

	if err := row.Scan(
		&entry.ID,
		&entry.SubjectID,
		&facilityID,
		&officerID,
		&entry.Title,
		&entry.EntryType,
		&entry.Status,
		&startStr,
		&endStr,
		&notes,
		&createdStr,
		&updatedStr,
	); err != nil {
		return persistence.ScheduleEntry{}, err
	}

	entry.FacilityID = stringPtr(facilityID)
	entry.ResponsibleOfficerID = stringPtr(officerID)
	entry.Notes = stringPtr(notes)

	var err error
	for _, field := range []struct {
		column string
		value  string
		dest   *time.Time
	}{
		{"start_time", startStr, &entry.Start},
		{"end_time", endStr, &entry.End},
		{"created_at", createdStr, &entry.CreatedAt},
		{"updated_at", updatedStr, &entry.UpdatedAt},
	} {
		if *field.dest, err = parseTime(field.column, field.value); err != nil {
			return persistence.ScheduleEntry{}, err
		}
	}

	return entry, nil
}
