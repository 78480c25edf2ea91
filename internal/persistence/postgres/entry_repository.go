package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/custody-scheduler/internal/persistence"
)

// EntryRepository implements persistence.ScheduleRepository using gorm.
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a new Postgres entry repository.
func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// CreateEntry inserts a new schedule entry.
func (r *EntryRepository) CreateEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	if entry.ID == "" {
		return persistence.ErrConstraintViolation
	}
	model := entryFromDomain(entry)
	return mapError("create entry", r.db.WithContext(ctx).Create(&model).Error)
}

// UpdateEntry overwrites every mutable column of an existing entry.
func (r *EntryRepository) UpdateEntry(ctx context.Context, entry persistence.ScheduleEntry) error {
	model := entryFromDomain(entry)
	result := r.db.WithContext(ctx).
		Model(&entryModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]any{
			"subject_id":             model.SubjectID,
			"facility_id":            model.FacilityID,
			"responsible_officer_id": model.ResponsibleOfficerID,
			"title":                  model.Title,
			"entry_type":             model.EntryType,
			"status":                 model.Status,
			"start_time":             model.Start,
			"end_time":               model.End,
			"notes":                  model.Notes,
			"updated_at":             model.UpdatedAt,
		})
	if result.Error != nil {
		return mapError("update entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEntry retrieves an entry by ID.
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (persistence.ScheduleEntry, error) {
	if id == "" {
		return persistence.ScheduleEntry{}, persistence.ErrNotFound
	}
	var model entryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return persistence.ScheduleEntry{}, mapError("get entry", err)
	}
	return model.toDomain(), nil
}

// ListEntries returns entries matching filter ordered by start time then id.
func (r *EntryRepository) ListEntries(ctx context.Context, filter persistence.EntryFilter) ([]persistence.ScheduleEntry, error) {
	var models []entryModel
	if err := applyEntryFilter(r.db.WithContext(ctx).Model(&entryModel{}), filter).
		Order("start_time ASC").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, mapError("list entries", err)
	}

	entries := make([]persistence.ScheduleEntry, len(models))
	for i, model := range models {
		entries[i] = model.toDomain()
	}
	return entries, nil
}

// applyEntryFilter narrows tx to rows whose closed window can touch
// [StartsAfter, EndsBefore]. Exact overlap is decided by the caller.
func applyEntryFilter(tx *gorm.DB, filter persistence.EntryFilter) *gorm.DB {
	if filter.SubjectID != nil {
		tx = tx.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.FacilityID != nil {
		tx = tx.Where("facility_id = ?", *filter.FacilityID)
	}
	if filter.ResponsibleOfficerID != nil {
		tx = tx.Where("responsible_officer_id = ?", *filter.ResponsibleOfficerID)
	}
	if filter.ExcludeID != "" {
		tx = tx.Where("id <> ?", filter.ExcludeID)
	}
	if len(filter.ExcludeStatuses) > 0 {
		tx = tx.Where("status NOT IN ?", filter.ExcludeStatuses)
	}
	if filter.StartsAfter != nil {
		tx = tx.Where("end_time >= ?", filter.StartsAfter.UTC())
	}
	if filter.EndsBefore != nil {
		tx = tx.Where("start_time <= ?", filter.EndsBefore.UTC())
	}
	return tx
}
