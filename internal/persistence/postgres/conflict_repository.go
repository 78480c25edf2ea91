package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/custody-scheduler/internal/persistence"
)

// ConflictRepository implements persistence.ConflictRepository using gorm.
type ConflictRepository struct {
	db *gorm.DB
}

// NewConflictRepository creates a new Postgres conflict repository.
func NewConflictRepository(db *gorm.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// CreateConflict inserts a conflict record. A second record for the same
// unordered entry pair fails with persistence.ErrDuplicate.
func (r *ConflictRepository) CreateConflict(ctx context.Context, conflict persistence.Conflict) error {
	if conflict.ID == "" {
		return persistence.ErrConstraintViolation
	}
	model := conflictFromDomain(conflict)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error
	return mapError("create conflict", err)
}

// GetConflict retrieves a conflict by ID.
func (r *ConflictRepository) GetConflict(ctx context.Context, id string) (persistence.Conflict, error) {
	if id == "" {
		return persistence.Conflict{}, persistence.ErrNotFound
	}
	var model conflictModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		return persistence.Conflict{}, mapError("get conflict", err)
	}
	return model.toDomain(), nil
}

// FindConflictByPair returns the record for the unordered pair (a, b).
func (r *ConflictRepository) FindConflictByPair(ctx context.Context, a, b string) (persistence.Conflict, error) {
	low, high := persistence.PairKey(a, b)
	var model conflictModel
	err := r.db.WithContext(ctx).
		Where("pair_low = ? AND pair_high = ?", low, high).
		Take(&model).Error
	if err != nil {
		return persistence.Conflict{}, mapError("find conflict by pair", err)
	}
	return model.toDomain(), nil
}

// ListConflicts returns conflicts matching filter, oldest first.
func (r *ConflictRepository) ListConflicts(ctx context.Context, filter persistence.ConflictFilter) ([]persistence.Conflict, error) {
	tx := r.db.WithContext(ctx).Model(&conflictModel{})
	if len(filter.ExcludeStatuses) > 0 {
		tx = tx.Where("resolution_status NOT IN ?", filter.ExcludeStatuses)
	}
	if filter.EntryID != "" {
		tx = tx.Where("entry_a_id = ? OR entry_b_id = ?", filter.EntryID, filter.EntryID)
	}

	var models []conflictModel
	if err := tx.Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, mapError("list conflicts", err)
	}

	conflicts := make([]persistence.Conflict, len(models))
	for i, model := range models {
		conflicts[i] = model.toDomain()
	}
	return conflicts, nil
}

// UpdateConflict stores the mutable fields of an existing conflict.
func (r *ConflictRepository) UpdateConflict(ctx context.Context, conflict persistence.Conflict) error {
	model := conflictFromDomain(conflict)
	result := r.db.WithContext(ctx).
		Model(&conflictModel{}).
		Where("id = ?", conflict.ID).
		Updates(map[string]any{
			"description":       model.Description,
			"severity":          model.Severity,
			"resolution_status": model.ResolutionStatus,
			"resolved_by":       model.ResolvedBy,
			"resolved_at":       model.ResolvedAt,
			"resolution_notes":  model.ResolutionNotes,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		return mapError("update conflict", result.Error)
	}
	if result.RowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
