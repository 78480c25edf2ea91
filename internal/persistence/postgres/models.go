package postgres

import (
	"time"

	"github.com/example/custody-scheduler/internal/persistence"
)

// entryModel maps schedule_entries. Check constraints mirror the SQLite schema.
type entryModel struct {
	ID                   string    `gorm:"column:id;type:text;primaryKey"`
	SubjectID            string    `gorm:"column:subject_id;type:text;not null;index:idx_entries_subject_window,priority:1"`
	FacilityID           *string   `gorm:"column:facility_id;type:text;index:idx_entries_facility_window,priority:1"`
	ResponsibleOfficerID *string   `gorm:"column:responsible_officer_id;type:text;index:idx_entries_officer_window,priority:1"`
	Title                string    `gorm:"column:title;type:text;not null;default:''"`
	EntryType            string    `gorm:"column:entry_type;type:text;not null;check:chk_entries_type,entry_type IN ('court','visit','program','medical','other')"`
	Status               string    `gorm:"column:status;type:text;not null;check:chk_entries_status,status IN ('scheduled','confirmed','completed','cancelled','rescheduled')"`
	Start                time.Time `gorm:"column:start_time;type:timestamptz;not null;index:idx_entries_subject_window,priority:2;index:idx_entries_facility_window,priority:2;index:idx_entries_officer_window,priority:2"`
	End                  time.Time `gorm:"column:end_time;type:timestamptz;not null;check:chk_entries_window,start_time <= end_time"`
	Notes                *string   `gorm:"column:notes;type:text"`
	CreatedAt            time.Time `gorm:"column:created_at;type:timestamptz;not null;autoCreateTime:false"`
	UpdatedAt            time.Time `gorm:"column:updated_at;type:timestamptz;not null;autoUpdateTime:false"`
}

func (entryModel) TableName() string { return "schedule_entries" }

// conflictModel maps schedule_conflicts. The unique pair index makes one
// record per unordered entry pair.
type conflictModel struct {
	ID               string     `gorm:"column:id;type:text;primaryKey"`
	EntryAID         string     `gorm:"column:entry_a_id;type:text;not null;index"`
	EntryBID         string     `gorm:"column:entry_b_id;type:text;not null;index"`
	PairLow          string     `gorm:"column:pair_low;type:text;not null;uniqueIndex:idx_conflict_pair,priority:1"`
	PairHigh         string     `gorm:"column:pair_high;type:text;not null;uniqueIndex:idx_conflict_pair,priority:2"`
	Kind             string     `gorm:"column:kind;type:text;not null;check:chk_conflicts_kind,kind IN ('subject_double_booking','facility_double_booking','officer_conflict')"`
	Description      string     `gorm:"column:description;type:text;not null;default:''"`
	Severity         string     `gorm:"column:severity;type:text;not null;check:chk_conflicts_severity,severity IN ('low','medium','high','critical')"`
	ResolutionStatus string     `gorm:"column:resolution_status;type:text;not null;index;check:chk_conflicts_status,resolution_status IN ('detected','acknowledged','resolved','ignored')"`
	ResolvedBy       *string    `gorm:"column:resolved_by;type:text"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at;type:timestamptz"`
	ResolutionNotes  *string    `gorm:"column:resolution_notes;type:text"`
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamptz;not null;autoCreateTime:false"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;type:timestamptz;not null;autoUpdateTime:false"`

	EntryA entryModel `gorm:"foreignKey:EntryAID;references:ID;constraint:OnDelete:CASCADE"`
	EntryB entryModel `gorm:"foreignKey:EntryBID;references:ID;constraint:OnDelete:CASCADE"`
}

func (conflictModel) TableName() string { return "schedule_conflicts" }

func entryFromDomain(entry persistence.ScheduleEntry) entryModel {
	return entryModel{
		ID:                   entry.ID,
		SubjectID:            entry.SubjectID,
		FacilityID:           entry.FacilityID,
		ResponsibleOfficerID: entry.ResponsibleOfficerID,
		Title:                entry.Title,
		EntryType:            entry.EntryType,
		Status:               entry.Status,
		Start:                entry.Start.UTC(),
		End:                  entry.End.UTC(),
		Notes:                entry.Notes,
		CreatedAt:            entry.CreatedAt.UTC(),
		UpdatedAt:            entry.UpdatedAt.UTC(),
	}
}

func (m entryModel) toDomain() persistence.ScheduleEntry {
	return persistence.ScheduleEntry{
		ID:                   m.ID,
		SubjectID:            m.SubjectID,
		FacilityID:           m.FacilityID,
		ResponsibleOfficerID: m.ResponsibleOfficerID,
		Title:                m.Title,
		EntryType:            m.EntryType,
		Status:               m.Status,
		Start:                m.Start.UTC(),
		End:                  m.End.UTC(),
		Notes:                m.Notes,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}

func conflictFromDomain(conflict persistence.Conflict) conflictModel {
	low, high := persistence.PairKey(conflict.EntryAID, conflict.EntryBID)
	var resolvedAt *time.Time
	if conflict.ResolvedAt != nil {
		t := conflict.ResolvedAt.UTC()
		resolvedAt = &t
	}
	return conflictModel{
		ID:               conflict.ID,
		EntryAID:         conflict.EntryAID,
		EntryBID:         conflict.EntryBID,
		PairLow:          low,
		PairHigh:         high,
		Kind:             conflict.Kind,
		Description:      conflict.Description,
		Severity:         conflict.Severity,
		ResolutionStatus: conflict.ResolutionStatus,
		ResolvedBy:       conflict.ResolvedBy,
		ResolvedAt:       resolvedAt,
		ResolutionNotes:  conflict.ResolutionNotes,
		CreatedAt:        conflict.CreatedAt.UTC(),
		UpdatedAt:        conflict.UpdatedAt.UTC(),
	}
}

func (m conflictModel) toDomain() persistence.Conflict {
	var resolvedAt *time.Time
	if m.ResolvedAt != nil {
		t := m.ResolvedAt.UTC()
		resolvedAt = &t
	}
	return persistence.Conflict{
		ID:               m.ID,
		EntryAID:         m.EntryAID,
		EntryBID:         m.EntryBID,
		Kind:             m.Kind,
		Description:      m.Description,
		Severity:         m.Severity,
		ResolutionStatus: m.ResolutionStatus,
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       resolvedAt,
		ResolutionNotes:  m.ResolutionNotes,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}
