package persistence

import (
	"context"
	"time"
)

// EntryFilter narrows schedule entry queries. Nil pointers leave a dimension unconstrained.
type EntryFilter struct {
	SubjectID            *string
	FacilityID           *string
	ResponsibleOfficerID *string
	ExcludeID            string
	ExcludeStatuses      []string
	StartsAfter          *time.Time
	EndsBefore           *time.Time
}

// ScheduleRepository stores schedule entries.
type ScheduleRepository interface {
	CreateEntry(ctx context.Context, entry ScheduleEntry) error
	UpdateEntry(ctx context.Context, entry ScheduleEntry) error
	GetEntry(ctx context.Context, id string) (ScheduleEntry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]ScheduleEntry, error)
}

// ConflictFilter narrows conflict queries.
type ConflictFilter struct {
	ExcludeStatuses []string
	EntryID         string
}

// ConflictRepository stores conflict records.
type ConflictRepository interface {
	CreateConflict(ctx context.Context, conflict Conflict) error
	GetConflict(ctx context.Context, id string) (Conflict, error)
	// FindConflictByPair returns the record for (a, b) or (b, a), whatever its kind.
	FindConflictByPair(ctx context.Context, a, b string) (Conflict, error)
	ListConflicts(ctx context.Context, filter ConflictFilter) ([]Conflict, error)
	UpdateConflict(ctx context.Context, conflict Conflict) error
}
