package application

import (
	"time"

	"github.com/example/custody-scheduler/internal/scheduler"
)

// EntryInput captures caller provided schedule entry fields.
type EntryInput struct {
	SubjectID            string
	FacilityID           *string
	ResponsibleOfficerID *string
	Title                string
	Type                 scheduler.EntryType
	Status               scheduler.EntryStatus
	Start                time.Time
	End                  time.Time
	Notes                *string
}

// ScheduleEntry is a persisted court appearance, visit, program session or similar
// booking for one person in custody.
type ScheduleEntry struct {
	ID                   string
	SubjectID            string
	FacilityID           *string
	ResponsibleOfficerID *string
	Title                string
	Type                 scheduler.EntryType
	Status               scheduler.EntryStatus
	Start                time.Time
	End                  time.Time
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Conflict is a stored collision between two schedule entries.
type Conflict struct {
	ID               string
	EntryAID         string
	EntryBID         string
	Kind             scheduler.ConflictKind
	Description      string
	Severity         scheduler.Severity
	ResolutionStatus scheduler.ResolutionStatus
	ResolvedBy       *string
	ResolvedAt       *time.Time
	ResolutionNotes  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateEntryParams wraps the data required to create a schedule entry.
type CreateEntryParams struct {
	Input EntryInput
}

// UpdateEntryParams wraps the data required to update an existing schedule entry.
type UpdateEntryParams struct {
	EntryID string
	Input   EntryInput
}

// EntryResult pairs a saved entry with the conflicts detected for it.
type EntryResult struct {
	Entry     ScheduleEntry
	Conflicts []Conflict
}

// ListEntriesParams narrows entry listings. Nil fields are unconstrained.
type ListEntriesParams struct {
	SubjectID            *string
	FacilityID           *string
	ResponsibleOfficerID *string
	StartsAfter          *time.Time
	EndsBefore           *time.Time
	IncludeCancelled     bool
}

// EntryQuery is the filter handed to the entry store.
type EntryQuery struct {
	SubjectID            *string
	FacilityID           *string
	ResponsibleOfficerID *string
	ExcludeID            string
	ActiveOnly           bool
	StartsAfter          *time.Time
	EndsBefore           *time.Time
}

// ConflictQuery is the filter handed to the conflict store.
type ConflictQuery struct {
	ExcludeStatuses []scheduler.ResolutionStatus
	EntryID         string
}

// AvailabilityQuery describes a pre-submission availability check.
type AvailabilityQuery struct {
	SubjectID      string
	FacilityID     *string
	Start          time.Time
	End            time.Time
	ExcludeEntryID string
}

// Availability is the outcome of an availability check.
type Availability struct {
	Available bool
	Conflicts []string
}

// ResolveConflictParams identifies a conflict and the staff member acting on it.
type ResolveConflictParams struct {
	ConflictID string
	UserID     string
	Notes      *string
}

// ConflictActionParams identifies a conflict and the staff member acknowledging or ignoring it.
type ConflictActionParams struct {
	ConflictID string
	UserID     string
}
