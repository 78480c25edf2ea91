package persistence

import "time"

// ScheduleEntry represents a schedule row as stored by the scheduling subsystem.
type ScheduleEntry struct {
	ID                   string
	SubjectID            string
	FacilityID           *string
	ResponsibleOfficerID *string
	Title                string
	EntryType            string
	Status               string
	Start                time.Time
	End                  time.Time
	Notes                *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Conflict represents a detected collision between two schedule entries.
type Conflict struct {
	ID               string
	EntryAID         string
	EntryBID         string
	Kind             string
	Description      string
	Severity         string
	ResolutionStatus string
	ResolvedBy       *string
	ResolvedAt       *time.Time
	ResolutionNotes  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PairKey orders two entry identifiers so that (a, b) and (b, a) share one key.
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
