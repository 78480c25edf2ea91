package scheduler

import (
	"fmt"
	"strings"
	"time"
)

// EntryStatus is the lifecycle state of a schedule entry.
type EntryStatus string

const (
	StatusScheduled   EntryStatus = "scheduled"
	StatusConfirmed   EntryStatus = "confirmed"
	StatusCompleted   EntryStatus = "completed"
	StatusCancelled   EntryStatus = "cancelled"
	StatusRescheduled EntryStatus = "rescheduled"
)

// Valid reports whether the status is one of the known values.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Active reports whether entries in this status take part in conflict checks.
func (s EntryStatus) Active() bool {
	return s != StatusCancelled
}

// EntryType categorises a schedule entry.
type EntryType string

const (
	TypeCourt   EntryType = "court"
	TypeVisit   EntryType = "visit"
	TypeProgram EntryType = "program"
	TypeMedical EntryType = "medical"
	TypeOther   EntryType = "other"
)

// Valid reports whether the type is one of the known values.
func (t EntryType) Valid() bool {
	switch t {
	case TypeCourt, TypeVisit, TypeProgram, TypeMedical, TypeOther:
		return true
	}
	return false
}

// ConflictKind identifies the shared resource two entries collide on.
type ConflictKind string

const (
	KindSubjectDoubleBooking  ConflictKind = "subject_double_booking"
	KindFacilityDoubleBooking ConflictKind = "facility_double_booking"
	KindOfficerConflict       ConflictKind = "officer_conflict"
)

// Valid reports whether the kind is one of the known values.
func (k ConflictKind) Valid() bool {
	switch k {
	case KindSubjectDoubleBooking, KindFacilityDoubleBooking, KindOfficerConflict:
		return true
	}
	return false
}

// Severity grades a conflict. Low is reserved by the schema and never produced
// by ClassifySeverity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of the severity in the total order
// low < medium < high < critical. Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// ParseSeverity converts a stored label into a Severity.
func ParseSeverity(value string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if s.Rank() == 0 {
		return "", fmt.Errorf("scheduler: unknown severity %q", value)
	}
	return s, nil
}

// ResolutionStatus tracks how staff handled a conflict.
type ResolutionStatus string

const (
	ResolutionDetected     ResolutionStatus = "detected"
	ResolutionAcknowledged ResolutionStatus = "acknowledged"
	ResolutionResolved     ResolutionStatus = "resolved"
	ResolutionIgnored      ResolutionStatus = "ignored"
)

// Valid reports whether the status is one of the known values.
func (r ResolutionStatus) Valid() bool {
	switch r {
	case ResolutionDetected, ResolutionAcknowledged, ResolutionResolved, ResolutionIgnored:
		return true
	}
	return false
}

// Entry is the detector's view of a schedule entry.
type Entry struct {
	ID                   string
	SubjectID            string
	FacilityID           *string
	ResponsibleOfficerID *string
	Type                 EntryType
	Status               EntryStatus
	Start                time.Time
	End                  time.Time
}

// Candidate is a conflict found between the entry under inspection and another entry.
type Candidate struct {
	EntryID      string
	OtherEntryID string
	Kind         ConflictKind
	Severity     Severity
	Description  string
}
