package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/custody-scheduler/internal/application"
	"github.com/example/custody-scheduler/internal/persistence"
	"github.com/example/custody-scheduler/internal/scheduler"
)

var (
	entryCounter    uint64
	conflictCounter uint64
)

var referenceTime = time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Entry fixtures -----------------------------

// EntryFixture represents a deterministic schedule entry for one person in custody.
type EntryFixture struct {
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

// EntryOption configures the generated entry fixture.
type EntryOption func(*EntryFixture)

// NewEntryFixture returns a one hour visit starting on the hour after the
// previous fixture, with optional overrides.
func NewEntryFixture(opts ...EntryOption) EntryFixture {
	idx := atomic.AddUint64(&entryCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := EntryFixture{
		ID:        fmt.Sprintf("entry-%03d", idx),
		SubjectID: fmt.Sprintf("pdl-%03d", idx),
		Title:     fmt.Sprintf("Entry %03d", idx),
		Type:      scheduler.TypeVisit,
		Status:    scheduler.StatusScheduled,
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEntryID overrides the entry ID.
func WithEntryID(id string) EntryOption {
	return func(f *EntryFixture) {
		f.ID = id
	}
}

// WithEntrySubject sets the person in custody the entry belongs to.
func WithEntrySubject(id string) EntryOption {
	return func(f *EntryFixture) {
		f.SubjectID = id
	}
}

// WithEntryFacility sets the facility.
func WithEntryFacility(id string) EntryOption {
	return func(f *EntryFixture) {
		f.FacilityID = &id
	}
}

// WithEntryOfficer sets the responsible officer.
func WithEntryOfficer(id string) EntryOption {
	return func(f *EntryFixture) {
		f.ResponsibleOfficerID = &id
	}
}

// WithEntryType overrides the entry type.
func WithEntryType(entryType scheduler.EntryType) EntryOption {
	return func(f *EntryFixture) {
		f.Type = entryType
	}
}

// WithEntryStatus overrides the entry status.
func WithEntryStatus(status scheduler.EntryStatus) EntryOption {
	return func(f *EntryFixture) {
		f.Status = status
	}
}

// WithEntryWindow sets the start and end times.
func WithEntryWindow(start, end time.Time) EntryOption {
	return func(f *EntryFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEntryNotes sets the free text notes.
func WithEntryNotes(notes string) EntryOption {
	return func(f *EntryFixture) {
		f.Notes = &notes
	}
}

// WithEntryTimestamps sets both created and updated timestamps.
func WithEntryTimestamps(created, updated time.Time) EntryOption {
	return func(f *EntryFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.ScheduleEntry value.
func (f EntryFixture) Application() application.ScheduleEntry {
	return application.ScheduleEntry{
		ID:                   f.ID,
		SubjectID:            f.SubjectID,
		FacilityID:           copyStringPtr(f.FacilityID),
		ResponsibleOfficerID: copyStringPtr(f.ResponsibleOfficerID),
		Title:                f.Title,
		Type:                 f.Type,
		Status:               f.Status,
		Start:                f.Start,
		End:                  f.End,
		Notes:                copyStringPtr(f.Notes),
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.ScheduleEntry value.
func (f EntryFixture) Persistence() persistence.ScheduleEntry {
	return persistence.ScheduleEntry{
		ID:                   f.ID,
		SubjectID:            f.SubjectID,
		FacilityID:           copyStringPtr(f.FacilityID),
		ResponsibleOfficerID: copyStringPtr(f.ResponsibleOfficerID),
		Title:                f.Title,
		EntryType:            string(f.Type),
		Status:               string(f.Status),
		Start:                f.Start,
		End:                  f.End,
		Notes:                copyStringPtr(f.Notes),
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Input returns the fixture as an application.EntryInput.
func (f EntryFixture) Input() application.EntryInput {
	return application.EntryInput{
		SubjectID:            f.SubjectID,
		FacilityID:           copyStringPtr(f.FacilityID),
		ResponsibleOfficerID: copyStringPtr(f.ResponsibleOfficerID),
		Title:                f.Title,
		Type:                 f.Type,
		Status:               f.Status,
		Start:                f.Start,
		End:                  f.End,
		Notes:                copyStringPtr(f.Notes),
	}
}

// --------------------------- Conflict fixtures ---------------------------

// ConflictFixture represents a deterministic stored conflict record.
type ConflictFixture struct {
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

// ConflictOption configures the generated conflict fixture.
type ConflictOption func(*ConflictFixture)

// NewConflictFixture returns a detected medium subject conflict between the
// given entries.
func NewConflictFixture(entryA, entryB string, opts ...ConflictOption) ConflictFixture {
	idx := atomic.AddUint64(&conflictCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ConflictFixture{
		ID:               fmt.Sprintf("conflict-%03d", idx),
		EntryAID:         entryA,
		EntryBID:         entryB,
		Kind:             scheduler.KindSubjectDoubleBooking,
		Description:      fmt.Sprintf("Schedule entry %s overlaps entry %s", entryA, entryB),
		Severity:         scheduler.SeverityMedium,
		ResolutionStatus: scheduler.ResolutionDetected,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithConflictID overrides the conflict ID.
func WithConflictID(id string) ConflictOption {
	return func(f *ConflictFixture) {
		f.ID = id
	}
}

// WithConflictKind overrides the conflict kind.
func WithConflictKind(kind scheduler.ConflictKind) ConflictOption {
	return func(f *ConflictFixture) {
		f.Kind = kind
	}
}

// WithConflictSeverity overrides the severity.
func WithConflictSeverity(severity scheduler.Severity) ConflictOption {
	return func(f *ConflictFixture) {
		f.Severity = severity
	}
}

// WithConflictStatus overrides the resolution status.
func WithConflictStatus(status scheduler.ResolutionStatus) ConflictOption {
	return func(f *ConflictFixture) {
		f.ResolutionStatus = status
	}
}

// WithConflictResolution marks the fixture resolved by userID at the given time.
func WithConflictResolution(userID string, at time.Time, notes string) ConflictOption {
	return func(f *ConflictFixture) {
		f.ResolutionStatus = scheduler.ResolutionResolved
		f.ResolvedBy = &userID
		f.ResolvedAt = &at
		if notes != "" {
			f.ResolutionNotes = &notes
		}
	}
}

// WithConflictCreatedAt sets both created and updated timestamps.
func WithConflictCreatedAt(t time.Time) ConflictOption {
	return func(f *ConflictFixture) {
		f.CreatedAt = t
		f.UpdatedAt = t
	}
}

// Application returns the fixture as an application.Conflict value.
func (f ConflictFixture) Application() application.Conflict {
	return application.Conflict{
		ID:               f.ID,
		EntryAID:         f.EntryAID,
		EntryBID:         f.EntryBID,
		Kind:             f.Kind,
		Description:      f.Description,
		Severity:         f.Severity,
		ResolutionStatus: f.ResolutionStatus,
		ResolvedBy:       copyStringPtr(f.ResolvedBy),
		ResolvedAt:       copyTimePtr(f.ResolvedAt),
		ResolutionNotes:  copyStringPtr(f.ResolutionNotes),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Conflict value.
func (f ConflictFixture) Persistence() persistence.Conflict {
	return persistence.Conflict{
		ID:               f.ID,
		EntryAID:         f.EntryAID,
		EntryBID:         f.EntryBID,
		Kind:             string(f.Kind),
		Description:      f.Description,
		Severity:         string(f.Severity),
		ResolutionStatus: string(f.ResolutionStatus),
		ResolvedBy:       copyStringPtr(f.ResolvedBy),
		ResolvedAt:       copyTimePtr(f.ResolvedAt),
		ResolutionNotes:  copyStringPtr(f.ResolutionNotes),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func copyTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
