package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/custody-scheduler/internal/scheduler"
)

// ScheduleRepository captures the persistence interactions needed by the service.
type ScheduleRepository interface {
	CreateEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error)
	GetEntry(ctx context.Context, id string) (ScheduleEntry, error)
	UpdateEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error)
	ListEntries(ctx context.Context, query EntryQuery) ([]ScheduleEntry, error)
}

// ConflictDetector runs conflict detection for a saved entry.
type ConflictDetector interface {
	DetectConflicts(ctx context.Context, entry ScheduleEntry) ([]Conflict, error)
}

// ScheduleService orchestrates validation, persistence and conflict detection
// for schedule entries.
type ScheduleService struct {
	entries     ScheduleRepository
	detector    ConflictDetector
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(entries ScheduleRepository, detector ConflictDetector, idGenerator func() string, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(entries, detector, idGenerator, now, nil)
}

// NewScheduleServiceWithLogger wires dependencies for schedule operations with a specified logger.
func NewScheduleServiceWithLogger(entries ScheduleRepository, detector ConflictDetector, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		entries:     entries,
		detector:    detector,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateEntry validates and saves a new entry, then runs conflict detection.
// Conflicts are advisory: the entry stays saved when conflicts are found.
func (s *ScheduleService) CreateEntry(ctx context.Context, params CreateEntryParams) (result EntryResult, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.entries == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEntry", "subject_id", params.Input.SubjectID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create schedule entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("entry_id", result.Entry.ID).InfoContext(ctx, "schedule entry created", "conflicts", len(result.Conflicts))
	}()

	input := normalizeEntryInput(params.Input)
	if vErr := validateEntryInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	entry := ScheduleEntry{
		ID:                   s.idGenerator(),
		SubjectID:            input.SubjectID,
		FacilityID:           input.FacilityID,
		ResponsibleOfficerID: input.ResponsibleOfficerID,
		Title:                input.Title,
		Type:                 input.Type,
		Status:               input.Status,
		Start:                input.Start,
		End:                  input.End,
		Notes:                input.Notes,
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}

	entry, err = s.entries.CreateEntry(ctx, entry)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result.Entry = entry
	result.Conflicts, err = s.detect(ctx, entry)
	return
}

// UpdateEntry validates and saves changes to an existing entry, then runs
// conflict detection again.
func (s *ScheduleService) UpdateEntry(ctx context.Context, params UpdateEntryParams) (result EntryResult, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if s.entries == nil {
		err = fmt.Errorf("schedule repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEntry", "entry_id", params.EntryID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update schedule entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "schedule entry updated", "conflicts", len(result.Conflicts))
	}()

	var existing ScheduleEntry
	existing, err = s.entries.GetEntry(ctx, params.EntryID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	input := normalizeEntryInput(params.Input)
	if vErr := validateEntryInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.SubjectID = input.SubjectID
	updated.FacilityID = input.FacilityID
	updated.ResponsibleOfficerID = input.ResponsibleOfficerID
	updated.Title = input.Title
	updated.Type = input.Type
	updated.Status = input.Status
	updated.Start = input.Start
	updated.End = input.End
	updated.Notes = input.Notes
	updated.UpdatedAt = s.now()

	updated, err = s.entries.UpdateEntry(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result.Entry = updated
	result.Conflicts, err = s.detect(ctx, updated)
	return
}

func (s *ScheduleService) detect(ctx context.Context, entry ScheduleEntry) ([]Conflict, error) {
	if s.detector == nil {
		return nil, nil
	}
	// Cancelled entries never conflict, but the pass still clears cached availability.
	return s.detector.DetectConflicts(ctx, entry)
}

// GetEntry returns a schedule entry by id.
func (s *ScheduleService) GetEntry(ctx context.Context, id string) (ScheduleEntry, error) {
	if s == nil {
		return ScheduleEntry{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.entries == nil {
		return ScheduleEntry{}, fmt.Errorf("schedule repository not configured")
	}
	entry, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return ScheduleEntry{}, mapRepoError(err)
	}
	return entry, nil
}

// ListEntries returns entries matching params ordered by start time.
func (s *ScheduleService) ListEntries(ctx context.Context, params ListEntriesParams) ([]ScheduleEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if s.entries == nil {
		return nil, fmt.Errorf("schedule repository not configured")
	}

	if params.StartsAfter != nil && params.EndsBefore != nil && params.StartsAfter.After(*params.EndsBefore) {
		return nil, newValidationError("time", "starts_after must not be after ends_before")
	}

	entries, err := s.entries.ListEntries(ctx, EntryQuery{
		SubjectID:            params.SubjectID,
		FacilityID:           params.FacilityID,
		ResponsibleOfficerID: params.ResponsibleOfficerID,
		ActiveOnly:           !params.IncludeCancelled,
		StartsAfter:          params.StartsAfter,
		EndsBefore:           params.EndsBefore,
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]ScheduleEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})
	return ordered, nil
}

func normalizeEntryInput(input EntryInput) EntryInput {
	input.SubjectID = strings.TrimSpace(input.SubjectID)
	input.FacilityID = normalizeOptionalString(input.FacilityID)
	input.ResponsibleOfficerID = normalizeOptionalString(input.ResponsibleOfficerID)
	input.Title = strings.TrimSpace(input.Title)
	input.Notes = normalizeOptionalString(input.Notes)
	input.Type = scheduler.EntryType(strings.ToLower(strings.TrimSpace(string(input.Type))))
	input.Status = scheduler.EntryStatus(strings.ToLower(strings.TrimSpace(string(input.Status))))
	if input.Status == "" {
		input.Status = scheduler.StatusScheduled
	}
	return input
}

func validateEntryInput(input EntryInput) *ValidationError {
	vErr := &ValidationError{}

	if input.SubjectID == "" {
		vErr.add("subject_id", "subject id is required")
	}

	if input.Type == "" {
		vErr.add("entry_type", "entry type is required")
	} else if !input.Type.Valid() {
		vErr.add("entry_type", fmt.Sprintf("unknown entry type %q", input.Type))
	}

	if !input.Status.Valid() {
		vErr.add("status", fmt.Sprintf("unknown status %q", input.Status))
	}

	vErr.merge(validateWindowBounds(input.Start, input.End))
	if !input.Start.IsZero() && !input.End.IsZero() && input.Start.After(input.End) {
		vErr.add("time", "start time must not be after end time")
	}

	return vErr
}

// Stored times are fixed-width text, so only four digit UTC years keep their order.
const (
	minWindowYear = 0
	maxWindowYear = 9999
)

// validateWindowBounds requires both ends of a window and keeps them within
// the storable year range once converted to UTC.
func validateWindowBounds(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}
	bounds := []struct {
		field string
		label string
		value time.Time
	}{
		{field: "start_time", label: "start time", value: start},
		{field: "end_time", label: "end time", value: end},
	}
	for _, bound := range bounds {
		if bound.value.IsZero() {
			vErr.add(bound.field, bound.label+" is required")
			continue
		}
		if year := bound.value.UTC().Year(); year < minWindowYear || year > maxWindowYear {
			vErr.add(bound.field, fmt.Sprintf("%s must fall in UTC years %04d to %04d", bound.label, minWindowYear, maxWindowYear))
		}
	}
	return vErr
}
