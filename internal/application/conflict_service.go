package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/custody-scheduler/internal/scheduler"
)

const (
	pdlUnavailable      = "PDL is not available during this time"
	facilityUnavailable = "Facility is not available during this time"
)

// EntryLookup exposes the schedule entry reads used by the detector.
type EntryLookup interface {
	GetEntry(ctx context.Context, id string) (ScheduleEntry, error)
	ListEntries(ctx context.Context, query EntryQuery) ([]ScheduleEntry, error)
}

// ConflictStore persists conflict records. FindConflictByPair must match the
// pair in either order and regardless of kind. CreateConflict reports a second
// record for the same pair as a duplicate.
type ConflictStore interface {
	CreateConflict(ctx context.Context, conflict Conflict) (Conflict, error)
	GetConflict(ctx context.Context, id string) (Conflict, error)
	FindConflictByPair(ctx context.Context, a, b string) (Conflict, error)
	ListConflicts(ctx context.Context, query ConflictQuery) ([]Conflict, error)
	UpdateConflict(ctx context.Context, conflict Conflict) (Conflict, error)
}

// ConflictService detects, stores and tracks the resolution of collisions
// between schedule entries.
type ConflictService struct {
	entries     EntryLookup
	conflicts   ConflictStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	cache       *availabilityCache
}

// ConflictServiceOption configures optional ConflictService behaviour.
type ConflictServiceOption func(*ConflictService)

// WithAvailabilityCache keeps availability answers for ttl. A ttl of zero or
// less disables the cache, which is the default. Only detection run by this
// service clears cached answers, so enable it only when a single process
// writes the schedule store.
func WithAvailabilityCache(ttl time.Duration) ConflictServiceOption {
	return func(s *ConflictService) {
		s.cache = newAvailabilityCache(ttl, 0, s.now)
	}
}

// NewConflictService constructs a conflict service with the provided dependencies.
func NewConflictService(entries EntryLookup, conflicts ConflictStore, idGenerator func() string, now func() time.Time, opts ...ConflictServiceOption) *ConflictService {
	return NewConflictServiceWithLogger(entries, conflicts, idGenerator, now, nil, opts...)
}

// NewConflictServiceWithLogger constructs a conflict service with a specified logger.
func NewConflictServiceWithLogger(entries EntryLookup, conflicts ConflictStore, idGenerator func() string, now func() time.Time, logger *slog.Logger, opts ...ConflictServiceOption) *ConflictService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	s := &ConflictService{
		entries:     entries,
		conflicts:   conflicts,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ConflictService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConflictService", operation, attrs...)
}

type conflictScan struct {
	kind  scheduler.ConflictKind
	query EntryQuery
}

// scansFor lists the overlap scans that apply to entry, in result order.
func scansFor(entry ScheduleEntry) []conflictScan {
	window := func(q EntryQuery) EntryQuery {
		q.ExcludeID = entry.ID
		q.ActiveOnly = true
		q.StartsAfter = timePtr(entry.Start)
		q.EndsBefore = timePtr(entry.End)
		return q
	}

	scans := []conflictScan{{
		kind:  scheduler.KindSubjectDoubleBooking,
		query: window(EntryQuery{SubjectID: stringPtr(entry.SubjectID)}),
	}}
	if entry.FacilityID != nil {
		scans = append(scans, conflictScan{
			kind:  scheduler.KindFacilityDoubleBooking,
			query: window(EntryQuery{FacilityID: stringPtr(*entry.FacilityID)}),
		})
	}
	if entry.ResponsibleOfficerID != nil {
		scans = append(scans, conflictScan{
			kind:  scheduler.KindOfficerConflict,
			query: window(EntryQuery{ResponsibleOfficerID: stringPtr(*entry.ResponsibleOfficerID)}),
		})
	}
	return scans
}

// DetectConflicts scans for entries colliding with entry by subject, facility
// and officer, stores a record for every colliding pair not yet on file and
// returns every collision found, whether new or already stored. Each returned
// conflict carries the kind, severity and description detected now together
// with the identity and resolution state of the stored record for the pair.
func (s *ConflictService) DetectConflicts(ctx context.Context, entry ScheduleEntry) (conflicts []Conflict, err error) {
	if s == nil {
		return nil, fmt.Errorf("ConflictService is nil")
	}
	if s.entries == nil || s.conflicts == nil {
		return nil, fmt.Errorf("conflict stores not configured")
	}

	logger := s.loggerWith(ctx, "DetectConflicts", "entry_id", entry.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "conflict detection failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "conflict detection finished", "conflicts", len(conflicts))
	}()
	defer s.cache.Invalidate()

	if !entry.Status.Active() {
		return nil, nil
	}

	target := toSchedulerEntry(entry)
	scans := scansFor(entry)
	found := make([][]scheduler.Candidate, len(scans))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, scan := range scans {
		group.Go(func() error {
			others, err := s.entries.ListEntries(groupCtx, scan.query)
			if err != nil {
				return err
			}
			found[i] = scheduler.BuildCandidates(target, toSchedulerEntries(others), scan.kind)
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return nil, err
	}

	for _, candidates := range found {
		for _, candidate := range candidates {
			var stored Conflict
			stored, err = s.storeConflict(ctx, candidate)
			if err != nil {
				return nil, err
			}
			conflicts = append(conflicts, detectedConflict(candidate, stored))
		}
	}

	return conflicts, nil
}

// storeConflict returns the record for the candidate's entry pair, inserting a
// new detected record when none exists yet. An existing record is never
// modified, even when its kind differs from the candidate's.
func (s *ConflictService) storeConflict(ctx context.Context, candidate scheduler.Candidate) (Conflict, error) {
	existing, err := s.conflicts.FindConflictByPair(ctx, candidate.EntryID, candidate.OtherEntryID)
	if err == nil {
		return existing, nil
	}
	if !isNotFoundError(err) {
		return Conflict{}, err
	}

	now := s.now()
	record := Conflict{
		ID:               s.idGenerator(),
		EntryAID:         candidate.EntryID,
		EntryBID:         candidate.OtherEntryID,
		Kind:             candidate.Kind,
		Description:      candidate.Description,
		Severity:         candidate.Severity,
		ResolutionStatus: scheduler.ResolutionDetected,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.conflicts.CreateConflict(ctx, record)
	if err == nil {
		s.loggerWith(ctx, "storeConflict",
			"conflict_id", created.ID,
			"kind", created.Kind,
			"severity", created.Severity,
		).DebugContext(ctx, "conflict recorded")
		return created, nil
	}
	if !isDuplicateError(err) {
		return Conflict{}, err
	}

	// A concurrent detection stored the pair between the lookup and the insert.
	winner, findErr := s.conflicts.FindConflictByPair(ctx, candidate.EntryID, candidate.OtherEntryID)
	if findErr != nil {
		return Conflict{}, err
	}
	return winner, nil
}

func detectedConflict(candidate scheduler.Candidate, stored Conflict) Conflict {
	return Conflict{
		ID:               stored.ID,
		EntryAID:         candidate.EntryID,
		EntryBID:         candidate.OtherEntryID,
		Kind:             candidate.Kind,
		Description:      candidate.Description,
		Severity:         candidate.Severity,
		ResolutionStatus: stored.ResolutionStatus,
		ResolvedBy:       stored.ResolvedBy,
		ResolvedAt:       stored.ResolvedAt,
		ResolutionNotes:  stored.ResolutionNotes,
		CreatedAt:        stored.CreatedAt,
		UpdatedAt:        stored.UpdatedAt,
	}
}

type availabilityCheck struct {
	reason string
	query  EntryQuery
}

// CheckAvailability reports whether the subject, and the facility when given,
// are free during [Start, End]. Nothing is persisted.
func (s *ConflictService) CheckAvailability(ctx context.Context, query AvailabilityQuery) (result Availability, err error) {
	if s == nil {
		return Availability{}, fmt.Errorf("ConflictService is nil")
	}
	if s.entries == nil {
		return Availability{}, fmt.Errorf("entry store not configured")
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(query.SubjectID) == "" {
		vErr.add("subject_id", "subject id is required")
	}
	vErr.merge(validateWindowBounds(query.Start, query.End))
	if vErr.HasErrors() {
		return Availability{}, vErr
	}

	key := buildAvailabilityCacheKey(query)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	logger := s.loggerWith(ctx, "CheckAvailability", "subject_id", query.SubjectID)

	requested := ScheduleEntry{ID: query.ExcludeEntryID, Start: query.Start, End: query.End}
	checks := []availabilityCheck{
		{reason: pdlUnavailable, query: EntryQuery{SubjectID: stringPtr(query.SubjectID)}},
	}
	if query.FacilityID != nil {
		checks = append(checks, availabilityCheck{
			reason: facilityUnavailable,
			query:  EntryQuery{FacilityID: stringPtr(*query.FacilityID)},
		})
	}

	busy := make([]bool, len(checks))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, check := range checks {
		q := check.query
		q.ExcludeID = query.ExcludeEntryID
		q.ActiveOnly = true
		q.StartsAfter = timePtr(query.Start)
		q.EndsBefore = timePtr(query.End)
		group.Go(func() error {
			others, err := s.entries.ListEntries(groupCtx, q)
			if err != nil {
				return err
			}
			for _, other := range others {
				if other.ID == requested.ID || !other.Status.Active() {
					continue
				}
				if scheduler.Overlaps(requested.Start, requested.End, other.Start, other.End) {
					busy[i] = true
					return nil
				}
			}
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
		return Availability{}, err
	}

	for i, check := range checks {
		if busy[i] {
			result.Conflicts = append(result.Conflicts, check.reason)
		}
	}
	result.Available = len(result.Conflicts) == 0

	logger.DebugContext(ctx, "availability checked", "available", result.Available)
	s.cache.Store(key, result)
	return result, nil
}

// UnresolvedConflicts returns every conflict not yet resolved, most severe
// first and newest first within a severity.
func (s *ConflictService) UnresolvedConflicts(ctx context.Context) ([]Conflict, error) {
	if s == nil {
		return nil, fmt.Errorf("ConflictService is nil")
	}
	if s.conflicts == nil {
		return nil, fmt.Errorf("conflict store not configured")
	}

	conflicts, err := s.conflicts.ListConflicts(ctx, ConflictQuery{
		ExcludeStatuses: []scheduler.ResolutionStatus{scheduler.ResolutionResolved},
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]Conflict, 0, len(conflicts))
	for _, conflict := range conflicts {
		if conflict.ResolutionStatus == scheduler.ResolutionResolved {
			continue
		}
		ordered = append(ordered, conflict)
	}
	sortConflicts(ordered)
	return ordered, nil
}

func sortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		ri, rj := conflicts[i].Severity.Rank(), conflicts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		if !conflicts[i].CreatedAt.Equal(conflicts[j].CreatedAt) {
			return conflicts[i].CreatedAt.After(conflicts[j].CreatedAt)
		}
		return conflicts[i].ID < conflicts[j].ID
	})
}

// GetConflict returns a stored conflict by id.
func (s *ConflictService) GetConflict(ctx context.Context, id string) (Conflict, error) {
	if s == nil {
		return Conflict{}, fmt.Errorf("ConflictService is nil")
	}
	if s.conflicts == nil {
		return Conflict{}, fmt.Errorf("conflict store not configured")
	}
	conflict, err := s.conflicts.GetConflict(ctx, id)
	if err != nil {
		return Conflict{}, mapRepoError(err)
	}
	return conflict, nil
}

// ConflictsForEntry returns every stored conflict naming the entry on either side.
func (s *ConflictService) ConflictsForEntry(ctx context.Context, entryID string) ([]Conflict, error) {
	if s == nil {
		return nil, fmt.Errorf("ConflictService is nil")
	}
	if s.entries == nil || s.conflicts == nil {
		return nil, fmt.Errorf("conflict stores not configured")
	}

	if _, err := s.entries.GetEntry(ctx, entryID); err != nil {
		return nil, mapRepoError(err)
	}

	conflicts, err := s.conflicts.ListConflicts(ctx, ConflictQuery{EntryID: entryID})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	sortConflicts(conflicts)
	return conflicts, nil
}

// ResolveConflict marks the conflict resolved by the given user. The underlying
// collision is not re-checked. Resolving an already resolved conflict restamps it.
func (s *ConflictService) ResolveConflict(ctx context.Context, params ResolveConflictParams) (conflict Conflict, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}
	if s.conflicts == nil {
		err = fmt.Errorf("conflict store not configured")
		return
	}

	logger := s.loggerWith(ctx, "ResolveConflict",
		"conflict_id", params.ConflictID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve conflict", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "conflict resolved")
	}()

	userID := strings.TrimSpace(params.UserID)
	if userID == "" {
		err = newValidationError("user_id", "user id is required")
		return
	}

	conflict, err = s.conflicts.GetConflict(ctx, params.ConflictID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now()
	conflict.ResolutionStatus = scheduler.ResolutionResolved
	conflict.ResolvedBy = &userID
	conflict.ResolvedAt = &now
	conflict.ResolutionNotes = normalizeOptionalString(params.Notes)
	conflict.UpdatedAt = now

	conflict, err = s.conflicts.UpdateConflict(ctx, conflict)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// AcknowledgeConflict records that staff have seen the conflict.
func (s *ConflictService) AcknowledgeConflict(ctx context.Context, params ConflictActionParams) (Conflict, error) {
	return s.transition(ctx, "AcknowledgeConflict", params, scheduler.ResolutionAcknowledged)
}

// IgnoreConflict records that staff accept the conflict as is. Ignored
// conflicts are still reported as unresolved.
func (s *ConflictService) IgnoreConflict(ctx context.Context, params ConflictActionParams) (Conflict, error) {
	return s.transition(ctx, "IgnoreConflict", params, scheduler.ResolutionIgnored)
}

func (s *ConflictService) transition(ctx context.Context, operation string, params ConflictActionParams, target scheduler.ResolutionStatus) (conflict Conflict, err error) {
	if s == nil {
		err = fmt.Errorf("ConflictService is nil")
		return
	}
	if s.conflicts == nil {
		err = fmt.Errorf("conflict store not configured")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"conflict_id", params.ConflictID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "conflict status change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "conflict status changed", "resolution_status", conflict.ResolutionStatus)
	}()

	if strings.TrimSpace(params.UserID) == "" {
		err = newValidationError("user_id", "user id is required")
		return
	}

	conflict, err = s.conflicts.GetConflict(ctx, params.ConflictID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	switch conflict.ResolutionStatus {
	case scheduler.ResolutionResolved:
		err = newValidationError("resolution_status", fmt.Sprintf("resolved conflicts cannot be marked %s", target))
		return
	case target:
		return
	}

	conflict.ResolutionStatus = target
	conflict.UpdatedAt = s.now()

	conflict, err = s.conflicts.UpdateConflict(ctx, conflict)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

func toSchedulerEntry(entry ScheduleEntry) scheduler.Entry {
	return scheduler.Entry{
		ID:                   entry.ID,
		SubjectID:            entry.SubjectID,
		FacilityID:           entry.FacilityID,
		ResponsibleOfficerID: entry.ResponsibleOfficerID,
		Type:                 entry.Type,
		Status:               entry.Status,
		Start:                entry.Start,
		End:                  entry.End,
	}
}

func toSchedulerEntries(entries []ScheduleEntry) []scheduler.Entry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]scheduler.Entry, len(entries))
	for i, entry := range entries {
		out[i] = toSchedulerEntry(entry)
	}
	return out
}

func stringPtr(value string) *string {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
