package application

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/example/custody-scheduler/internal/persistence"
	"github.com/example/custody-scheduler/internal/scheduler"
)

// memoryEntryStore is an in-memory ScheduleRepository honouring EntryQuery filters.
type memoryEntryStore struct {
	mu      sync.Mutex
	entries map[string]ScheduleEntry
	listErr error
	queries []EntryQuery
}

func newMemoryEntryStore(entries ...ScheduleEntry) *memoryEntryStore {
	store := &memoryEntryStore{entries: make(map[string]ScheduleEntry)}
	for _, entry := range entries {
		store.entries[entry.ID] = entry
	}
	return store
}

func (m *memoryEntryStore) CreateEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; ok {
		return ScheduleEntry{}, persistence.ErrDuplicate
	}
	m.entries[entry.ID] = entry
	return entry, nil
}

func (m *memoryEntryStore) GetEntry(ctx context.Context, id string) (ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return ScheduleEntry{}, persistence.ErrNotFound
	}
	return entry, nil
}

func (m *memoryEntryStore) UpdateEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.ID]; !ok {
		return ScheduleEntry{}, persistence.ErrNotFound
	}
	m.entries[entry.ID] = entry
	return entry, nil
}

func (m *memoryEntryStore) ListEntries(ctx context.Context, query EntryQuery) ([]ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []ScheduleEntry
	for _, entry := range m.entries {
		if query.SubjectID != nil && entry.SubjectID != *query.SubjectID {
			continue
		}
		if query.FacilityID != nil && (entry.FacilityID == nil || *entry.FacilityID != *query.FacilityID) {
			continue
		}
		if query.ResponsibleOfficerID != nil && (entry.ResponsibleOfficerID == nil || *entry.ResponsibleOfficerID != *query.ResponsibleOfficerID) {
			continue
		}
		if query.ExcludeID != "" && entry.ID == query.ExcludeID {
			continue
		}
		if query.ActiveOnly && !entry.Status.Active() {
			continue
		}
		if query.StartsAfter != nil && entry.End.Before(*query.StartsAfter) {
			continue
		}
		if query.EndsBefore != nil && entry.Start.After(*query.EndsBefore) {
			continue
		}
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b ScheduleEntry) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

// memoryConflictStore is an in-memory ConflictStore enforcing one record per unordered pair.
type memoryConflictStore struct {
	mu        sync.Mutex
	conflicts map[string]Conflict
	createErr error
	updateErr error
	creates   int
	// beforeCreate runs before the uniqueness check, letting tests simulate a concurrent insert.
	beforeCreate func(m *memoryConflictStore)
}

func newMemoryConflictStore(conflicts ...Conflict) *memoryConflictStore {
	store := &memoryConflictStore{conflicts: make(map[string]Conflict)}
	for _, conflict := range conflicts {
		store.conflicts[conflict.ID] = conflict
	}
	return store
}

func (m *memoryConflictStore) insertLocked(conflict Conflict) error {
	low, high := persistence.PairKey(conflict.EntryAID, conflict.EntryBID)
	for _, existing := range m.conflicts {
		l, h := persistence.PairKey(existing.EntryAID, existing.EntryBID)
		if l == low && h == high {
			return persistence.ErrDuplicate
		}
	}
	m.conflicts[conflict.ID] = conflict
	return nil
}

func (m *memoryConflictStore) CreateConflict(ctx context.Context, conflict Conflict) (Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.beforeCreate != nil {
		hook := m.beforeCreate
		m.beforeCreate = nil
		hook(m)
	}
	if m.createErr != nil {
		return Conflict{}, m.createErr
	}
	if err := m.insertLocked(conflict); err != nil {
		return Conflict{}, err
	}
	m.creates++
	return conflict, nil
}

func (m *memoryConflictStore) GetConflict(ctx context.Context, id string) (Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conflict, ok := m.conflicts[id]
	if !ok {
		return Conflict{}, persistence.ErrNotFound
	}
	return conflict, nil
}

func (m *memoryConflictStore) FindConflictByPair(ctx context.Context, a, b string) (Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conflict := range m.conflicts {
		if (conflict.EntryAID == a && conflict.EntryBID == b) || (conflict.EntryAID == b && conflict.EntryBID == a) {
			return conflict, nil
		}
	}
	return Conflict{}, persistence.ErrNotFound
}

func (m *memoryConflictStore) ListConflicts(ctx context.Context, query ConflictQuery) ([]Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Conflict
	for _, conflict := range m.conflicts {
		if slices.Contains(query.ExcludeStatuses, conflict.ResolutionStatus) {
			continue
		}
		if query.EntryID != "" && conflict.EntryAID != query.EntryID && conflict.EntryBID != query.EntryID {
			continue
		}
		out = append(out, conflict)
	}
	return out, nil
}

func (m *memoryConflictStore) UpdateConflict(ctx context.Context, conflict Conflict) (Conflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return Conflict{}, m.updateErr
	}
	if _, ok := m.conflicts[conflict.ID]; !ok {
		return Conflict{}, persistence.ErrNotFound
	}
	m.conflicts[conflict.ID] = conflict
	return conflict, nil
}

func (m *memoryConflictStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conflicts)
}

var testDay = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func entryFixture(id, subject string, start, end time.Time, opts ...func(*ScheduleEntry)) ScheduleEntry {
	entry := ScheduleEntry{
		ID:        id,
		SubjectID: subject,
		Title:     "Entry " + id,
		Type:      scheduler.TypeVisit,
		Status:    scheduler.StatusScheduled,
		Start:     start,
		End:       end,
		CreatedAt: testDay,
		UpdatedAt: testDay,
	}
	for _, opt := range opts {
		opt(&entry)
	}
	return entry
}

func withType(entryType scheduler.EntryType) func(*ScheduleEntry) {
	return func(e *ScheduleEntry) { e.Type = entryType }
}

func withStatus(status scheduler.EntryStatus) func(*ScheduleEntry) {
	return func(e *ScheduleEntry) { e.Status = status }
}

func withFacility(id string) func(*ScheduleEntry) {
	return func(e *ScheduleEntry) { e.FacilityID = &id }
}

func withOfficer(id string) func(*ScheduleEntry) {
	return func(e *ScheduleEntry) { e.ResponsibleOfficerID = &id }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
