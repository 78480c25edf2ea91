package application

// In-memory stores shared with the application_test package.
type (
	MemoryEntryStore    = memoryEntryStore
	MemoryConflictStore = memoryConflictStore
)

func NewMemoryEntryStore(entries ...ScheduleEntry) *MemoryEntryStore {
	return newMemoryEntryStore(entries...)
}

func NewMemoryConflictStore(conflicts ...Conflict) *MemoryConflictStore {
	return newMemoryConflictStore(conflicts...)
}
