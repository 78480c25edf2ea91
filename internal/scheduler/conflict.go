package scheduler

import (
	"fmt"
	"time"
)

// Overlaps reports whether the closed intervals [aStart, aEnd] and [bStart, bEnd]
// share at least one instant. Entries touching at a single instant overlap.
// An interval whose start is after its end overlaps nothing.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aStart.After(aEnd) || bStart.After(bEnd) {
		return false
	}
	switch {
	case within(bStart, aStart, aEnd):
		return true
	case within(bEnd, aStart, aEnd):
		return true
	case !bStart.After(aStart) && !bEnd.Before(aEnd):
		return true
	}
	return false
}

// EntriesOverlap applies Overlaps to two entries.
func EntriesOverlap(a, b Entry) bool {
	return Overlaps(a.Start, a.End, b.Start, b.End)
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// ClassifySeverity grades the collision between two entries. A court entry on
// either side wins over identical bounds.
func ClassifySeverity(a, b Entry) Severity {
	if a.Type == TypeCourt || b.Type == TypeCourt {
		return SeverityCritical
	}
	if a.Start.Equal(b.Start) && a.End.Equal(b.End) {
		return SeverityHigh
	}
	return SeverityMedium
}

// BuildCandidates returns one candidate per entry in others that collides with
// entry. Self matches, cancelled entries and non-overlapping entries are skipped.
func BuildCandidates(entry Entry, others []Entry, kind ConflictKind) []Candidate {
	if len(others) == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(others))
	for _, other := range others {
		if other.ID == entry.ID {
			continue
		}
		if !other.Status.Active() {
			continue
		}
		if !EntriesOverlap(entry, other) {
			continue
		}
		candidates = append(candidates, Candidate{
			EntryID:      entry.ID,
			OtherEntryID: other.ID,
			Kind:         kind,
			Severity:     ClassifySeverity(entry, other),
			Description:  Describe(kind, entry, other),
		})
	}

	if len(candidates) == 0 {
		return nil
	}
	return candidates
}

// Describe renders a short human readable summary for a conflict.
func Describe(kind ConflictKind, entry, other Entry) string {
	window := fmt.Sprintf("%s to %s", other.Start.UTC().Format(time.RFC3339), other.End.UTC().Format(time.RFC3339))
	switch kind {
	case KindSubjectDoubleBooking:
		return fmt.Sprintf("PDL %s is already scheduled for %s entry %s (%s)", entry.SubjectID, other.Type, other.ID, window)
	case KindFacilityDoubleBooking:
		return fmt.Sprintf("Facility %s is already booked by %s entry %s (%s)", deref(entry.FacilityID), other.Type, other.ID, window)
	case KindOfficerConflict:
		return fmt.Sprintf("Officer %s is already assigned to %s entry %s (%s)", deref(entry.ResponsibleOfficerID), other.Type, other.ID, window)
	}
	return fmt.Sprintf("Schedule entry %s overlaps entry %s", entry.ID, other.ID)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
