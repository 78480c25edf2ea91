package scheduler

import (
	"strings"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.January, 10, hour, minute, 0, 0, time.UTC)
}

func strPtr(value string) *string {
	return &value
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		aStart time.Time
		aEnd   time.Time
		bStart time.Time
		bEnd   time.Time
		want   bool
	}{
		{name: "partial overlap", aStart: at(9, 0), aEnd: at(10, 0), bStart: at(9, 30), bEnd: at(10, 30), want: true},
		{name: "identical bounds", aStart: at(9, 0), aEnd: at(10, 0), bStart: at(9, 0), bEnd: at(10, 0), want: true},
		{name: "b contains a", aStart: at(9, 15), aEnd: at(9, 45), bStart: at(9, 0), bEnd: at(10, 0), want: true},
		{name: "a contains b", aStart: at(9, 0), aEnd: at(10, 0), bStart: at(9, 15), bEnd: at(9, 45), want: true},
		{name: "touching end to start", aStart: at(9, 0), aEnd: at(10, 0), bStart: at(10, 0), bEnd: at(11, 0), want: true},
		{name: "touching start to end", aStart: at(10, 0), aEnd: at(11, 0), bStart: at(9, 0), bEnd: at(10, 0), want: true},
		{name: "disjoint", aStart: at(9, 0), aEnd: at(10, 0), bStart: at(10, 1), bEnd: at(11, 0), want: false},
		{name: "zero length inside", aStart: at(9, 30), aEnd: at(9, 30), bStart: at(9, 0), bEnd: at(10, 0), want: true},
		{name: "inverted a", aStart: at(10, 0), aEnd: at(9, 0), bStart: at(9, 0), bEnd: at(10, 0), want: false},
		{name: "inverted b", aStart: at(9, 0), aEnd: at(10, 0), bStart: at(9, 45), bEnd: at(9, 15), want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps(a, b) = %v, want %v", got, tc.want)
			}
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Fatalf("Overlaps(b, a) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOverlapsIsSymmetricAcrossGrid(t *testing.T) {
	t.Parallel()

	points := []time.Time{at(8, 0), at(9, 0), at(9, 30), at(10, 0), at(11, 0)}
	for _, as := range points {
		for _, ae := range points {
			for _, bs := range points {
				for _, be := range points {
					if Overlaps(as, ae, bs, be) != Overlaps(bs, be, as, ae) {
						t.Fatalf("asymmetric result for a=[%s,%s] b=[%s,%s]", as, ae, bs, be)
					}
				}
			}
		}
	}
}

func TestClassifySeverity(t *testing.T) {
	t.Parallel()

	visit := Entry{Type: TypeVisit, Start: at(9, 0), End: at(10, 0)}
	visitSame := Entry{Type: TypeVisit, Start: at(9, 0), End: at(10, 0)}
	visitShifted := Entry{Type: TypeVisit, Start: at(9, 30), End: at(10, 30)}
	court := Entry{Type: TypeCourt, Start: at(9, 0), End: at(10, 0)}

	if got := ClassifySeverity(visit, visitShifted); got != SeverityMedium {
		t.Fatalf("expected medium for partial overlap, got %s", got)
	}
	if got := ClassifySeverity(visit, visitSame); got != SeverityHigh {
		t.Fatalf("expected high for identical bounds, got %s", got)
	}
	if got := ClassifySeverity(court, visitSame); got != SeverityCritical {
		t.Fatalf("expected court to win over identical bounds, got %s", got)
	}
	if got := ClassifySeverity(visitShifted, court); got != SeverityCritical {
		t.Fatalf("expected court on the other side to be critical, got %s", got)
	}
}

func TestSeverityRankIsTotal(t *testing.T) {
	t.Parallel()

	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Fatalf("expected %s to rank below %s", ordered[i-1], ordered[i])
		}
	}
	if Severity("bogus").Rank() != 0 {
		t.Fatalf("expected unknown severity to rank 0")
	}

	if s, err := ParseSeverity(" HIGH "); err != nil || s != SeverityHigh {
		t.Fatalf("ParseSeverity returned %q, %v", s, err)
	}
	if _, err := ParseSeverity("urgent"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestBuildCandidates(t *testing.T) {
	t.Parallel()

	entry := Entry{ID: "x", SubjectID: "42", Type: TypeVisit, Status: StatusScheduled, Start: at(9, 0), End: at(10, 0)}

	t.Run("skips self, cancelled and disjoint entries", func(t *testing.T) {
		t.Parallel()

		others := []Entry{
			entry,
			{ID: "cancelled", SubjectID: "42", Type: TypeVisit, Status: StatusCancelled, Start: at(9, 0), End: at(10, 0)},
			{ID: "later", SubjectID: "42", Type: TypeVisit, Status: StatusScheduled, Start: at(11, 0), End: at(12, 0)},
			{ID: "y", SubjectID: "42", Type: TypeVisit, Status: StatusConfirmed, Start: at(9, 30), End: at(10, 30)},
		}

		got := BuildCandidates(entry, others, KindSubjectDoubleBooking)
		if len(got) != 1 {
			t.Fatalf("expected one candidate, got %d: %+v", len(got), got)
		}
		c := got[0]
		if c.EntryID != "x" || c.OtherEntryID != "y" {
			t.Fatalf("unexpected pair %s/%s", c.EntryID, c.OtherEntryID)
		}
		if c.Kind != KindSubjectDoubleBooking || c.Severity != SeverityMedium {
			t.Fatalf("unexpected classification %s/%s", c.Kind, c.Severity)
		}
		if !strings.Contains(c.Description, "PDL 42") {
			t.Fatalf("expected description to name the PDL, got %q", c.Description)
		}
	})

	t.Run("returns nil when nothing collides", func(t *testing.T) {
		t.Parallel()

		if got := BuildCandidates(entry, nil, KindOfficerConflict); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("describes facility conflicts by facility id", func(t *testing.T) {
		t.Parallel()

		withRoom := entry
		withRoom.FacilityID = strPtr("7")
		other := Entry{ID: "z", SubjectID: "99", FacilityID: strPtr("7"), Type: TypeProgram, Status: StatusScheduled, Start: at(9, 0), End: at(10, 0)}

		got := BuildCandidates(withRoom, []Entry{other}, KindFacilityDoubleBooking)
		if len(got) != 1 || got[0].Severity != SeverityHigh {
			t.Fatalf("expected one high severity candidate, got %+v", got)
		}
		if !strings.Contains(got[0].Description, "Facility 7") {
			t.Fatalf("unexpected description %q", got[0].Description)
		}
	})
}

func TestEnumValidation(t *testing.T) {
	t.Parallel()

	if !StatusRescheduled.Valid() || EntryStatus("pending").Valid() {
		t.Fatalf("unexpected status validity")
	}
	if StatusCancelled.Active() || !StatusCompleted.Active() {
		t.Fatalf("only cancelled entries should be inactive")
	}
	if !TypeCourt.Valid() || EntryType("hearing").Valid() {
		t.Fatalf("unexpected type validity")
	}
	if !KindOfficerConflict.Valid() || ConflictKind("room").Valid() {
		t.Fatalf("unexpected kind validity")
	}
	if !ResolutionIgnored.Valid() || ResolutionStatus("closed").Valid() {
		t.Fatalf("unexpected resolution validity")
	}
}
