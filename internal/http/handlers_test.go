package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/custody-scheduler/internal/application"
	"github.com/example/custody-scheduler/internal/scheduler"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type scheduleServiceStub struct {
	createParams application.CreateEntryParams
	updateParams application.UpdateEntryParams
	listParams   application.ListEntriesParams
	result       application.EntryResult
	entries      []application.ScheduleEntry
	err          error
}

func (s *scheduleServiceStub) CreateEntry(ctx context.Context, params application.CreateEntryParams) (application.EntryResult, error) {
	s.createParams = params
	return s.result, s.err
}

func (s *scheduleServiceStub) UpdateEntry(ctx context.Context, params application.UpdateEntryParams) (application.EntryResult, error) {
	s.updateParams = params
	return s.result, s.err
}

func (s *scheduleServiceStub) GetEntry(ctx context.Context, id string) (application.ScheduleEntry, error) {
	if s.err != nil {
		return application.ScheduleEntry{}, s.err
	}
	return s.result.Entry, nil
}

func (s *scheduleServiceStub) ListEntries(ctx context.Context, params application.ListEntriesParams) ([]application.ScheduleEntry, error) {
	s.listParams = params
	return s.entries, s.err
}

type conflictServiceStub struct {
	conflict     application.Conflict
	conflicts    []application.Conflict
	availability application.Availability
	resolved     application.ResolveConflictParams
	action       application.ConflictActionParams
	actionName   string
	query        application.AvailabilityQuery
	entryID      string
	err          error
}

func (s *conflictServiceStub) UnresolvedConflicts(ctx context.Context) ([]application.Conflict, error) {
	return s.conflicts, s.err
}

func (s *conflictServiceStub) GetConflict(ctx context.Context, id string) (application.Conflict, error) {
	return s.conflict, s.err
}

func (s *conflictServiceStub) ConflictsForEntry(ctx context.Context, entryID string) ([]application.Conflict, error) {
	s.entryID = entryID
	return s.conflicts, s.err
}

func (s *conflictServiceStub) ResolveConflict(ctx context.Context, params application.ResolveConflictParams) (application.Conflict, error) {
	s.resolved = params
	return s.conflict, s.err
}

func (s *conflictServiceStub) AcknowledgeConflict(ctx context.Context, params application.ConflictActionParams) (application.Conflict, error) {
	s.action, s.actionName = params, "acknowledge"
	return s.conflict, s.err
}

func (s *conflictServiceStub) IgnoreConflict(ctx context.Context, params application.ConflictActionParams) (application.Conflict, error) {
	s.action, s.actionName = params, "ignore"
	return s.conflict, s.err
}

func (s *conflictServiceStub) CheckAvailability(ctx context.Context, query application.AvailabilityQuery) (application.Availability, error) {
	s.query = query
	return s.availability, s.err
}

type pingerStub struct {
	err error
}

func (p pingerStub) Ping(ctx context.Context) error {
	return p.err
}

func newTestRouter(schedules *scheduleServiceStub, conflicts *conflictServiceStub) http.Handler {
	return NewRouter(RouterConfig{
		Schedules:  NewScheduleHandler(schedules, testLogger),
		Conflicts:  NewConflictHandler(conflicts, testLogger),
		Health:     NewHealthHandler(pingerStub{}, testLogger),
		Logger:     testLogger,
		Middleware: []func(http.Handler) http.Handler{RequestLogger(testLogger), Identity()},
	})
}

func serve(handler http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func sampleConflict() application.Conflict {
	created := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	return application.Conflict{
		ID:               "conflict-1",
		EntryAID:         "entry-x",
		EntryBID:         "entry-y",
		Kind:             scheduler.KindSubjectDoubleBooking,
		Description:      "PDL 42 is already scheduled",
		Severity:         scheduler.SeverityCritical,
		ResolutionStatus: scheduler.ResolutionDetected,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func TestScheduleHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create returns entry and conflicts", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{result: application.EntryResult{
			Entry:     application.ScheduleEntry{ID: "entry-y", SubjectID: "42", Type: scheduler.TypeCourt, Status: scheduler.StatusScheduled},
			Conflicts: []application.Conflict{sampleConflict()},
		}}
		body := `{"subject_id":"42","entry_type":"court","start_time":"2025-01-10T09:30:00Z","end_time":"2025-01-10T10:30:00Z","facility_id":"7"}`

		rec := serve(newTestRouter(stub, &conflictServiceStub{}), http.MethodPost, "/schedules", body, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		input := stub.createParams.Input
		if input.SubjectID != "42" || input.Type != scheduler.TypeCourt || input.FacilityID == nil || *input.FacilityID != "7" {
			t.Fatalf("unexpected input: %#v", input)
		}
		if !input.Start.Equal(time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)) {
			t.Fatalf("unexpected start: %v", input.Start)
		}

		resp := decodeBody[entryResultResponse](t, rec)
		if resp.Entry.ID != "entry-y" || len(resp.Conflicts) != 1 {
			t.Fatalf("unexpected response: %#v", resp)
		}
		if resp.Conflicts[0].Severity != "critical" || resp.Conflicts[0].ConflictType != "subject_double_booking" {
			t.Fatalf("unexpected conflict payload: %#v", resp.Conflicts[0])
		}
	})

	t.Run("create with no conflicts renders an empty list", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{result: application.EntryResult{Entry: application.ScheduleEntry{ID: "entry-1"}}}
		body := `{"subject_id":"42","entry_type":"visit","start_time":"2025-01-10T09:00:00Z","end_time":"2025-01-10T10:00:00Z"}`

		rec := serve(newTestRouter(stub, &conflictServiceStub{}), http.MethodPost, "/schedules", body, nil)
		if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"conflicts":[]`) {
			t.Fatalf("expected empty conflicts array, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("request validation failures map to 422", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{}
		rec := serve(newTestRouter(stub, &conflictServiceStub{}), http.MethodPost, "/schedules", `{"entry_type":"parole"}`, nil)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if _, ok := resp.Errors["subject_id"]; !ok {
			t.Fatalf("expected subject_id error, got %v", resp.Errors)
		}
		if _, ok := resp.Errors["entry_type"]; !ok {
			t.Fatalf("expected entry_type error, got %v", resp.Errors)
		}
	})

	t.Run("malformed JSON maps to 400", func(t *testing.T) {
		t.Parallel()

		rec := serve(newTestRouter(&scheduleServiceStub{}, &conflictServiceStub{}), http.MethodPost, "/schedules", `{"subject_id":`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("service errors map to status codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			err  error
			want int
		}{
			{err: &application.ValidationError{FieldErrors: map[string]string{"time": "start time must not be after end time"}}, want: http.StatusUnprocessableEntity},
			{err: application.ErrNotFound, want: http.StatusNotFound},
			{err: application.ErrAlreadyExists, want: http.StatusConflict},
			{err: errors.New("disk full"), want: http.StatusInternalServerError},
		}
		body := `{"subject_id":"42","entry_type":"visit","start_time":"2025-01-10T09:00:00Z","end_time":"2025-01-10T10:00:00Z"}`

		for _, tt := range tests {
			rec := serve(newTestRouter(&scheduleServiceStub{err: tt.err}, &conflictServiceStub{}), http.MethodPut, "/schedules/entry-1", body, nil)
			if rec.Code != tt.want {
				t.Fatalf("%v: expected %d, got %d", tt.err, tt.want, rec.Code)
			}
		}
	})

	t.Run("update passes the path id", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{}
		body := `{"subject_id":"42","entry_type":"visit","status":"cancelled","start_time":"2025-01-10T09:00:00Z","end_time":"2025-01-10T10:00:00Z"}`
		rec := serve(newTestRouter(stub, &conflictServiceStub{}), http.MethodPut, "/schedules/entry-9", body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.updateParams.EntryID != "entry-9" || stub.updateParams.Input.Status != scheduler.StatusCancelled {
			t.Fatalf("unexpected update params: %#v", stub.updateParams)
		}
	})

	t.Run("list maps query parameters", func(t *testing.T) {
		t.Parallel()

		stub := &scheduleServiceStub{entries: []application.ScheduleEntry{{ID: "entry-1"}}}
		rec := serve(newTestRouter(stub, &conflictServiceStub{}), http.MethodGet,
			"/schedules?subject_id=42&starts_after=2025-01-10T00:00:00Z&include_cancelled=true", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		params := stub.listParams
		if params.SubjectID == nil || *params.SubjectID != "42" || params.FacilityID != nil {
			t.Fatalf("unexpected filter: %#v", params)
		}
		if params.StartsAfter == nil || params.EndsBefore != nil || !params.IncludeCancelled {
			t.Fatalf("unexpected window: %#v", params)
		}
		if resp := decodeBody[listEntriesResponse](t, rec); len(resp.Entries) != 1 {
			t.Fatalf("expected one entry, got %#v", resp)
		}
	})

	t.Run("list rejects malformed timestamps", func(t *testing.T) {
		t.Parallel()

		rec := serve(newTestRouter(&scheduleServiceStub{}, &conflictServiceStub{}), http.MethodGet, "/schedules?ends_before=tomorrow", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unsupported methods answer 405", func(t *testing.T) {
		t.Parallel()

		rec := serve(newTestRouter(&scheduleServiceStub{}, &conflictServiceStub{}), http.MethodDelete, "/schedules/entry-1", "", nil)
		if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") == "" {
			t.Fatalf("expected 405 with Allow header, got %d", rec.Code)
		}
	})
}

func TestConflictHandlers(t *testing.T) {
	t.Parallel()

	t.Run("resolve requires identity", func(t *testing.T) {
		t.Parallel()

		stub := &conflictServiceStub{conflict: sampleConflict()}
		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodPost, "/conflicts/conflict-1/resolve", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if stub.resolved.ConflictID != "" {
			t.Fatalf("service must not be called without identity")
		}
	})

	t.Run("resolve passes user and notes", func(t *testing.T) {
		t.Parallel()

		resolved := sampleConflict()
		resolvedBy := "officer-1"
		resolvedAt := resolved.CreatedAt.Add(time.Hour)
		resolved.ResolutionStatus = scheduler.ResolutionResolved
		resolved.ResolvedBy = &resolvedBy
		resolved.ResolvedAt = &resolvedAt
		stub := &conflictServiceStub{conflict: resolved}

		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodPost, "/conflicts/conflict-1/resolve",
			`{"notes":"moved visit"}`, map[string]string{UserIDHeader: "officer-1"})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.resolved.ConflictID != "conflict-1" || stub.resolved.UserID != "officer-1" {
			t.Fatalf("unexpected params: %#v", stub.resolved)
		}
		if stub.resolved.Notes == nil || *stub.resolved.Notes != "moved visit" {
			t.Fatalf("expected notes to be forwarded, got %v", stub.resolved.Notes)
		}
		resp := decodeBody[conflictDTO](t, rec)
		if resp.ResolutionStatus != "resolved" || resp.ResolvedAt != "2025-01-10T10:00:00Z" {
			t.Fatalf("unexpected payload: %#v", resp)
		}
	})

	t.Run("resolve accepts an empty body", func(t *testing.T) {
		t.Parallel()

		stub := &conflictServiceStub{conflict: sampleConflict()}
		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodPost, "/conflicts/conflict-1/resolve", "", map[string]string{UserIDHeader: "officer-1"})
		if rec.Code != http.StatusOK || stub.resolved.Notes != nil {
			t.Fatalf("expected 200 without notes, got %d (%v)", rec.Code, stub.resolved.Notes)
		}
	})

	t.Run("acknowledge and ignore route to their actions", func(t *testing.T) {
		t.Parallel()

		for _, action := range []string{"acknowledge", "ignore"} {
			stub := &conflictServiceStub{conflict: sampleConflict()}
			rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodPost, "/conflicts/conflict-1/"+action, "", map[string]string{UserIDHeader: "officer-2"})
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d", action, rec.Code)
			}
			if stub.actionName != action || stub.action.UserID != "officer-2" || stub.action.ConflictID != "conflict-1" {
				t.Fatalf("%s: unexpected call %s %#v", action, stub.actionName, stub.action)
			}
		}
	})

	t.Run("unknown action is not found", func(t *testing.T) {
		t.Parallel()

		rec := serve(newTestRouter(&scheduleServiceStub{}, &conflictServiceStub{}), http.MethodPost, "/conflicts/conflict-1/reopen", "", map[string]string{UserIDHeader: "officer-2"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("unresolved lists conflicts", func(t *testing.T) {
		t.Parallel()

		stub := &conflictServiceStub{conflicts: []application.Conflict{sampleConflict()}}
		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodGet, "/conflicts-unresolved", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decodeBody[listConflictsResponse](t, rec)
		if len(resp.Conflicts) != 1 || resp.Conflicts[0].EntryAID != "entry-x" {
			t.Fatalf("unexpected payload: %#v", resp)
		}
	})

	t.Run("entry conflicts use the schedule path", func(t *testing.T) {
		t.Parallel()

		stub := &conflictServiceStub{}
		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodGet, "/schedules/entry-7/conflicts", "", nil)
		if rec.Code != http.StatusOK || stub.entryID != "entry-7" {
			t.Fatalf("expected lookup for entry-7, got %d %q", rec.Code, stub.entryID)
		}
	})

	t.Run("missing conflict is 404", func(t *testing.T) {
		t.Parallel()

		rec := serve(newTestRouter(&scheduleServiceStub{}, &conflictServiceStub{err: application.ErrNotFound}), http.MethodGet, "/conflicts/missing", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("availability check", func(t *testing.T) {
		t.Parallel()

		stub := &conflictServiceStub{availability: application.Availability{
			Available: false,
			Conflicts: []string{"PDL is not available during this time"},
		}}
		body := `{"subject_id":"42","start_time":"2025-01-10T09:15:00Z","end_time":"2025-01-10T09:45:00Z"}`
		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodPost, "/conflicts-check", body, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.query.SubjectID != "42" || stub.query.FacilityID != nil {
			t.Fatalf("unexpected query: %#v", stub.query)
		}
		resp := decodeBody[availabilityResponse](t, rec)
		if resp.Available || len(resp.Conflicts) != 1 || resp.Conflicts[0] != "PDL is not available during this time" {
			t.Fatalf("unexpected payload: %#v", resp)
		}
	})

	t.Run("available answer renders an empty reason list", func(t *testing.T) {
		t.Parallel()

		stub := &conflictServiceStub{availability: application.Availability{Available: true}}
		body := `{"subject_id":"42","start_time":"2025-01-10T09:15:00Z","end_time":"2025-01-10T09:45:00Z"}`
		rec := serve(newTestRouter(&scheduleServiceStub{}, stub), http.MethodPost, "/conflicts-check", body, nil)
		if !strings.Contains(rec.Body.String(), `"conflicts":[]`) {
			t.Fatalf("expected empty reasons, got %s", rec.Body.String())
		}
	})
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "reachable", want: http.StatusOK},
		{name: "unreachable", err: errors.New("connection refused"), want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := NewRouter(RouterConfig{Health: NewHealthHandler(pingerStub{err: tt.err}, testLogger)})
			rec := serve(router, http.MethodGet, "/healthz", "", nil)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
