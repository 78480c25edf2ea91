package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/custody-scheduler/internal/application"
	"github.com/example/custody-scheduler/internal/scheduler"
)

type scheduleService interface {
	CreateEntry(ctx context.Context, params application.CreateEntryParams) (application.EntryResult, error)
	UpdateEntry(ctx context.Context, params application.UpdateEntryParams) (application.EntryResult, error)
	GetEntry(ctx context.Context, id string) (application.ScheduleEntry, error)
	ListEntries(ctx context.Context, params application.ListEntriesParams) ([]application.ScheduleEntry, error)
}

// ScheduleHandler serves schedule entry endpoints.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

// Create saves a new entry and reports the conflicts it introduced.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.writeDecodeError(w, r, err)
		return
	}

	result, err := h.service.CreateEntry(r.Context(), application.CreateEntryParams{Input: req.toInput()})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ScheduleHandler", "Create",
		"entry_id", result.Entry.ID,
	).DebugContext(r.Context(), "entry saved", "conflicts", len(result.Conflicts))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEntryResultResponse(result))
}

// Update replaces an entry and reports its conflicts.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	var req entryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.writeDecodeError(w, r, err)
		return
	}

	result, err := h.service.UpdateEntry(r.Context(), application.UpdateEntryParams{
		EntryID: entryID,
		Input:   req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEntryResultResponse(result))
}

// Get returns one entry.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	entry, err := h.service.GetEntry(r.Context(), entryID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEntryDTO(entry))
}

// List returns entries filtered by query parameters.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := buildListParams(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEntriesResponse{Entries: toEntryDTOs(entries)})
}

func buildListParams(values url.Values) (application.ListEntriesParams, error) {
	var params application.ListEntriesParams
	params.SubjectID = optionalQuery(values, "subject_id")
	params.FacilityID = optionalQuery(values, "facility_id")
	params.ResponsibleOfficerID = optionalQuery(values, "responsible_officer_id")

	for key, dst := range map[string]**time.Time{
		"starts_after": &params.StartsAfter,
		"ends_before":  &params.EndsBefore,
	} {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return application.ListEntriesParams{}, errBadQuery
		}
		*dst = &ts
	}

	if raw := strings.TrimSpace(values.Get("include_cancelled")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return application.ListEntriesParams{}, errBadQuery
		}
		params.IncludeCancelled = include
	}

	return params, nil
}

func optionalQuery(values url.Values, key string) *string {
	value := strings.TrimSpace(values.Get(key))
	if value == "" {
		return nil
	}
	return &value
}

type entryRequest struct {
	SubjectID            string    `json:"subject_id" validate:"required,max=64"`
	FacilityID           *string   `json:"facility_id" validate:"omitempty,min=1,max=64"`
	ResponsibleOfficerID *string   `json:"responsible_officer_id" validate:"omitempty,min=1,max=64"`
	Title                string    `json:"title" validate:"max=200"`
	EntryType            string    `json:"entry_type" validate:"required,oneof=court visit program medical other"`
	Status               string    `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled rescheduled"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	Notes                *string   `json:"notes" validate:"omitempty,max=2000"`
}

func (r entryRequest) toInput() application.EntryInput {
	return application.EntryInput{
		SubjectID:            r.SubjectID,
		FacilityID:           r.FacilityID,
		ResponsibleOfficerID: r.ResponsibleOfficerID,
		Title:                r.Title,
		Type:                 scheduler.EntryType(r.EntryType),
		Status:               scheduler.EntryStatus(r.Status),
		Start:                r.StartTime,
		End:                  r.EndTime,
		Notes:                r.Notes,
	}
}

type entryDTO struct {
	ID                   string  `json:"id"`
	SubjectID            string  `json:"subject_id"`
	FacilityID           *string `json:"facility_id,omitempty"`
	ResponsibleOfficerID *string `json:"responsible_officer_id,omitempty"`
	Title                string  `json:"title"`
	EntryType            string  `json:"entry_type"`
	Status               string  `json:"status"`
	StartTime            string  `json:"start_time"`
	EndTime              string  `json:"end_time"`
	Notes                *string `json:"notes,omitempty"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

type entryResultResponse struct {
	Entry     entryDTO      `json:"entry"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type listEntriesResponse struct {
	Entries []entryDTO `json:"entries"`
}

func toEntryDTO(entry application.ScheduleEntry) entryDTO {
	return entryDTO{
		ID:                   entry.ID,
		SubjectID:            entry.SubjectID,
		FacilityID:           entry.FacilityID,
		ResponsibleOfficerID: entry.ResponsibleOfficerID,
		Title:                entry.Title,
		EntryType:            string(entry.Type),
		Status:               string(entry.Status),
		StartTime:            formatTime(entry.Start),
		EndTime:              formatTime(entry.End),
		Notes:                entry.Notes,
		CreatedAt:            formatTime(entry.CreatedAt),
		UpdatedAt:            formatTime(entry.UpdatedAt),
	}
}

func toEntryDTOs(entries []application.ScheduleEntry) []entryDTO {
	out := make([]entryDTO, len(entries))
	for i, entry := range entries {
		out[i] = toEntryDTO(entry)
	}
	return out
}

func toEntryResultResponse(result application.EntryResult) entryResultResponse {
	return entryResultResponse{
		Entry:     toEntryDTO(result.Entry),
		Conflicts: toConflictDTOs(result.Conflicts),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
