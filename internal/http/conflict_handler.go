package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/custody-scheduler/internal/application"
)

type conflictService interface {
	UnresolvedConflicts(ctx context.Context) ([]application.Conflict, error)
	GetConflict(ctx context.Context, id string) (application.Conflict, error)
	ConflictsForEntry(ctx context.Context, entryID string) ([]application.Conflict, error)
	ResolveConflict(ctx context.Context, params application.ResolveConflictParams) (application.Conflict, error)
	AcknowledgeConflict(ctx context.Context, params application.ConflictActionParams) (application.Conflict, error)
	IgnoreConflict(ctx context.Context, params application.ConflictActionParams) (application.Conflict, error)
	CheckAvailability(ctx context.Context, query application.AvailabilityQuery) (application.Availability, error)
}

// ConflictHandler serves conflict review and availability endpoints.
type ConflictHandler struct {
	service   conflictService
	responder responder
	logger    *slog.Logger
}

// NewConflictHandler constructs a ConflictHandler.
func NewConflictHandler(service conflictService, logger *slog.Logger) *ConflictHandler {
	return &ConflictHandler{service: service, responder: newResponder(logger), logger: defaultLogger(logger)}
}

// Unresolved lists every conflict awaiting resolution, most severe first.
func (h *ConflictHandler) Unresolved(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conflicts, err := h.service.UnresolvedConflicts(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listConflictsResponse{Conflicts: toConflictDTOs(conflicts)})
}

// Get returns one conflict.
func (h *ConflictHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conflictID, ok := h.conflictID(w, r)
	if !ok {
		return
	}

	conflict, err := h.service.GetConflict(r.Context(), conflictID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConflictDTO(conflict))
}

// ForEntry lists the conflicts naming the entry in the path.
func (h *ConflictHandler) ForEntry(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entryID, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(entryID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	conflicts, err := h.service.ConflictsForEntry(r.Context(), entryID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listConflictsResponse{Conflicts: toConflictDTOs(conflicts)})
}

// Resolve marks a conflict resolved by the calling staff member.
func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conflictID, ok := h.conflictID(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.responder.writeDecodeError(w, r, err)
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	conflict, err := h.service.ResolveConflict(r.Context(), application.ResolveConflictParams{
		ConflictID: conflictID,
		UserID:     userID,
		Notes:      req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ConflictHandler", "Resolve",
		"conflict_id", conflict.ID,
		"user_id", userID,
	).InfoContext(r.Context(), "conflict resolved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConflictDTO(conflict))
}

// Acknowledge records that the calling staff member has seen a conflict.
func (h *ConflictHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, params application.ConflictActionParams) (application.Conflict, error) {
		return h.service.AcknowledgeConflict(ctx, params)
	})
}

// Ignore records that the calling staff member accepts a conflict as is.
func (h *ConflictHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, params application.ConflictActionParams) (application.Conflict, error) {
		return h.service.IgnoreConflict(ctx, params)
	})
}

func (h *ConflictHandler) act(w http.ResponseWriter, r *http.Request, action func(context.Context, application.ConflictActionParams) (application.Conflict, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conflictID, ok := h.conflictID(w, r)
	if !ok {
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	conflict, err := action(r.Context(), application.ConflictActionParams{ConflictID: conflictID, UserID: userID})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toConflictDTO(conflict))
}

// CheckAvailability answers whether a subject, and optionally a facility, is
// free for a window without saving anything.
func (h *ConflictHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req availabilityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.responder.writeDecodeError(w, r, err)
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), application.AvailabilityQuery{
		SubjectID:      req.SubjectID,
		FacilityID:     req.FacilityID,
		Start:          req.StartTime,
		End:            req.EndTime,
		ExcludeEntryID: strings.TrimSpace(req.ExcludeEntryID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	reasons := result.Conflicts
	if reasons == nil {
		reasons = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Available: result.Available, Conflicts: reasons})
}

func (h *ConflictHandler) conflictID(w http.ResponseWriter, r *http.Request) (string, bool) {
	conflictID, ok := ConflictIDFromContext(r.Context())
	if !ok || strings.TrimSpace(conflictID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidConflictID)
		return "", false
	}
	return conflictID, true
}

type resolveRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

type availabilityRequest struct {
	SubjectID      string    `json:"subject_id" validate:"required,max=64"`
	FacilityID     *string   `json:"facility_id" validate:"omitempty,min=1,max=64"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	ExcludeEntryID string    `json:"exclude_entry_id" validate:"max=64"`
}

type availabilityResponse struct {
	Available bool     `json:"available"`
	Conflicts []string `json:"conflicts"`
}

type conflictDTO struct {
	ID               string  `json:"id"`
	EntryAID         string  `json:"schedule_entry_a_id"`
	EntryBID         string  `json:"schedule_entry_b_id"`
	ConflictType     string  `json:"conflict_type"`
	Description      string  `json:"description"`
	Severity         string  `json:"severity"`
	ResolutionStatus string  `json:"resolution_status"`
	ResolvedBy       *string `json:"resolved_by,omitempty"`
	ResolvedAt       string  `json:"resolved_at,omitempty"`
	ResolutionNotes  *string `json:"resolution_notes,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type listConflictsResponse struct {
	Conflicts []conflictDTO `json:"conflicts"`
}

func toConflictDTO(conflict application.Conflict) conflictDTO {
	dto := conflictDTO{
		ID:               conflict.ID,
		EntryAID:         conflict.EntryAID,
		EntryBID:         conflict.EntryBID,
		ConflictType:     string(conflict.Kind),
		Description:      conflict.Description,
		Severity:         string(conflict.Severity),
		ResolutionStatus: string(conflict.ResolutionStatus),
		ResolvedBy:       conflict.ResolvedBy,
		ResolutionNotes:  conflict.ResolutionNotes,
		CreatedAt:        formatTime(conflict.CreatedAt),
		UpdatedAt:        formatTime(conflict.UpdatedAt),
	}
	if conflict.ResolvedAt != nil {
		dto.ResolvedAt = formatTime(*conflict.ResolvedAt)
	}
	return dto
}

func toConflictDTOs(conflicts []application.Conflict) []conflictDTO {
	out := make([]conflictDTO, len(conflicts))
	for i, conflict := range conflicts {
		out[i] = toConflictDTO(conflict)
	}
	return out
}
