package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

// EventHandler serves the /events routes.
type EventHandler struct {
	svc *service.EventService
	log *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, log: log}
}

// CreateEvent handles POST /events
// Accepts JSON, or multipart with the JSON in "data" and an "eventImage" file.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	image, err := decodeWithUpload(w, r, &req, "eventImage")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), identity(r), req, image)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Supports searchTerm, category, location, status and hostId filters.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.svc.ListEvents(r.Context(), model.EventQuery{
		Page:       pageFromQuery(r),
		SearchTerm: strings.TrimSpace(q.Get("searchTerm")),
		Category:   q.Get("category"),
		Location:   q.Get("location"),
		Status:     model.EventStatus(strings.ToUpper(q.Get("status"))),
		HostID:     q.Get("hostId"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// ListByStatus returns a handler for the fixed-status listings such as
// GET /events/upcoming.
func (h *EventHandler) ListByStatus(status model.EventStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := h.svc.ListByStatus(r.Context(), status, pageFromQuery(r))
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// Stats handles GET /events/stats
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListParticipated handles GET /events/my-participated-events
func (h *EventHandler) ListParticipated(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListParticipated(r.Context(), identity(r), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetParticipated handles GET /events/my-participated-events/{id}
func (h *EventHandler) GetParticipated(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetParticipated(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ListCreated handles GET /events/my-created-events
func (h *EventHandler) ListCreated(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListCreated(r.Context(), identity(r), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PATCH /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	image, err := decodeWithUpload(w, r, &req, "eventImage")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), identity(r), chi.URLParam(r, "id"), req, image)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "event deleted")
}

// Participate handles POST /events/{id}/participate
// Seats the caller in a free event; paid events go through /payments.
func (h *EventHandler) Participate(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.RequestParticipation(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ListParticipants handles GET /events/{id}/participants
// Returns the ledger rows for an event to its host or an admin.
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	parts, err := h.svc.ListParticipants(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if parts == nil {
		parts = []model.Participation{}
	}

	writeJSON(w, http.StatusOK, parts)
}
