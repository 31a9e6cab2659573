package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

// HostRequestHandler serves the /become-host routes.
type HostRequestHandler struct {
	svc *service.HostRequestService
	log *slog.Logger
}

func NewHostRequestHandler(svc *service.HostRequestService, log *slog.Logger) *HostRequestHandler {
	return &HostRequestHandler{svc: svc, log: log}
}

// Apply handles POST /become-host
func (h *HostRequestHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var in model.HostRequestInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	// user_id is only honoured on the admin route
	in.UserID = ""
	req, err := h.svc.Apply(r.Context(), identity(r), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// CreateApproved handles POST /become-host/admin
func (h *HostRequestHandler) CreateApproved(w http.ResponseWriter, r *http.Request) {
	var in model.HostRequestInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	req, err := h.svc.CreateApproved(r.Context(), identity(r), in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *HostRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), model.HostRequestQuery{
		Page:     pageFromQuery(r),
		Approved: boolQuery(r, "approved"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *HostRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Decide handles PATCH /become-host/{id}
func (h *HostRequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var d model.HostDecision
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	req, err := h.svc.Decide(r.Context(), identity(r), chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *HostRequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "host request deleted")
}

// ReportHandler serves the /reports routes.
type ReportHandler struct {
	svc *service.ReportService
	log *slog.Logger
}

func NewReportHandler(svc *service.ReportService, log *slog.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, log: log}
}

func (h *ReportHandler) Admin(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Admin(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ReportHandler) Host(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Host(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ReportHandler) User(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.User(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ReportHandler) PublicHosts(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.PublicHosts(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ReportHandler) Payments(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Payments(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
