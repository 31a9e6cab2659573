package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

// UserHandler serves the /users routes.
type UserHandler struct {
	svc *service.UserService
	log *slog.Logger
}

func NewUserHandler(svc *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.svc.ListUsers(r.Context(), model.UserQuery{
		Page:       pageFromQuery(r),
		SearchTerm: strings.TrimSpace(q.Get("searchTerm")),
		Role:       model.Role(strings.ToUpper(q.Get("role"))),
		Status:     model.UserStatus(strings.ToUpper(q.Get("status"))),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ListHosts handles GET /users/hosts
func (h *UserHandler) ListHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.svc.ListHosts(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, hosts)
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// PublicProfile handles GET /users/{id}/public
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.PublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateProfile handles PATCH /users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateProfileRequest
	photo, err := decodeWithUpload(w, r, &req, "profilePhoto")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), identity(r), req, photo)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangeStatus handles PATCH /users/{id}/status
func (h *UserHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req model.ChangeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	u, err := h.svc.ChangeStatus(r.Context(), identity(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
