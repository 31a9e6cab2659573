package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

// ReviewHandler serves the /reviews routes.
type ReviewHandler struct {
	svc *service.ReviewService
	log *slog.Logger
}

func NewReviewHandler(svc *service.ReviewService, log *slog.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, log: log}
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rv, err := h.svc.CreateReview(r.Context(), identity(r), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.ListReviews(r.Context(), model.ReviewQuery{
		Page:    pageFromQuery(r),
		EventID: q.Get("eventId"),
		UserID:  q.Get("userId"),
		HostID:  q.Get("hostId"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.svc.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListForEvent(r.Context(), chi.URLParam(r, "eventId"), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListForHost handles GET /reviews/my-host-reviews
func (h *ReviewHandler) ListForHost(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListForHost(r.Context(), identity(r), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HostStats handles GET /reviews/hosts/{hostId}/stats
func (h *ReviewHandler) HostStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.HostStats(r.Context(), chi.URLParam(r, "hostId"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	rv, err := h.svc.UpdateReview(r.Context(), identity(r), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteReview(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "review deleted")
}

// FavouriteHandler serves the /favourite-events routes.
type FavouriteHandler struct {
	svc *service.FavouriteService
	log *slog.Logger
}

func NewFavouriteHandler(svc *service.FavouriteService, log *slog.Logger) *FavouriteHandler {
	return &FavouriteHandler{svc: svc, log: log}
}

func (h *FavouriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req model.FavouriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	fav, err := h.svc.Add(r.Context(), identity(r), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (h *FavouriteHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), identity(r), pageFromQuery(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *FavouriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), identity(r), chi.URLParam(r, "eventId")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, http.StatusOK, "removed from favourites")
}
