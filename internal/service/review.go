package service

import (
	"context"
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

type ReviewStore interface {
	Create(ctx context.Context, rv *model.Review, hostID string) error
	GetByID(ctx context.Context, id string) (*model.Review, error)
	List(ctx context.Context, q model.ReviewQuery) ([]model.Review, int, error)
	Update(ctx context.Context, rv *model.Review) error
	Delete(ctx context.Context, id string) error
	HostRating(ctx context.Context, hostID string) (*model.HostRating, error)
}

var (
	errReviewOwnEvent     = apperr.New(apperr.KindInvalidState, apperr.CodeReviewOwnEvent, "you cannot review your own event")
	errReviewNotAttendant = apperr.New(apperr.KindForbidden, apperr.CodeNotParticipant, "only participants can review an event")
)

// ReviewService manages event reviews.
type ReviewService struct {
	reviews ReviewStore
	events  EventStore
	ledger  SeatLedger
}

func NewReviewService(reviews ReviewStore, events EventStore, ledger SeatLedger) *ReviewService {
	return &ReviewService{reviews: reviews, events: events, ledger: ledger}
}

// CreateReview records a participant's review. Hosts cannot review their
// own events and each user reviews an event at most once.
func (s *ReviewService) CreateReview(ctx context.Context, id auth.Identity, req model.CreateReviewRequest) (*model.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if ev.HostID == id.UserID {
		return nil, errReviewOwnEvent
	}
	ok, err := s.ledger.IsParticipant(ctx, ev.ID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errReviewNotAttendant
	}
	rv := &model.Review{UserID: id.UserID, EventID: ev.ID, Rating: req.Rating, Comment: req.Comment}
	if err := s.reviews.Create(ctx, rv, ev.HostID); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) GetReview(ctx context.Context, id string) (*model.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

func (s *ReviewService) ListReviews(ctx context.Context, q model.ReviewQuery) (model.List[model.Review], error) {
	q.Page = q.Page.Normalize()
	list, total, err := s.reviews.List(ctx, q)
	if err != nil {
		return model.List[model.Review]{}, err
	}
	return model.NewList(q.Page, total, list), nil
}

// ListForEvent returns the reviews of one event.
func (s *ReviewService) ListForEvent(ctx context.Context, eventID string, page model.Page) (model.List[model.Review], error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return model.List[model.Review]{}, err
	}
	return s.ListReviews(ctx, model.ReviewQuery{Page: page, EventID: eventID})
}

// ListForHost returns the reviews left on the caller's events.
func (s *ReviewService) ListForHost(ctx context.Context, id auth.Identity, page model.Page) (model.List[model.Review], error) {
	return s.ListReviews(ctx, model.ReviewQuery{Page: page, HostID: id.UserID})
}

// UpdateReview edits a review. Only its author or an admin may.
func (s *ReviewService) UpdateReview(ctx context.Context, id auth.Identity, reviewID string, req model.UpdateReviewRequest) (*model.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rv, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if rv.UserID != id.UserID && !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if req.Rating != nil {
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = strings.TrimSpace(*req.Comment)
	}
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, id auth.Identity, reviewID string) error {
	if !id.HasRole(model.RoleAdmin) {
		return apperr.ErrForbidden
	}
	return s.reviews.Delete(ctx, reviewID)
}

// HostStats aggregates the reviews across a host's events.
func (s *ReviewService) HostStats(ctx context.Context, hostID string) (*model.HostRating, error) {
	return s.reviews.HostRating(ctx, hostID)
}
