package service

import (
	"context"
	"log/slog"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

type HostRequestStore interface {
	Create(ctx context.Context, h *model.HostRequest) error
	GetByID(ctx context.Context, id string) (*model.HostRequest, error)
	List(ctx context.Context, q model.HostRequestQuery) ([]model.HostRequest, int, error)
	SetApproval(ctx context.Context, id string, approved bool) (*model.HostRequest, error)
	Delete(ctx context.Context, id string) error
}

var errHostRequestRole = apperr.New(apperr.KindInvalidState, apperr.CodeHostRequestNotUser,
	"only regular users can apply to become a host")

// HostRequestService handles applications to become a host.
type HostRequestService struct {
	requests HostRequestStore
	users    UserStore
	log      *slog.Logger
}

func NewHostRequestService(requests HostRequestStore, users UserStore, log *slog.Logger) *HostRequestService {
	return &HostRequestService{requests: requests, users: users, log: log}
}

// Apply files the caller's application.
func (s *HostRequestService) Apply(ctx context.Context, id auth.Identity, in model.HostRequestInput) (*model.HostRequest, error) {
	if id.Role != model.RoleUser {
		return nil, errHostRequestRole
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, id.UserID, in, false)
}

// CreateApproved files and approves an application for in.UserID in one
// step, promoting the user immediately.
func (s *HostRequestService) CreateApproved(ctx context.Context, id auth.Identity, in model.HostRequestInput) (*model.HostRequest, error) {
	if !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		return nil, apperr.Validation("invalid request", map[string]string{"user_id": "cannot be blank"})
	}
	u, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleUser {
		return nil, errHostRequestRole
	}
	h, err := s.create(ctx, u.ID, in, true)
	if err != nil {
		return nil, err
	}
	s.log.Info("host request approved", "request_id", h.ID, "user_id", u.ID, "by", id.UserID)
	return h, nil
}

func (s *HostRequestService) create(ctx context.Context, userID string, in model.HostRequestInput, approved bool) (*model.HostRequest, error) {
	h := &model.HostRequest{
		UserID:         userID,
		HostExperience: in.HostExperience,
		TypeOfEvents:   in.TypeOfEvents,
		WhyHost:        in.WhyHost,
		Approved:       approved,
	}
	if err := s.requests.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HostRequestService) Get(ctx context.Context, id string) (*model.HostRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *HostRequestService) List(ctx context.Context, q model.HostRequestQuery) (model.List[model.HostRequest], error) {
	q.Page = q.Page.Normalize()
	list, total, err := s.requests.List(ctx, q)
	if err != nil {
		return model.List[model.HostRequest]{}, err
	}
	return model.NewList(q.Page, total, list), nil
}

// Decide approves or revokes a request; the applicant's role follows.
func (s *HostRequestService) Decide(ctx context.Context, id auth.Identity, requestID string, req model.HostDecision) (*model.HostRequest, error) {
	if !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	h, err := s.requests.SetApproval(ctx, requestID, *req.ApproveHost)
	if err != nil {
		return nil, err
	}
	s.log.Info("host request decided", "request_id", requestID, "approved", h.Approved, "by", id.UserID)
	return h, nil
}

func (s *HostRequestService) Delete(ctx context.Context, id auth.Identity, requestID string) error {
	if !id.HasRole(model.RoleAdmin) {
		return apperr.ErrForbidden
	}
	return s.requests.Delete(ctx, requestID)
}
