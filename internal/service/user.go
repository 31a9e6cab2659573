package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// UserStore is the user persistence profile and admin flows need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, q model.UserQuery) ([]model.User, int, error)
	ListHosts(ctx context.Context, page model.Page) ([]model.HostRating, int, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	SetStatus(ctx context.Context, id string, status model.UserStatus) error
}

// UserService manages profiles and account status.
type UserService struct {
	users   UserStore
	objects ObjectStore
	log     *slog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, objects ObjectStore, log *slog.Logger) *UserService {
	return &UserService{users: users, objects: objects, log: log}
}

func (s *UserService) ListUsers(ctx context.Context, q model.UserQuery) (model.List[model.User], error) {
	q.Page = q.Page.Normalize()
	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return model.List[model.User]{}, err
	}
	return model.NewList(q.Page, total, users), nil
}

// ListHosts returns hosts with their review averages.
func (s *UserService) ListHosts(ctx context.Context, page model.Page) (model.List[model.HostRating], error) {
	page = page.Normalize()
	hosts, total, err := s.users.ListHosts(ctx, page)
	if err != nil {
		return model.List[model.HostRating]{}, err
	}
	return model.NewList(page, total, hosts), nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// PublicProfile returns a user without contact details.
func (s *UserService) PublicProfile(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.PhoneNumber, u.Address, u.DateOfBirth = "", "", nil
	return u, nil
}

// UpdateProfile applies a partial update to the caller's profile. A new
// photo replaces the old one, which is deleted after the write succeeds.
func (s *UserService) UpdateProfile(ctx context.Context, id auth.Identity, req model.UpdateProfileRequest, photo *Upload) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = *req.PhoneNumber
	}
	if req.Address != nil {
		u.Address = *req.Address
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.Gender != nil {
		u.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			u.DateOfBirth = nil
		} else {
			dob, _ := model.ParseDate(*req.DateOfBirth)
			u.DateOfBirth = &dob
		}
	}
	if req.Interests != nil {
		u.Interests = req.Interests
	}

	old := u.ProfilePhoto
	if photo != nil {
		url, err := s.objects.Put(ctx, photo.Data, photo.Name)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstream, apperr.CodeStorageUnavailable, "could not store photo", err)
		}
		u.ProfilePhoto = url
	}
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		if photo != nil {
			_ = s.objects.Delete(ctx, u.ProfilePhoto)
		}
		return nil, err
	}
	if photo != nil && old != "" {
		if err := s.objects.Delete(ctx, old); err != nil {
			s.log.Warn("delete old profile photo", "url", old, "error", err)
		}
	}
	return u, nil
}

// ChangeStatus blocks or unblocks an account. Admins cannot block
// themselves.
func (s *UserService) ChangeStatus(ctx context.Context, id auth.Identity, userID string, req model.ChangeStatusRequest) (*model.User, error) {
	if !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if userID == id.UserID && req.Status == model.UserBlocked {
		return nil, apperr.Invalid("you cannot block your own account")
	}
	if err := s.users.SetStatus(ctx, userID, req.Status); err != nil {
		return nil, err
	}
	s.log.Info("user status changed", "user_id", userID, "status", req.Status, "by", id.UserID)
	return s.users.GetByID(ctx, userID)
}
