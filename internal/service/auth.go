package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/otp"
)

// AccountStore is the user persistence the auth flows need.
type AccountStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
}

// CodeStore issues and checks one-time codes.
type CodeStore interface {
	Issue(ctx context.Context, p otp.Purpose, email string) (string, error)
	Verify(ctx context.Context, p otp.Purpose, email, code string) error
}

// Mailer delivers one-time codes.
type Mailer interface {
	SendVerificationCode(to, name, code string, minutes int) error
	SendPasswordResetCode(to, name, code string, minutes int) error
}

var (
	errInvalidOTP  = apperr.New(apperr.KindValidation, apperr.CodeInvalidOTP, "invalid or expired otp")
	errBlocked     = apperr.New(apperr.KindForbidden, apperr.CodeForbidden, "your account has been blocked")
	errNotVerified = apperr.New(apperr.KindForbidden, apperr.CodeEmailNotVerified, "please verify your email first")
	errVerified    = apperr.New(apperr.KindInvalidState, apperr.CodeValidationFailed, "email is already verified")
)

// AuthService handles registration, login and password recovery.
type AuthService struct {
	users  AccountStore
	hasher *auth.Hasher
	tokens *auth.TokenManager
	codes  CodeStore
	mailer Mailer
	otpTTL time.Duration
	log    *slog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users AccountStore,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	codes CodeStore,
	mailer Mailer,
	otpTTL time.Duration,
	log *slog.Logger,
) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, codes: codes, mailer: mailer, otpTTL: otpTTL, log: log}
}

// Register creates an unverified account and mails a verification code.
// A delivery failure does not undo the account; the code can be resent.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       model.UserActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)

	if err := s.sendCode(ctx, otp.PurposeVerifyEmail, u); err != nil {
		s.log.Error("send verification code", "user_id", u.ID, "error", err)
	}
	return u, nil
}

// EnsureAdmin creates a verified ADMIN account for email unless the email is
// already registered. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			s.log.Warn("admin bootstrap email belongs to a non-admin account", "user_id", existing.ID, "role", existing.Role)
		}
		return false, nil
	case !errors.Is(err, apperr.ErrUserNotFound):
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	u := &model.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Status:       model.UserActive,
		Verified:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// Another instance won the race.
		if errors.Is(err, apperr.ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	s.log.Info("admin account created", "user_id", u.ID, "email", u.Email)
	return true, nil
}

// VerifyEmail consumes the registration code and logs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, req model.VerifyEmailRequest) (model.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return model.TokenPair{}, err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return model.TokenPair{}, err
	}
	if u.Verified {
		return model.TokenPair{}, errVerified
	}
	if err := s.checkCode(ctx, otp.PurposeVerifyEmail, req.Email, req.OTP); err != nil {
		return model.TokenPair{}, err
	}
	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return model.TokenPair{}, err
	}
	return s.issue(u)
}

// Login exchanges credentials for a token pair.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return model.TokenPair{}, err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return model.TokenPair{}, apperr.ErrInvalidCredentials
		}
		return model.TokenPair{}, err
	}
	if !s.hasher.Compare(u.PasswordHash, req.Password) {
		return model.TokenPair{}, apperr.ErrInvalidCredentials
	}
	if err := usable(u); err != nil {
		return model.TokenPair{}, err
	}
	return s.issue(u)
}

// Refresh issues a new pair from a refresh token. The role is re-read so a
// promotion or block takes effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, req model.RefreshRequest) (model.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return model.TokenPair{}, err
	}
	id, err := s.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return model.TokenPair{}, apperr.ErrUnauthenticated
	}
	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return model.TokenPair{}, apperr.ErrUnauthenticated
		}
		return model.TokenPair{}, err
	}
	if err := usable(u); err != nil {
		return model.TokenPair{}, err
	}
	return s.issue(u)
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, id auth.Identity, req model.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(u.PasswordHash, req.OldPassword) {
		return apperr.ErrInvalidCredentials
	}
	return s.setPassword(ctx, u.ID, req.NewPassword)
}

// ForgotPassword mails a reset code. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, req model.EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil
		}
		return err
	}
	return s.sendCode(ctx, otp.PurposeResetPassword, u)
}

// ResetPassword sets a new password using a reset code.
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return errInvalidOTP
		}
		return err
	}
	if err := s.checkCode(ctx, otp.PurposeResetPassword, req.Email, req.OTP); err != nil {
		return err
	}
	return s.setPassword(ctx, u.ID, req.NewPassword)
}

// ResendOTP mails a fresh verification code to an unverified account.
func (s *AuthService) ResendOTP(ctx context.Context, req model.EmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if u.Verified {
		return errVerified
	}
	return s.sendCode(ctx, otp.PurposeVerifyEmail, u)
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, id auth.Identity) (*model.User, error) {
	return s.users.GetByID(ctx, id.UserID)
}

func usable(u *model.User) error {
	if u.Status == model.UserBlocked {
		return errBlocked
	}
	if !u.Verified {
		return errNotVerified
	}
	return nil
}

func (s *AuthService) issue(u *model.User) (model.TokenPair, error) {
	return s.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", "user_id", userID)
	return nil
}

func (s *AuthService) checkCode(ctx context.Context, p otp.Purpose, email, code string) error {
	err := s.codes.Verify(ctx, p, email, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, otp.ErrExpired), errors.Is(err, otp.ErrMismatch):
		return errInvalidOTP
	default:
		return apperr.Wrap(apperr.KindUpstream, apperr.CodeCacheUnavailable, "could not check otp", err)
	}
}

func (s *AuthService) sendCode(ctx context.Context, p otp.Purpose, u *model.User) error {
	code, err := s.codes.Issue(ctx, p, u.Email)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, apperr.CodeCacheUnavailable, "could not issue otp", err)
	}
	minutes := int(s.otpTTL / time.Minute)
	if p == otp.PurposeResetPassword {
		err = s.mailer.SendPasswordResetCode(u.Email, u.FullName, code, minutes)
	} else {
		err = s.mailer.SendVerificationCode(u.Email, u.FullName, code, minutes)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, apperr.CodeMailUnavailable, "could not send email", err)
	}
	return nil
}
