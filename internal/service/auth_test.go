package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/logging"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

type authFixture struct {
	users  *memUsers
	codes  *memCodes
	mailer *captureMailer
	tokens *auth.TokenManager
	svc    *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  newMemUsers(),
		codes:  newMemCodes(),
		mailer: &captureMailer{},
		tokens: auth.NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour),
	}
	f.svc = NewAuthService(f.users, auth.NewHasher(bcrypt.MinCost), f.tokens, f.codes, f.mailer, 10*time.Minute, logging.Discard())
	return f
}

func (f *authFixture) register(t *testing.T, email string) *model.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Email: email, FullName: "Ann Example", Password: "hunter22",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	u := f.register(t, " Ann@Example.com ")
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.False(t, u.Verified)

	_, err := f.svc.Login(ctx, model.LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, errNotVerified)

	sent := f.mailer.last()
	assert.Equal(t, "ann@example.com", sent.to)
	assert.False(t, sent.reset)

	_, err = f.svc.VerifyEmail(ctx, model.VerifyEmailRequest{Email: "ann@example.com", OTP: "999999"})
	assert.ErrorIs(t, err, errInvalidOTP)

	pair, err := f.svc.VerifyEmail(ctx, model.VerifyEmailRequest{Email: "ann@example.com", OTP: sent.code})
	require.NoError(t, err)
	id, err := f.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "ann@example.com", Password: "wrong-one"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	require.NoError(t, err)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "ann@example.com")

	_, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Email: "ann@example.com", FullName: "Other", Password: "hunter22",
	})
	assert.ErrorIs(t, err, apperr.ErrUserExists)
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Register(context.Background(), model.RegisterRequest{
		Email: "eve@example.com", FullName: "Eve", Password: "hunter22", Role: model.RoleAdmin,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLogin_Blocked(t *testing.T) {
	f := newAuthFixture()
	u := f.register(t, "ann@example.com")
	require.NoError(t, f.users.MarkVerified(context.Background(), u.ID))
	f.users.setStatus(u.ID, model.UserBlocked)

	_, err := f.svc.Login(context.Background(), model.LoginRequest{Email: "ann@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, errBlocked)
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")
	pair, err := f.svc.VerifyEmail(ctx, model.VerifyEmailRequest{Email: u.Email, OTP: f.mailer.last().code})
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, model.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)

	_, err = f.svc.Refresh(ctx, model.RefreshRequest{RefreshToken: pair.AccessToken})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestPasswordReset(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")
	require.NoError(t, f.users.MarkVerified(ctx, u.ID))

	require.NoError(t, f.svc.ForgotPassword(ctx, model.EmailRequest{Email: "nobody@example.com"}))
	require.NoError(t, f.svc.ForgotPassword(ctx, model.EmailRequest{Email: "ann@example.com"}))
	sent := f.mailer.last()
	require.True(t, sent.reset)

	require.NoError(t, f.svc.ResetPassword(ctx, model.ResetPasswordRequest{
		Email: "ann@example.com", OTP: sent.code, NewPassword: "n3w-secret",
	}))
	// codes are single use
	err := f.svc.ResetPassword(ctx, model.ResetPasswordRequest{
		Email: "ann@example.com", OTP: sent.code, NewPassword: "other-secret",
	})
	assert.ErrorIs(t, err, errInvalidOTP)

	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "ann@example.com", Password: "n3w-secret"})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")
	id := auth.Identity{UserID: u.ID, Role: u.Role}

	err := f.svc.ChangePassword(ctx, id, model.ChangePasswordRequest{OldPassword: "nope", NewPassword: "n3w-secret"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	require.NoError(t, f.svc.ChangePassword(ctx, id, model.ChangePasswordRequest{OldPassword: "hunter22", NewPassword: "n3w-secret"}))
}

func TestResendOTP(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")
	first := f.mailer.last().code

	require.NoError(t, f.svc.ResendOTP(ctx, model.EmailRequest{Email: u.Email}))
	second := f.mailer.last().code
	assert.NotEqual(t, first, second)

	_, err := f.svc.VerifyEmail(ctx, model.VerifyEmailRequest{Email: u.Email, OTP: first})
	assert.ErrorIs(t, err, errInvalidOTP)
	_, err = f.svc.VerifyEmail(ctx, model.VerifyEmailRequest{Email: u.Email, OTP: second})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResendOTP(ctx, model.EmailRequest{Email: u.Email}), errVerified)
}

func TestEnsureAdmin(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	created, err := f.svc.EnsureAdmin(ctx, " Admin@Example.com", "s3cret-pass", "Admin")
	require.NoError(t, err)
	assert.True(t, created)

	u, err := f.users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.Verified)

	pair, err := f.svc.Login(ctx, model.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	id, err := f.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, id.Role)

	// Restarts do not duplicate or reset the account.
	created, err = f.svc.EnsureAdmin(ctx, "admin@example.com", "other-pass", "Admin")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, f.users.users, 1)
	_, err = f.svc.Login(ctx, model.LoginRequest{Email: "admin@example.com", Password: "s3cret-pass"})
	assert.NoError(t, err)
}

func TestEnsureAdmin_ExistingUserNotPromoted(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.register(t, "ann@example.com")

	created, err := f.svc.EnsureAdmin(ctx, "ann@example.com", "s3cret-pass", "Admin")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := f.users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
}
