package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Role is a user's authorization role.
type Role string

const (
	RoleUser  Role = "USER"
	RoleHost  Role = "HOST"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleHost || r == RoleAdmin
}

// UserStatus is the account state.
type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserBlocked UserStatus = "BLOCKED"
)

// User is an account. Counters are maintained alongside the writes that
// change them.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	PasswordHash       string     `json:"-"`
	Role               Role       `json:"role"`
	Status             UserStatus `json:"status"`
	Verified           bool       `json:"is_verified"`
	PhoneNumber        string     `json:"phone_number,omitempty"`
	Address            string     `json:"address,omitempty"`
	Bio                string     `json:"bio,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	DateOfBirth        *time.Time `json:"date_of_birth,omitempty"`
	Interests          []string   `json:"interests"`
	ProfilePhoto       string     `json:"profile_photo,omitempty"`
	HostedEvents       int        `json:"hosted_events"`
	ParticipatedEvents int        `json:"participated_events"`
	ReviewCount        int        `json:"review_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Summary returns the public projection of u.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, ProfilePhoto: u.ProfilePhoto, Role: u.Role}
}

// UserSummary is the embedded view of a user on other resources.
type UserSummary struct {
	ID           string `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
	Role         Role   `json:"role,omitempty"`
}

// UserQuery filters user listings.
type UserQuery struct {
	Page
	SearchTerm string
	Role       Role
	Status     UserStatus
}

// UserSortColumns maps API sort fields to columns.
var UserSortColumns = map[string]string{
	"created_at": "created_at",
	"full_name":  "full_name",
	"email":      "email",
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest creates an unverified account.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	if r.Role == "" {
		r.Role = RoleUser
	}
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.Role, validation.In(RoleUser, RoleHost)),
	))
}

// LoginRequest exchanges credentials for tokens.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	))
}

// VerifyEmailRequest confirms a registration OTP.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *VerifyEmailRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	))
}

// EmailRequest carries only an address (resend OTP, forgot password).
type EmailRequest struct {
	Email string `json:"email"`
}

func (r *EmailRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
	))
}

// ResetPasswordRequest sets a new password using an emailed OTP.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (r *ResetPasswordRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 72)),
	))
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 72)),
	))
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *RefreshRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.RefreshToken, validation.Required),
	))
}

// UpdateProfileRequest is a partial profile update.
type UpdateProfileRequest struct {
	FullName    *string  `json:"full_name"`
	PhoneNumber *string  `json:"phone_number"`
	Address     *string  `json:"address"`
	Bio         *string  `json:"bio"`
	Gender      *string  `json:"gender"`
	DateOfBirth *string  `json:"date_of_birth"`
	Interests   []string `json:"interests"`
}

func (r *UpdateProfileRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.FullName, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&r.Bio, validation.Length(0, 1000)),
		validation.Field(&r.Gender, validation.In("MALE", "FEMALE", "OTHER")),
		validation.Field(&r.DateOfBirth, isDate),
		validation.Field(&r.Interests, validation.Length(0, 20)),
	))
}

// ChangeStatusRequest is the admin block/unblock payload.
type ChangeStatusRequest struct {
	Status UserStatus `json:"status"`
}

func (r *ChangeStatusRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.In(UserActive, UserBlocked)),
	))
}
