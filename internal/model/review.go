package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Review is a rating left by a participant on an event.
type Review struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	EventID   string       `json:"event_id"`
	Rating    int          `json:"rating"`
	Comment   string       `json:"comment"`
	User      *UserSummary `json:"user,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ReviewQuery filters review listings.
type ReviewQuery struct {
	Page
	EventID string
	UserID  string
	HostID  string
}

// ReviewSortColumns maps API sort fields to columns.
var ReviewSortColumns = map[string]string{
	"created_at": "created_at",
	"rating":     "rating",
}

// HostRating aggregates the reviews across a host's events.
type HostRating struct {
	HostID        string          `json:"host_id"`
	HostName      string          `json:"host_name"`
	TotalEvents   int             `json:"total_events"`
	TotalReviews  int             `json:"total_reviews"`
	AverageRating decimal.Decimal `json:"average_rating"`
}

type CreateReviewRequest struct {
	EventID string `json:"event_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r *CreateReviewRequest) Validate() error {
	r.Comment = strings.TrimSpace(r.Comment)
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.EventID, validation.Required),
		validation.Field(&r.Rating, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&r.Comment, validation.Length(0, 2000)),
	))
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (r *UpdateReviewRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Rating, validation.NilOrNotEmpty, validation.Min(1), validation.Max(5)),
		validation.Field(&r.Comment, validation.Length(0, 2000)),
	))
}

// Favourite is a bookmarked event.
type Favourite struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Event     *Event    `json:"event,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type FavouriteRequest struct {
	EventID string `json:"event_id"`
}

func (r *FavouriteRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.EventID, validation.Required),
	))
}

// HostRequest is a user's application to become a host.
type HostRequest struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	HostExperience string       `json:"host_experience"`
	TypeOfEvents   string       `json:"type_of_events"`
	WhyHost        string       `json:"why_host"`
	Approved       bool         `json:"approved"`
	User           *UserSummary `json:"user,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type HostRequestInput struct {
	// UserID is read only on the admin route, which files on a user's behalf.
	UserID         string `json:"user_id,omitempty"`
	HostExperience string `json:"host_experience"`
	TypeOfEvents   string `json:"type_of_events"`
	WhyHost        string `json:"why_host"`
}

func (r *HostRequestInput) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.HostExperience, validation.Required, validation.Length(1, 2000)),
		validation.Field(&r.TypeOfEvents, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.WhyHost, validation.Required, validation.Length(1, 2000)),
	))
}

// HostDecision approves or revokes a host request.
type HostDecision struct {
	ApproveHost *bool `json:"approve_host"`
}

func (r *HostDecision) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.ApproveHost, validation.NotNil),
	))
}

// HostRequestQuery filters host request listings.
type HostRequestQuery struct {
	Page
	Approved *bool
}
