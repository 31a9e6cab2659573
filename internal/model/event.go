package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusPending   EventStatus = "PENDING"
	StatusOpen      EventStatus = "OPEN"
	StatusUpcoming  EventStatus = "UPCOMING"
	StatusOngoing   EventStatus = "ONGOING"
	StatusFull      EventStatus = "FULL"
	StatusCompleted EventStatus = "COMPLETED"
	StatusCancelled EventStatus = "CANCELLED"
	StatusClosed    EventStatus = "CLOSED"
)

// AllEventStatuses lists every status in declaration order.
var AllEventStatuses = []EventStatus{
	StatusPending, StatusOpen, StatusUpcoming, StatusOngoing,
	StatusFull, StatusCompleted, StatusCancelled, StatusClosed,
}

// MutableStatuses are the statuses the status sweep may change.
var MutableStatuses = []EventStatus{StatusOpen, StatusOngoing, StatusUpcoming, StatusFull}

// JoinableStatuses accept new participants.
var JoinableStatuses = []EventStatus{StatusOpen, StatusOngoing}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	return containsStatus(AllEventStatuses, s)
}

// Joinable reports whether participants may be added in this status.
func (s EventStatus) Joinable() bool {
	return containsStatus(JoinableStatuses, s)
}

// Mutable reports whether the status sweep may move the event out of s.
func (s EventStatus) Mutable() bool {
	return containsStatus(MutableStatuses, s)
}

// Terminal reports whether no automatic transition leaves s.
func (s EventStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusClosed
}

func containsStatus(set []EventStatus, s EventStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// StatusStrings converts statuses to plain strings for SQL parameters.
func StatusStrings(statuses []EventStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// EventVersion is the part of an event an edit's derived status depends on.
type EventVersion struct {
	Status              EventStatus
	CurrentParticipants int
}

// Event is a hostable, joinable activity with capacity bounds.
type Event struct {
	ID                  string          `json:"id"`
	HostID              string          `json:"host_id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Category            string          `json:"category"`
	Date                time.Time       `json:"date"`
	Time                string          `json:"time"`
	Location            string          `json:"location"`
	ImageURL            string          `json:"image_url,omitempty"`
	MinParticipants     int             `json:"min_participants"`
	MaxParticipants     int             `json:"max_participants"`
	CurrentParticipants int             `json:"current_participants"`
	JoiningFee          decimal.Decimal `json:"joining_fee"`
	Status              EventStatus     `json:"status"`
	Host                *UserSummary    `json:"host,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.MaxParticipants - e.CurrentParticipants
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.CurrentParticipants >= e.MaxParticipants
}

// IsFree reports whether joining costs nothing.
func (e *Event) IsFree() bool {
	return !e.JoiningFee.IsPositive()
}

// EventSummary is the slice of an event embedded in payment responses.
type EventSummary struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	JoiningFee decimal.Decimal `json:"joining_fee"`
	Date       time.Time       `json:"date"`
	Location   string          `json:"location"`
	HostID     string          `json:"host_id"`
}

// StatusChange is one pending status write produced by a sweep.
type StatusChange struct {
	EventID string
	From    EventStatus
	To      EventStatus
}

// EventQuery filters event listings.
type EventQuery struct {
	Page
	SearchTerm string
	Category   string
	Location   string
	Status     EventStatus
	HostID     string
}

// EventSortColumns maps API sort fields to columns.
var EventSortColumns = map[string]string{
	"created_at":  "created_at",
	"date":        "date",
	"title":       "title",
	"joining_fee": "joining_fee",
}

// EventStats counts events per status.
type EventStats struct {
	TotalEvents     int `json:"total_events"`
	TotalOpen       int `json:"total_open_events"`
	TotalFull       int `json:"total_full_events"`
	TotalCompleted  int `json:"total_completed_events"`
	TotalUpcoming   int `json:"total_upcoming_events"`
	TotalOngoing    int `json:"total_ongoing_events"`
	TotalCancelled  int `json:"total_cancelled_events"`
	TotalClosed     int `json:"total_closed_events"`
	TotalPendingNew int `json:"total_pending_events"`
}

// NewEventStats folds per-status counts into EventStats.
func NewEventStats(counts map[EventStatus]int) EventStats {
	var st EventStats
	for status, n := range counts {
		st.TotalEvents += n
		switch status {
		case StatusOpen:
			st.TotalOpen = n
		case StatusFull:
			st.TotalFull = n
		case StatusCompleted:
			st.TotalCompleted = n
		case StatusUpcoming:
			st.TotalUpcoming = n
		case StatusOngoing:
			st.TotalOngoing = n
		case StatusCancelled:
			st.TotalCancelled = n
		case StatusClosed:
			st.TotalClosed = n
		case StatusPending:
			st.TotalPendingNew = n
		}
	}
	return st
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Location        string          `json:"location"`
	MinParticipants int             `json:"min_participants"`
	MaxParticipants int             `json:"max_participants"`
	JoiningFee      decimal.Decimal `json:"joining_fee"`
}

// Validate checks the request and normalises whitespace.
func (r *CreateEventRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Category = strings.TrimSpace(r.Category)
	r.Location = strings.TrimSpace(r.Location)
	if r.MinParticipants == 0 {
		r.MinParticipants = 1
	}
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.Date, validation.Required, isDate),
		validation.Field(&r.Time, validation.Required),
		validation.Field(&r.Location, validation.Required),
		validation.Field(&r.MinParticipants, validation.Min(1)),
		validation.Field(&r.MaxParticipants, validation.Required, validation.Min(r.MinParticipants), validation.Max(100_000)),
		validation.Field(&r.JoiningFee, validation.By(nonNegativeDecimal)),
	))
}

// UpdateEventRequest is the payload for a partial event update.
type UpdateEventRequest struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	Date            *string          `json:"date"`
	Time            *string          `json:"time"`
	Location        *string          `json:"location"`
	MinParticipants *int             `json:"min_participants"`
	MaxParticipants *int             `json:"max_participants"`
	JoiningFee      *decimal.Decimal `json:"joining_fee"`
	Status          *EventStatus     `json:"status"`
}

// Validate checks the fields that are present.
func (r *UpdateEventRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Date, validation.NilOrNotEmpty, isDate),
		validation.Field(&r.MinParticipants, validation.Min(1)),
		validation.Field(&r.MaxParticipants, validation.Min(1), validation.Max(100_000)),
		validation.Field(&r.JoiningFee, validation.By(nonNegativeDecimal)),
		validation.Field(&r.Status, validation.By(func(v any) error {
			s, _ := v.(*EventStatus)
			if s != nil && !s.Valid() {
				return validation.NewError("validation_invalid_status", "must be a valid event status")
			}
			return nil
		})),
	))
}

func nonNegativeDecimal(v any) error {
	var d decimal.Decimal
	switch x := v.(type) {
	case decimal.Decimal:
		d = x
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		d = *x
	default:
		return nil
	}
	if d.IsNegative() {
		return validation.NewError("validation_negative", "must not be negative")
	}
	return nil
}
