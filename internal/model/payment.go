package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment is one attempt by a user to pay an event's joining fee.
type Payment struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	EventID           string          `json:"event_id"`
	Amount            decimal.Decimal `json:"amount"`
	TransactionID     string          `json:"transaction_id"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	PaymentMethod     string          `json:"payment_method"`
	Status            PaymentStatus   `json:"status"`
	User              *UserSummary    `json:"user,omitempty"`
	Event             *EventSummary   `json:"event,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ParticipationSource records how a ledger entry was created.
type ParticipationSource string

const (
	SourceFree ParticipationSource = "FREE"
	SourcePaid ParticipationSource = "PAID"
)

// Participation is one row of the (event, user) participation ledger.
type Participation struct {
	EventID   string              `json:"event_id"`
	UserID    string              `json:"user_id"`
	Source    ParticipationSource `json:"source"`
	PaymentID *string             `json:"payment_id,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Checkout is returned when a payment is initiated.
type Checkout struct {
	Payment         *Payment `json:"payment"`
	ClientSecret    string   `json:"client_secret"`
	PaymentIntentID string   `json:"payment_intent_id"`
	PublishableKey  string   `json:"publishable_key"`
}

// VerifyResult reports a provider lookup and the resulting local state.
type VerifyResult struct {
	ProviderStatus string   `json:"provider_status"`
	Payment        *Payment `json:"payment"`
}

// PaymentQuery filters payment listings.
type PaymentQuery struct {
	Page
	Status  PaymentStatus
	EventID string
	UserID  string
	// HostID restricts to payments for events hosted by this user.
	HostID string
}

// PaymentSortColumns maps API sort fields to columns.
var PaymentSortColumns = map[string]string{
	"created_at": "created_at",
	"amount":     "amount",
	"status":     "status",
}

// PaymentStats summarises revenue.
type PaymentStats struct {
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	CurrentMonthRevenue    decimal.Decimal `json:"current_month_revenue"`
	TotalPendingPayments   int             `json:"total_pending_payments"`
	AveragePerEventRevenue decimal.Decimal `json:"average_per_event_revenue"`
}

// CreatePaymentRequest starts a checkout for a paid event.
type CreatePaymentRequest struct {
	EventID string `json:"event_id"`
}

func (r *CreatePaymentRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.EventID, validation.Required),
	))
}

// VerifyPaymentRequest asks the provider for an intent's current status.
type VerifyPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

func (r *VerifyPaymentRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.PaymentIntentID, validation.Required),
	))
}

// UpdatePaymentStatusRequest is the admin status override.
type UpdatePaymentStatusRequest struct {
	Status PaymentStatus `json:"status"`
}

func (r *UpdatePaymentStatusRequest) Validate() error {
	return validationError(validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required,
			validation.In(PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded)),
	))
}
