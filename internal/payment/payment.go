// Package payment defines the contract the reconciliation flow expects from
// an external payment provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Outcome is the provider's verdict on an intent, reduced to what the
// reconciliation flow acts on.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Metadata keys attached to every intent.
const (
	MetaPaymentID     = "paymentId"
	MetaTransactionID = "transactionId"
	MetaUserID        = "userId"
	MetaEventID       = "eventId"
	MetaEventTitle    = "eventTitle"
)

// IntentRequest asks the provider to prepare a charge.
type IntentRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	Metadata    map[string]string
}

// Intent is the provider-side view of a charge.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Outcome      Outcome
	Metadata     map[string]string
}

// PaymentID returns the local payment id recorded in the intent metadata.
func (i *Intent) PaymentID() string {
	return i.Metadata[MetaPaymentID]
}

// Notification is an authenticated push callback.
type Notification struct {
	EventID string
	Type    string
	// Intent is nil for event types that do not concern payment intents.
	Intent *Intent
}

// ErrInvalidSignature is returned when a callback fails authentication.
var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

// Provider is the external payment service.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	// ParseWebhook verifies and decodes a push callback.
	ParseWebhook(payload []byte, signature string) (*Notification, error)
	PublishableKey() string
}

// MinorUnits converts an amount to the provider's integer minor currency
// unit (cents), rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
