// Package stripe implements payment.Provider on Stripe PaymentIntents.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Shivanand-hulikatti/eventhub/internal/payment"
)

// Config holds the Stripe credentials and transport settings.
type Config struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Timeout        time.Duration
	// BaseURL overrides the API endpoint; empty means api.stripe.com.
	BaseURL string
}

// Provider talks to Stripe.
type Provider struct {
	api *client.API
	cfg Config
}

// New builds a Provider. Requests are never retried by the client library;
// callers recover through verification instead.
func New(cfg Config) *Provider {
	bc := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		bc.URL = stripe.String(cfg.BaseURL)
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, bc),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, bc),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, bc),
	})
	return &Provider{api: api, cfg: cfg}
}

var _ payment.Provider = (*Provider)(nil)

// CreateIntent creates a PaymentIntent with automatic payment methods.
func (p *Provider) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(payment.MinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return toIntent(pi), nil
}

// GetIntent fetches a PaymentIntent by id.
func (p *Provider) GetIntent(ctx context.Context, id string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent: %w", err)
	}
	return toIntent(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (p *Provider) ParseWebhook(payload []byte, signature string) (*payment.Notification, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	n := &payment.Notification{EventID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil || !strings.HasPrefix(n.Type, "payment_intent.") {
		return n, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	// The outcome follows the intent status, as on the verify path. A failed
	// attempt leaves the intent open for a retry, so it stays pending.
	n.Intent = toIntent(&pi)
	return n, nil
}

// PublishableKey is handed to clients to confirm intents.
func (p *Provider) PublishableKey() string {
	return p.cfg.PublishableKey
}

func toIntent(pi *stripe.PaymentIntent) *payment.Intent {
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Outcome:      OutcomeOf(pi.Status),
		Metadata:     pi.Metadata,
	}
}

// OutcomeOf maps a PaymentIntent status onto a reconciliation outcome.
func OutcomeOf(s stripe.PaymentIntentStatus) payment.Outcome {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return payment.OutcomeSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return payment.OutcomeFailed
	default:
		return payment.OutcomePending
	}
}
