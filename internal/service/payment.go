package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/payment"
)

// PaymentStore is the payment persistence the coordinator needs.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	GetByProviderReference(ctx context.Context, ref string) (*model.Payment, error)
	SetProviderReference(ctx context.Context, id, ref string) error
	MarkFailed(ctx context.Context, id string) (*model.Payment, bool, error)
	List(ctx context.Context, q model.PaymentQuery) ([]model.Payment, int, error)
	Delete(ctx context.Context, id string) error
}

// PaymentLedger applies the seat side of payment transitions.
type PaymentLedger interface {
	CompletePayment(ctx context.Context, paymentID string) (*model.Payment, bool, error)
	RefundPayment(ctx context.Context, paymentID string) (*model.Payment, *model.Event, error)
}

// SeatAuthorizer is the capacity engine as seen by the coordinator.
type SeatAuthorizer interface {
	AuthorizePaid(ctx context.Context, userID, eventID string) (*model.Event, error)
	Recompute(ctx context.Context, ev *model.Event)
}

// Ingress names the path a provider outcome arrived on.
type Ingress string

const (
	IngressWebhook Ingress = "webhook"
	IngressVerify  Ingress = "verify"
	IngressAdmin   Ingress = "admin"
)

const paymentMethod = "stripe"

// PaymentService is the payment reconciliation coordinator. Webhooks,
// client verification and admin overrides all funnel into the same guarded
// transitions, so an outcome applied twice has effect once.
type PaymentService struct {
	payments PaymentStore
	ledger   PaymentLedger
	seats    SeatAuthorizer
	provider payment.Provider
	currency string
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewPaymentService constructs a PaymentService. timeout bounds every
// provider call.
func NewPaymentService(
	payments PaymentStore,
	ledger PaymentLedger,
	seats SeatAuthorizer,
	provider payment.Provider,
	currency string,
	timeout time.Duration,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments, ledger: ledger, seats: seats, provider: provider,
		currency: strings.ToLower(currency), timeout: timeout, log: log, now: time.Now,
	}
}

func providerError(err error) error {
	return apperr.Wrap(apperr.KindUpstream, apperr.CodeProviderUnavailable, "payment provider unavailable, try again", err)
}

// CreatePayment authorizes the caller for a paid event, records a PENDING
// payment and opens a provider intent for it. The provider is called after
// the insert has committed and outside any transaction.
func (s *PaymentService) CreatePayment(ctx context.Context, id auth.Identity, req model.CreatePaymentRequest) (*model.Checkout, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ev, err := s.seats.AuthorizePaid(ctx, id.UserID, req.EventID)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{
		UserID:        id.UserID,
		EventID:       ev.ID,
		Amount:        ev.JoiningFee,
		TransactionID: s.transactionID(),
		PaymentMethod: paymentMethod,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	intent, err := s.createIntent(ctx, p, ev)
	if err != nil {
		if _, _, ferr := s.payments.MarkFailed(ctx, p.ID); ferr != nil {
			s.log.Error("mark payment failed after provider error", "payment_id", p.ID, "error", ferr)
		} else {
			p.Status = model.PaymentFailed
		}
		s.log.Warn("create payment intent", "payment_id", p.ID, "error", err)
		return nil, providerError(err)
	}

	if err := s.payments.SetProviderReference(ctx, p.ID, intent.ID); err != nil {
		return nil, err
	}
	p.ProviderReference = intent.ID
	s.log.Info("payment created",
		"payment_id", p.ID, "transaction_id", p.TransactionID, "event_id", ev.ID, "intent", intent.ID)

	return &model.Checkout{
		Payment:         p,
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		PublishableKey:  s.provider.PublishableKey(),
	}, nil
}

func (s *PaymentService) createIntent(ctx context.Context, p *model.Payment, ev *model.Event) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ProviderLatency.WithLabelValues("create_intent").Observe(time.Since(start).Seconds()) }()

	return s.provider.CreateIntent(ctx, payment.IntentRequest{
		Amount:      p.Amount,
		Currency:    s.currency,
		Description: "Joining fee for " + ev.Title,
		Metadata: map[string]string{
			payment.MetaPaymentID:     p.ID,
			payment.MetaTransactionID: p.TransactionID,
			payment.MetaUserID:        p.UserID,
			payment.MetaEventID:       ev.ID,
			payment.MetaEventTitle:    ev.Title,
		},
	})
}

func (s *PaymentService) getIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	defer func() { metrics.ProviderLatency.WithLabelValues("get_intent").Observe(time.Since(start).Seconds()) }()

	return s.provider.GetIntent(ctx, intentID)
}

// VerifyPayment asks the provider for the intent's current outcome and
// applies it. The caller must own the payment unless they are an admin.
func (s *PaymentService) VerifyPayment(ctx context.Context, id auth.Identity, req model.VerifyPaymentRequest) (*model.VerifyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	intent, err := s.getIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, providerError(err)
	}
	p, err := s.resolve(ctx, intent)
	if err != nil {
		return nil, err
	}
	if p.UserID != id.UserID && !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}

	p, err = s.apply(ctx, p, intent.Outcome, IngressVerify)
	if err != nil {
		return nil, err
	}
	return &model.VerifyResult{ProviderStatus: intent.Status, Payment: p}, nil
}

// HandleWebhook authenticates a provider callback and applies its outcome.
// Callbacks that cannot be matched to a payment, or that arrive for a
// payment already closed the other way, are logged and acknowledged so the
// provider does not keep redelivering them.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	n, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			metrics.Reconciliations.WithLabelValues(string(IngressWebhook), "bad_signature").Inc()
			return apperr.ErrWebhookSignature
		}
		return apperr.Invalid("malformed webhook payload")
	}
	if n.Intent == nil || n.Intent.Outcome == payment.OutcomePending {
		s.log.Debug("webhook ignored", "provider_event", n.EventID, "type", n.Type)
		return nil
	}

	p, err := s.resolve(ctx, n.Intent)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.log.Warn("webhook for unknown payment",
				"provider_event", n.EventID, "intent", n.Intent.ID, "payment_id", n.Intent.PaymentID())
			metrics.Reconciliations.WithLabelValues(string(IngressWebhook), "unknown_payment").Inc()
			return nil
		}
		return err
	}

	_, err = s.apply(ctx, p, n.Intent.Outcome, IngressWebhook)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrEventFull), errors.Is(err, apperr.ErrAlreadyParticipating):
		s.log.Error("confirmed payment has no seat, refund required",
			"payment_id", p.ID, "event_id", p.EventID, "user_id", p.UserID, "error", err)
		return nil
	case errors.Is(err, apperr.ErrPaymentTerminal) && n.Intent.Outcome == payment.OutcomeSucceeded:
		s.log.Error("provider charged a closed payment, refund required",
			"payment_id", p.ID, "status", p.Status, "intent", n.Intent.ID)
		return nil
	case errors.Is(err, apperr.ErrPaymentTerminal), errors.Is(err, apperr.ErrPaymentCompleted):
		s.log.Warn("webhook outcome conflicts with payment state", "payment_id", p.ID, "error", err)
		return nil
	default:
		return err
	}
}

// resolve finds the local payment for an intent: by the id recorded in its
// metadata first, then by the stored provider reference.
func (s *PaymentService) resolve(ctx context.Context, intent *payment.Intent) (*model.Payment, error) {
	if pid := intent.PaymentID(); pid != "" {
		p, err := s.payments.GetByID(ctx, pid)
		if err == nil {
			return p, nil
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
	}
	return s.payments.GetByProviderReference(ctx, intent.ID)
}

// apply moves p according to outcome.
//
//	success on PENDING   -> COMPLETED with seat, ledger row and counter
//	success on COMPLETED -> no effect
//	success on FAILED or REFUNDED -> ErrPaymentTerminal
//	failure on PENDING   -> FAILED
//	failure otherwise    -> no effect
func (s *PaymentService) apply(ctx context.Context, p *model.Payment, outcome payment.Outcome, ingress Ingress) (*model.Payment, error) {
	switch outcome {
	case payment.OutcomeSucceeded:
		done, applied, err := s.ledger.CompletePayment(ctx, p.ID)
		if err != nil {
			metrics.Reconciliations.WithLabelValues(string(ingress), resultLabel(err)).Inc()
			return nil, err
		}
		if !applied {
			metrics.Reconciliations.WithLabelValues(string(ingress), "duplicate").Inc()
			s.log.Info("payment already completed", "payment_id", p.ID, "ingress", ingress)
			return s.detail(ctx, done), nil
		}
		metrics.Reconciliations.WithLabelValues(string(ingress), "completed").Inc()
		s.log.Info("payment completed", "payment_id", p.ID, "event_id", done.EventID, "ingress", ingress)
		return s.detail(ctx, done), nil

	case payment.OutcomeFailed:
		failed, applied, err := s.payments.MarkFailed(ctx, p.ID)
		if err != nil {
			metrics.Reconciliations.WithLabelValues(string(ingress), resultLabel(err)).Inc()
			return nil, err
		}
		if !applied {
			metrics.Reconciliations.WithLabelValues(string(ingress), "ignored").Inc()
			s.log.Info("payment failure ignored", "payment_id", p.ID, "status", failed.Status, "ingress", ingress)
			return s.detail(ctx, failed), nil
		}
		metrics.Reconciliations.WithLabelValues(string(ingress), "failed").Inc()
		s.log.Info("payment failed", "payment_id", p.ID, "ingress", ingress)
		return s.detail(ctx, failed), nil

	default:
		return p, nil
	}
}

// detail reloads p with its user and event summaries; on error p is
// returned as is.
func (s *PaymentService) detail(ctx context.Context, p *model.Payment) *model.Payment {
	full, err := s.payments.GetByID(ctx, p.ID)
	if err != nil {
		return p
	}
	return full
}

// UpdateStatus is the admin override. Completion and failure go through the
// same transitions as provider outcomes; a refund releases the seat.
func (s *PaymentService) UpdateStatus(ctx context.Context, id auth.Identity, paymentID string, req model.UpdatePaymentStatusRequest) (*model.Payment, error) {
	if !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cur, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if cur.Status == req.Status {
		return cur, nil
	}

	switch {
	case cur.Status == model.PaymentPending && req.Status == model.PaymentCompleted:
		return s.apply(ctx, cur, payment.OutcomeSucceeded, IngressAdmin)
	case cur.Status == model.PaymentPending && req.Status == model.PaymentFailed:
		return s.apply(ctx, cur, payment.OutcomeFailed, IngressAdmin)
	case cur.Status == model.PaymentCompleted && req.Status == model.PaymentRefunded:
		refunded, ev, err := s.ledger.RefundPayment(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		metrics.Reconciliations.WithLabelValues(string(IngressAdmin), "refunded").Inc()
		s.log.Info("payment refunded", "payment_id", paymentID, "event_id", refunded.EventID, "by", id.UserID)
		if ev != nil && ev.Status == model.StatusFull {
			s.seats.Recompute(ctx, ev)
		}
		return s.detail(ctx, refunded), nil
	default:
		return nil, apperr.ErrPaymentTransition
	}
}

// GetPayment returns a payment to its payer, the event's host or an admin.
func (s *PaymentService) GetPayment(ctx context.Context, id auth.Identity, paymentID string) (*model.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	switch {
	case id.HasRole(model.RoleAdmin), p.UserID == id.UserID:
		return p, nil
	case id.HasRole(model.RoleHost) && p.Event != nil && p.Event.HostID == id.UserID:
		return p, nil
	}
	return nil, apperr.ErrForbidden
}

// ListPayments lists payments. Hosts see only payments for their own
// events; other non-admins see only their own.
func (s *PaymentService) ListPayments(ctx context.Context, id auth.Identity, q model.PaymentQuery) (model.List[model.Payment], error) {
	switch id.Role {
	case model.RoleAdmin:
	case model.RoleHost:
		q.HostID = id.UserID
	default:
		q.UserID = id.UserID
	}
	q.Page = q.Page.Normalize()
	list, total, err := s.payments.List(ctx, q)
	if err != nil {
		return model.List[model.Payment]{}, err
	}
	return model.NewList(q.Page, total, list), nil
}

// DeletePayment removes a payment record. A seat it paid for is kept.
func (s *PaymentService) DeletePayment(ctx context.Context, id auth.Identity, paymentID string) error {
	if !id.HasRole(model.RoleAdmin) {
		return apperr.ErrForbidden
	}
	if err := s.payments.Delete(ctx, paymentID); err != nil {
		return err
	}
	s.log.Info("payment deleted", "payment_id", paymentID, "by", id.UserID)
	return nil
}

// transactionID returns TXN-<unix millis>-<8 hex chars>.
func (s *PaymentService) transactionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("TXN-%d-%s", s.now().UnixMilli(), strings.ToUpper(suffix))
}
