package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

const paymentColumns = `id, user_id, event_id, amount, transaction_id, provider_reference,
	payment_method, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.EventID, &p.Amount, &p.TransactionID, &p.ProviderReference,
		&p.PaymentMethod, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func getPayment(ctx context.Context, q querier, id string) (*model.Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// PaymentRepository handles persistence for payments.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a PENDING payment. ID, status and timestamps are filled in.
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	p.ID = uuid.New().String()
	p.Status = model.PaymentPending
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		p.ID, p.UserID, p.EventID, p.Amount, p.TransactionID, p.ProviderReference,
		p.PaymentMethod, p.Status, now,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID returns a payment with its user and event summaries.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	rows, err := r.db.Query(ctx, paymentDetailSelect+` WHERE p.id = $1`, id)
	if err != nil {
		if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	list, err := collectPaymentDetails(rows)
	if err != nil {
		if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
			return nil, nf
		}
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperr.ErrPaymentNotFound
	}
	return &list[0], nil
}

// GetByProviderReference resolves a payment by the provider's intent id.
func (r *PaymentRepository) GetByProviderReference(ctx context.Context, ref string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_reference = $1 AND provider_reference <> ''`,
		ref,
	))
	if err != nil {
		if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get payment by reference: %w", err)
	}
	return p, nil
}

// SetProviderReference stores the provider intent id on a payment.
func (r *PaymentRepository) SetProviderReference(ctx context.Context, id, ref string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE payments SET provider_reference = $2, updated_at = now() WHERE id = $1`,
		id, ref,
	)
	if err != nil {
		return fmt.Errorf("set provider reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrPaymentNotFound
	}
	return nil
}

// MarkFailed moves a PENDING payment to FAILED. Payments in any other state
// are returned unchanged with applied=false.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string) (*model.Payment, bool, error) {
	p, err := scanPayment(r.db.QueryRow(ctx,
		`UPDATE payments SET status = 'FAILED', updated_at = now()
		 WHERE id = $1 AND status = 'PENDING'
		 RETURNING `+paymentColumns,
		id,
	))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
			return nil, false, nf
		}
		return nil, false, fmt.Errorf("fail payment: %w", err)
	}
	cur, err := getPayment(ctx, r.db, id)
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

// HasCompleted reports whether the user already has a COMPLETED payment for
// the event.
func (r *PaymentRepository) HasCompleted(ctx context.Context, userID, eventID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE user_id = $1 AND event_id = $2 AND status = 'COMPLETED')`,
		userID, eventID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check completed payment: %w", err)
	}
	return ok, nil
}

// List returns one page of payments matching q.
func (r *PaymentRepository) List(ctx context.Context, q model.PaymentQuery) ([]model.Payment, int, error) {
	page := q.Page.Normalize()
	var w where
	if q.Status != "" {
		w.add("p.status = ?", q.Status)
	}
	if q.EventID != "" {
		w.add("p.event_id = ?", q.EventID)
	}
	if q.UserID != "" {
		w.add("p.user_id = ?", q.UserID)
	}
	if q.HostID != "" {
		w.add("e.host_id = ?", q.HostID)
	}

	total, err := count(ctx, r.db,
		`SELECT COUNT(*) FROM payments p JOIN events e ON e.id = p.event_id`+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	sql := paymentDetailSelect + w.String() +
		orderBy("p."+page.SortColumn(model.PaymentSortColumns), page.SortOrder) +
		` LIMIT ` + w.next(page.Limit) + ` OFFSET ` + w.next(page.Offset())
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	list, err := collectPaymentDetails(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Delete removes a payment record.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
			return nf
		}
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrPaymentNotFound
	}
	return nil
}

const paymentDetailSelect = `
SELECT p.id, p.user_id, p.event_id, p.amount, p.transaction_id, p.provider_reference,
       p.payment_method, p.status, p.created_at, p.updated_at,
       u.id, u.full_name, u.email, u.profile_photo,
       e.id, e.title, e.joining_fee, e.date, e.location, e.host_id
FROM payments p
JOIN users u ON u.id = p.user_id
JOIN events e ON e.id = p.event_id`

func collectPaymentDetails(rows pgx.Rows) ([]model.Payment, error) {
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		var (
			p  model.Payment
			u  model.UserSummary
			ev model.EventSummary
		)
		err := rows.Scan(&p.ID, &p.UserID, &p.EventID, &p.Amount, &p.TransactionID, &p.ProviderReference,
			&p.PaymentMethod, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&u.ID, &u.FullName, &u.Email, &u.ProfilePhoto,
			&ev.ID, &ev.Title, &ev.JoiningFee, &ev.Date, &ev.Location, &ev.HostID)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.User, p.Event = &u, &ev
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// Revenue sums COMPLETED payment amounts, optionally for one host's events
// and optionally from a start time.
func (r *PaymentRepository) Revenue(ctx context.Context, hostID string, since time.Time) (decimal.Decimal, error) {
	var w where
	w.add("p.status = 'COMPLETED'")
	if hostID != "" {
		w.add("e.host_id = ?", hostID)
	}
	if !since.IsZero() {
		w.add("p.created_at >= ?", since)
	}
	var total decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(p.amount), 0) FROM payments p JOIN events e ON e.id = p.event_id`+w.String(),
		w.args...,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}
