package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/database"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// LedgerRepository owns the participations table and every transaction that
// adds or releases a seat.
type LedgerRepository struct {
	db *pgxpool.Pool
}

// NewLedgerRepository constructs a LedgerRepository.
func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// takeSeat increments the participant count only while a seat is free and
// flips the event to FULL when the new count reaches the max. Callers may
// append further predicates.
const takeSeat = `
UPDATE events e SET
    current_participants = e.current_participants + 1,
    status = CASE WHEN e.current_participants + 1 >= e.max_participants THEN 'FULL' ELSE e.status END,
    updated_at = now()
WHERE e.id = $1 AND e.current_participants < e.max_participants`

// EnrollFree seats userID in a free event.
//
// The seat is taken by one conditional UPDATE rather than a locked
// read-then-write: the row lock PostgreSQL takes for the UPDATE serialises
// competing enrollments, and the WHERE clause re-evaluates against the
// committed count, so the event can never exceed its max.
//
// Event counter, ledger row and user counter commit together or not at all.
func (r *LedgerRepository) EnrollFree(ctx context.Context, eventID, userID string) (*model.Event, error) {
	var ev *model.Event
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// ── Step 1: take a seat if one is free and the event is joinable. ──
		var err error
		ev, err = scanEvent(tx.QueryRow(ctx,
			takeSeat+` AND e.joining_fee = 0 AND e.status = ANY($2)
			RETURNING `+eventColumns,
			eventID, model.StatusStrings(model.JoinableStatuses),
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return rejectEnrollment(ctx, tx, eventID)
			}
			if nf := missing(err, apperr.ErrEventNotFound); nf != nil {
				return nf
			}
			return fmt.Errorf("take seat: %w", err)
		}

		// ── Step 2: record the ledger row; a second row means a repeat. ──
		if err := insertParticipation(ctx, tx, eventID, userID, model.SourceFree, nil); err != nil {
			return err
		}

		// ── Step 3: lifetime counter on the user. ──
		return bumpParticipated(ctx, tx, userID, 1)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// rejectEnrollment explains why the guarded seat UPDATE matched nothing,
// reading the row under FOR UPDATE so the answer is not stale.
func rejectEnrollment(ctx context.Context, tx pgx.Tx, eventID string) error {
	ev, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1 FOR UPDATE`, eventID,
	))
	if err != nil {
		if nf := missing(err, apperr.ErrEventNotFound); nf != nil {
			return nf
		}
		return fmt.Errorf("lock event row: %w", err)
	}
	if err := EnrollmentError(ev); err != nil {
		return err
	}
	return apperr.ErrEventNotJoinable
}

// EnrollmentError returns the error a free enrollment into ev fails with,
// or nil if a seat is available. Checks run in a fixed order: fee, status,
// capacity.
func EnrollmentError(ev *model.Event) error {
	switch {
	case !ev.IsFree():
		return apperr.ErrEventRequiresPayment
	case ev.Status == model.StatusFull:
		return apperr.ErrEventFull
	case !ev.Status.Joinable():
		return apperr.ErrEventNotJoinable
	case ev.IsFull():
		return apperr.ErrEventFull
	}
	return nil
}

func insertParticipation(ctx context.Context, tx pgx.Tx, eventID, userID string, src model.ParticipationSource, paymentID *string) error {
	tag, err := tx.Exec(ctx,
		`INSERT INTO participations (event_id, user_id, source, payment_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_id, user_id) DO NOTHING`,
		eventID, userID, src, paymentID,
	)
	if err != nil {
		return fmt.Errorf("insert participation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrAlreadyParticipating
	}
	return nil
}

func bumpParticipated(ctx context.Context, tx pgx.Tx, userID string, delta int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE users SET participated_events = GREATEST(participated_events + $2, 0), updated_at = now()
		 WHERE id = $1`,
		userID, delta,
	)
	if err != nil {
		return fmt.Errorf("update participated_events: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

// IsParticipant reports whether userID holds a seat in eventID.
func (r *LedgerRepository) IsParticipant(ctx context.Context, eventID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM participations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&ok)
	if err != nil {
		if nf := missing(err, apperr.ErrEventNotFound); nf != nil {
			return false, nil
		}
		return false, fmt.Errorf("check participation: %w", err)
	}
	return ok, nil
}

// ListByEvent returns the ledger rows of an event, oldest first.
func (r *LedgerRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Participation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id, user_id, source, payment_id, created_at
		 FROM participations WHERE event_id = $1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	var out []model.Participation
	for rows.Next() {
		var p model.Participation
		if err := rows.Scan(&p.EventID, &p.UserID, &p.Source, &p.PaymentID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CompletePayment promotes a PENDING payment to COMPLETED and seats its
// user. It reports whether effects were applied: a payment that is already
// COMPLETED is returned unchanged with applied=false, so repeated
// confirmations credit the seat once.
//
// Payment status, seat, ledger row and user counter commit together. If the
// event has no free seat the whole transaction rolls back and the payment
// stays PENDING.
func (r *LedgerRepository) CompletePayment(ctx context.Context, paymentID string) (p *model.Payment, applied bool, err error) {
	err = database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// ── Step 1: claim the transition. Only one caller can win it. ──
		claimed, err := scanPayment(tx.QueryRow(ctx,
			`UPDATE payments SET status = 'COMPLETED', updated_at = now()
			 WHERE id = $1 AND status = 'PENDING'
			 RETURNING `+paymentColumns,
			paymentID,
		))
		if err != nil {
			if database.IsUniqueViolation(err, "payments_one_completed_idx") {
				return apperr.ErrPaymentCompleted
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
					return nf
				}
				return fmt.Errorf("claim payment: %w", err)
			}
			cur, err := getPayment(ctx, tx, paymentID)
			if err != nil {
				return err
			}
			if cur.Status != model.PaymentCompleted {
				return apperr.ErrPaymentTerminal
			}
			p = cur
			return nil
		}

		// ── Step 2: take the seat. ──
		tag, err := tx.Exec(ctx, takeSeat, claimed.EventID)
		if err != nil {
			return fmt.Errorf("take seat: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrEventFull
		}

		// ── Step 3: ledger row linked to the payment. ──
		if err := insertParticipation(ctx, tx, claimed.EventID, claimed.UserID, model.SourcePaid, &claimed.ID); err != nil {
			return err
		}

		// ── Step 4: lifetime counter on the user. ──
		if err := bumpParticipated(ctx, tx, claimed.UserID, 1); err != nil {
			return err
		}
		p, applied = claimed, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return p, applied, nil
}

// RefundPayment moves a COMPLETED payment to REFUNDED and releases the seat
// it paid for. The event is returned as it stands after the release.
func (r *LedgerRepository) RefundPayment(ctx context.Context, paymentID string) (*model.Payment, *model.Event, error) {
	var (
		p  *model.Payment
		ev *model.Event
	)
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		p, err = scanPayment(tx.QueryRow(ctx,
			`UPDATE payments SET status = 'REFUNDED', updated_at = now()
			 WHERE id = $1 AND status = 'COMPLETED'
			 RETURNING `+paymentColumns,
			paymentID,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				if _, err := getPayment(ctx, tx, paymentID); err != nil {
					return err
				}
				return apperr.ErrPaymentTransition
			}
			if nf := missing(err, apperr.ErrPaymentNotFound); nf != nil {
				return nf
			}
			return fmt.Errorf("refund payment: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM participations WHERE event_id = $1 AND user_id = $2 AND source = 'PAID'`,
			p.EventID, p.UserID,
		)
		if err != nil {
			return fmt.Errorf("delete participation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			ev, err = scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, p.EventID))
			if err != nil {
				return fmt.Errorf("get event: %w", err)
			}
			return nil
		}

		ev, err = scanEvent(tx.QueryRow(ctx,
			`UPDATE events e SET current_participants = e.current_participants - 1, updated_at = now()
			 WHERE e.id = $1 AND e.current_participants > 0
			 RETURNING `+eventColumns,
			p.EventID,
		))
		if err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
		return bumpParticipated(ctx, tx, p.UserID, -1)
	})
	if err != nil {
		return nil, nil, err
	}
	return p, ev, nil
}
