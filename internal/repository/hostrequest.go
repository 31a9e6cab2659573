package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/database"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

const hostRequestSelect = `
SELECT h.id, h.user_id, h.host_experience, h.type_of_events, h.why_host, h.approved,
       h.created_at, h.updated_at,
       u.id, u.full_name, u.email, u.profile_photo, u.role
FROM host_requests h
JOIN users u ON u.id = h.user_id`

func scanHostRequest(row pgx.Row) (*model.HostRequest, error) {
	var (
		h model.HostRequest
		u model.UserSummary
	)
	err := row.Scan(&h.ID, &h.UserID, &h.HostExperience, &h.TypeOfEvents, &h.WhyHost, &h.Approved,
		&h.CreatedAt, &h.UpdatedAt,
		&u.ID, &u.FullName, &u.Email, &u.ProfilePhoto, &u.Role)
	if err != nil {
		return nil, err
	}
	h.User = &u
	return &h, nil
}

// HostRequestRepository handles applications to become a host.
type HostRequestRepository struct {
	db *pgxpool.Pool
}

// NewHostRequestRepository constructs a HostRequestRepository.
func NewHostRequestRepository(db *pgxpool.Pool) *HostRequestRepository {
	return &HostRequestRepository{db: db}
}

// Create inserts a request. When h.Approved is set the user is promoted to
// HOST in the same transaction.
func (r *HostRequestRepository) Create(ctx context.Context, h *model.HostRequest) error {
	h.ID = uuid.New().String()
	now := time.Now().UTC()
	h.CreatedAt, h.UpdatedAt = now, now

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO host_requests (id, user_id, host_experience, type_of_events, why_host, approved, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			h.ID, h.UserID, h.HostExperience, h.TypeOfEvents, h.WhyHost, h.Approved, now,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "") {
				return apperr.ErrHostRequestExists
			}
			return fmt.Errorf("insert host request: %w", err)
		}
		if h.Approved {
			return setRole(ctx, tx, h.UserID, model.RoleHost)
		}
		return nil
	})
}

// GetByID returns a request with its applicant.
func (r *HostRequestRepository) GetByID(ctx context.Context, id string) (*model.HostRequest, error) {
	h, err := scanHostRequest(r.db.QueryRow(ctx, hostRequestSelect+` WHERE h.id = $1`, id))
	if err != nil {
		if nf := missing(err, apperr.ErrHostRequestNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get host request: %w", err)
	}
	return h, nil
}

// List returns one page of requests, optionally filtered by approval.
func (r *HostRequestRepository) List(ctx context.Context, q model.HostRequestQuery) ([]model.HostRequest, int, error) {
	page := q.Page.Normalize()
	var w where
	if q.Approved != nil {
		w.add("h.approved = ?", *q.Approved)
	}
	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM host_requests h`+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count host requests: %w", err)
	}
	sql := hostRequestSelect + w.String() + orderBy("h.created_at", page.SortOrder) +
		` LIMIT ` + w.next(page.Limit) + ` OFFSET ` + w.next(page.Offset())
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list host requests: %w", err)
	}
	defer rows.Close()

	var out []model.HostRequest
	for rows.Next() {
		h, err := scanHostRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan host request: %w", err)
		}
		out = append(out, *h)
	}
	return out, total, rows.Err()
}

// SetApproval records the decision and sets the applicant's role to HOST on
// approval or back to USER on revocation.
func (r *HostRequestRepository) SetApproval(ctx context.Context, id string, approved bool) (*model.HostRequest, error) {
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx,
			`UPDATE host_requests SET approved = $2, updated_at = now() WHERE id = $1 RETURNING user_id`,
			id, approved,
		).Scan(&userID)
		if err != nil {
			if nf := missing(err, apperr.ErrHostRequestNotFound); nf != nil {
				return nf
			}
			return fmt.Errorf("update host request: %w", err)
		}
		role := model.RoleUser
		if approved {
			role = model.RoleHost
		}
		return setRole(ctx, tx, userID, role)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a request.
func (r *HostRequestRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM host_requests WHERE id = $1`, id)
	if err != nil {
		if nf := missing(err, apperr.ErrHostRequestNotFound); nf != nil {
			return nf
		}
		return fmt.Errorf("delete host request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrHostRequestNotFound
	}
	return nil
}

// Count returns the number of requests ever filed.
func (r *HostRequestRepository) Count(ctx context.Context) (int, error) {
	n, err := count(ctx, r.db, `SELECT COUNT(*) FROM host_requests`)
	if err != nil {
		return 0, fmt.Errorf("count host requests: %w", err)
	}
	return n, nil
}

// Admins never lose their role through a host decision.
func setRole(ctx context.Context, tx pgx.Tx, userID string, role model.Role) error {
	_, err := tx.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1 AND role <> 'ADMIN'`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return nil
}
