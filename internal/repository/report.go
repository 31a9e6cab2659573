package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// ReportRepository runs the aggregate queries behind the dashboards.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// CountUsersByRole counts non-deleted users per role.
func (r *ReportRepository) CountUsersByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users WHERE NOT is_deleted GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	defer rows.Close()

	out := make(map[model.Role]int)
	for rows.Next() {
		var (
			role model.Role
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		out[role] = n
	}
	return out, rows.Err()
}

// HostActivity returns the events a host created overall and since, plus
// the average rating across them.
func (r *ReportRepository) HostActivity(ctx context.Context, hostID string, since time.Time) (total, recent int, avg decimal.Decimal, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $2),
		        COALESCE((SELECT ROUND(AVG(rv.rating), 2) FROM reviews rv
		                  JOIN events e2 ON e2.id = rv.event_id WHERE e2.host_id = $1), 0)
		 FROM events WHERE host_id = $1`,
		hostID, since,
	).Scan(&total, &recent, &avg)
	if err != nil {
		return 0, 0, decimal.Zero, fmt.Errorf("host activity: %w", err)
	}
	return total, recent, avg, nil
}

// UserActivity returns seats a user took overall and since, and the count
// and average of reviews they wrote.
func (r *ReportRepository) UserActivity(ctx context.Context, userID string, since time.Time) (total, recent, reviews int, avg decimal.Decimal, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM participations WHERE user_id = $1),
		    (SELECT COUNT(*) FROM participations WHERE user_id = $1 AND created_at >= $2),
		    (SELECT COUNT(*) FROM reviews WHERE user_id = $1),
		    (SELECT COALESCE(ROUND(AVG(rating), 2), 0) FROM reviews WHERE user_id = $1)`,
		userID, since,
	).Scan(&total, &recent, &reviews, &avg)
	if err != nil {
		return 0, 0, 0, decimal.Zero, fmt.Errorf("user activity: %w", err)
	}
	return total, recent, reviews, avg, nil
}

// AverageHostRating averages all review ratings on all events.
func (r *ReportRepository) AverageHostRating(ctx context.Context) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(ROUND(AVG(rating), 2), 0) FROM reviews`).Scan(&avg)
	if err != nil {
		return decimal.Zero, fmt.Errorf("average host rating: %w", err)
	}
	return avg, nil
}

// PaymentCounts returns the number of PENDING payments and of distinct
// events with at least one COMPLETED payment.
func (r *ReportRepository) PaymentCounts(ctx context.Context) (pending, paidEvents int, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = 'PENDING'),
		        COUNT(DISTINCT event_id) FILTER (WHERE status = 'COMPLETED')
		 FROM payments`,
	).Scan(&pending, &paidEvents)
	if err != nil {
		return 0, 0, fmt.Errorf("payment counts: %w", err)
	}
	return pending, paidEvents, nil
}
