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

const reviewSelect = `
SELECT rv.id, rv.user_id, rv.event_id, rv.rating, rv.comment, rv.created_at, rv.updated_at,
       u.id, u.full_name, u.email, u.profile_photo
FROM reviews rv
JOIN users u ON u.id = rv.user_id
JOIN events e ON e.id = rv.event_id`

func scanReview(row pgx.Row) (*model.Review, error) {
	var (
		rv model.Review
		u  model.UserSummary
	)
	err := row.Scan(&rv.ID, &rv.UserID, &rv.EventID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt,
		&u.ID, &u.FullName, &u.Email, &u.ProfilePhoto)
	if err != nil {
		return nil, err
	}
	rv.User = &u
	return &rv, nil
}

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	db *pgxpool.Pool
}

// NewReviewRepository constructs a ReviewRepository.
func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts rv and bumps the review_count of the event's host in the
// same transaction.
func (r *ReviewRepository) Create(ctx context.Context, rv *model.Review, hostID string) error {
	rv.ID = uuid.New().String()
	now := time.Now().UTC()
	rv.CreatedAt, rv.UpdatedAt = now, now

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO reviews (id, user_id, event_id, rating, comment, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			rv.ID, rv.UserID, rv.EventID, rv.Rating, rv.Comment, now,
		)
		if err != nil {
			if database.IsUniqueViolation(err, "reviews_user_event_key") {
				return apperr.ErrReviewExists
			}
			return fmt.Errorf("insert review: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE users SET review_count = review_count + 1, updated_at = now() WHERE id = $1`, hostID)
		if err != nil {
			return fmt.Errorf("increment review_count: %w", err)
		}
		return nil
	})
}

// GetByID returns a review with its author.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*model.Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, reviewSelect+` WHERE rv.id = $1`, id))
	if err != nil {
		if nf := missing(err, apperr.ErrReviewNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

// List returns one page of reviews matching q.
func (r *ReviewRepository) List(ctx context.Context, q model.ReviewQuery) ([]model.Review, int, error) {
	page := q.Page.Normalize()
	var w where
	if q.EventID != "" {
		w.add("rv.event_id = ?", q.EventID)
	}
	if q.UserID != "" {
		w.add("rv.user_id = ?", q.UserID)
	}
	if q.HostID != "" {
		w.add("e.host_id = ?", q.HostID)
	}

	total, err := count(ctx, r.db,
		`SELECT COUNT(*) FROM reviews rv JOIN events e ON e.id = rv.event_id`+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}
	sql := reviewSelect + w.String() +
		orderBy("rv."+page.SortColumn(model.ReviewSortColumns), page.SortOrder) +
		` LIMIT ` + w.next(page.Limit) + ` OFFSET ` + w.next(page.Offset())
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	return reviews, total, rows.Err()
}

// Update writes rating and comment.
func (r *ReviewRepository) Update(ctx context.Context, rv *model.Review) error {
	err := r.db.QueryRow(ctx,
		`UPDATE reviews SET rating = $2, comment = $3, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		rv.ID, rv.Rating, rv.Comment,
	).Scan(&rv.UpdatedAt)
	if err != nil {
		if nf := missing(err, apperr.ErrReviewNotFound); nf != nil {
			return nf
		}
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// Delete removes a review and decrements its host's review_count.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var hostID string
		err := tx.QueryRow(ctx,
			`DELETE FROM reviews rv USING events e
			 WHERE rv.id = $1 AND e.id = rv.event_id
			 RETURNING e.host_id`,
			id,
		).Scan(&hostID)
		if err != nil {
			if nf := missing(err, apperr.ErrReviewNotFound); nf != nil {
				return nf
			}
			return fmt.Errorf("delete review: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE users SET review_count = GREATEST(review_count - 1, 0), updated_at = now() WHERE id = $1`, hostID)
		if err != nil {
			return fmt.Errorf("decrement review_count: %w", err)
		}
		return nil
	})
}

// HostRating aggregates reviews over every event of hostID.
func (r *ReviewRepository) HostRating(ctx context.Context, hostID string) (*model.HostRating, error) {
	h, err := scanHostRating(r.db.QueryRow(ctx,
		hostRatingSelect+` WHERE u.id = $1 AND u.role = 'HOST' GROUP BY u.id`, hostID))
	if err != nil {
		if nf := missing(err, apperr.ErrUserNotFound); nf != nil {
			return nil, apperr.New(apperr.KindNotFound, apperr.CodeUserNotHost, "host not found")
		}
		return nil, err
	}
	return h, nil
}
