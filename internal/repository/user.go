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

const userColumns = `id, email, full_name, password_hash, role, status, is_verified,
	phone_number, address, bio, gender, date_of_birth, interests, profile_photo,
	hosted_events, participated_events, review_count, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.Role, &u.Status, &u.Verified,
		&u.PhoneNumber, &u.Address, &u.Bio, &u.Gender, &u.DateOfBirth, &u.Interests, &u.ProfilePhoto,
		&u.HostedEvents, &u.ParticipatedEvents, &u.ReviewCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u. A duplicate email yields apperr.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.New().String()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Status == "" {
		u.Status = model.UserActive
	}
	if u.Interests == nil {
		u.Interests = []string{}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, full_name, password_hash, role, status, is_verified, interests, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		u.ID, u.Email, u.FullName, u.PasswordHash, u.Role, u.Status, u.Verified, u.Interests, now,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return apperr.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID returns a non-deleted user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail returns a non-deleted user by lower-cased email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, pred string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+pred+` AND NOT is_deleted`, arg))
	if err != nil {
		if nf := missing(err, apperr.ErrUserNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// MarkVerified flags the user's email as verified.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET is_verified = TRUE, updated_at = now() WHERE id = $1`, id)
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

// SetStatus blocks or unblocks a user.
func (r *UserRepository) SetStatus(ctx context.Context, id string, status model.UserStatus) error {
	return r.exec(ctx, `UPDATE users SET status = $2, updated_at = now() WHERE id = $1 AND NOT is_deleted`, id, status)
}

// UpdateProfile writes the editable profile fields of u.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	return r.exec(ctx,
		`UPDATE users SET full_name = $2, phone_number = $3, address = $4, bio = $5, gender = $6,
		     date_of_birth = $7, interests = $8, profile_photo = $9, updated_at = now()
		 WHERE id = $1 AND NOT is_deleted`,
		u.ID, u.FullName, u.PhoneNumber, u.Address, u.Bio, u.Gender, u.DateOfBirth, u.Interests, u.ProfilePhoto,
	)
}

func (r *UserRepository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if nf := missing(err, apperr.ErrUserNotFound); nf != nil {
			return nf
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

// List returns one page of users matching q.
func (r *UserRepository) List(ctx context.Context, q model.UserQuery) ([]model.User, int, error) {
	page := q.Page.Normalize()
	var w where
	w.add("NOT is_deleted")
	if q.SearchTerm != "" {
		term := "%" + q.SearchTerm + "%"
		w.add("(full_name ILIKE ? OR email ILIKE ?)", term, term)
	}
	if q.Role != "" {
		w.add("role = ?", q.Role)
	}
	if q.Status != "" {
		w.add("status = ?", q.Status)
	}

	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM users`+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	sql := `SELECT ` + userColumns + ` FROM users` + w.String() +
		orderBy(page.SortColumn(model.UserSortColumns), page.SortOrder) +
		` LIMIT ` + w.next(page.Limit) + ` OFFSET ` + w.next(page.Offset())
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// ListHosts returns active hosts with their rating aggregates.
func (r *UserRepository) ListHosts(ctx context.Context, page model.Page) ([]model.HostRating, int, error) {
	page = page.Normalize()
	total, err := count(ctx, r.db,
		`SELECT COUNT(*) FROM users WHERE role = 'HOST' AND status = 'ACTIVE' AND NOT is_deleted`)
	if err != nil {
		return nil, 0, fmt.Errorf("count hosts: %w", err)
	}

	rows, err := r.db.Query(ctx,
		hostRatingSelect+`
		 WHERE u.role = 'HOST' AND u.status = 'ACTIVE' AND NOT u.is_deleted
		 GROUP BY u.id
		 ORDER BY u.created_at DESC
		 LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []model.HostRating
	for rows.Next() {
		h, err := scanHostRating(rows)
		if err != nil {
			return nil, 0, err
		}
		hosts = append(hosts, *h)
	}
	return hosts, total, rows.Err()
}

const hostRatingSelect = `
SELECT u.id, u.full_name,
       COUNT(DISTINCT e.id),
       COUNT(rv.id),
       COALESCE(ROUND(AVG(rv.rating), 2), 0)
FROM users u
LEFT JOIN events e ON e.host_id = u.id
LEFT JOIN reviews rv ON rv.event_id = e.id`

func scanHostRating(row pgx.Row) (*model.HostRating, error) {
	var h model.HostRating
	if err := row.Scan(&h.HostID, &h.HostName, &h.TotalEvents, &h.TotalReviews, &h.AverageRating); err != nil {
		return nil, fmt.Errorf("scan host rating: %w", err)
	}
	return &h, nil
}
