package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/database"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// FavouriteRepository handles bookmarked events.
type FavouriteRepository struct {
	db *pgxpool.Pool
}

// NewFavouriteRepository constructs a FavouriteRepository.
func NewFavouriteRepository(db *pgxpool.Pool) *FavouriteRepository {
	return &FavouriteRepository{db: db}
}

// Add bookmarks an event for a user.
func (r *FavouriteRepository) Add(ctx context.Context, userID, eventID string) (*model.Favourite, error) {
	f := model.Favourite{UserID: userID, EventID: eventID}
	err := r.db.QueryRow(ctx,
		`INSERT INTO favourite_events (user_id, event_id) VALUES ($1, $2) RETURNING created_at`,
		userID, eventID,
	).Scan(&f.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, apperr.ErrFavouriteExists
		}
		return nil, fmt.Errorf("insert favourite: %w", err)
	}
	return &f, nil
}

// List returns a user's favourites with their events, newest first.
func (r *FavouriteRepository) List(ctx context.Context, userID string, page model.Page) ([]model.Favourite, int, error) {
	page = page.Normalize()
	total, err := count(ctx, r.db, `SELECT COUNT(*) FROM favourite_events WHERE user_id = $1`, userID)
	if err != nil {
		if nf := missing(err, apperr.ErrUserNotFound); nf != nil {
			return nil, 0, nf
		}
		return nil, 0, fmt.Errorf("count favourites: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT f.user_id, f.event_id, f.created_at, `+eventColumns+`, `+hostColumns+`
		 FROM favourite_events f
		 JOIN events e ON e.id = f.event_id
		 JOIN users u ON u.id = e.host_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list favourites: %w", err)
	}
	defer rows.Close()

	var favs []model.Favourite
	for rows.Next() {
		var (
			f model.Favourite
			e model.Event
			h model.UserSummary
		)
		err := rows.Scan(&f.UserID, &f.EventID, &f.CreatedAt,
			&e.ID, &e.HostID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Time,
			&e.Location, &e.ImageURL, &e.MinParticipants, &e.MaxParticipants,
			&e.CurrentParticipants, &e.JoiningFee, &e.Status, &e.CreatedAt, &e.UpdatedAt,
			&h.ID, &h.FullName, &h.Email, &h.ProfilePhoto)
		if err != nil {
			return nil, 0, fmt.Errorf("scan favourite: %w", err)
		}
		e.Host = &h
		f.Event = &e
		favs = append(favs, f)
	}
	return favs, total, rows.Err()
}

// Remove deletes a bookmark.
func (r *FavouriteRepository) Remove(ctx context.Context, userID, eventID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM favourite_events WHERE user_id = $1 AND event_id = $2`, userID, eventID)
	if err != nil {
		if nf := missing(err, apperr.ErrFavouriteNotFound); nf != nil {
			return nf
		}
		return fmt.Errorf("delete favourite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrFavouriteNotFound
	}
	return nil
}
