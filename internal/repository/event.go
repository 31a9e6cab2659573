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

const eventColumns = `e.id, e.host_id, e.title, e.description, e.category, e.date, e.time,
	e.location, e.image_url, e.min_participants, e.max_participants,
	e.current_participants, e.joining_fee, e.status, e.created_at, e.updated_at`

const hostColumns = `u.id, u.full_name, u.email, u.profile_photo`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.HostID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Time,
		&e.Location, &e.ImageURL, &e.MinParticipants, &e.MaxParticipants,
		&e.CurrentParticipants, &e.JoiningFee, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEventWithHost(row pgx.Row) (*model.Event, error) {
	var (
		e model.Event
		h model.UserSummary
	)
	err := row.Scan(
		&e.ID, &e.HostID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Time,
		&e.Location, &e.ImageURL, &e.MinParticipants, &e.MaxParticipants,
		&e.CurrentParticipants, &e.JoiningFee, &e.Status, &e.CreatedAt, &e.UpdatedAt,
		&h.ID, &h.FullName, &h.Email, &h.ProfilePhoto,
	)
	if err != nil {
		return nil, err
	}
	e.Host = &h
	return &e, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts ev and bumps the host's hosted_events counter in the same
// transaction. ID and timestamps are filled in.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	ev.ID = uuid.New().String()
	now := time.Now().UTC()
	ev.CreatedAt, ev.UpdatedAt = now, now

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO events (id, host_id, title, description, category, date, time, location,
			     image_url, min_participants, max_participants, current_participants, joining_fee,
			     status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
			ev.ID, ev.HostID, ev.Title, ev.Description, ev.Category, ev.Date, ev.Time, ev.Location,
			ev.ImageURL, ev.MinParticipants, ev.MaxParticipants, ev.CurrentParticipants, ev.JoiningFee,
			ev.Status, now,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE users SET hosted_events = hosted_events + 1, updated_at = now() WHERE id = $1`,
			ev.HostID,
		)
		if err != nil {
			return fmt.Errorf("increment hosted_events: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.ErrUserNotFound
		}
		return nil
	})
}

// GetByID returns a single event with its host, or apperr.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	ev, err := scanEventWithHost(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+`, `+hostColumns+`
		 FROM events e JOIN users u ON u.id = e.host_id
		 WHERE e.id = $1`,
		id,
	))
	if err != nil {
		if nf := missing(err, apperr.ErrEventNotFound); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

// List returns one page of events matching q and the total match count.
func (r *EventRepository) List(ctx context.Context, q model.EventQuery) ([]model.Event, int, error) {
	var w where
	if q.SearchTerm != "" {
		term := "%" + q.SearchTerm + "%"
		w.add("(e.title ILIKE ? OR e.category ILIKE ? OR e.location ILIKE ?)", term, term, term)
	}
	if q.Category != "" {
		w.add("e.category ILIKE ?", q.Category)
	}
	if q.Location != "" {
		w.add("e.location ILIKE ?", "%"+q.Location+"%")
	}
	if q.Status != "" {
		w.add("e.status = ?", q.Status)
	}
	if q.HostID != "" {
		w.add("e.host_id = ?", q.HostID)
	}
	return r.page(ctx, `FROM events e JOIN users u ON u.id = e.host_id`, w, q.Page, model.EventSortColumns)
}

// ListParticipated returns events the user holds a seat in.
func (r *EventRepository) ListParticipated(ctx context.Context, userID string, page model.Page) ([]model.Event, int, error) {
	var w where
	w.add("p.user_id = ?", userID)
	return r.page(ctx,
		`FROM events e JOIN users u ON u.id = e.host_id
		 JOIN participations p ON p.event_id = e.id`,
		w, page, model.EventSortColumns)
}

// GetParticipated returns the event only if the user holds a seat in it.
func (r *EventRepository) GetParticipated(ctx context.Context, userID, eventID string) (*model.Event, error) {
	ev, err := scanEventWithHost(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+`, `+hostColumns+`
		 FROM events e JOIN users u ON u.id = e.host_id
		 JOIN participations p ON p.event_id = e.id
		 WHERE e.id = $1 AND p.user_id = $2`,
		eventID, userID,
	))
	if err != nil {
		if nf := missing(err, apperr.ErrNotParticipant); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("get participated event: %w", err)
	}
	return ev, nil
}

func (r *EventRepository) page(ctx context.Context, from string, w where, page model.Page, sortable map[string]string) ([]model.Event, int, error) {
	page = page.Normalize()
	total, err := count(ctx, r.db, `SELECT COUNT(*) `+from+w.String(), w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	sql := `SELECT ` + eventColumns + `, ` + hostColumns + ` ` + from + w.String() +
		orderBy("e."+page.SortColumn(sortable), page.SortOrder) +
		` LIMIT ` + w.next(page.Limit) + ` OFFSET ` + w.next(page.Offset())
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEventWithHost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, total, rows.Err()
}

// ListByStatus returns every event in one of statuses, without host data.
// The status sweep reads its whole working set through this.
func (r *EventRepository) ListByStatus(ctx context.Context, statuses []model.EventStatus) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.status = ANY($1) ORDER BY e.date`,
		model.StatusStrings(statuses),
	)
	if err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// UpdateStatus writes to only if the row still holds from. It reports
// whether the row was changed.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, from, to model.EventStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("update event status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFull flips a joinable event to FULL when its seats are exhausted.
func (r *EventRepository) MarkFull(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE events SET status = 'FULL', updated_at = now()
		 WHERE id = $1 AND current_participants >= max_participants
		   AND status = ANY($2)`,
		id, model.StatusStrings(model.MutableStatuses),
	)
	if err != nil {
		return fmt.Errorf("mark event full: %w", err)
	}
	return nil
}

// Update persists the editable fields of ev. current_participants is never
// written here; the max must not drop below the seats already taken. The
// row is only written while its status and seat count still match seen.
func (r *EventRepository) Update(ctx context.Context, ev *model.Event, seen model.EventVersion) error {
	err := r.db.QueryRow(ctx,
		`UPDATE events SET title = $2, description = $3, category = $4, date = $5, time = $6,
		     location = $7, image_url = $8, min_participants = $9, max_participants = $10,
		     joining_fee = $11, status = $12, updated_at = now()
		 WHERE id = $1 AND current_participants <= $10
		   AND status = $13 AND current_participants = $14
		 RETURNING updated_at`,
		ev.ID, ev.Title, ev.Description, ev.Category, ev.Date, ev.Time,
		ev.Location, ev.ImageURL, ev.MinParticipants, ev.MaxParticipants,
		ev.JoiningFee, ev.Status, seen.Status, seen.CurrentParticipants,
	).Scan(&ev.UpdatedAt)
	if err == nil {
		return nil
	}
	if missing(err, apperr.ErrEventNotFound) == nil {
		return fmt.Errorf("update event: %w", err)
	}

	cur, err := r.GetByID(ctx, ev.ID)
	if err != nil {
		return err
	}
	if cur.CurrentParticipants > ev.MaxParticipants {
		return apperr.ErrCapacityBelowSeats
	}
	return apperr.ErrEventChanged
}

// Delete removes the event (cascading to participations, payments, reviews
// and favourites) and decrements the host's hosted_events counter.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var hostID string
		err := tx.QueryRow(ctx, `DELETE FROM events WHERE id = $1 RETURNING host_id`, id).Scan(&hostID)
		if err != nil {
			if nf := missing(err, apperr.ErrEventNotFound); nf != nil {
				return nf
			}
			return fmt.Errorf("delete event: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE users SET hosted_events = GREATEST(hosted_events - 1, 0), updated_at = now() WHERE id = $1`,
			hostID,
		)
		if err != nil {
			return fmt.Errorf("decrement hosted_events: %w", err)
		}
		return nil
	})
}

// CountByStatus returns the number of events per status.
func (r *EventRepository) CountByStatus(ctx context.Context) (map[model.EventStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM events GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count events by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.EventStatus]int)
	for rows.Next() {
		var (
			status model.EventStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
