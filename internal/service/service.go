// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/lifecycle"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/repository"
)

// Upload is a file received with a request.
type Upload struct {
	Name string
	Data []byte
}

// ObjectStore keeps uploaded images.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, name string) (string, error)
	Delete(ctx context.Context, url string) error
}

// EventStore is the event persistence the services need.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, q model.EventQuery) ([]model.Event, int, error)
	ListParticipated(ctx context.Context, userID string, page model.Page) ([]model.Event, int, error)
	GetParticipated(ctx context.Context, userID, eventID string) (*model.Event, error)
	UpdateStatus(ctx context.Context, id string, from, to model.EventStatus) (bool, error)
	MarkFull(ctx context.Context, id string) error
	Update(ctx context.Context, ev *model.Event, seen model.EventVersion) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.EventStatus]int, error)
}

// SeatLedger adds and lists seats.
type SeatLedger interface {
	EnrollFree(ctx context.Context, eventID, userID string) (*model.Event, error)
	IsParticipant(ctx context.Context, eventID, userID string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Participation, error)
}

// CompletedPayments answers whether a user has already paid for an event.
type CompletedPayments interface {
	HasCompleted(ctx context.Context, userID, eventID string) (bool, error)
}

// EventService is the capacity engine: it creates and edits events and
// decides who may take a seat.
type EventService struct {
	events   EventStore
	ledger   SeatLedger
	payments CompletedPayments
	objects  ObjectStore
	loc      *time.Location
	log      *slog.Logger
	now      func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events EventStore,
	ledger SeatLedger,
	payments CompletedPayments,
	objects ObjectStore,
	loc *time.Location,
	log *slog.Logger,
) *EventService {
	return &EventService{
		events: events, ledger: ledger, payments: payments, objects: objects,
		loc: loc, log: log, now: time.Now,
	}
}

var errStatusForbidden = apperr.New(apperr.KindForbidden, apperr.CodeEventStatusForbidden,
	"only an admin can set an event status directly")

// CreateEvent validates the request, stores the optional image and persists
// the event with the status the lifecycle rule gives it today.
func (s *EventService) CreateEvent(ctx context.Context, id auth.Identity, req model.CreateEventRequest, image *Upload) (*model.Event, error) {
	if !id.HasRole(model.RoleHost, model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := model.ParseDateIn(req.Date, s.loc)
	now := s.now()
	if now.After(lifecycle.EndOfDay(date, s.loc)) {
		return nil, apperr.Validation("invalid request", map[string]string{"date": "must not be in the past"})
	}

	ev := &model.Event{
		HostID:          id.UserID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Date:            date,
		Time:            req.Time,
		Location:        req.Location,
		MinParticipants: req.MinParticipants,
		MaxParticipants: req.MaxParticipants,
		JoiningFee:      req.JoiningFee,
	}
	ev.Status = lifecycle.Next(ev, now, s.loc)

	if image != nil {
		url, err := s.objects.Put(ctx, image.Data, image.Name)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstream, apperr.CodeStorageUnavailable, "could not store image", err)
		}
		ev.ImageURL = url
	}
	if err := s.events.Create(ctx, ev); err != nil {
		s.discard(ctx, ev.ImageURL)
		return nil, err
	}
	s.log.Info("event created", "event_id", ev.ID, "host_id", ev.HostID, "status", ev.Status)
	return ev, nil
}

// ListEvents returns one page of events.
func (s *EventService) ListEvents(ctx context.Context, q model.EventQuery) (model.List[model.Event], error) {
	q.Page = q.Page.Normalize()
	events, total, err := s.events.List(ctx, q)
	if err != nil {
		return model.List[model.Event]{}, err
	}
	return model.NewList(q.Page, total, events), nil
}

// ListByStatus returns one page of events in status.
func (s *EventService) ListByStatus(ctx context.Context, status model.EventStatus, page model.Page) (model.List[model.Event], error) {
	return s.ListEvents(ctx, model.EventQuery{Page: page, Status: status})
}

// ListCreated returns the caller's own events.
func (s *EventService) ListCreated(ctx context.Context, id auth.Identity, page model.Page) (model.List[model.Event], error) {
	return s.ListEvents(ctx, model.EventQuery{Page: page, HostID: id.UserID})
}

// ListParticipated returns the events the caller holds a seat in.
func (s *EventService) ListParticipated(ctx context.Context, id auth.Identity, page model.Page) (model.List[model.Event], error) {
	page = page.Normalize()
	events, total, err := s.events.ListParticipated(ctx, id.UserID, page)
	if err != nil {
		return model.List[model.Event]{}, err
	}
	return model.NewList(page, total, events), nil
}

// GetParticipated returns an event only if the caller holds a seat in it.
func (s *EventService) GetParticipated(ctx context.Context, id auth.Identity, eventID string) (*model.Event, error) {
	return s.events.GetParticipated(ctx, id.UserID, eventID)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperr.Invalid("event id is required")
	}
	return s.events.GetByID(ctx, id)
}

// maxUpdateAttempts bounds UpdateEvent retries when seats or status move
// underneath the edit.
const maxUpdateAttempts = 3

// UpdateEvent applies a partial update. Only the owning host or an admin may
// edit; only an admin may set the status directly. Otherwise the status is
// re-derived from the edited fields. The write only lands if the seat count
// and status are still the ones the new status was derived from.
func (s *EventService) UpdateEvent(ctx context.Context, id auth.Identity, eventID string, req model.UpdateEventRequest, image *Upload) (*model.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var stored string
	fail := func(err error) (*model.Event, error) {
		s.discard(ctx, stored)
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		ev, err := s.events.GetByID(ctx, eventID)
		if err != nil {
			return fail(err)
		}
		if ev.HostID != id.UserID && !id.HasRole(model.RoleAdmin) {
			return fail(apperr.ErrForbidden)
		}
		if req.Status != nil && !id.HasRole(model.RoleAdmin) {
			return fail(errStatusForbidden)
		}
		seen := model.EventVersion{Status: ev.Status, CurrentParticipants: ev.CurrentParticipants}

		s.applyEventUpdate(ev, req)
		if ev.MaxParticipants < ev.MinParticipants {
			return fail(apperr.Validation("invalid request", map[string]string{
				"max_participants": "must be no less than min_participants",
			}))
		}
		if ev.MaxParticipants < ev.CurrentParticipants {
			return fail(apperr.ErrCapacityBelowSeats)
		}
		if req.Status != nil {
			ev.Status = *req.Status
		} else if ev.Status.Mutable() {
			ev.Status = lifecycle.Next(ev, s.now(), s.loc)
		}

		oldImage := ev.ImageURL
		if image != nil {
			if stored == "" {
				url, err := s.objects.Put(ctx, image.Data, image.Name)
				if err != nil {
					return nil, apperr.Wrap(apperr.KindUpstream, apperr.CodeStorageUnavailable, "could not store image", err)
				}
				stored = url
			}
			ev.ImageURL = stored
		}

		err = s.events.Update(ctx, ev, seen)
		if errors.Is(err, apperr.ErrEventChanged) && attempt < maxUpdateAttempts {
			s.log.Debug("event changed during update, retrying", "event_id", eventID, "attempt", attempt)
			continue
		}
		if err != nil {
			return fail(err)
		}
		if image != nil {
			s.discard(ctx, oldImage)
		}
		return ev, nil
	}
}

func (s *EventService) applyEventUpdate(ev *model.Event, req model.UpdateEventRequest) {
	if req.Title != nil {
		ev.Title = *req.Title
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Category != nil {
		ev.Category = *req.Category
	}
	if req.Date != nil {
		// Validate has already checked the format.
		ev.Date, _ = model.ParseDateIn(*req.Date, s.loc)
	}
	if req.Time != nil {
		ev.Time = *req.Time
	}
	if req.Location != nil {
		ev.Location = *req.Location
	}
	if req.MinParticipants != nil {
		ev.MinParticipants = *req.MinParticipants
	}
	if req.MaxParticipants != nil {
		ev.MaxParticipants = *req.MaxParticipants
	}
	if req.JoiningFee != nil {
		ev.JoiningFee = *req.JoiningFee
	}
}

// DeleteEvent removes an event and its image.
func (s *EventService) DeleteEvent(ctx context.Context, id auth.Identity, eventID string) error {
	if !id.HasRole(model.RoleAdmin) {
		return apperr.ErrForbidden
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}
	s.discard(ctx, ev.ImageURL)
	s.log.Info("event deleted", "event_id", eventID, "by", id.UserID)
	return nil
}

// Stats counts events per status.
func (s *EventService) Stats(ctx context.Context) (model.EventStats, error) {
	counts, err := s.events.CountByStatus(ctx)
	if err != nil {
		return model.EventStats{}, err
	}
	return model.NewEventStats(counts), nil
}

// RequestParticipation seats the caller in a free event.
//
// The event is read first so the common refusals (paid, closed, full) are
// answered without opening a transaction. The seat itself is taken by the
// ledger's guarded update, which is what actually holds capacity under
// concurrency.
func (s *EventService) RequestParticipation(ctx context.Context, id auth.Identity, eventID string) (*model.Event, error) {
	ev, err := s.enrollFree(ctx, id, eventID)
	metrics.ParticipationAttempts.WithLabelValues("free", resultLabel(err)).Inc()
	return ev, err
}

func (s *EventService) enrollFree(ctx context.Context, id auth.Identity, eventID string) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := repository.EnrollmentError(ev); err != nil {
		if errors.Is(err, apperr.ErrEventFull) {
			s.markFull(ctx, ev)
		}
		return nil, err
	}

	updated, err := s.ledger.EnrollFree(ctx, eventID, id.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrEventFull) {
			s.markFull(ctx, ev)
		}
		return nil, err
	}
	s.log.Info("participant enrolled",
		"event_id", eventID, "user_id", id.UserID,
		"current", updated.CurrentParticipants, "max", updated.MaxParticipants, "status", updated.Status)
	return updated, nil
}

// AuthorizePaid checks that userID may start paying for eventID and returns
// the event. It never takes a seat; that happens when the payment is
// confirmed.
func (s *EventService) AuthorizePaid(ctx context.Context, userID, eventID string) (*model.Event, error) {
	ev, err := s.authorizePaid(ctx, userID, eventID)
	metrics.ParticipationAttempts.WithLabelValues("paid", resultLabel(err)).Inc()
	return ev, err
}

func (s *EventService) authorizePaid(ctx context.Context, userID, eventID string) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	switch {
	case ev.IsFree():
		return nil, apperr.ErrEventIsFree
	case ev.Status == model.StatusFull:
		return nil, apperr.ErrEventFull
	case !ev.Status.Joinable():
		return nil, apperr.ErrEventNotJoinable
	}

	paid, err := s.payments.HasCompleted(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, apperr.ErrPaymentCompleted
	}
	seated, err := s.ledger.IsParticipant(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if seated {
		return nil, apperr.ErrAlreadyParticipating
	}
	if ev.IsFull() {
		s.markFull(ctx, ev)
		return nil, apperr.ErrEventFull
	}
	return ev, nil
}

// Recompute writes the status ev should have now, if it differs. Used after
// a seat is released so a FULL event reopens without waiting for a sweep.
func (s *EventService) Recompute(ctx context.Context, ev *model.Event) {
	if !ev.Status.Mutable() {
		return
	}
	next := lifecycle.Next(ev, s.now(), s.loc)
	if next == ev.Status {
		return
	}
	ok, err := s.events.UpdateStatus(ctx, ev.ID, ev.Status, next)
	if err != nil {
		s.log.Error("recompute event status", "event_id", ev.ID, "error", err)
		return
	}
	if ok {
		s.log.Info("event status recomputed", "event_id", ev.ID, "from", ev.Status, "to", next)
		ev.Status = next
	}
}

// ListParticipants returns the ledger rows of an event to its host or an
// admin.
func (s *EventService) ListParticipants(ctx context.Context, id auth.Identity, eventID string) ([]model.Participation, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.HostID != id.UserID && !id.HasRole(model.RoleAdmin) {
		return nil, apperr.ErrForbidden
	}
	return s.ledger.ListByEvent(ctx, eventID)
}

func (s *EventService) markFull(ctx context.Context, ev *model.Event) {
	if ev.Status == model.StatusFull || !ev.Status.Mutable() {
		return
	}
	if err := s.events.MarkFull(ctx, ev.ID); err != nil {
		s.log.Error("mark event full", "event_id", ev.ID, "error", err)
	}
}

func (s *EventService) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.objects.Delete(ctx, url); err != nil {
		s.log.Warn("delete stored object", "url", url, "error", err)
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := apperr.As(err); ok {
		return string(e.Code)
	}
	return string(apperr.CodeInternal)
}
