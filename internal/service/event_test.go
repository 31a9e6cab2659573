package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

func TestRequestParticipation_FillsEventThenRejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.db.addEvent(freeEvent(2))

	_, err := f.events.RequestParticipation(ctx, user("u1"), ev.ID)
	require.NoError(t, err)
	got, err := f.events.RequestParticipation(ctx, user("u2"), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentParticipants)
	assert.Equal(t, model.StatusFull, got.Status)

	_, err = f.events.RequestParticipation(ctx, user("u3"), ev.ID)
	assert.ErrorIs(t, err, apperr.ErrEventFull)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	stored := f.db.event(ev.ID)
	assert.Equal(t, 2, stored.CurrentParticipants)
	assert.Equal(t, 2, f.db.seatCount(ev.ID))
}

func TestRequestParticipation_Duplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.db.addEvent(freeEvent(10))

	_, err := f.events.RequestParticipation(ctx, user("u1"), ev.ID)
	require.NoError(t, err)
	_, err = f.events.RequestParticipation(ctx, user("u1"), ev.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyParticipating)

	assert.Equal(t, 1, f.db.event(ev.ID).CurrentParticipants)
	assert.Equal(t, 1, f.db.participated["u1"])
}

func TestRequestParticipation_Refusals(t *testing.T) {
	upcoming := freeEvent(5)
	upcoming.Status = model.StatusUpcoming
	completed := freeEvent(5)
	completed.Status = model.StatusCompleted

	tests := []struct {
		name string
		ev   model.Event
		want error
		kind apperr.Kind
	}{
		{"paid event", paidEvent(5, "10.00"), apperr.ErrEventRequiresPayment, apperr.KindInvalidState},
		{"upcoming", upcoming, apperr.ErrEventNotJoinable, apperr.KindInvalidState},
		{"completed", completed, apperr.ErrEventNotJoinable, apperr.KindInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ev := f.db.addEvent(tt.ev)
			_, err := f.events.RequestParticipation(context.Background(), user("u1"), ev.ID)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Zero(t, f.db.event(ev.ID).CurrentParticipants)
		})
	}
}

func TestRequestParticipation_UnknownEvent(t *testing.T) {
	f := newFixture()
	_, err := f.events.RequestParticipation(context.Background(), user("u1"), "missing")
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)
}

func TestRequestParticipation_ExhaustedEventIsMarkedFull(t *testing.T) {
	f := newFixture()
	raw := freeEvent(3)
	raw.CurrentParticipants = 3
	ev := f.db.addEvent(raw)

	_, err := f.events.RequestParticipation(context.Background(), user("u1"), ev.ID)
	assert.ErrorIs(t, err, apperr.ErrEventFull)
	assert.Equal(t, model.StatusFull, f.db.event(ev.ID).Status)
	assert.Equal(t, 1, f.db.markFulls)
}

func TestRequestParticipation_ConcurrentNeverOverfills(t *testing.T) {
	f := newFixture()
	ev := f.db.addEvent(freeEvent(5))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.events.RequestParticipation(context.Background(), user(string(rune('a'+i))), ev.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrEventFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 35, full)
	stored := f.db.event(ev.ID)
	assert.Equal(t, 5, stored.CurrentParticipants)
	assert.Equal(t, model.StatusFull, stored.Status)
}

func TestCreateEvent_DerivesStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	free, err := f.events.CreateEvent(ctx, host("h1"), model.CreateEventRequest{
		Title: "Meetup", Description: "d", Category: "tech", Date: "2026-05-20", Time: "18:00",
		Location: "Berlin", MaxParticipants: 10,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, free.Status)
	assert.Equal(t, 1, free.MinParticipants)
	assert.Equal(t, "h1", free.HostID)

	far, err := f.events.CreateEvent(ctx, host("h1"), model.CreateEventRequest{
		Title: "Gala", Description: "d", Category: "party", Date: "2026-06-30", Time: "20:00",
		Location: "Paris", MaxParticipants: 100, JoiningFee: decimal.RequireFromString("49.99"),
	}, &Upload{Name: "gala.png", Data: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusUpcoming, far.Status)
	assert.NotEmpty(t, far.ImageURL)

	soon, err := f.events.CreateEvent(ctx, host("h1"), model.CreateEventRequest{
		Title: "Dinner", Description: "d", Category: "food", Date: "2026-05-06", Time: "20:00",
		Location: "Rome", MaxParticipants: 8, JoiningFee: decimal.RequireFromString("30"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOngoing, soon.Status)
}

func TestCreateEvent_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	valid := model.CreateEventRequest{
		Title: "Meetup", Description: "d", Category: "tech", Date: "2026-05-20", Time: "18:00",
		Location: "Berlin", MaxParticipants: 10,
	}

	_, err := f.events.CreateEvent(ctx, user("u1"), valid, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	past := valid
	past.Date = "2026-05-01"
	_, err = f.events.CreateEvent(ctx, host("h1"), past, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	inverted := valid
	inverted.MinParticipants, inverted.MaxParticipants = 5, 2
	_, err = f.events.CreateEvent(ctx, host("h1"), inverted, nil)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "max_participants")
}

func TestCreateEvent_TodayWestOfUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	f := newFixture()
	f.events.loc = loc
	// 12:00 EDT on 2026-05-04.
	f.events.now = func() time.Time { return time.Date(2026, 5, 4, 16, 0, 0, 0, time.UTC) }

	ev, err := f.events.CreateEvent(context.Background(), host("h1"), model.CreateEventRequest{
		Title: "Lunch talk", Description: "d", Category: "tech", Date: "2026-05-04", Time: "13:00",
		Location: "New York", MaxParticipants: 10,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, ev.Status)
	assert.Equal(t, 4, ev.Date.In(loc).Day())
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	raw := freeEvent(10)
	raw.CurrentParticipants = 4
	ev := f.db.addEvent(raw)

	three := 3
	_, err := f.events.UpdateEvent(ctx, host("host-1"), ev.ID, model.UpdateEventRequest{MaxParticipants: &three}, nil)
	assert.ErrorIs(t, err, apperr.ErrCapacityBelowSeats)

	_, err = f.events.UpdateEvent(ctx, host("someone-else"), ev.ID, model.UpdateEventRequest{MaxParticipants: &three}, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	closed := model.StatusClosed
	_, err = f.events.UpdateEvent(ctx, host("host-1"), ev.ID, model.UpdateEventRequest{Status: &closed}, nil)
	assert.ErrorIs(t, err, errStatusForbidden)

	four := 4
	got, err := f.events.UpdateEvent(ctx, host("host-1"), ev.ID, model.UpdateEventRequest{MaxParticipants: &four}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFull, got.Status)

	got, err = f.events.UpdateEvent(ctx, admin("a1"), ev.ID, model.UpdateEventRequest{Status: &closed}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, got.Status)
}

func TestUpdateEvent_KeepsConcurrentFull(t *testing.T) {
	f := newFixture()
	ev := f.db.addEvent(freeEvent(2))
	f.db.events[ev.ID].CurrentParticipants = 1

	// The last seat is taken between the edit's read and its write.
	f.db.beforeUpdate = func() {
		stored := f.db.events[ev.ID]
		stored.CurrentParticipants = 2
		stored.Status = model.StatusFull
		f.db.beforeUpdate = nil
	}

	title := "Park cleanup, north side"
	got, err := f.events.UpdateEvent(context.Background(), host("host-1"), ev.ID, model.UpdateEventRequest{Title: &title}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFull, got.Status)

	stored := f.db.event(ev.ID)
	assert.Equal(t, title, stored.Title)
	assert.Equal(t, model.StatusFull, stored.Status)
	assert.Equal(t, 2, stored.CurrentParticipants)
}

func TestUpdateEvent_GivesUpOnContinuousChanges(t *testing.T) {
	f := newFixture()
	ev := f.db.addEvent(freeEvent(50))
	f.db.beforeUpdate = func() { f.db.events[ev.ID].CurrentParticipants++ }

	title := "Renamed"
	_, err := f.events.UpdateEvent(context.Background(), host("host-1"), ev.ID,
		model.UpdateEventRequest{Title: &title}, &Upload{Name: "new.png", Data: []byte("x")})
	assert.ErrorIs(t, err, apperr.ErrEventChanged)
	assert.Equal(t, "Park cleanup", f.db.event(ev.ID).Title)
	assert.Empty(t, f.objects.stored)
}

func TestUpdateEvent_ReplacesImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	raw := freeEvent(10)
	raw.ImageURL = "http://files.test/old.png"
	ev := f.db.addEvent(raw)

	got, err := f.events.UpdateEvent(ctx, host("host-1"), ev.ID, model.UpdateEventRequest{}, &Upload{Name: "new.png", Data: []byte("x")})
	require.NoError(t, err)
	assert.NotEqual(t, raw.ImageURL, got.ImageURL)
	assert.Contains(t, f.objects.deleted, raw.ImageURL)
}

func TestDeleteEvent_AdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.db.addEvent(freeEvent(3))

	assert.ErrorIs(t, f.events.DeleteEvent(ctx, host("host-1"), ev.ID), apperr.ErrForbidden)
	require.NoError(t, f.events.DeleteEvent(ctx, admin("a1"), ev.ID))
	_, err := f.events.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, apperr.ErrEventNotFound)
}

func TestAuthorizePaid(t *testing.T) {
	ctx := context.Background()

	t.Run("free event", func(t *testing.T) {
		f := newFixture()
		ev := f.db.addEvent(freeEvent(3))
		_, err := f.events.AuthorizePaid(ctx, "u1", ev.ID)
		assert.ErrorIs(t, err, apperr.ErrEventIsFree)
	})

	t.Run("already paid", func(t *testing.T) {
		f := newFixture()
		ev := f.db.addEvent(paidEvent(3, "5"))
		f.db.payments["p1"] = &model.Payment{ID: "p1", UserID: "u1", EventID: ev.ID, Status: model.PaymentCompleted}
		_, err := f.events.AuthorizePaid(ctx, "u1", ev.ID)
		assert.ErrorIs(t, err, apperr.ErrPaymentCompleted)
	})

	t.Run("exhausted", func(t *testing.T) {
		f := newFixture()
		raw := paidEvent(2, "5")
		raw.CurrentParticipants = 2
		ev := f.db.addEvent(raw)
		_, err := f.events.AuthorizePaid(ctx, "u1", ev.ID)
		assert.ErrorIs(t, err, apperr.ErrEventFull)
		assert.Equal(t, model.StatusFull, f.db.event(ev.ID).Status)
	})

	t.Run("ok", func(t *testing.T) {
		f := newFixture()
		ev := f.db.addEvent(paidEvent(2, "5"))
		got, err := f.events.AuthorizePaid(ctx, "u1", ev.ID)
		require.NoError(t, err)
		assert.Equal(t, ev.ID, got.ID)
		assert.Zero(t, f.db.event(ev.ID).CurrentParticipants)
	})
}

func TestListParticipants_HostOrAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ev := f.db.addEvent(freeEvent(3))
	_, err := f.events.RequestParticipation(ctx, user("u1"), ev.ID)
	require.NoError(t, err)

	_, err = f.events.ListParticipants(ctx, user("u1"), ev.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err := f.events.ListParticipants(ctx, host("host-1"), ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.SourceFree, list[0].Source)
}
