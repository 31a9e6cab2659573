// Package lifecycle derives an event's status from its capacity, fee and
// date. The same rule seeds new events and drives the periodic sweep.
package lifecycle

import (
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// UpcomingWindow is how far ahead a paid event must be to count as upcoming.
const UpcomingWindow = 7 * 24 * time.Hour

// EndOfDay returns the last instant of date's calendar day in loc.
func EndOfDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// Next computes the status ev should have at now. First matching rule wins.
func Next(ev *model.Event, now time.Time, loc *time.Location) model.EventStatus {
	switch {
	case now.After(EndOfDay(ev.Date, loc)):
		if ev.CurrentParticipants >= ev.MinParticipants {
			return model.StatusCompleted
		}
		return model.StatusCancelled
	case ev.CurrentParticipants >= ev.MaxParticipants:
		return model.StatusFull
	case ev.IsFree():
		return model.StatusOpen
	case ev.Date.After(now.Add(UpcomingWindow)):
		return model.StatusUpcoming
	default:
		return model.StatusOngoing
	}
}

// Plan returns the status writes a sweep over events should perform.
// Events outside the mutable set and events already in their computed
// status are skipped.
func Plan(events []model.Event, now time.Time, loc *time.Location) []model.StatusChange {
	var changes []model.StatusChange
	for i := range events {
		ev := &events[i]
		if !ev.Status.Mutable() {
			continue
		}
		next := Next(ev, now, loc)
		if next == ev.Status {
			continue
		}
		changes = append(changes, model.StatusChange{EventID: ev.ID, From: ev.Status, To: next})
	}
	return changes
}
