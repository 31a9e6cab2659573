// Package scheduler runs the periodic event status sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/eventhub/internal/lifecycle"
	"github.com/Shivanand-hulikatti/eventhub/internal/metrics"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// EventStore is the slice of the event repository the sweeper needs.
type EventStore interface {
	ListByStatus(ctx context.Context, statuses []model.EventStatus) ([]model.Event, error)
	UpdateStatus(ctx context.Context, id string, from, to model.EventStatus) (bool, error)
}

// Sweeper moves events to the status their date and seat count call for.
type Sweeper struct {
	store    EventStore
	interval time.Duration
	loc      *time.Location
	log      *slog.Logger
	now      func() time.Time
}

// NewSweeper builds a Sweeper that evaluates end-of-day in loc.
func NewSweeper(store EventStore, interval time.Duration, loc *time.Location, log *slog.Logger) *Sweeper {
	return &Sweeper{store: store, interval: interval, loc: loc, log: log, now: time.Now}
}

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Applied int
	Skipped int
	Failed  int
}

// Sweep reads every mutable event, then writes the status changes it
// computed. Each write is guarded by the status observed on read, so a row
// changed in between is skipped. A failed write is logged and the sweep
// carries on.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	events, err := s.store.ListByStatus(ctx, model.MutableStatuses)
	if err != nil {
		return Result{}, err
	}
	res := Result{Scanned: len(events)}

	for _, ch := range lifecycle.Plan(events, s.now(), s.loc) {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		ok, err := s.store.UpdateStatus(ctx, ch.EventID, ch.From, ch.To)
		switch {
		case err != nil:
			res.Failed++
			metrics.SweepFailures.Inc()
			s.log.Error("status sweep: update failed",
				"event_id", ch.EventID, "from", ch.From, "to", ch.To, "error", err)
		case !ok:
			res.Skipped++
		default:
			res.Applied++
			metrics.SweepChanges.WithLabelValues(string(ch.To)).Inc()
			s.log.Info("status sweep: event updated",
				"event_id", ch.EventID, "from", ch.From, "to", ch.To)
		}
	}
	metrics.SweepRuns.Inc()
	return res, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("status sweeper started", "interval", s.interval.String(), "timezone", s.loc.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if res, err := s.Sweep(ctx); err != nil {
			if ctx.Err() == nil {
				s.log.Error("status sweep failed", "error", err)
			}
		} else if res.Applied > 0 || res.Failed > 0 {
			s.log.Info("status sweep done",
				"scanned", res.Scanned, "applied", res.Applied, "skipped", res.Skipped, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			s.log.Info("status sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
