package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// ReportStore runs dashboard aggregates.
type ReportStore interface {
	CountUsersByRole(ctx context.Context) (map[model.Role]int, error)
	HostActivity(ctx context.Context, hostID string, since time.Time) (total, recent int, avg decimal.Decimal, err error)
	UserActivity(ctx context.Context, userID string, since time.Time) (total, recent, reviews int, avg decimal.Decimal, err error)
	AverageHostRating(ctx context.Context) (decimal.Decimal, error)
	PaymentCounts(ctx context.Context) (pending, paidEvents int, err error)
}

// RevenueStore sums completed payments.
type RevenueStore interface {
	Revenue(ctx context.Context, hostID string, since time.Time) (decimal.Decimal, error)
}

// HostRequestCounter counts filed host requests.
type HostRequestCounter interface {
	Count(ctx context.Context) (int, error)
}

// ReportService builds the dashboards.
type ReportService struct {
	reports  ReportStore
	events   EventStore
	revenue  RevenueStore
	requests HostRequestCounter
	loc      *time.Location
	now      func() time.Time
}

func NewReportService(reports ReportStore, events EventStore, revenue RevenueStore, requests HostRequestCounter, loc *time.Location) *ReportService {
	return &ReportService{reports: reports, events: events, revenue: revenue, requests: requests, loc: loc, now: time.Now}
}

func (s *ReportService) monthStart() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
}

func (s *ReportService) Admin(ctx context.Context) (*model.AdminDashboard, error) {
	roles, err := s.reports.CountUsersByRole(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.events.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.revenue.Revenue(ctx, "", time.Time{})
	if err != nil {
		return nil, err
	}
	d := &model.AdminDashboard{
		TotalHosts:   roles[model.RoleHost],
		TotalRevenue: revenue,
		EventStats:   model.NewEventStats(counts),
	}
	for _, n := range roles {
		d.TotalUsers += n
	}
	d.TotalEvents = d.EventStats.TotalEvents
	return d, nil
}

func (s *ReportService) Host(ctx context.Context, id auth.Identity) (*model.HostDashboard, error) {
	total, recent, avg, err := s.reports.HostActivity(ctx, id.UserID, s.monthStart())
	if err != nil {
		return nil, err
	}
	revenue, err := s.revenue.Revenue(ctx, id.UserID, time.Time{})
	if err != nil {
		return nil, err
	}
	return &model.HostDashboard{
		TotalEventsHosted:   total,
		MonthlyEventsHosted: recent,
		TotalRevenue:        revenue,
		AverageRating:       avg,
	}, nil
}

func (s *ReportService) User(ctx context.Context, id auth.Identity) (*model.UserDashboard, error) {
	total, recent, reviews, avg, err := s.reports.UserActivity(ctx, id.UserID, s.monthStart())
	if err != nil {
		return nil, err
	}
	return &model.UserDashboard{
		TotalEventsParticipated:   total,
		MonthlyEventsParticipated: recent,
		TotalReviewsGiven:         reviews,
		AverageRatingGiven:        avg,
	}, nil
}

// PublicHosts is the unauthenticated host overview.
func (s *ReportService) PublicHosts(ctx context.Context) (*model.HostOverview, error) {
	roles, err := s.reports.CountUsersByRole(ctx)
	if err != nil {
		return nil, err
	}
	requests, err := s.requests.Count(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := s.reports.AverageHostRating(ctx)
	if err != nil {
		return nil, err
	}
	return &model.HostOverview{
		TotalHosts:        roles[model.RoleHost],
		TotalHostRequests: requests,
		AverageHostRating: avg,
	}, nil
}

func (s *ReportService) Payments(ctx context.Context) (*model.PaymentStats, error) {
	total, err := s.revenue.Revenue(ctx, "", time.Time{})
	if err != nil {
		return nil, err
	}
	month, err := s.revenue.Revenue(ctx, "", s.monthStart())
	if err != nil {
		return nil, err
	}
	pending, paidEvents, err := s.reports.PaymentCounts(ctx)
	if err != nil {
		return nil, err
	}
	avg := decimal.Zero
	if paidEvents > 0 {
		avg = total.Div(decimal.NewFromInt(int64(paidEvents))).Round(2)
	}
	return &model.PaymentStats{
		TotalRevenue:           total,
		CurrentMonthRevenue:    month,
		TotalPendingPayments:   pending,
		AveragePerEventRevenue: avg,
	}, nil
}
