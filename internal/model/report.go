package model

import "github.com/shopspring/decimal"

// AdminDashboard is the platform-wide summary.
type AdminDashboard struct {
	TotalUsers   int             `json:"total_users"`
	TotalHosts   int             `json:"total_hosts"`
	TotalEvents  int             `json:"total_events"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	EventStats   EventStats      `json:"event_stats"`
}

// HostDashboard summarises a host's own activity.
type HostDashboard struct {
	TotalEventsHosted   int             `json:"total_events_hosted"`
	MonthlyEventsHosted int             `json:"monthly_events_hosted"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	AverageRating       decimal.Decimal `json:"average_rating"`
}

// UserDashboard summarises a participant's activity.
type UserDashboard struct {
	TotalEventsParticipated   int             `json:"total_events_participated"`
	MonthlyEventsParticipated int             `json:"monthly_events_participated"`
	TotalReviewsGiven         int             `json:"total_reviews_given"`
	AverageRatingGiven        decimal.Decimal `json:"average_rating_given"`
}

// HostOverview is the public host summary.
type HostOverview struct {
	TotalHosts        int             `json:"total_hosts"`
	TotalHostRequests int             `json:"total_host_requests"`
	AverageHostRating decimal.Decimal `json:"average_host_rating"`
}
