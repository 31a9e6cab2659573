package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// Router holds everything the HTTP surface is built from.
type Router struct {
	Log    *slog.Logger
	Tokens *auth.TokenManager
	// Ready lists the dependencies /readyz pings.
	Ready map[string]Pinger
	// UploadDir is served read-only under /uploads when set.
	UploadDir string

	Auth         *AuthHandler
	Users        *UserHandler
	Events       *EventHandler
	Payments     *PaymentHandler
	Reviews      *ReviewHandler
	Favourites   *FavouriteHandler
	HostRequests *HostRequestHandler
	Reports      *ReportHandler
}

// Handler builds the chi router.
func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(rt.Log))          // structured access log + metrics
	r.Use(CORS)

	authn := Authenticate(rt.Tokens, rt.Log)
	role := func(roles ...model.Role) func(http.Handler) http.Handler {
		return RequireRole(rt.Log, roles...)
	}
	attendee := role(model.RoleUser, model.RoleHost)
	admin := role(model.RoleAdmin)

	// Ops
	r.Get("/health", HealthCheck)
	r.Get("/readyz", Readiness(rt.Ready))
	r.Handle("/metrics", promhttp.Handler())
	if rt.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.UploadDir))))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", rt.Auth.Register)
		r.Post("/verify-email", rt.Auth.VerifyEmail)
		r.Post("/login", rt.Auth.Login)
		r.Post("/refresh-token", rt.Auth.Refresh)
		r.Post("/forgot-password", rt.Auth.ForgotPassword)
		r.Post("/reset-password", rt.Auth.ResetPassword)
		r.Post("/resend-otp", rt.Auth.ResendOTP)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/change-password", rt.Auth.ChangePassword)
			r.Get("/me", rt.Auth.Me)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/hosts", rt.Users.ListHosts)
		r.Get("/{id}/public", rt.Users.PublicProfile)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Get("/me", rt.Auth.Me)
			r.Patch("/me", rt.Users.UpdateProfile)
			r.With(admin).Get("/", rt.Users.ListUsers)
			r.With(admin).Get("/{id}", rt.Users.GetUser)
			r.With(admin).Patch("/{id}/status", rt.Users.ChangeStatus)
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", rt.Events.ListEvents)
		r.Get("/upcoming", rt.Events.ListByStatus(model.StatusUpcoming))
		r.Get("/ongoing", rt.Events.ListByStatus(model.StatusOngoing))
		r.Get("/completed", rt.Events.ListByStatus(model.StatusCompleted))
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.With(role(model.RoleHost, model.RoleAdmin)).Post("/", rt.Events.CreateEvent)
			r.With(admin).Get("/stats", rt.Events.Stats)
			r.With(attendee).Get("/my-participated-events", rt.Events.ListParticipated)
			r.With(attendee).Get("/my-participated-events/{id}", rt.Events.GetParticipated)
			r.With(role(model.RoleHost)).Get("/my-created-events", rt.Events.ListCreated)
			r.With(role(model.RoleHost, model.RoleAdmin)).Patch("/{id}", rt.Events.UpdateEvent)
			r.With(role(model.RoleHost, model.RoleAdmin)).Get("/{id}/participants", rt.Events.ListParticipants)
			r.With(admin).Delete("/{id}", rt.Events.DeleteEvent)
			r.With(attendee).Post("/{id}/participate", rt.Events.Participate)
		})
		r.Get("/{id}", rt.Events.GetEvent)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/stripe/webhook", rt.Payments.Webhook)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.With(attendee).Post("/", rt.Payments.CreatePayment)
			r.With(attendee).Post("/verify", rt.Payments.VerifyPayment)
			r.With(role(model.RoleAdmin, model.RoleHost)).Get("/", rt.Payments.ListPayments)
			r.Get("/{id}", rt.Payments.GetPayment)
			r.With(admin).Patch("/{id}/status", rt.Payments.UpdateStatus)
			r.With(admin).Delete("/{id}", rt.Payments.DeletePayment)
		})
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", rt.Reviews.ListReviews)
		r.Get("/hosts/{hostId}/stats", rt.Reviews.HostStats)
		r.Get("/events/{eventId}", rt.Reviews.ListForEvent)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.With(attendee).Post("/", rt.Reviews.CreateReview)
			r.With(role(model.RoleHost)).Get("/my-host-reviews", rt.Reviews.ListForHost)
			r.Patch("/{id}", rt.Reviews.UpdateReview)
			r.With(admin).Delete("/{id}", rt.Reviews.DeleteReview)
		})
		r.Get("/{id}", rt.Reviews.GetReview)
	})

	r.Route("/favourite-events", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", rt.Favourites.Add)
		r.Get("/", rt.Favourites.List)
		r.Delete("/{eventId}", rt.Favourites.Remove)
	})

	r.Route("/become-host", func(r chi.Router) {
		r.Use(authn)
		r.With(role(model.RoleUser)).Post("/", rt.HostRequests.Apply)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/admin", rt.HostRequests.CreateApproved)
			r.Get("/", rt.HostRequests.List)
			r.Get("/{id}", rt.HostRequests.Get)
			r.Patch("/{id}", rt.HostRequests.Decide)
			r.Delete("/{id}", rt.HostRequests.Delete)
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/hosts/public", rt.Reports.PublicHosts)
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.With(admin).Get("/admin", rt.Reports.Admin)
			r.With(role(model.RoleHost)).Get("/host", rt.Reports.Host)
			r.With(role(model.RoleUser)).Get("/user", rt.Reports.User)
			r.With(admin).Get("/payments", rt.Reports.Payments)
		})
	})

	return r
}
