// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/config"
	"github.com/Shivanand-hulikatti/eventhub/internal/database"
	"github.com/Shivanand-hulikatti/eventhub/internal/handler"
	"github.com/Shivanand-hulikatti/eventhub/internal/logging"
	"github.com/Shivanand-hulikatti/eventhub/internal/mail"
	"github.com/Shivanand-hulikatti/eventhub/internal/otp"
	"github.com/Shivanand-hulikatti/eventhub/internal/payment/stripe"
	"github.com/Shivanand-hulikatti/eventhub/internal/repository"
	"github.com/Shivanand-hulikatti/eventhub/internal/scheduler"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
	"github.com/Shivanand-hulikatti/eventhub/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "eventhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	loc, _ := cfg.Scheduler.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL and Redis ───────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("connected to postgres")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	log.Info("connected to redis")

	// ── 2. External services ─────────────────────────────────────────────
	objects, err := storage.NewLocal(cfg.UploadDir, cfg.PublicBaseURL+"/uploads")
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	provider := stripe.New(stripe.Config{
		SecretKey:      cfg.Stripe.SecretKey,
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		Timeout:        cfg.Payment.ProviderTimeout,
	})
	var mailer service.Mailer = mail.LogMailer{Log: log}
	if cfg.SMTP.Host != "" {
		mailer = mail.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.MailFrom)
	} else {
		log.Warn("SMTP_HOST not set, one-time codes are written to the log")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)
	favouriteRepo := repository.NewFavouriteRepository(pool)
	hostRequestRepo := repository.NewHostRequestRepository(pool)
	reportRepo := repository.NewReportRepository(pool)

	tokens := auth.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	hasher := auth.NewHasher(cfg.BcryptCost)

	authSvc := service.NewAuthService(userRepo, hasher, tokens, otp.NewStore(rdb, cfg.OTPTTL), mailer, cfg.OTPTTL, log)
	if cfg.Admin.Email != "" {
		if _, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.FullName); err != nil {
			return fmt.Errorf("admin bootstrap: %w", err)
		}
	}

	eventSvc := service.NewEventService(eventRepo, ledgerRepo, paymentRepo, objects, loc, log)
	paymentSvc := service.NewPaymentService(paymentRepo, ledgerRepo, eventSvc, provider,
		cfg.Payment.Currency, cfg.Payment.ProviderTimeout, log)
	userSvc := service.NewUserService(userRepo, objects, log)
	reviewSvc := service.NewReviewService(reviewRepo, eventRepo, ledgerRepo)
	favouriteSvc := service.NewFavouriteService(favouriteRepo, eventRepo)
	hostRequestSvc := service.NewHostRequestService(hostRequestRepo, userRepo, log)
	reportSvc := service.NewReportService(reportRepo, eventRepo, paymentRepo, hostRequestRepo, loc)

	router := handler.Router{
		Log:    log,
		Tokens: tokens,
		Ready: map[string]handler.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		UploadDir:    objects.Dir(),
		Auth:         handler.NewAuthHandler(authSvc, log),
		Users:        handler.NewUserHandler(userSvc, log),
		Events:       handler.NewEventHandler(eventSvc, log),
		Payments:     handler.NewPaymentHandler(paymentSvc, log),
		Reviews:      handler.NewReviewHandler(reviewSvc, log),
		Favourites:   handler.NewFavouriteHandler(favouriteSvc, log),
		HostRequests: handler.NewHostRequestHandler(hostRequestSvc, log),
		Reports:      handler.NewReportHandler(reportSvc, log),
	}

	// ── 4. Status scheduler ──────────────────────────────────────────────
	sweeper := scheduler.NewSweeper(eventRepo, cfg.Scheduler.Interval, loc, log)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Block until SIGINT/SIGTERM or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("server: %w", err)
		}
	}
	stop()

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-sweepDone
	log.Info("server stopped")
	return nil
}
