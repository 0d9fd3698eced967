package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
	"github.com/glowdesk/concierge/internal/calendar"
	appconfig "github.com/glowdesk/concierge/internal/config"
	"github.com/glowdesk/concierge/internal/engine"
	"github.com/glowdesk/concierge/internal/http/handlers"
	"github.com/glowdesk/concierge/internal/http/router"
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/messaging"
	"github.com/glowdesk/concierge/internal/notify"
	"github.com/glowdesk/concierge/internal/observability/metrics"
	"github.com/glowdesk/concierge/internal/payments"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/pkg/logging"
)

// stripeProvider adapts the Stripe service to the engine's payment port.
type stripeProvider struct {
	svc *payments.StripeCheckoutService
}

func (p stripeProvider) CreateCheckout(ctx context.Context, b *booking.Booking) (engine.Checkout, error) {
	co, err := p.svc.CreateCheckout(ctx, b)
	if err != nil {
		return engine.Checkout{}, err
	}
	return engine.Checkout{SessionID: co.SessionID, URL: co.URL}, nil
}

func (p stripeProvider) Refund(ctx context.Context, paymentIntentID string) error {
	return p.svc.Refund(ctx, paymentIntentID)
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting concierge API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	biz, err := business.Load(cfg.BusinessConfigPath)
	if err != nil {
		logger.Error("failed to load business config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "error", err)
		os.Exit(1)
	}

	sessionRepo := session.NewRepository(pool)
	bookingRepo := booking.NewRepository(pool)
	processedStore := payments.NewProcessedStore(pool)
	turnLock := session.NewTurnLock(redisClient, cfg.TurnLockTTL, cfg.TurnLockRetryInterval, cfg.TurnLockAcquisitionBudget)

	extractor, err := intent.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID, biz)
	if err != nil {
		logger.Error("failed to create extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	turnMetrics := metrics.NewTurnMetrics(prometheus.DefaultRegisterer)
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	stripeSvc := payments.NewStripeCheckoutService(
		cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL, logger).
		WithDryRun(cfg.StripeSecretKey == "")

	var cal engine.Calendar
	if cfg.GoogleServiceAccountPath != "" {
		creds, err := os.ReadFile(cfg.GoogleServiceAccountPath)
		if err != nil {
			logger.Error("failed to read calendar credentials", "error", err)
			os.Exit(1)
		}
		events, err := calendar.NewEvents(ctx, creds, cfg.GoogleCalendarID, logger)
		if err != nil {
			logger.Error("failed to create calendar client", "error", err)
			os.Exit(1)
		}
		cal = events
	}

	email := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.HandoffAlertFromEmail,
		FromName:  biz.Name,
	}, logger)
	var emailSender notify.EmailSender
	if email != nil {
		emailSender = email
	}
	handoff := notify.NewHandoffService(emailSender, cfg.HandoffAlertEmail, biz.Name, logger)

	var whatsappSender, smsSender messaging.Sender
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		whatsappSender = messaging.NewWhatsAppSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, logger)
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		smsSender = messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	}
	outbound := messaging.NewRouter(whatsappSender, smsSender, logger)

	eng, err := engine.New(engine.Deps{
		Business:      biz,
		Sessions:      sessionRepo,
		Bookings:      bookingRepo,
		Extractor:     extractor,
		Lock:          turnLock,
		Payments:      stripeProvider{svc: stripeSvc},
		Calendar:      cal,
		Notifier:      handoff,
		Metrics:       turnMetrics,
		Logger:        logger,
		PaymentWindow: cfg.PaymentWindow,
	})
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	stripeWebhook := payments.NewStripeWebhookHandler(
		cfg.StripeWebhookSecret, biz,
		bookingRepo, sessionRepo, processedStore,
		stripeSvc, outbound, cal,
		paymentMetrics, logger,
	)

	r := router.New(&router.Config{
		Logger:          logger,
		Chat:            handlers.NewChatHandler(eng, logger),
		WhatsAppWebhook: handlers.NewWhatsAppWebhookHandler(cfg.WhatsAppVerifyToken, eng, outbound, logger),
		StripeWebhook:   stripeWebhook,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
