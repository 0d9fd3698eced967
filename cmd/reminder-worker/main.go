package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
	appconfig "github.com/glowdesk/concierge/internal/config"
	"github.com/glowdesk/concierge/internal/messaging"
	"github.com/glowdesk/concierge/internal/observability/metrics"
	"github.com/glowdesk/concierge/internal/reminders"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker",
		"env", cfg.Env,
		"sweep_interval", cfg.ReminderSweepInterval.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	var whatsappSender, smsSender messaging.Sender
	if cfg.WhatsAppAccessToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		whatsappSender = messaging.NewWhatsAppSender(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, logger)
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		smsSender = messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	}
	outbound := messaging.NewRouter(whatsappSender, smsSender, logger)

	sweeper := reminders.NewSweeper(
		booking.NewRepository(pool),
		session.NewRepository(pool),
		outbound,
		biz,
		metrics.NewReminderMetrics(prometheus.DefaultRegisterer),
		logger,
	).WithWindows(cfg.ReminderFirstWindow, cfg.ReminderSecondWindow)

	ticker := time.NewTicker(cfg.ReminderSweepInterval)
	defer ticker.Stop()

	// One pass at boot so a restart never skips a window.
	if err := sweeper.Sweep(ctx); err != nil {
		logger.Error("sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if err := sweeper.Sweep(ctx); err != nil {
				logger.Error("sweep failed", "error", err)
			}
		}
	}
}
