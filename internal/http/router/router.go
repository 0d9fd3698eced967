// Package router assembles the HTTP surface: chat, channel webhooks,
// payment webhooks, health and metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glowdesk/concierge/internal/http/handlers"
	httpmiddleware "github.com/glowdesk/concierge/internal/http/middleware"
	"github.com/glowdesk/concierge/internal/payments"
	"github.com/glowdesk/concierge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Chat            *handlers.ChatHandler
	WhatsAppWebhook *handlers.WhatsAppWebhookHandler
	StripeWebhook   *payments.StripeWebhookHandler
	MetricsHandler  http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Chat != nil {
		r.Post("/chat", cfg.Chat.Handle)
	}
	if cfg.WhatsAppWebhook != nil {
		r.Get("/whatsapp/webhook", cfg.WhatsAppWebhook.Verify)
		r.Post("/whatsapp/webhook", cfg.WhatsAppWebhook.Receive)
	}
	if cfg.StripeWebhook != nil {
		r.Post("/payments/stripe/webhook", cfg.StripeWebhook.Handle)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
