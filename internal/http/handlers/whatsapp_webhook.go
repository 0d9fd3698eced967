package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/glowdesk/concierge/internal/engine"
	"github.com/glowdesk/concierge/pkg/logging"
)

type outboundSender interface {
	Send(ctx context.Context, channel, identity, text string) error
}

// WhatsAppWebhookHandler receives inbound messages from the Meta Cloud API
// and pushes the engine's replies back out of band.
type WhatsAppWebhookHandler struct {
	verifyToken string
	engine      *engine.Engine
	sender      outboundSender
	logger      *logging.Logger
}

// NewWhatsAppWebhookHandler builds the webhook pair (verify + receive).
func NewWhatsAppWebhookHandler(verifyToken string, eng *engine.Engine, sender outboundSender, logger *logging.Logger) *WhatsAppWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		verifyToken: verifyToken,
		engine:      eng,
		sender:      sender,
		logger:      logger,
	}
}

// Verify answers Meta's subscription challenge.
func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "forbidden", http.StatusForbidden)
}

// whatsappInbound is the subset of Meta's webhook payload we consume.
type whatsappInbound struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// Receive handles inbound message notifications. Non-text messages are
// acknowledged and dropped. Meta retries on non-2xx, so per-message failures
// are logged rather than surfaced.
func (h *WhatsAppWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload whatsappInbound
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.From == "" {
					continue
				}
				h.handleMessage(r.Context(), msg.From, msg.ID, msg.Text.Body)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WhatsAppWebhookHandler) handleMessage(ctx context.Context, from, messageID, text string) {
	identity := from
	if identity[0] != '+' {
		identity = "+" + identity
	}

	reply, err := h.engine.HandleTurn(ctx, engine.Message{
		Identity:  identity,
		Channel:   "whatsapp",
		Text:      text,
		MessageID: messageID,
	})
	if err != nil {
		h.logger.Error("whatsapp turn failed", "identity", identity, "error", err)
		return
	}
	if reply.Text == nil {
		return
	}

	if err := h.sender.Send(ctx, "whatsapp", identity, *reply.Text); err != nil {
		h.logger.Error("whatsapp reply delivery failed", "identity", identity, "error", err)
	}
}
