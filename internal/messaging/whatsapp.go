package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowdesk/concierge/pkg/logging"
)

var whatsappTracer = otel.Tracer("concierge/messaging/whatsapp")

// WhatsAppSender posts text messages through the Meta Cloud API.
type WhatsAppSender struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *logging.Logger
}

// NewWhatsAppSender builds a sender with sane defaults.
func NewWhatsAppSender(accessToken, phoneNumberID string, logger *logging.Logger) *WhatsAppSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppSender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       "https://graph.facebook.com/v21.0",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		logger:        logger,
	}
}

// WithBaseURL overrides the Graph API base URL (for testing).
func (s *WhatsAppSender) WithBaseURL(baseURL string) *WhatsAppSender {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

type whatsappTextPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText dispatches a single WhatsApp text message.
func (s *WhatsAppSender) SendText(ctx context.Context, to, text string) error {
	if s.accessToken == "" || s.phoneNumberID == "" {
		return errors.New("whatsapp credentials missing")
	}
	if to == "" {
		return errors.New("to required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("body required")
	}

	ctx, span := whatsappTracer.Start(ctx, "messaging.whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.to", to))

	payload := whatsappTextPayload{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(to, "+"),
		Type:             "text",
	}
	payload.Text.Body = text

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("whatsapp http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("whatsapp send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		span.RecordError(err)
		return err
	}

	s.logger.Info("whatsapp message sent", "to", to)
	return nil
}
