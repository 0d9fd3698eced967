// Package payments owns the deposit sub-protocol: Stripe Checkout session
// creation, webhook consumption with event dedup, and refunds.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/pkg/logging"
)

var stripeTracer = otel.Tracer("concierge/payments/stripe")

// Checkout is a created payment session.
type Checkout struct {
	SessionID string
	URL       string
}

// StripeCheckoutService creates Stripe Checkout Sessions for deposit
// collection and issues refunds.
type StripeCheckoutService struct {
	secretKey  string
	successURL string
	cancelURL  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewStripeCheckoutService creates a new Stripe checkout service.
func NewStripeCheckoutService(secretKey, successURL, cancelURL string, logger *logging.Logger) *StripeCheckoutService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeCheckoutService{
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeCheckoutService) WithBaseURL(baseURL string) *StripeCheckoutService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun makes the service return fake URLs without calling Stripe.
func (s *StripeCheckoutService) WithDryRun(enabled bool) *StripeCheckoutService {
	s.dryRun = enabled
	return s
}

// CreateCheckout opens a checkout session for the booking's deposit. The
// booking reference travels in the session metadata so the webhook can route
// the completion back.
func (s *StripeCheckoutService) CreateCheckout(ctx context.Context, b *booking.Booking) (Checkout, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("concierge.booking_ref", b.RefID),
		attribute.Int("concierge.amount_cents", b.DepositAmountCents),
	)

	if s.dryRun {
		fakeID := "cs_dryrun_" + uuid.NewString()[:8]
		s.logger.Info("stripe dry run: skipping checkout session creation",
			"booking_ref", b.RefID, "amount_cents", b.DepositAmountCents)
		return Checkout{
			SessionID: fakeID,
			URL:       "https://checkout.stripe.com/dry-run/" + fakeID,
		}, nil
	}

	currency := b.Currency
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.Itoa(b.DepositAmountCents))
	form.Set("line_items[0][price_data][product_data][name]", "Deposit — "+b.Service)
	form.Set("line_items[0][quantity]", "1")

	if s.successURL != "" {
		form.Set("success_url", s.successURL)
	}
	if s.cancelURL != "" {
		form.Set("cancel_url", s.cancelURL)
	}
	if b.PaymentExpiresAt != nil {
		form.Set("expires_at", strconv.FormatInt(b.PaymentExpiresAt.Unix(), 10))
	}

	form.Set("metadata[booking_id]", b.RefID)
	form.Set("metadata[identity]", b.Identity)
	form.Set("metadata[channel]", b.Channel)
	form.Set("payment_intent_data[metadata][booking_id]", b.RefID)
	form.Set("payment_intent_data[metadata][identity]", b.Identity)

	var parsed stripeCheckoutSession
	if err := s.post(ctx, "/v1/checkout/sessions", form, &parsed); err != nil {
		return Checkout{}, err
	}
	if parsed.URL == "" {
		return Checkout{}, fmt.Errorf("payments: stripe response missing checkout url")
	}

	return Checkout{SessionID: parsed.ID, URL: parsed.URL}, nil
}

// Refund returns a captured deposit to the customer.
func (s *StripeCheckoutService) Refund(ctx context.Context, paymentIntentID string) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.refund")
	defer span.End()

	if s.dryRun {
		s.logger.Info("stripe dry run: skipping refund", "payment_intent", paymentIntentID)
		return nil
	}

	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)

	var parsed struct {
		ID string `json:"id"`
	}
	return s.post(ctx, "/v1/refunds", form, &parsed)
}

func (s *StripeCheckoutService) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

// stripeCheckoutSession is the subset of Stripe's Checkout Session we need.
type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
