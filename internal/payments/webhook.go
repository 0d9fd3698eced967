package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
	"github.com/glowdesk/concierge/internal/observability/metrics"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/internal/timetext"
	"github.com/glowdesk/concierge/pkg/logging"
)

type bookingStore interface {
	GetByRef(ctx context.Context, identity, refID string) (*booking.Booking, error)
	Update(ctx context.Context, b *booking.Booking) error
}

type sessionStore interface {
	GetOrCreate(ctx context.Context, identity, channel string, now time.Time) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
}

type processedTracker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type refunder interface {
	Refund(ctx context.Context, paymentIntentID string) error
}

type messenger interface {
	Send(ctx context.Context, channel, identity, text string) error
}

type calendarCreator interface {
	CreateEvent(ctx context.Context, title, startISO, endISO, tz string) (string, error)
}

// StripeWebhookHandler consumes checkout completion/expiry events and
// settles the matching booking.
type StripeWebhookHandler struct {
	webhookSecret string
	biz           *business.Config
	bookings      bookingStore
	sessions      sessionStore
	processed     processedTracker
	refunds       refunder
	messages      messenger
	calendar      calendarCreator
	metrics       *metrics.PaymentMetrics
	logger        *logging.Logger
	now           func() time.Time
}

// NewStripeWebhookHandler wires the webhook consumer. Refunds, messaging and
// calendar are optional.
func NewStripeWebhookHandler(
	webhookSecret string,
	biz *business.Config,
	bookings bookingStore,
	sessions sessionStore,
	processed processedTracker,
	refunds refunder,
	messages messenger,
	calendar calendarCreator,
	m *metrics.PaymentMetrics,
	logger *logging.Logger,
) *StripeWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		biz:           biz,
		bookings:      bookings,
		sessions:      sessions,
		processed:     processed,
		refunds:       refunds,
		messages:      messages,
		calendar:      calendar,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

type stripeWebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID            string            `json:"id"`
			PaymentIntent string            `json:"payment_intent"`
			AmountTotal   int64             `json:"amount_total"`
			Metadata      map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Handle processes incoming Stripe webhook events.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifyStripeSignature(h.webhookSecret, payload, r.Header.Get("Stripe-Signature")) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt stripeWebhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode stripe event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if evt.Type != "checkout.session.completed" && evt.Type != "checkout.session.expired" {
		w.WriteHeader(http.StatusOK)
		return
	}

	fresh, err := h.processed.MarkProcessed(r.Context(), "stripe", evt.ID)
	if err != nil {
		h.logger.Error("processed insert failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !fresh {
		h.metrics.ObserveWebhook(evt.Type, "duplicate")
		w.WriteHeader(http.StatusOK)
		return
	}

	identity := evt.Data.Object.Metadata["identity"]
	bookingRef := evt.Data.Object.Metadata["booking_id"]
	if identity == "" || bookingRef == "" {
		h.logger.Warn("stripe webhook missing metadata", "event_id", evt.ID)
		// Acknowledge to stop retries; nothing to route the event to.
		w.WriteHeader(http.StatusOK)
		return
	}

	b, err := h.bookings.GetByRef(r.Context(), identity, bookingRef)
	if err != nil {
		h.logger.Warn("stripe webhook booking not found", "ref", bookingRef, "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	switch evt.Type {
	case "checkout.session.completed":
		h.handleCompleted(r.Context(), b, evt)
	case "checkout.session.expired":
		h.handleExpired(r.Context(), b)
	}

	w.WriteHeader(http.StatusOK)
}

// handleCompleted confirms a still-pending booking. A payment landing after
// the booking was released is recorded as late and refunded, never revived.
func (h *StripeWebhookHandler) handleCompleted(ctx context.Context, b *booking.Booking, evt stripeWebhookEvent) {
	now := h.now().UTC()

	if b.Status != booking.StatusPending {
		h.metrics.ObserveWebhook(evt.Type, "late")
		b.PaymentStatus = booking.PaymentLate
		if b.PaymentIntentID == "" {
			b.PaymentIntentID = evt.Data.Object.PaymentIntent
		}
		if h.refunds != nil && b.PaymentIntentID != "" {
			if err := h.refunds.Refund(ctx, b.PaymentIntentID); err != nil {
				h.logger.Error("late payment refund failed", "ref", b.RefID, "error", err)
			} else {
				b.PaymentStatus = booking.PaymentRefunded
			}
		}
		if err := h.bookings.Update(ctx, b); err != nil {
			h.logger.Error("late payment update failed", "ref", b.RefID, "error", err)
		}
		return
	}

	b.Status = booking.StatusConfirmed
	b.ConfirmedAt = &now
	b.PaymentStatus = booking.PaymentPaid
	b.PaidAt = &now
	b.PaymentIntentID = evt.Data.Object.PaymentIntent

	h.createCalendarEvent(ctx, b)

	if err := h.bookings.Update(ctx, b); err != nil {
		h.logger.Error("payment confirm update failed", "ref", b.RefID, "error", err)
		return
	}

	h.settleSession(ctx, b.Identity, now)
	h.notify(ctx, b,
		"Deposit received — your appointment is confirmed!\nRef ID: "+b.RefID+
			"\nSee you on "+b.Date+" at "+timetext.FormatTime(b.Time)+".")
	h.metrics.ObserveWebhook(evt.Type, "confirmed")
}

// handleExpired releases the slot when the checkout lapses unpaid.
func (h *StripeWebhookHandler) handleExpired(ctx context.Context, b *booking.Booking) {
	if b.Status != booking.StatusPending {
		h.metrics.ObserveWebhook("checkout.session.expired", "ignored")
		return
	}

	now := h.now().UTC()
	b.Status = booking.StatusCancelled
	b.PaymentStatus = booking.PaymentExpired
	if err := h.bookings.Update(ctx, b); err != nil {
		h.logger.Error("payment expiry update failed", "ref", b.RefID, "error", err)
		return
	}

	h.settleSession(ctx, b.Identity, now)
	h.notify(ctx, b, "Your payment window expired, so the booking was released.\nWould you like to try booking again?")
	h.metrics.ObserveWebhook("checkout.session.expired", "released")
}

// settleSession pulls the identity out of PAYMENT_PENDING once the payment
// question is resolved either way.
func (h *StripeWebhookHandler) settleSession(ctx context.Context, identity string, now time.Time) {
	if h.sessions == nil {
		return
	}
	sess, err := h.sessions.GetOrCreate(ctx, identity, "", now)
	if err != nil {
		h.logger.Error("session load failed", "identity", identity, "error", err)
		return
	}
	if sess.State == session.StatePaymentPending {
		sess.Reset(now)
		if err := h.sessions.Save(ctx, sess); err != nil {
			h.logger.Error("session save failed", "identity", identity, "error", err)
		}
	}
}

func (h *StripeWebhookHandler) notify(ctx context.Context, b *booking.Booking, text string) {
	if h.messages == nil {
		return
	}
	if err := h.messages.Send(ctx, b.Channel, b.Identity, text); err != nil {
		h.logger.Warn("payment notification failed", "ref", b.RefID, "error", err)
	}
}

func (h *StripeWebhookHandler) createCalendarEvent(ctx context.Context, b *booking.Booking) {
	if h.calendar == nil || h.biz == nil {
		return
	}
	loc, err := h.biz.LoadLocation()
	if err != nil {
		return
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Time, loc)
	if err != nil {
		h.logger.Warn("calendar times failed", "ref", b.RefID, "error", err)
		return
	}
	end := start.Add(h.biz.SlotDuration())

	eventID, err := h.calendar.CreateEvent(ctx, h.biz.Name+" - "+b.Service,
		start.Format(time.RFC3339), end.Format(time.RFC3339), h.biz.Timezone)
	if err != nil {
		h.logger.Warn("calendar create failed", "ref", b.RefID, "error", err)
		return
	}
	b.CalendarEventID = eventID
}

// verifyStripeSignature verifies a Stripe webhook signature. Stripe signs
// with HMAC-SHA256 and sends the header as t=<ts>,v1=<sig>[,v0=<sig>].
func verifyStripeSignature(secret string, payload []byte, header string) bool {
	if secret == "" {
		return true // bypass for development
	}
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > 300 {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
