package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
	"github.com/glowdesk/concierge/internal/session"
)

type fakeBookings struct {
	byRef   map[string]*booking.Booking
	updated int
}

func (f *fakeBookings) GetByRef(_ context.Context, identity, refID string) (*booking.Booking, error) {
	b, ok := f.byRef[refID]
	if !ok || b.Identity != identity {
		return nil, booking.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookings) Update(_ context.Context, b *booking.Booking) error {
	f.byRef[b.RefID] = b
	f.updated++
	return nil
}

type fakeSessions struct {
	byIdentity map[string]*session.Session
	saved      int
}

func (f *fakeSessions) GetOrCreate(_ context.Context, identity, channel string, now time.Time) (*session.Session, error) {
	if s, ok := f.byIdentity[identity]; ok {
		return s, nil
	}
	s := session.New(identity, channel, now)
	f.byIdentity[identity] = s
	return s, nil
}

func (f *fakeSessions) Save(_ context.Context, s *session.Session) error {
	f.byIdentity[s.Identity] = s
	f.saved++
	return nil
}

type fakeProcessed struct {
	seen map[string]bool
}

func (f *fakeProcessed) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	key := provider + ":" + eventID
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeRefunder struct {
	refunded []string
}

func (f *fakeRefunder) Refund(_ context.Context, paymentIntentID string) error {
	f.refunded = append(f.refunded, paymentIntentID)
	return nil
}

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) Send(_ context.Context, channel, identity, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fakeEventCalendar struct {
	created int
}

func (f *fakeEventCalendar) CreateEvent(_ context.Context, title, startISO, endISO, tz string) (string, error) {
	f.created++
	return "evt_webhook_1", nil
}

type webhookHarness struct {
	handler   *StripeWebhookHandler
	bookings  *fakeBookings
	sessions  *fakeSessions
	processed *fakeProcessed
	refunds   *fakeRefunder
	messages  *fakeMessenger
	calendar  *fakeEventCalendar
	now       time.Time
}

func newWebhookHarness(t *testing.T, secret string) *webhookHarness {
	t.Helper()
	h := &webhookHarness{
		bookings:  &fakeBookings{byRef: map[string]*booking.Booking{}},
		sessions:  &fakeSessions{byIdentity: map[string]*session.Session{}},
		processed: &fakeProcessed{seen: map[string]bool{}},
		refunds:   &fakeRefunder{},
		messages:  &fakeMessenger{},
		calendar:  &fakeEventCalendar{},
		now:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	biz := &business.Config{
		Name:                "Glow Desk",
		Timezone:            "UTC",
		BusinessHours:       business.Hours{Start: "09:00", End: "19:00"},
		SlotDurationMinutes: 30,
	}
	h.handler = NewStripeWebhookHandler(secret, biz,
		h.bookings, h.sessions, h.processed, h.refunds, h.messages, h.calendar, nil, nil)
	h.handler.now = func() time.Time { return h.now }
	return h
}

func (h *webhookHarness) pendingBooking(ref, identity string) *booking.Booking {
	b := &booking.Booking{
		RefID:              ref,
		Identity:           identity,
		Channel:            "whatsapp",
		Service:            "facial",
		Date:               "2026-03-12",
		Time:               "15:00",
		Status:             booking.StatusPending,
		PaymentStatus:      booking.PaymentCheckoutCreated,
		DepositAmountCents: 2000,
		Currency:           "usd",
	}
	h.bookings.byRef[ref] = b
	return b
}

func eventJSON(id, eventType, ref, identity, intent string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": %q,
		"created": 1767000000,
		"data": {"object": {
			"id": "cs_test_9",
			"payment_intent": %q,
			"amount_total": 2000,
			"metadata": {"booking_id": %q, "identity": %q, "channel": "whatsapp"}
		}}
	}`, id, eventType, intent, ref, identity))
}

func (h *webhookHarness) post(payload []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/stripe/webhook", bytes.NewReader(payload))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.handler.Handle(rec, req)
	return rec
}

func signStripe(secret string, payload []byte) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(payload)))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookCompletedConfirmsBooking(t *testing.T) {
	h := newWebhookHarness(t, "")
	b := h.pendingBooking("GLOW-AB12CD34", "+15550001111")

	sess := session.New("+15550001111", "whatsapp", h.now)
	sess.State = session.StatePaymentPending
	h.sessions.byIdentity[sess.Identity] = sess

	rec := h.post(eventJSON("evt_1", "checkout.session.completed", b.RefID, b.Identity, "pi_777"), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StatusConfirmed, b.Status)
	assert.Equal(t, booking.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "pi_777", b.PaymentIntentID)
	require.NotNil(t, b.PaidAt)
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, "evt_webhook_1", b.CalendarEventID)
	assert.Equal(t, 1, h.calendar.created)

	assert.Equal(t, session.StateIdle, sess.State)
	require.Len(t, h.messages.sent, 1)
	assert.Contains(t, h.messages.sent[0], "GLOW-AB12CD34")
	assert.Contains(t, h.messages.sent[0], "3:00 PM")
}

func TestWebhookDuplicateEventIsNoOp(t *testing.T) {
	h := newWebhookHarness(t, "")
	b := h.pendingBooking("GLOW-AB12CD34", "+15550001111")

	payload := eventJSON("evt_1", "checkout.session.completed", b.RefID, b.Identity, "pi_777")
	rec := h.post(payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	firstUpdates := h.bookings.updated

	rec = h.post(payload, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, firstUpdates, h.bookings.updated, "replayed event must not touch the booking again")
	assert.Len(t, h.messages.sent, 1)
}

func TestWebhookLatePaymentIsRefundedNotRevived(t *testing.T) {
	h := newWebhookHarness(t, "")
	b := h.pendingBooking("GLOW-AB12CD34", "+15550001111")
	b.Status = booking.StatusCancelled
	b.PaymentStatus = booking.PaymentExpired

	rec := h.post(eventJSON("evt_2", "checkout.session.completed", b.RefID, b.Identity, "pi_late"), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StatusCancelled, b.Status, "late payment must not revive the booking")
	assert.Equal(t, booking.PaymentRefunded, b.PaymentStatus)
	assert.Equal(t, []string{"pi_late"}, h.refunds.refunded)
	assert.Empty(t, h.messages.sent)
	assert.Equal(t, 0, h.calendar.created)
}

func TestWebhookExpiredReleasesBooking(t *testing.T) {
	h := newWebhookHarness(t, "")
	b := h.pendingBooking("GLOW-AB12CD34", "+15550001111")

	sess := session.New(b.Identity, "whatsapp", h.now)
	sess.State = session.StatePaymentPending
	h.sessions.byIdentity[sess.Identity] = sess

	rec := h.post(eventJSON("evt_3", "checkout.session.expired", b.RefID, b.Identity, ""), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StatusCancelled, b.Status)
	assert.Equal(t, booking.PaymentExpired, b.PaymentStatus)
	assert.Equal(t, session.StateIdle, sess.State)
	require.Len(t, h.messages.sent, 1)
	assert.Contains(t, h.messages.sent[0], "expired")
	assert.Empty(t, h.refunds.refunded)
}

func TestWebhookIgnoresUnrelatedEventTypes(t *testing.T) {
	h := newWebhookHarness(t, "")

	rec := h.post(eventJSON("evt_4", "payment_intent.created", "GLOW-AB12CD34", "+15550001111", ""), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.processed.seen, "uninteresting events are acknowledged before dedup")
	assert.Equal(t, 0, h.bookings.updated)
}

func TestWebhookSignatureVerification(t *testing.T) {
	const secret = "whsec_test"
	h := newWebhookHarness(t, secret)
	b := h.pendingBooking("GLOW-AB12CD34", "+15550001111")
	payload := eventJSON("evt_5", "checkout.session.completed", b.RefID, b.Identity, "pi_9")

	rec := h.post(payload, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "missing signature must be rejected")

	rec = h.post(payload, map[string]string{"Stripe-Signature": "t=123,v1=deadbeef"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "stale or forged signature must be rejected")

	rec = h.post(payload, map[string]string{"Stripe-Signature": signStripe(secret, payload)})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, booking.StatusConfirmed, b.Status)
}

func TestWebhookMissingMetadataAcknowledged(t *testing.T) {
	h := newWebhookHarness(t, "")

	payload := []byte(`{"id":"evt_6","type":"checkout.session.completed","data":{"object":{"id":"cs_x","metadata":{}}}}`)
	rec := h.post(payload, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, h.bookings.updated)
}

func TestVerifyStripeSignatureEmptySecretBypasses(t *testing.T) {
	assert.True(t, verifyStripeSignature("", []byte("{}"), ""))
	assert.False(t, verifyStripeSignature("whsec_x", []byte("{}"), ""))
}
