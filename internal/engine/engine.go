// Package engine is the conversation state machine. Given one inbound
// message it advances the identity's session, mutates bookings, and returns
// the reply payload; channel adapters own the actual delivery.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
	"github.com/glowdesk/concierge/internal/deposit"
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/observability/metrics"
	"github.com/glowdesk/concierge/internal/schedule"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/pkg/logging"
)

// Reply is the turn contract: an intent tag and an optional user-visible
// text. A nil Text means "send nothing" (e.g. a deduplicated delivery).
type Reply struct {
	Intent string  `json:"intent"`
	Text   *string `json:"reply"`
}

func reply(intentTag, text string) Reply {
	return Reply{Intent: intentTag, Text: &text}
}

func silent(intentTag string) Reply {
	return Reply{Intent: intentTag}
}

// Outcome is a handler's verdict: Handled means the turn is answered and
// dispatch stops; otherwise the pipeline falls through to the next handler.
type Outcome struct {
	Handled bool
	Reply   Reply
}

func handled(intentTag, text string) Outcome {
	return Outcome{Handled: true, Reply: reply(intentTag, text)}
}

var fallthru = Outcome{}

// Message is one inbound user message.
type Message struct {
	Identity  string
	Channel   string
	Text      string
	MessageID string
}

// SessionStore persists conversation sessions.
type SessionStore interface {
	GetOrCreate(ctx context.Context, identity, channel string, now time.Time) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
}

// BookingStore persists bookings. It doubles as the slot occupancy source
// for the calculator.
type BookingStore interface {
	Create(ctx context.Context, b *booking.Booking) error
	Update(ctx context.Context, b *booking.Booking) error
	GetByRef(ctx context.Context, identity, refID string) (*booking.Booking, error)
	LatestWithStatus(ctx context.Context, identity string, status booking.Status) (*booking.Booking, error)
	Latest(ctx context.Context, identity string) (*booking.Booking, error)
	Pending(ctx context.Context, identity string) (*booking.Booking, error)
	CancelPending(ctx context.Context, identity string) (int64, error)
	SlotTaken(ctx context.Context, date, hhmm string) (bool, error)
}

// Locker serializes turns per identity.
type Locker interface {
	Acquire(ctx context.Context, identity string) (string, error)
	Release(ctx context.Context, identity, token string) error
}

// Checkout is a created payment session.
type Checkout struct {
	SessionID string
	URL       string
}

// PaymentProvider creates deposits checkouts and issues refunds.
type PaymentProvider interface {
	CreateCheckout(ctx context.Context, b *booking.Booking) (Checkout, error)
	Refund(ctx context.Context, paymentIntentID string) error
}

// Calendar mirrors confirmed bookings into an external calendar. All calls
// are best-effort; failures are logged, never surfaced to the user.
type Calendar interface {
	CreateEvent(ctx context.Context, title, startISO, endISO, tz string) (string, error)
	UpdateEvent(ctx context.Context, eventID, title, startISO, endISO, tz string) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// HandoffNotifier tells staff a conversation needs a human.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, identity, lastText string) error
}

// Deps wires the engine's collaborators. Business, Sessions, Bookings and
// Extractor are required; the rest degrade gracefully when nil.
type Deps struct {
	Business  *business.Config
	Sessions  SessionStore
	Bookings  BookingStore
	Extractor intent.Extractor

	Lock     Locker
	Payments PaymentProvider
	Calendar Calendar
	Notifier HandoffNotifier

	Metrics *metrics.TurnMetrics
	Logger  *logging.Logger

	PaymentWindow time.Duration
}

// Engine advances conversations one message at a time.
type Engine struct {
	biz       *business.Config
	loc       *time.Location
	deposits  *deposit.Policy
	slots     *schedule.Calculator
	sessions  SessionStore
	bookings  BookingStore
	extractor intent.Extractor

	lock     Locker
	payments PaymentProvider
	calendar Calendar
	notifier HandoffNotifier

	metrics *metrics.TurnMetrics
	log     *logging.Logger
	tracer  trace.Tracer

	paymentWindow time.Duration
	now           func() time.Time
}

// New builds the engine.
func New(d Deps) (*Engine, error) {
	if d.Business == nil {
		return nil, errors.New("engine: business config required")
	}
	if d.Sessions == nil || d.Bookings == nil || d.Extractor == nil {
		return nil, errors.New("engine: sessions, bookings and extractor are required")
	}
	loc, err := d.Business.LoadLocation()
	if err != nil {
		return nil, fmt.Errorf("engine: resolve timezone: %w", err)
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.PaymentWindow <= 0 {
		d.PaymentWindow = 15 * time.Minute
	}
	return &Engine{
		biz:           d.Business,
		loc:           loc,
		deposits:      deposit.NewPolicy(d.Business),
		slots:         schedule.NewCalculator(d.Business, d.Bookings),
		sessions:      d.Sessions,
		bookings:      d.Bookings,
		extractor:     d.Extractor,
		lock:          d.Lock,
		payments:      d.Payments,
		calendar:      d.Calendar,
		notifier:      d.Notifier,
		metrics:       d.Metrics,
		log:           d.Logger,
		tracer:        otel.Tracer("concierge/engine"),
		paymentWindow: d.PaymentWindow,
		now:           time.Now,
	}, nil
}

// HandleTurn processes one inbound message end to end.
func (e *Engine) HandleTurn(ctx context.Context, msg Message) (Reply, error) {
	ctx, span := e.tracer.Start(ctx, "engine.turn")
	defer span.End()

	started := time.Now()
	out, err := e.handleTurn(ctx, msg)
	if err == nil {
		e.metrics.ObserveTurn(out.Intent, time.Since(started).Seconds())
	}
	return out, err
}

func (e *Engine) handleTurn(ctx context.Context, msg Message) (Reply, error) {
	if msg.Identity == "" {
		return reply("error", "Something went wrong. Please try again."), nil
	}

	if e.lock != nil {
		token, err := e.lock.Acquire(ctx, msg.Identity)
		if err != nil {
			if errors.Is(err, session.ErrLockBusy) {
				e.metrics.ObserveLockBusy()
				return reply("busy", "One moment — I'm still working on your previous message."), nil
			}
			return Reply{}, err
		}
		defer func() {
			if err := e.lock.Release(ctx, msg.Identity, token); err != nil {
				e.log.Warn("turn lock release failed", "identity", msg.Identity, "error", err)
			}
		}()
	}

	now := e.now().UTC()

	sess, err := e.sessions.GetOrCreate(ctx, msg.Identity, msg.Channel, now)
	if err != nil {
		return Reply{}, fmt.Errorf("engine: load session: %w", err)
	}

	sess.ApplyTimeoutReset(now)

	// Retried deliveries must never mutate state twice, so the id check runs
	// before any classifier or booking work.
	if sess.MarkProcessed(msg.MessageID) {
		return silent("ignored"), nil
	}
	if err := e.sessions.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("engine: persist session: %w", err)
	}

	out := e.route(ctx, sess, msg, now)

	sess.Touch(now)
	if err := e.sessions.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("engine: persist session: %w", err)
	}
	return out, nil
}

// route runs the dispatch pipeline. Session mutations are persisted by the
// caller after it returns; booking mutations are written inline.
func (e *Engine) route(ctx context.Context, sess *session.Session, msg Message, now time.Time) Reply {
	extraction, err := e.extractor.Extract(ctx, msg.Text)
	if err != nil {
		e.log.Warn("extraction failed", "identity", msg.Identity, "error", err)
		sess.RecordFailure(now)
		if sess.ShouldHandoff() {
			return e.offerHandoff(ctx, sess, msg, now, "Sorry — I'm having trouble understanding. Would you like to speak to a human? Please call "+e.biz.ContactPhone+".")
		}
		return reply("fallback", "Sorry, I didn't quite catch that. Could you rephrase?")
	}

	confirmed, err := e.bookings.LatestWithStatus(ctx, msg.Identity, booking.StatusConfirmed)
	if err != nil && !errors.Is(err, booking.ErrNotFound) {
		e.log.Error("confirmed booking lookup failed", "identity", msg.Identity, "error", err)
	}

	in := intent.Normalize(extraction.Intent, msg.Text, sess.State, confirmed != nil)

	if out := e.handleExpiredUX(sess, in, msg.Text); out.Handled {
		return out.Reply
	}

	if in == intent.IntentFallback {
		sess.RecordFailure(now)
		if sess.ShouldHandoff() {
			return e.offerHandoff(ctx, sess, msg, now, "Sorry — I'm still not getting that. Would you like to speak to a human? Please call "+e.biz.ContactPhone+".")
		}
	}

	if in == intent.IntentInquiry {
		if guessed := inferFAQ(msg.Text); guessed != "" {
			in = guessed
		}
	}

	if in.IsFAQ() {
		return e.handleFAQ(sess, in, now)
	}

	if in == intent.IntentTalkToHuman {
		sess.Reset(now)
		e.notifyHandoff(ctx, msg)
		return reply("talk_to_human", "Sure — please call us at "+e.biz.ContactPhone+", or reply with your name and we'll have someone contact you.")
	}

	if in == intent.IntentBookingStatus {
		return e.handleStatus(ctx, sess, msg.Identity)
	}

	if sess.LastReminderBookingRef != "" {
		if out := e.handleReminderReply(ctx, sess, in, msg, now); out.Handled {
			return out.Reply
		}
	}

	if out := e.handleCancelConfirm(ctx, sess, in, msg, now); out.Handled {
		return out.Reply
	}

	pending, err := e.bookings.Pending(ctx, msg.Identity)
	if err != nil && !errors.Is(err, booking.ErrNotFound) {
		e.log.Error("pending booking lookup failed", "identity", msg.Identity, "error", err)
	}
	if pending != nil && e.expirePaymentIfNeeded(ctx, pending, now) {
		sess.State = session.StateIdle
		return reply("payment_expired", "Your payment window expired, so the booking was released.\nWould you like to try booking again?")
	}

	if out := e.handleConfirming(ctx, sess, in, extraction, msg, pending, now); out.Handled {
		return out.Reply
	}

	if out := e.initiateCancel(ctx, sess, in, msg, now); out.Handled {
		return out.Reply
	}

	e.initiateReschedule(ctx, sess, in, msg, now)

	if out := e.handleReschedule(ctx, sess, in, extraction, msg, now); out.Handled {
		return out.Reply
	}

	if sess.State == session.StateIdle && in == intent.IntentBookingRequest {
		e.grabFields(sess, extraction, msg.Text, now)
		sess.State = session.StateCollecting
		sess.ResetFailures()
	}

	// Cancel while collecting aborts the in-progress request, not a booking.
	if in == intent.IntentBookingCancel && sess.State == session.StateCollecting {
		sess.Reset(now)
		return reply("booking_cancelled", "Got it — I've cancelled this booking request. Would you like to book something else?")
	}

	if out := e.handleCollecting(ctx, sess, extraction, msg, now); out.Handled {
		return out.Reply
	}

	tag := string(in)
	if tag == "" {
		tag = "fallback"
	}
	return reply(tag, "Welcome to "+e.biz.Name+"! How can I help you today?")
}

// offerHandoff marks the one-time offer, notifies staff and resets the flow.
func (e *Engine) offerHandoff(ctx context.Context, sess *session.Session, msg Message, now time.Time, text string) Reply {
	sess.OfferHandoff(now)
	sess.Reset(now)
	e.metrics.ObserveHandoff()
	e.notifyHandoff(ctx, msg)
	return reply("handoff", text)
}

func (e *Engine) notifyHandoff(ctx context.Context, msg Message) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyHandoff(ctx, msg.Identity, msg.Text); err != nil {
		e.log.Warn("handoff notification failed", "identity", msg.Identity, "error", err)
	}
}

// handleStatus reports the most recent booking of any status, read-only.
func (e *Engine) handleStatus(ctx context.Context, sess *session.Session, identity string) Reply {
	sess.ResetFailures()
	latest, err := e.bookings.Latest(ctx, identity)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return reply("booking_status", "I don't see any bookings yet. Would you like to make one?")
		}
		e.log.Error("status lookup failed", "identity", identity, "error", err)
		return reply("booking_status", "Sorry, I couldn't look that up right now. Please try again.")
	}
	return reply("booking_status", fmt.Sprintf(
		"Your latest booking:\nService: %s\nDate: %s\nTime: %s\nStatus: %s\nRef ID: %s",
		latest.Service, latest.Date, timetextFormat(latest.Time), latest.Status, latest.RefID,
	))
}
