// Package reminders runs the periodic sweep that nudges guests before their
// appointments and flags likely no-shows.
package reminders

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
	"github.com/glowdesk/concierge/internal/observability/metrics"
	"github.com/glowdesk/concierge/internal/timetext"
	"github.com/glowdesk/concierge/pkg/logging"
)

var sweepTracer = otel.Tracer("concierge/reminders")

type bookingStore interface {
	ListConfirmed(ctx context.Context) ([]booking.Booking, error)
	Update(ctx context.Context, b *booking.Booking) error
}

type reminderBinder interface {
	BindReminder(ctx context.Context, identity, bookingRef string, now time.Time) error
}

type messenger interface {
	Send(ctx context.Context, channel, identity, text string) error
}

// Sweeper walks confirmed bookings and sends the two pre-appointment
// reminders, then marks no-show risk once the start time passes unanswered.
type Sweeper struct {
	bookings     bookingStore
	sessions     reminderBinder
	messages     messenger
	biz          *business.Config
	metrics      *metrics.ReminderMetrics
	logger       *logging.Logger
	firstWindow  time.Duration
	secondWindow time.Duration
	now          func() time.Time
}

// NewSweeper wires the sweep. Windows default to 24h and 2h before start.
func NewSweeper(
	bookings bookingStore,
	sessions reminderBinder,
	messages messenger,
	biz *business.Config,
	m *metrics.ReminderMetrics,
	logger *logging.Logger,
) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		bookings:     bookings,
		sessions:     sessions,
		messages:     messages,
		biz:          biz,
		metrics:      m,
		logger:       logger,
		firstWindow:  24 * time.Hour,
		secondWindow: 2 * time.Hour,
		now:          time.Now,
	}
}

// WithWindows overrides the reminder lead times.
func (s *Sweeper) WithWindows(first, second time.Duration) *Sweeper {
	if first > 0 {
		s.firstWindow = first
	}
	if second > 0 {
		s.secondWindow = second
	}
	return s
}

// Sweep runs one pass over the confirmed bookings.
func (s *Sweeper) Sweep(ctx context.Context) error {
	ctx, span := sweepTracer.Start(ctx, "reminders.sweep")
	defer span.End()

	loc, err := s.biz.LoadLocation()
	if err != nil {
		return err
	}
	now := s.now().In(loc)

	bookings, err := s.bookings.ListConfirmed(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("concierge.confirmed_count", len(bookings)))

	for i := range bookings {
		b := &bookings[i]
		starts, err := b.StartsAt(loc)
		if err != nil {
			s.logger.Warn("unparseable booking slot", "ref", b.RefID, "error", err)
			continue
		}
		diff := starts.Sub(now)

		switch {
		case diff <= 0:
			s.flagNoShowRisk(ctx, b)
		case diff <= s.secondWindow && !b.SecondReminderSent:
			s.send(ctx, b, "second",
				"See you soon! Your "+b.Service+" is today at "+timetext.FormatTime(b.Time)+".\n"+
					"Reply YES to confirm or CANCEL if you can't make it.", now)
		case diff <= s.firstWindow && !b.FirstReminderSent:
			s.send(ctx, b, "first",
				"Reminder: your "+b.Service+" at "+s.biz.Name+" is on "+b.Date+" at "+timetext.FormatTime(b.Time)+".\n"+
					"Reply YES to confirm or CANCEL if you can't make it.", now)
		}
	}
	return nil
}

// send delivers one reminder and binds the session so the guest's next
// YES/CANCEL is routed back to this booking.
func (s *Sweeper) send(ctx context.Context, b *booking.Booking, window, text string, now time.Time) {
	if s.messages != nil {
		if err := s.messages.Send(ctx, b.Channel, b.Identity, text); err != nil {
			s.logger.Error("reminder delivery failed", "ref", b.RefID, "window", window, "error", err)
			return
		}
	}

	switch window {
	case "first":
		b.FirstReminderSent = true
	case "second":
		b.SecondReminderSent = true
	}
	if err := s.bookings.Update(ctx, b); err != nil {
		s.logger.Error("reminder flag update failed", "ref", b.RefID, "error", err)
		return
	}

	if s.sessions != nil {
		if err := s.sessions.BindReminder(ctx, b.Identity, b.RefID, now.UTC()); err != nil {
			s.logger.Error("reminder session bind failed", "ref", b.RefID, "error", err)
		}
	}

	s.metrics.ObserveSent(window)
	s.logger.Info("reminder sent", "ref", b.RefID, "window", window)
}

// flagNoShowRisk marks a booking whose start passed with a reminder out and
// no confirmation back.
func (s *Sweeper) flagNoShowRisk(ctx context.Context, b *booking.Booking) {
	if b.NoShowRisk || b.ReminderConfirmed {
		return
	}
	if !b.FirstReminderSent && !b.SecondReminderSent {
		return
	}

	b.NoShowRisk = true
	if err := s.bookings.Update(ctx, b); err != nil {
		s.logger.Error("no-show flag update failed", "ref", b.RefID, "error", err)
		return
	}
	s.metrics.ObserveNoShowRisk()
	s.logger.Warn("booking flagged as no-show risk", "ref", b.RefID, "identity", b.Identity)
}
