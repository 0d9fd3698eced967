package engine

import (
	"context"
	"strings"
	"time"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/internal/timetext"
)

// closingAnchor seeds time suggestions when the user's own time was thrown
// out as invalid, so the alternatives cluster near the end of the day.
const closingAnchor = "19:00"

// handleCollecting gathers service, date and time, validates the completed
// triple, and creates the PENDING booking once a free valid slot is held.
func (e *Engine) handleCollecting(ctx context.Context, sess *session.Session, ex intent.Extraction, msg Message, now time.Time) Outcome {
	if sess.State != session.StateCollecting {
		return fallthru
	}

	e.grabFields(sess, ex, msg.Text, now)

	// Ask only for what is still missing, one field per turn.
	if sess.PendingService == "" {
		sess.LastQuestion = "service"
		return handled("booking_in_progress", pick(serviceQuestions))
	}
	if sess.PendingDate == "" {
		sess.LastQuestion = "date"
		return handled("booking_in_progress", pick(dateQuestions))
	}
	if sess.PendingTime == "" {
		sess.LastQuestion = "time"
		return handled("booking_in_progress", pick(timeQuestions))
	}

	ok, badField, errMsg := e.biz.Validate(sess.PendingDate, sess.PendingTime, now)
	if !ok {
		sess.RecordFailure(now)
		if sess.ShouldHandoff() {
			return Outcome{Handled: true, Reply: e.offerHandoff(ctx, sess, msg, now,
				"Sorry — I'm having trouble booking that. Please call "+e.biz.ContactPhone+" and we'll book it for you.")}
		}

		switch badField {
		case "time":
			sess.PendingTime = ""
		case "date":
			sess.PendingDate = ""
		}

		if badField == "time" && sess.PendingDate != "" {
			return handled("booking_invalid", e.invalidTimeReply(ctx, sess.PendingDate, errMsg))
		}
		return handled("booking_invalid", errMsg)
	}

	taken, err := e.slots.IsSlotTaken(ctx, sess.PendingDate, sess.PendingTime)
	if err != nil {
		e.log.Error("slot check failed", "identity", msg.Identity, "error", err)
	}
	if taken {
		text := e.unavailableReply(ctx, sess.PendingDate, sess.PendingTime)
		sess.PendingTime = ""
		return handled("booking_unavailable", text)
	}

	// One PENDING per identity: stale proposals give way to the new one.
	if _, err := e.bookings.CancelPending(ctx, msg.Identity); err != nil {
		e.log.Error("pending cleanup failed", "identity", msg.Identity, "error", err)
	}

	b := &booking.Booking{
		RefID:         booking.NewRefID(),
		Identity:      msg.Identity,
		Channel:       sess.Channel,
		Service:       sess.PendingService,
		Date:          sess.PendingDate,
		Time:          sess.PendingTime,
		Status:        booking.StatusPending,
		PaymentStatus: booking.PaymentNotRequired,
		Currency:      "usd",
		CreatedAt:     now,
	}
	if err := e.bookings.Create(ctx, b); err != nil {
		e.log.Error("booking create failed", "identity", msg.Identity, "error", err)
		return handled("error", "Sorry, something went wrong creating your booking. Please try again.")
	}

	sess.State = session.StateConfirming
	sess.LastQuestion = ""
	sess.ResetFailures()
	return handled("booking_pending",
		sess.PendingService+" is available on "+sess.PendingDate+" at "+timetext.FormatTime(sess.PendingTime)+".\n"+
			"Would you like me to confirm the appointment?")
}

// invalidTimeReply pairs the validation message with nearby valid slots so
// the user can answer with one word.
func (e *Engine) invalidTimeReply(ctx context.Context, date, errMsg string) string {
	lines := []string{errMsg}

	suggestions, err := e.slots.SuggestAround(ctx, date, closingAnchor, 5)
	if err != nil {
		e.log.Error("slot suggestions failed", "date", date, "error", err)
	}

	if len(suggestions.SameDay) > 0 {
		lines = append(lines, "Available times that day: "+formatSlots(suggestions.SameDay))
	}
	if len(suggestions.NextDay) > 0 {
		lines = append(lines, "Or the next morning: "+formatSlots(suggestions.NextDay))
	}

	lines = append(lines, "What time would you like?")
	return strings.Join(lines, "\n")
}
