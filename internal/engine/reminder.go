package engine

import (
	"context"
	"strings"
	"time"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
)

// handleReminderReply interprets the first message after a reminder went
// out. Confirm-like replies mark attendance, cancel-like replies jump into
// the cancel flow; anything else drops the reminder context and falls
// through to ordinary routing.
func (e *Engine) handleReminderReply(ctx context.Context, sess *session.Session, in intent.Intent, msg Message, now time.Time) Outcome {
	ref := sess.LastReminderBookingRef

	b, err := e.bookings.GetByRef(ctx, msg.Identity, ref)
	if err != nil || b.Status != booking.StatusConfirmed {
		sess.LastReminderBookingRef = ""
		return fallthru
	}

	text := strings.ToLower(strings.TrimSpace(msg.Text))

	if in == intent.IntentBookingConfirm || saysYes(msg.Text) {
		startsAt, err := b.StartsAt(e.loc)
		if err == nil && now.After(startsAt) {
			sess.LastReminderBookingRef = ""
			return handled("late_confirmation", "That appointment time has already passed. Would you like to book a new slot?")
		}

		// No-show risk only clears once the short-notice reminder was
		// answered; a day-ahead yes is not enough.
		if b.SecondReminderSent {
			b.NoShowRisk = false
		}
		b.ReminderConfirmed = true
		if err := e.bookings.Update(ctx, b); err != nil {
			e.log.Error("reminder confirmation update failed", "ref", ref, "error", err)
		}

		sess.LastReminderBookingRef = ""
		sess.ResetFailures()
		return handled("reminder_confirmed", "Perfect — we'll see you then!")
	}

	if in == intent.IntentBookingCancel || text == "cancel" {
		sess.LastReminderBookingRef = ""
		sess.State = session.StateCancelConfirm
		sess.PendingBookingRef = b.RefID
		return handled("cancel_confirmation",
			"Just to confirm — cancel your "+b.Service+" appointment on "+b.Date+" at "+timetextFormat(b.Time)+"?\n"+
				"Reply YES to cancel or NO to keep it.")
	}

	sess.LastReminderBookingRef = ""
	return fallthru
}
