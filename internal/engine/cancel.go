package engine

import (
	"context"
	"errors"
	"time"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
)

// handleCancelConfirm resolves the yes/no question of the cancel flow.
func (e *Engine) handleCancelConfirm(ctx context.Context, sess *session.Session, in intent.Intent, msg Message, now time.Time) Outcome {
	if sess.State != session.StateCancelConfirm {
		return fallthru
	}

	if in == intent.IntentBookingConfirm || saysYes(msg.Text) {
		b, err := e.bookings.GetByRef(ctx, msg.Identity, sess.PendingBookingRef)
		if err == nil && b.Status == booking.StatusConfirmed {
			b.Status = booking.StatusCancelled
			if err := e.bookings.Update(ctx, b); err != nil {
				e.log.Error("cancel update failed", "ref", b.RefID, "error", err)
			}
			e.deleteCalendarEvent(ctx, b)
		}

		sess.State = session.StateIdle
		sess.PendingBookingRef = ""
		sess.ResetFailures()
		return handled("booking_cancelled", "Done — your appointment has been cancelled.")
	}

	if in == intent.IntentBookingCancel || saysNo(msg.Text) {
		sess.State = session.StateIdle
		sess.PendingBookingRef = ""
		sess.ResetFailures()
		return handled("cancel_aborted", "No worries — your appointment is still confirmed.")
	}

	return handled("cancel_confirmation", "Please reply YES to cancel or NO to keep your appointment.")
}

// initiateCancel starts the cancel flow from idle, honoring an explicit ref
// id when the message carries one.
func (e *Engine) initiateCancel(ctx context.Context, sess *session.Session, in intent.Intent, msg Message, now time.Time) Outcome {
	if in != intent.IntentBookingCancel || sess.State != session.StateIdle {
		return fallthru
	}

	sess.PendingService = ""
	sess.PendingDate = ""
	sess.PendingTime = ""
	sess.LastQuestion = ""

	target, found := e.findConfirmed(ctx, msg.Identity, booking.ExtractRefID(msg.Text))
	if !found {
		return handled("booking_cancel", "I couldn't find a confirmed appointment to cancel. If you have a reference ID, please share it.")
	}

	sess.State = session.StateCancelConfirm
	sess.PendingBookingRef = target.RefID
	sess.ResetFailures()
	return handled("cancel_confirmation",
		"Just to confirm — cancel your "+target.Service+" appointment on "+target.Date+" at "+timetextFormat(target.Time)+"?\n"+
			"Reply YES to cancel or NO to keep it.")
}

// findConfirmed locates a confirmed booking by ref, or the most recent one
// when no ref was given.
func (e *Engine) findConfirmed(ctx context.Context, identity, refID string) (*booking.Booking, bool) {
	if refID != "" {
		b, err := e.bookings.GetByRef(ctx, identity, refID)
		if err != nil || b.Status != booking.StatusConfirmed {
			return nil, false
		}
		return b, true
	}

	b, err := e.bookings.LatestWithStatus(ctx, identity, booking.StatusConfirmed)
	if err != nil {
		if !errors.Is(err, booking.ErrNotFound) {
			e.log.Error("confirmed booking lookup failed", "identity", identity, "error", err)
		}
		return nil, false
	}
	return b, true
}

func (e *Engine) deleteCalendarEvent(ctx context.Context, b *booking.Booking) {
	if e.calendar == nil || b.CalendarEventID == "" {
		return
	}
	if err := e.calendar.DeleteEvent(ctx, b.CalendarEventID); err != nil {
		e.log.Warn("calendar delete failed", "ref", b.RefID, "error", err)
	}
}
