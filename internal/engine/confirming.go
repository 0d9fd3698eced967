package engine

import (
	"context"
	"time"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/internal/timetext"
)

// handleConfirming resolves the yes/no/modify question over a PENDING
// booking. A deposit-bearing confirm does not confirm the booking yet — it
// opens the payment sub-protocol instead.
func (e *Engine) handleConfirming(ctx context.Context, sess *session.Session, in intent.Intent, ex intent.Extraction, msg Message, pending *booking.Booking, now time.Time) Outcome {
	if pending == nil || sess.State != session.StateConfirming {
		return fallthru
	}

	// Change of heart: fold any new fields in and drop back to collecting so
	// the proposal re-validates from scratch.
	if wantsToModify(in, msg.Text) {
		e.grabFields(sess, ex, msg.Text, now)

		pending.Status = booking.StatusCancelled
		if err := e.bookings.Update(ctx, pending); err != nil {
			e.log.Error("pending cancel failed", "ref", pending.RefID, "error", err)
		}

		sess.State = session.StateCollecting
		if len(sess.MissingFields()) > 0 {
			return handled("booking_modify", "Got it — updating your booking.")
		}
		// All fields present again; let the collecting handler re-run.
		return fallthru
	}

	if in == intent.IntentBookingConfirm || saysYes(msg.Text) {
		amount := e.deposits.Compute(pending.Service, pending.Date, pending.Time)

		if amount > 0 {
			return e.openPayment(ctx, sess, pending, amount, now)
		}

		pending.Status = booking.StatusConfirmed
		pending.ConfirmedAt = &now
		e.createCalendarEvent(ctx, pending)
		if err := e.bookings.Update(ctx, pending); err != nil {
			e.log.Error("confirm update failed", "ref", pending.RefID, "error", err)
		}

		sess.Reset(now)
		return handled("booking_confirmed",
			"Your appointment is confirmed!\nRef ID: "+pending.RefID+
				"\nSee you on "+pending.Date+" at "+timetext.FormatTime(pending.Time)+".")
	}

	if in == intent.IntentBookingCancel || saysNo(msg.Text) {
		pending.Status = booking.StatusCancelled
		if err := e.bookings.Update(ctx, pending); err != nil {
			e.log.Error("pending cancel failed", "ref", pending.RefID, "error", err)
		}

		sess.Reset(now)
		return handled("booking_cancelled", "No problem — the booking has been cancelled.")
	}

	return handled("awaiting_confirmation", "Please reply YES to confirm, or tell me what you'd like to change (service/date/time).")
}

// openPayment moves a deposit-bearing booking into the payment sub-protocol
// and tries to hand the user a checkout link inline.
func (e *Engine) openPayment(ctx context.Context, sess *session.Session, b *booking.Booking, amountCents int, now time.Time) Outcome {
	b.PaymentRequired = true
	b.PaymentStatus = booking.PaymentRequired
	b.DepositAmountCents = amountCents
	b.Currency = "usd"
	expiresAt := now.Add(e.paymentWindow)
	b.PaymentExpiresAt = &expiresAt

	text := "To confirm your " + b.Service + " appointment on " + b.Date + " at " +
		timetext.FormatTime(b.Time) + ", a small deposit is required.\n\n"

	if e.payments != nil {
		checkout, err := e.payments.CreateCheckout(ctx, b)
		if err != nil {
			b.PaymentAttempts++
			b.PaymentLastError = err.Error()
			e.log.Error("checkout creation failed", "ref", b.RefID, "error", err)
			text += "I'll send you a secure payment link shortly."
		} else {
			b.CheckoutSessionID = checkout.SessionID
			b.PaymentStatus = booking.PaymentCheckoutCreated
			text += "Pay securely here: " + checkout.URL
		}
	} else {
		text += "I'll send you a secure payment link next."
	}

	if err := e.bookings.Update(ctx, b); err != nil {
		e.log.Error("payment state update failed", "ref", b.RefID, "error", err)
	}

	sess.State = session.StatePaymentPending
	return handled("payment_required", text)
}

// expirePaymentIfNeeded releases a PENDING booking whose payment window has
// lapsed. Returns true when the booking was expired this turn.
func (e *Engine) expirePaymentIfNeeded(ctx context.Context, b *booking.Booking, now time.Time) bool {
	if b.Status != booking.StatusPending {
		return false
	}
	if b.PaymentStatus != booking.PaymentRequired && b.PaymentStatus != booking.PaymentCheckoutCreated {
		return false
	}
	if b.PaymentExpiresAt == nil || b.PaymentExpiresAt.After(now) {
		return false
	}

	b.PaymentStatus = booking.PaymentExpired
	b.Status = booking.StatusCancelled

	// Refund anything the processor may have captured in the window.
	if b.PaymentIntentID != "" && e.payments != nil {
		if err := e.payments.Refund(ctx, b.PaymentIntentID); err != nil {
			b.PaymentLastError = err.Error()
			e.log.Error("refund failed", "ref", b.RefID, "error", err)
		} else {
			b.PaymentStatus = booking.PaymentRefunded
		}
	}

	if err := e.bookings.Update(ctx, b); err != nil {
		e.log.Error("payment expiry update failed", "ref", b.RefID, "error", err)
	}
	return true
}

func (e *Engine) createCalendarEvent(ctx context.Context, b *booking.Booking) {
	if e.calendar == nil {
		return
	}

	startISO, endISO, err := calendarEventTimes(b.Date, b.Time, e.biz.SlotDurationMinutes, e.loc)
	if err != nil {
		e.log.Warn("calendar times failed", "ref", b.RefID, "error", err)
		return
	}

	title := e.biz.Name + " - " + b.Service
	eventID, err := e.calendar.CreateEvent(ctx, title, startISO, endISO, e.biz.Timezone)
	if err != nil {
		e.log.Warn("calendar create failed", "ref", b.RefID, "error", err)
		return
	}
	b.CalendarEventID = eventID
}

func (e *Engine) updateCalendarEvent(ctx context.Context, b *booking.Booking) {
	if e.calendar == nil || b.CalendarEventID == "" {
		return
	}

	startISO, endISO, err := calendarEventTimes(b.Date, b.Time, e.biz.SlotDurationMinutes, e.loc)
	if err != nil {
		e.log.Warn("calendar times failed", "ref", b.RefID, "error", err)
		return
	}

	title := e.biz.Name + " - " + b.Service
	if err := e.calendar.UpdateEvent(ctx, b.CalendarEventID, title, startISO, endISO, e.biz.Timezone); err != nil {
		e.log.Warn("calendar update failed", "ref", b.RefID, "error", err)
	}
}

// calendarEventTimes renders the slot as RFC3339 start/end in the business
// timezone.
func calendarEventTimes(date, hhmm string, durationMinutes int, loc *time.Location) (string, string, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, loc)
	if err != nil {
		return "", "", err
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return start.Format(time.RFC3339), end.Format(time.RFC3339), nil
}
