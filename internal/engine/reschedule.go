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

// initiateReschedule opens the reschedule flow from idle, seeding the
// proposal with the booking's current slot. It never answers the turn
// itself: the same message usually carries the requested change, so control
// falls straight into the reschedule handler.
func (e *Engine) initiateReschedule(ctx context.Context, sess *session.Session, in intent.Intent, msg Message, now time.Time) {
	if in != intent.IntentBookingReschedule || sess.State != session.StateIdle {
		return
	}

	sess.PendingService = ""
	sess.PendingDate = ""
	sess.PendingTime = ""
	sess.LastQuestion = ""

	target, found := e.findConfirmed(ctx, msg.Identity, booking.ExtractRefID(msg.Text))
	if !found {
		return
	}

	sess.State = session.StateRescheduleCollecting
	sess.RescheduleTargetRef = target.RefID
	sess.RescheduleNewDate = target.Date
	sess.RescheduleNewTime = target.Time
	sess.ResetFailures()
}

// handleReschedule runs the proposal-patch model: the user edits a copy of
// the slot, we validate and check availability, then ask for a yes/no.
func (e *Engine) handleReschedule(ctx context.Context, sess *session.Session, in intent.Intent, ex intent.Extraction, msg Message, now time.Time) Outcome {
	// An idle reschedule intent that found no booking answers here.
	if in == intent.IntentBookingReschedule && sess.State == session.StateIdle {
		return handled("booking_reschedule", "I couldn't find a confirmed appointment to reschedule. If you have a reference ID, please share it.")
	}

	if sess.State == session.StateRescheduleCollecting {
		return e.rescheduleCollect(ctx, sess, ex, msg, now)
	}
	if sess.State == session.StateRescheduleConfirm {
		return e.rescheduleConfirm(ctx, sess, in, ex, msg, now)
	}
	return fallthru
}

func (e *Engine) rescheduleCollect(ctx context.Context, sess *session.Session, ex intent.Extraction, msg Message, now time.Time) Outcome {
	original, err := e.bookings.GetByRef(ctx, msg.Identity, sess.RescheduleTargetRef)
	if err != nil || original.Status != booking.StatusConfirmed {
		sess.Reset(now)
		return handled("reschedule_failed", "I couldn't find that appointment anymore. Please try again.")
	}

	changedSomething := false
	if date := e.safeExtractDate(ex, msg.Text, now); date != "" {
		sess.RescheduleNewDate = date
		changedSomething = true
	}
	if hhmm := e.safeExtractTime(ex, msg.Text); hhmm != "" {
		sess.RescheduleNewTime = hhmm
		changedSomething = true
	}

	if !changedSomething {
		return handled("reschedule_in_progress", "What would you like to change — date, time, or both?")
	}

	ok, _, errMsg := e.biz.Validate(sess.RescheduleNewDate, sess.RescheduleNewTime, now)
	if !ok {
		sess.RecordFailure(now)
		if sess.ShouldHandoff() {
			return Outcome{Handled: true, Reply: e.offerHandoff(ctx, sess, msg, now,
				"Sorry — I'm having trouble rescheduling. Please call "+e.biz.ContactPhone+" and we'll help you.")}
		}
		// The proposal stays intact so the user can correct just one field.
		return handled("reschedule_invalid", errMsg)
	}

	taken, err := e.slots.IsSlotTaken(ctx, sess.RescheduleNewDate, sess.RescheduleNewTime)
	if err != nil {
		e.log.Error("slot check failed", "identity", msg.Identity, "error", err)
	}
	if taken {
		return handled("reschedule_unavailable", e.unavailableReply(ctx, sess.RescheduleNewDate, sess.RescheduleNewTime))
	}

	var changes []string
	if original.Date != sess.RescheduleNewDate {
		changes = append(changes, "date → "+sess.RescheduleNewDate)
	}
	if original.Time != sess.RescheduleNewTime {
		changes = append(changes, "time → "+timetext.FormatTime(sess.RescheduleNewTime))
	}

	if len(changes) == 0 {
		return handled("reschedule_no_change", "You're already booked for that same slot. Would you like to keep it as is?")
	}

	sess.State = session.StateRescheduleConfirm
	sess.ResetFailures()
	return handled("reschedule_confirm",
		"Update appointment: "+strings.Join(changes, ", ")+"?\nReply YES to confirm or NO to cancel.")
}

func (e *Engine) rescheduleConfirm(ctx context.Context, sess *session.Session, in intent.Intent, ex intent.Extraction, msg Message, now time.Time) Outcome {
	// The user may keep editing from the confirmation question.
	if date := e.safeExtractDate(ex, msg.Text, now); date != "" {
		sess.State = session.StateRescheduleCollecting
		return e.rescheduleCollect(ctx, sess, ex, msg, now)
	}
	if hhmm := e.safeExtractTime(ex, msg.Text); hhmm != "" {
		sess.State = session.StateRescheduleCollecting
		return e.rescheduleCollect(ctx, sess, ex, msg, now)
	}

	if in == intent.IntentBookingConfirm || saysYes(msg.Text) {
		target, err := e.bookings.GetByRef(ctx, msg.Identity, sess.RescheduleTargetRef)
		if err != nil || target.Status != booking.StatusConfirmed {
			sess.Reset(now)
			return handled("reschedule_failed", "I couldn't find that appointment anymore.")
		}

		target.Date = sess.RescheduleNewDate
		target.Time = sess.RescheduleNewTime
		e.updateCalendarEvent(ctx, target)
		if err := e.bookings.Update(ctx, target); err != nil {
			e.log.Error("reschedule update failed", "ref", target.RefID, "error", err)
		}

		sess.Reset(now)
		return handled("booking_rescheduled",
			"Perfect — you're all set for "+target.Date+" at "+timetext.FormatTime(target.Time)+".")
	}

	if in == intent.IntentBookingCancel || saysNo(msg.Text) {
		sess.Reset(now)
		return handled("reschedule_cancelled", "No problem — I didn't make any changes.")
	}

	return handled("reschedule_confirm", "Please reply YES to confirm the reschedule or NO to cancel.")
}

// unavailableReply renders the taken-slot message with nearby alternatives.
func (e *Engine) unavailableReply(ctx context.Context, date, hhmm string) string {
	lines := []string{"That time is already booked."}

	suggestions, err := e.slots.SuggestAround(ctx, date, hhmm, 5)
	if err != nil {
		e.log.Error("slot suggestions failed", "date", date, "error", err)
	}

	if len(suggestions.SameDay) > 0 {
		lines = append(lines, "Here are some available times on the same day: "+formatSlots(suggestions.SameDay)+".")
	}
	if len(suggestions.NextDay) > 0 {
		lines = append(lines, "If you prefer the next day, I can do: "+formatSlots(suggestions.NextDay)+".")
	}

	lines = append(lines, "Which time works for you?")
	return strings.Join(lines, "\n")
}

func formatSlots(slots []string) string {
	pretty := make([]string, len(slots))
	for i, s := range slots {
		pretty[i] = timetext.FormatTime(s)
	}
	return strings.Join(pretty, ", ")
}
