package intent

import (
	"strings"

	"github.com/glowdesk/concierge/internal/session"
)

// rescheduleVerbs are the words that, combined with a confirmed booking,
// turn a modify/request label into a reschedule.
var rescheduleVerbs = []string{"reschedule", "change", "modify", "move", "update", "shift"}

// Normalize deterministically corrects the classifier's label using session
// state and booking history. hasConfirmed reports whether the identity has a
// CONFIRMED booking. Rules apply in priority order; the first match wins.
func Normalize(raw Intent, userText string, state session.State, hasConfirmed bool) Intent {
	text := strings.ToLower(strings.TrimSpace(userText))

	// Mid-reschedule the flow must not be hijacked by a misclassification.
	if state == session.StateRescheduleCollecting || state == session.StateRescheduleConfirm {
		return IntentBookingReschedule
	}

	if (raw == IntentBookingModify || raw == IntentBookingRequest) && hasConfirmed {
		for _, v := range rescheduleVerbs {
			if strings.Contains(text, v) {
				return IntentBookingReschedule
			}
		}
	}

	// "Modify" while idle with nothing pending can only mean an existing
	// booking.
	if raw == IntentBookingModify && state == session.StateIdle && hasConfirmed {
		return IntentBookingReschedule
	}

	return raw
}
