package engine

import (
	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
)

// handleExpiredUX runs once after a timeout reset fired on the previous or
// current turn. The one-shot flag is always consumed here, whatever branch
// is taken; only users who were mid-booking get an expiry explanation.
func (e *Engine) handleExpiredUX(sess *session.Session, in intent.Intent, userText string) Outcome {
	if !sess.ExpiredLastTurn {
		return fallthru
	}

	prev := sess.ExpiredFromState
	sess.ClearExpiredFlags()

	if prev != session.StateCollecting && prev != session.StateConfirming {
		return fallthru
	}

	// A bare yes/no means they were trying to confirm something that no
	// longer exists.
	if in == intent.IntentBookingConfirm || in == intent.IntentBookingCancel || saysYes(userText) || saysNo(userText) {
		return handled("session_expired",
			"Welcome back! Your previous booking session expired, so I couldn't confirm it.\n"+
				"Please send the service + date + time again (example: 'Facial tomorrow at 6:30pm').")
	}

	// Unclear messages after a timeout get told about the expiry once.
	if in == intent.IntentFallback || in == intent.IntentInquiry {
		return handled("session_expired",
			"Welcome back! Our previous booking session expired.\nWhat would you like to book today?")
	}

	// FAQ, status, handoff and fresh booking intents proceed as normal.
	return fallthru
}
