package engine

import (
	"strings"
	"time"

	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/internal/timetext"
)

// handleFAQ answers immediately. Mid-booking the answer carries a nudge back
// to the flow; the FSM state itself never changes.
func (e *Engine) handleFAQ(sess *session.Session, in intent.Intent, now time.Time) Reply {
	answer := e.faqAnswer(in)
	sess.ResetFailures()

	if sess.State == session.StateCollecting || sess.State == session.StateConfirming {
		sess.Touch(now)
		return reply(string(in), answer+"\n\n"+continuePrompt(sess))
	}
	return reply(string(in), answer)
}

func (e *Engine) faqAnswer(in intent.Intent) string {
	switch in {
	case intent.IntentFAQHours:
		return "We're open from " + timetext.FormatTime(e.biz.BusinessHours.Start) +
			" to " + timetext.FormatTime(e.biz.BusinessHours.End) + "."
	case intent.IntentFAQAddress:
		return "We're located at: " + e.biz.Location
	case intent.IntentFAQServices:
		return "We offer: " + strings.Join(e.biz.Services, ", ") + ". Which one would you like to book?"
	case intent.IntentFAQPricing:
		return "Pricing depends on the service. Which service are you looking for?"
	}
	return ""
}

// inferFAQ guesses an FAQ intent from raw text when the classifier only
// managed a generic "inquiry".
func inferFAQ(userText string) intent.Intent {
	t := strings.ToLower(userText)

	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(t, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("hours", "open", "close", "timing", "working hours"):
		return intent.IntentFAQHours
	case contains("address", "location", "where are you", "where r you", "located"):
		return intent.IntentFAQAddress
	case contains("services", "service list", "what do you offer", "do you do"):
		return intent.IntentFAQServices
	case contains("price", "pricing", "cost", "how much", "charges", "$"):
		return intent.IntentFAQPricing
	}
	return ""
}
