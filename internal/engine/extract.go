package engine

import (
	"strings"
	"time"

	"github.com/glowdesk/concierge/internal/intent"
	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/internal/timetext"
)

// safeExtractDate resolves a date only when the classifier supplied one or
// the message clearly mentions one. Returned dates are ISO YYYY-MM-DD.
func (e *Engine) safeExtractDate(ex intent.Extraction, userText string, now time.Time) string {
	local := now.In(e.loc)

	if ex.Date != "" {
		if parsed, ok := timetext.ParseDate(ex.Date, local); ok {
			return parsed
		}
	}

	if timetext.MentionsDate(userText) {
		if phrase := timetext.ExtractDatePhrase(userText); phrase != "" {
			if parsed, ok := timetext.ParseDate(phrase, local); ok {
				return parsed
			}
		}
		if parsed, ok := timetext.ParseDate(userText, local); ok {
			return parsed
		}
	}

	return ""
}

// safeExtractTime resolves a time only when the classifier supplied one or
// the message clearly mentions one. Returned times are HH:MM, 24-hour.
func (e *Engine) safeExtractTime(ex intent.Extraction, userText string) string {
	if ex.Time != "" {
		if normalized, ok := timetext.NormalizeTime(ex.Time); ok {
			return normalized
		}
	}

	if timetext.MentionsTime(userText) {
		if inferred, ok := timetext.InferTime(userText); ok {
			return inferred
		}
	}

	return ""
}

// grabFields merges whatever the message carries into the pending booking.
func (e *Engine) grabFields(sess *session.Session, ex intent.Extraction, userText string, now time.Time) bool {
	changed := false

	if ex.Service != "" {
		sess.PendingService = ex.Service
		changed = true
	}
	if date := e.safeExtractDate(ex, userText, now); date != "" {
		sess.PendingDate = date
		changed = true
	}
	if hhmm := e.safeExtractTime(ex, userText); hhmm != "" {
		sess.PendingTime = hhmm
		changed = true
	}

	return changed
}

// wantsToModify detects a mid-confirmation change of heart: an explicit
// modify label, or change-words combined with a fresh date/time mention.
func wantsToModify(in intent.Intent, userText string) bool {
	if in == intent.IntentBookingModify {
		return true
	}

	t := strings.ToLower(userText)
	for _, k := range []string{"actually", "instead", "change", "make it", "update", "tomorrow", "today", "next"} {
		if strings.Contains(t, k) {
			if timetext.MentionsDate(userText) || timetext.MentionsTime(userText) {
				return true
			}
		}
	}
	return false
}
