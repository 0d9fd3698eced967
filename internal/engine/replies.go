package engine

import (
	"math/rand"
	"strings"

	"github.com/glowdesk/concierge/internal/session"
	"github.com/glowdesk/concierge/internal/timetext"
)

var (
	serviceQuestions = []string{
		"Which service would you like to book?",
		"What service are you looking for?",
	}
	dateQuestions = []string{
		"What date would you like?",
		"Which day should I book it for?",
	}
	timeQuestions = []string{
		"What time works best for you?",
		"Any preferred time?",
		"Morning, afternoon, or evening?",
	}
)

var yesWords = map[string]struct{}{
	"yes": {}, "y": {}, "yeah": {}, "yep": {}, "sure": {},
	"confirm": {}, "ok": {}, "okay": {}, "please": {}, "do it": {},
}

var noWords = map[string]struct{}{
	"no": {}, "n": {}, "nope": {}, "keep": {}, "dont": {}, "don't": {}, "stop": {},
}

func saysYes(text string) bool {
	_, ok := yesWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func saysNo(text string) bool {
	_, ok := noWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}

func timetextFormat(hhmm string) string {
	return timetext.FormatTime(hhmm)
}

// continuePrompt nudges a mid-booking user back to the next missing field
// after an FAQ detour.
func continuePrompt(sess *session.Session) string {
	missing := sess.MissingFields()
	if len(missing) == 0 {
		return "Great — please reply YES to confirm, or tell me what you'd like to change."
	}
	if len(missing) == 1 {
		switch missing[0] {
		case "service":
			return pick(serviceQuestions)
		case "date":
			return pick(dateQuestions)
		case "time":
			return pick(timeQuestions)
		}
	}
	return "To continue, please share the service, date, and time."
}
